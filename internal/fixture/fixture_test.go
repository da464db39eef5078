package fixture

import (
	"path/filepath"
	"testing"

	"github.com/neo-fundme/fundme/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativehashes"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestDeploy(t *testing.T) {
	d := Deploy(t, Config(t))

	require.True(t, d.MockFeed)
	require.NotEqual(t, util.Uint160{}, d.PriceFeed)
	require.NotEqual(t, util.Uint160{}, d.FundMe)

	c := d.FundMeInvoker()
	c.Invoke(t, HashItem(d.PriceFeed), "getPriceFeed")
	c.Invoke(t, HashItem(d.Deployer.ScriptHash()), "getOwner")
	c.Invoke(t, 0, "getFundersCount")

	d.FeedInvoker().Invoke(t, 8, "decimals")
	require.Equal(t, 0, d.Balance(d.FundMe).Sign())
}

func TestContractPermissions(t *testing.T) {
	sender := newDeployer(t).ScriptHash()
	for _, tc := range []struct {
		dir, config string
		permitted   []util.Uint160
	}{
		{"fundme", "fundme.yml", []util.Uint160{nativehashes.StdLib, nativehashes.GasToken}},
		{"mockaggregator", "aggregator.yml", []util.Uint160{nativehashes.StdLib}},
	} {
		t.Run(tc.dir, func(t *testing.T) {
			ctr := neotest.CompileFile(t, sender, filepath.Join(ContractsPath, tc.dir),
				filepath.Join(ContractsPath, tc.dir, tc.config))
			var hashes []util.Uint160
			for _, p := range ctr.Manifest.Permissions {
				if p.Contract.Type == manifest.PermissionHash {
					hashes = append(hashes, p.Contract.Hash())
				}
			}
			require.ElementsMatch(t, tc.permitted, hashes)
		})
	}
}

func TestDeploySameHashes(t *testing.T) {
	cfg := Config(t)
	d1 := Deploy(t, cfg)
	d2 := Deploy(t, cfg)
	require.Equal(t, d1.FundMe, d2.FundMe)
	require.Equal(t, d1.PriceFeed, d2.PriceFeed)
}

func TestDeployConfiguredFeed(t *testing.T) {
	feed := util.Uint160{1, 2, 3}
	cfg := Config(t)
	cfg.DevelopmentNetworks = nil
	cfg.Networks[netmode.UnitTestNet.String()] = config.Network{PriceFeed: "0x" + feed.StringLE()}

	d := Deploy(t, cfg)
	require.False(t, d.MockFeed)
	require.Equal(t, feed, d.PriceFeed)
	d.FundMeInvoker().Invoke(t, HashItem(feed), "getPriceFeed")
}

func TestDeployPrivnet(t *testing.T) {
	d := DeployOn(t, Config(t), netmode.PrivNet)
	require.True(t, d.MockFeed)
	require.Equal(t, netmode.PrivNet, d.Chain.GetConfig().Magic)
}

func TestDeployBoltDB(t *testing.T) {
	cfg := Config(t)
	cfg.Storage = dbconfig.DBConfiguration{
		Type: dbconfig.BoltDB,
		BoltDBOptions: dbconfig.BoltDBOptions{
			FilePath: filepath.Join(t.TempDir(), "chain.bolt"),
		},
	}
	d := Deploy(t, cfg)
	d.FundMeInvoker().Invoke(t, HashItem(d.PriceFeed), "getPriceFeed")
}

func TestDeployLevelDB(t *testing.T) {
	cfg := Config(t)
	cfg.Storage = dbconfig.DBConfiguration{
		Type: dbconfig.LevelDB,
		LevelDBOptions: dbconfig.LevelDBOptions{
			DataDirectoryPath: t.TempDir(),
		},
	}
	d := Deploy(t, cfg)
	d.FundMeInvoker().Invoke(t, HashItem(d.Deployer.ScriptHash()), "getOwner")
}
