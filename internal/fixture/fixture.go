/*
Package fixture deploys FundMe onto a fresh simulated chain. It's the test
counterpart of deployment scripts: on development networks a mock price feed
is deployed first and FundMe is pointed to it, on other networks the feed
from the configuration is used.

All contracts are deployed by the same well-known deployer account, so their
hashes don't change from one chain to another.
*/
package fixture

import (
	"math/big"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/neo-fundme/fundme/pkg/config"
	neoconfig "github.com/nspcc-dev/neo-go/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	// deployerKey is the private key of the deployer (and thus the owner of
	// FundMe).
	deployerKey = "9c0b1f2a2a6b6d5a1d9c1f54c6a4f2d4e3e5c1b9e9ad7e4b76f1c9a8c0f3a7d1"

	// DeployerGAS is the initial GAS balance of the deployer.
	DeployerGAS = 1000_0000_0000
)

var (
	_, fixtureFile, _, _ = runtime.Caller(0)

	// ContractsPath is the directory with contract sources.
	ContractsPath = filepath.Join(filepath.Dir(fixtureFile), "..", "..", "contracts")
	// ConfigPath is the path to the repository configuration.
	ConfigPath = filepath.Join(filepath.Dir(fixtureFile), "..", "..", "config", "fundme.yml")
)

// Deployment is a chain with FundMe deployed onto it.
type Deployment struct {
	*neotest.Executor

	// Deployer is the account that deployed everything, it owns FundMe.
	Deployer neotest.Signer
	// FundMe is the hash of the FundMe contract.
	FundMe util.Uint160
	// PriceFeed is the hash of the price feed FundMe uses.
	PriceFeed util.Uint160
	// MockFeed tells whether PriceFeed is a mock deployed by the fixture.
	MockFeed bool
}

// Config loads the repository configuration.
func Config(t testing.TB) config.Config {
	cfg, err := config.LoadFile(ConfigPath)
	require.NoError(t, err)
	return cfg
}

// Deploy creates a unit test network chain and deploys contracts onto it.
func Deploy(t testing.TB, cfg config.Config) *Deployment {
	return DeployOn(t, cfg, netmode.UnitTestNet)
}

// DeployOn is similar to Deploy, but allows to choose the network magic.
func DeployOn(t testing.TB, cfg config.Config, magic netmode.Magic) *Deployment {
	log := zaptest.NewLogger(t).With(zap.Stringer("network", magic))

	st, err := newStore(cfg.Storage)
	require.NoError(t, err)
	bc, validator := chain.NewSingleWithCustomConfigAndStore(t, func(c *neoconfig.Blockchain) {
		c.Magic = magic
	}, st, true)
	e := neotest.NewExecutor(t, bc, validator, validator)

	d := &Deployment{
		Executor: e,
		Deployer: newDeployer(t),
	}
	e.ValidatorInvoker(bc.UtilityTokenHash()).Invoke(t, true, "transfer",
		e.Validator.ScriptHash(), d.Deployer.ScriptHash(), int64(DeployerGAS), nil)
	log.Info("deployer funded",
		zap.Stringer("account", d.Deployer.ScriptHash()),
		zap.Int64("gas", DeployerGAS))

	if cfg.IsDevelopment(magic) {
		log.Info("development network detected, deploying mocks")
		feed := neotest.CompileFile(t, d.Deployer.ScriptHash(),
			filepath.Join(ContractsPath, "mockaggregator"),
			filepath.Join(ContractsPath, "mockaggregator", "aggregator.yml"))
		e.DeployContractBy(t, d.Deployer, feed, []any{int64(cfg.MockFeed.Decimals), cfg.MockFeed.InitialAnswer})
		d.PriceFeed = feed.Hash
		d.MockFeed = true
		log.Info("mock price feed deployed",
			zap.Stringer("hash", feed.Hash),
			zap.Int("decimals", cfg.MockFeed.Decimals),
			zap.Int64("answer", cfg.MockFeed.InitialAnswer))
	} else {
		d.PriceFeed, err = cfg.PriceFeed(magic)
		require.NoError(t, err)
		log.Info("using configured price feed", zap.Stringer("hash", d.PriceFeed))
	}

	fundMe := neotest.CompileFile(t, d.Deployer.ScriptHash(),
		filepath.Join(ContractsPath, "fundme"),
		filepath.Join(ContractsPath, "fundme", "fundme.yml"))
	e.DeployContractBy(t, d.Deployer, fundMe, d.PriceFeed)
	d.FundMe = fundMe.Hash
	log.Info("FundMe deployed",
		zap.Stringer("hash", fundMe.Hash),
		zap.Stringer("feed", d.PriceFeed),
		zap.Uint32("height", bc.BlockHeight()))
	return d
}

// FundMeInvoker returns an invoker for FundMe signed by the given signers
// (the deployer if none given).
func (d *Deployment) FundMeInvoker(signers ...neotest.Signer) *neotest.ContractInvoker {
	if len(signers) == 0 {
		signers = []neotest.Signer{d.Deployer}
	}
	return d.NewInvoker(d.FundMe, signers...)
}

// FeedInvoker returns an invoker for the price feed signed by the deployer.
func (d *Deployment) FeedInvoker() *neotest.ContractInvoker {
	return d.NewInvoker(d.PriceFeed, d.Deployer)
}

// GASInvoker returns an invoker for the GAS contract signed by the given
// signer.
func (d *Deployment) GASInvoker(signer neotest.Signer) *neotest.ContractInvoker {
	return d.NewInvoker(d.Chain.UtilityTokenHash(), signer)
}

// Fund transfers the given amount of GAS from the signer to FundMe and
// checks that the contribution is accepted.
func (d *Deployment) Fund(t testing.TB, from neotest.Signer, amount int64) util.Uint256 {
	return d.GASInvoker(from).Invoke(t, true, "transfer",
		from.ScriptHash(), d.FundMe, amount, nil)
}

// FundFail transfers the given amount of GAS from the signer to FundMe and
// checks that the transfer fails with the given message.
func (d *Deployment) FundFail(t testing.TB, message string, from neotest.Signer, amount int64) util.Uint256 {
	return d.GASInvoker(from).InvokeFail(t, message, "transfer",
		from.ScriptHash(), d.FundMe, amount, nil)
}

// Balance returns GAS balance of the account.
func (d *Deployment) Balance(h util.Uint160) *big.Int {
	return d.Chain.GetUtilityTokenBalance(h)
}

// HashItem is the stack item FundMe getters return for a Hash160 value read
// from the storage.
func HashItem(u util.Uint160) stackitem.Item {
	return stackitem.NewBuffer(u.BytesBE())
}

// Fee returns the amount of GAS paid for the transaction.
func (d *Deployment) Fee(t testing.TB, h util.Uint256) *big.Int {
	tx, _, err := d.Chain.GetTransaction(h)
	require.NoError(t, err)
	return big.NewInt(tx.SystemFee + tx.NetworkFee)
}

func newDeployer(t testing.TB) neotest.Signer {
	pk, err := keys.NewPrivateKeyFromHex(deployerKey)
	require.NoError(t, err)
	return neotest.NewSingleSigner(wallet.NewAccountFromPrivateKey(pk))
}

func newStore(cfg dbconfig.DBConfiguration) (storage.Store, error) {
	if cfg.Type == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewStore(cfg)
}
