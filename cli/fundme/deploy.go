package fundme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var contractsFlag = &cli.StringFlag{
	Name:  "contracts",
	Value: "./contracts",
	Usage: "Directory with compiled contracts",
}

// Compiled contract locations relative to the contracts directory, without
// extensions.
var (
	fundMePath = filepath.Join("fundme", "fundme")
	mockPath   = filepath.Join("mockaggregator", "aggregator")
)

func deploy(ctx *cli.Context) error {
	dir := ctx.String(contractsFlag.Name)
	// Fail early, before asking for a password.
	for _, p := range []string{fundMePath, mockPath} {
		if _, _, err := readContract(filepath.Join(dir, p)); err != nil {
			return cli.Exit(err, 1)
		}
	}
	return sendTx(ctx, func(s *session) (*state.AppExecResult, error) {
		var feed util.Uint160
		if s.cfg.IsDevelopment(s.magic) {
			s.log.Info("development network detected, deploying mock price feed",
				zap.Int("decimals", s.cfg.MockFeed.Decimals),
				zap.Int64("answer", s.cfg.MockFeed.InitialAnswer))
			h, _, err := s.deployContract(filepath.Join(dir, mockPath),
				[]any{int64(s.cfg.MockFeed.Decimals), s.cfg.MockFeed.InitialAnswer})
			if err != nil {
				return nil, fmt.Errorf("mock price feed: %w", err)
			}
			s.log.Info("mock price feed deployed", zap.Stringer("hash", h))
			feed = h
		} else {
			h, err := s.cfg.PriceFeed(s.magic)
			if err != nil {
				return nil, err
			}
			feed = h
		}

		h, aer, err := s.deployContract(filepath.Join(dir, fundMePath), feed)
		if err != nil {
			return nil, fmt.Errorf("FundMe: %w", err)
		}
		s.log.Info("FundMe deployed", zap.Stringer("hash", h), zap.Stringer("price feed", feed))
		fmt.Fprintf(ctx.App.Writer, "FundMe: 0x%s\nPrice feed: 0x%s\n", h.StringLE(), feed.StringLE())
		return aer, nil
	})
}

// deployContract deploys the contract from base.nef and base.manifest.json
// with the given _deploy data.
func (s *session) deployContract(base string, data any) (util.Uint160, *state.AppExecResult, error) {
	nefFile, m, err := readContract(base)
	if err != nil {
		return util.Uint160{}, nil, err
	}
	aer, err := s.wait(management.New(s.act).Deploy(nefFile, m, data))
	if err != nil {
		return util.Uint160{}, nil, err
	}
	return state.CreateContractHash(s.act.Sender(), nefFile.Checksum, m.Name), aer, nil
}

func readContract(base string) (*nef.File, *manifest.Manifest, error) {
	b, err := os.ReadFile(base + ".nef")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read NEF: %w", err)
	}
	nefFile, err := nef.FileFromBytes(b)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode NEF %s: %w", base+".nef", err)
	}

	b, err = os.ReadFile(base + ".manifest.json")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m := new(manifest.Manifest)
	if err := json.Unmarshal(b, m); err != nil {
		return nil, nil, fmt.Errorf("failed to decode manifest %s: %w", base+".manifest.json", err)
	}
	return &nefFile, m, nil
}
