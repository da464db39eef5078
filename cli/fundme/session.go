package fundme

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"time"

	"github.com/neo-fundme/fundme/cli/flags"
	"github.com/neo-fundme/fundme/cli/options"
	"github.com/neo-fundme/fundme/pkg/config"
	fundmerpc "github.com/neo-fundme/fundme/pkg/rpcclient/fundme"
	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// confirmationPollInterval is the interval between block count requests
// while waiting for confirmations.
var confirmationPollInterval = time.Second

// session is everything a state-changing command needs.
type session struct {
	ctx    context.Context
	log    *zap.Logger
	cfg    config.Config
	magic  netmode.Magic
	client *rpcclient.Client
	act    *actor.Actor
	// fundMe is nil if no contract was given.
	fundMe *fundmerpc.Contract
}

// sendTx opens a session for the command and runs the action in it. The
// hash of the resulting transaction is printed.
func sendTx(ctx *cli.Context, action func(*session) (*state.AppExecResult, error)) error {
	log, err := options.HandleLoggingParams(ctx.Bool(options.Debug.Name))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	acc, _, err := options.GetAccFromContext(ctx)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to load account: %w", err), 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx, true)
	defer cancel()
	c, act, exitErr := options.GetRPCWithActor(gctx, ctx, acc)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	magic := act.GetNetwork()
	s := &session{
		ctx:    gctx,
		log:    log.With(zap.Stringer("network", magic)),
		cfg:    cfg,
		magic:  magic,
		client: c,
		act:    act,
	}
	if h, ok := flags.HashFromContext(ctx, options.FundMe.Name); ok {
		s.fundMe = fundmerpc.New(act, h)
	}
	s.log.Debug("session opened", zapAccount(act.Sender()))

	aer, err := action(s)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, aer.Container.StringLE())
	return nil
}

// loadConfig loads the configuration from the file given. The default file
// is optional, default configuration is used if it doesn't exist.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil && !ctx.IsSet(options.Config.Name) && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// wait awaits the transaction sent, checks its state and waits for the
// number of confirmations configured for the network.
func (s *session) wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, err
	}
	s.log.Debug("transaction sent", zap.Stringer("hash", h), zap.Uint32("vub", vub))
	aer, err := s.act.Wait(h, vub, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to await transaction %s: %w", h.StringLE(), err)
	}
	if err := checkHalt(aer); err != nil {
		return nil, err
	}
	s.log.Debug("transaction accepted", zap.Stringer("hash", h), zap.Int64("gas", aer.GasConsumed))
	if err := s.confirm(h); err != nil {
		return nil, err
	}
	return aer, nil
}

// confirm waits until the block with the transaction has the configured
// number of confirmations, the block itself is the first one.
func (s *session) confirm(h util.Uint256) error {
	n := s.cfg.BlockConfirmations(s.magic)
	if n <= 1 {
		return nil
	}
	height, err := s.client.GetTransactionHeight(h)
	if err != nil {
		return fmt.Errorf("failed to get transaction height: %w", err)
	}
	s.log.Info("waiting for confirmations", zap.Stringer("hash", h), zap.Uint32("confirmations", n))

	ticker := time.NewTicker(confirmationPollInterval)
	defer ticker.Stop()
	for {
		count, err := s.client.GetBlockCount()
		if err != nil {
			return fmt.Errorf("failed to get block count: %w", err)
		}
		if count >= height+n {
			return nil
		}
		select {
		case <-s.ctx.Done():
			return fmt.Errorf("waiting for %d confirmations of %s: %w", n, h.StringLE(), s.ctx.Err())
		case <-ticker.C:
		}
	}
}

func zapAccount(u util.Uint160) zap.Field {
	return zap.String("account", address.Uint160ToString(u))
}

func zapGAS(amount *big.Int) zap.Field {
	return zap.String("gas", fixedn.ToString(amount, gasDecimals))
}

func zapInt(key string, v *big.Int) zap.Field {
	return zap.Stringer(key, v)
}
