/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/neo-fundme/fundme/cli/flags"
	"github.com/neo-fundme/fundme/cli/input"
	"github.com/neo-fundme/fundme/pkg/config"
	neoconfig "github.com/nspcc-dev/neo-go/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimeout is the default timeout used for RPC requests.
	DefaultTimeout = 10 * time.Second
	// DefaultAwaitableTimeout is the default timeout used for commands that
	// wait for transactions to be accepted. It's the approximate time of
	// three Neo N3 mainnet blocks.
	DefaultAwaitableTimeout = 3 * 15 * time.Second
	// DefaultConfigPath is the default path to FundMe configuration.
	DefaultConfigPath = "./config/fundme.yml"
)

// RPCEndpointFlag is a long flag name for an RPC endpoint.
const RPCEndpointFlag = "rpc-endpoint"

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	&cli.StringFlag{
		Name:     RPCEndpointFlag,
		Aliases:  []string{"r"},
		Usage:    "RPC node address",
		Required: true,
	},
	&cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"s"},
		Usage:   "Timeout for the operation",
	},
}

// Wallet is a set of flags used for wallet operations.
var Wallet = []cli.Flag{
	&cli.StringFlag{
		Name:    "wallet",
		Aliases: []string{"w"},
		Usage:   "Wallet to use to get the key for transaction signing; conflicts with --wallet-config flag",
	},
	&cli.StringFlag{
		Name:  "wallet-config",
		Usage: "Path to wallet config to use to get the key for transaction signing; conflicts with --wallet flag",
	},
	&flags.HashFlag{
		Name:    "address",
		Aliases: []string{"a"},
		Usage:   "Account to sign with (the default wallet account if not given)",
	},
}

// FundMe is a flag for the FundMe contract hash.
var FundMe = &flags.HashFlag{
	Name:     "fundme",
	Aliases:  []string{"f"},
	Usage:    "FundMe contract hash or address",
	Required: true,
}

// Config is a flag for the FundMe configuration file.
var Config = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Value:   DefaultConfigPath,
	Usage:   "Path to the FundMe configuration file",
}

// Debug is a flag for commands that allow debug logging.
var Debug = &cli.BoolFlag{
	Name:    "debug",
	Aliases: []string{"d"},
	Usage:   "Enable debug logging",
}

var (
	errNoWallet               = errors.New("no wallet parameter found, specify it with the '--wallet' or '-w' flag or specify wallet config file with the '--wallet-config' flag")
	errConflictingWalletFlags = errors.New("--wallet flag conflicts with --wallet-config flag, please, provide one of them to specify wallet location")
)

// GetTimeoutContext returns a context.Context with the default or a user-set
// timeout. Awaiting commands get DefaultAwaitableTimeout by default.
func GetTimeoutContext(ctx *cli.Context, await bool) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
		if await {
			dur = DefaultAwaitableTimeout
		}
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetRPCClient returns an RPC client instance for the given Context.
func GetRPCClient(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, cli.ExitCoder) {
	endpoint := ctx.String(RPCEndpointFlag)
	if len(endpoint) == 0 {
		return nil, cli.Exit("no RPC endpoint specified, use option '--"+RPCEndpointFlag+"' or '-r'", 1)
	}
	c, err := rpcclient.New(gctx, endpoint, rpcclient.Options{})
	if err != nil {
		return nil, cli.Exit(err, 1)
	}
	err = c.Init()
	if err != nil {
		c.Close()
		return nil, cli.Exit(err, 1)
	}
	return c, nil
}

// GetRPCWithInvoker returns an RPC client and an Invoker without signers.
func GetRPCWithInvoker(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, *invoker.Invoker, cli.ExitCoder) {
	c, err := GetRPCClient(gctx, ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, invoker.New(c, nil), nil
}

// GetRPCWithActor returns an RPC client instance and an Actor signing with
// the given account.
func GetRPCWithActor(gctx context.Context, ctx *cli.Context, acc *wallet.Account) (*rpcclient.Client, *actor.Actor, cli.ExitCoder) {
	c, err := GetRPCClient(gctx, ctx)
	if err != nil {
		return nil, nil, err
	}
	a, actorErr := actor.NewSimple(c, acc)
	if actorErr != nil {
		c.Close()
		return nil, nil, cli.Exit(fmt.Errorf("failed to create Actor: %w", actorErr), 1)
	}
	return c, a, nil
}

// GetAccFromContext returns account and wallet from context. If address is
// not set, the default wallet address is used.
func GetAccFromContext(ctx *cli.Context) (*wallet.Account, *wallet.Wallet, error) {
	wPath := ctx.String("wallet")
	walletConfigPath := ctx.String("wallet-config")
	if len(wPath) != 0 && len(walletConfigPath) != 0 {
		return nil, nil, errConflictingWalletFlags
	}
	if len(wPath) == 0 && len(walletConfigPath) == 0 {
		return nil, nil, errNoWallet
	}
	var pass *string
	if len(walletConfigPath) != 0 {
		cfg, err := ReadWalletConfig(walletConfigPath)
		if err != nil {
			return nil, nil, err
		}
		wPath = cfg.Path
		pass = &cfg.Password
	}

	wall, err := wallet.NewWalletFromFile(wPath)
	if err != nil {
		return nil, nil, err
	}
	addr, ok := flags.HashFromContext(ctx, "address")
	if !ok {
		addr = wall.GetChangeAddress()
		if addr.Equals(util.Uint160{}) {
			return nil, wall, errors.New("can't get default address")
		}
	}

	acc, err := GetUnlockedAccount(ctx.App.Writer, wall, addr, pass)
	return acc, wall, err
}

// GetUnlockedAccount returns account from wallet, address and uses pass to
// unlock specified account if given. If the password is not given, then it
// is requested from user.
func GetUnlockedAccount(w io.Writer, wall *wallet.Wallet, addr util.Uint160, pass *string) (*wallet.Account, error) {
	acc := wall.GetAccount(addr)
	if acc == nil {
		return nil, fmt.Errorf("wallet contains no account for '%s'", address.Uint160ToString(addr))
	}

	if acc.CanSign() || acc.EncryptedWIF == "" {
		return acc, nil
	}

	if pass == nil {
		rawPass, err := input.ReadPassword(w,
			fmt.Sprintf("Enter account %s password > ", address.Uint160ToString(addr)))
		if err != nil {
			return nil, fmt.Errorf("error reading password: %w", err)
		}
		pass = &rawPass
	}
	err := acc.Decrypt(*pass, wall.Scrypt)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ReadWalletConfig reads wallet config from the given path.
func ReadWalletConfig(configPath string) (*neoconfig.Wallet, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read wallet config: %w", err)
	}

	cfg := &neoconfig.Wallet{}
	err = yaml.Unmarshal(configData, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet config YAML: %w", err)
	}
	return cfg, nil
}

// GetConfigFromContext loads FundMe configuration from the path given by
// the Config flag.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	return config.LoadFile(ctx.String(Config.Name))
}

// HandleLoggingParams creates a console logger writing to stderr, debug
// messages are only shown if debug is set.
func HandleLoggingParams(debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	return cc.Build()
}
