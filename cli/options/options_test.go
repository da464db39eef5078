package options

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neo-fundme/fundme/cli/flags"
	"github.com/neo-fundme/fundme/cli/input"
	"github.com/neo-fundme/fundme/internal/rpctest"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

const testPassword = "one"

func newContext(t *testing.T, setup func(*flag.FlagSet)) *cli.Context {
	set := flag.NewFlagSet("flagSet", flag.ContinueOnError)
	set.String(RPCEndpointFlag, "", "")
	set.Duration("timeout", 0, "")
	set.String("wallet", "", "")
	set.String("wallet-config", "", "")
	set.String(Config.Name, DefaultConfigPath, "")
	set.Var(new(flags.Hash), "address", "")
	if setup != nil {
		setup(set)
	}
	app := cli.NewApp()
	app.Writer = new(bytes.Buffer)
	return cli.NewContext(app, set, nil)
}

// newWallet creates a wallet with a single encrypted account.
func newWallet(t *testing.T) (string, *wallet.Account) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	w, err := wallet.NewWallet(path)
	require.NoError(t, err)
	w.Scrypt = keys.ScryptParams{N: 2, R: 1, P: 1}

	acc, err := wallet.NewAccount()
	require.NoError(t, err)
	require.NoError(t, acc.Encrypt(testPassword, w.Scrypt))
	w.AddAccount(acc)
	require.NoError(t, w.Save())
	w.Close()
	return path, acc
}

func TestGetTimeoutContext(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		start := time.Now()
		actualCtx, cancel := GetTimeoutContext(newContext(t, nil), false)
		defer cancel()
		end := time.Now()
		dl, _ := actualCtx.Deadline()
		require.True(t, start.Add(DefaultTimeout).Compare(dl) <= 0 && dl.Before(end.Add(DefaultTimeout).Add(time.Millisecond)))
	})

	t.Run("await", func(t *testing.T) {
		start := time.Now()
		actualCtx, cancel := GetTimeoutContext(newContext(t, nil), true)
		defer cancel()
		dl, _ := actualCtx.Deadline()
		require.True(t, dl.After(start.Add(DefaultTimeout)))
	})

	t.Run("set", func(t *testing.T) {
		start := time.Now()
		ctx := newContext(t, func(set *flag.FlagSet) {
			require.NoError(t, set.Set("timeout", "20ns"))
		})
		actualCtx, cancel := GetTimeoutContext(ctx, true)
		defer cancel()
		end := time.Now()
		dl, _ := actualCtx.Deadline()
		require.True(t, start.Before(dl) && dl.Before(end.Add(time.Nanosecond*20)))
	})
}

func TestGetRPCClient(t *testing.T) {
	srv := rpctest.NewServer(t)

	t.Run("no endpoint", func(t *testing.T) {
		ctx := newContext(t, nil)
		gctx, cancel := GetTimeoutContext(ctx, false)
		defer cancel()
		_, ec := GetRPCClient(gctx, ctx)
		require.Equal(t, 1, ec.ExitCode())
	})

	t.Run("unreachable", func(t *testing.T) {
		ctx := newContext(t, func(set *flag.FlagSet) {
			require.NoError(t, set.Set(RPCEndpointFlag, "http://localhost:1"))
		})
		gctx, cancel := GetTimeoutContext(ctx, false)
		defer cancel()
		_, ec := GetRPCClient(gctx, ctx)
		require.Equal(t, 1, ec.ExitCode())
	})

	t.Run("positive", func(t *testing.T) {
		ctx := newContext(t, func(set *flag.FlagSet) {
			require.NoError(t, set.Set(RPCEndpointFlag, srv.URL))
		})
		gctx, cancel := GetTimeoutContext(ctx, false)
		defer cancel()
		c, inv, ec := GetRPCWithInvoker(gctx, ctx)
		require.Nil(t, ec)
		require.NotNil(t, inv)
		c.Close()
	})
}

func TestGetUnlockedAccount(t *testing.T) {
	path, acc := newWallet(t)
	addr := acc.ScriptHash()

	load := func(t *testing.T) *wallet.Wallet {
		w, err := wallet.NewWalletFromFile(path)
		require.NoError(t, err)
		t.Cleanup(w.Close)
		return w
	}

	t.Run("password given", func(t *testing.T) {
		pass := testPassword
		a, err := GetUnlockedAccount(new(bytes.Buffer), load(t), addr, &pass)
		require.NoError(t, err)
		require.True(t, a.CanSign())
	})

	t.Run("wrong password", func(t *testing.T) {
		pass := "two"
		_, err := GetUnlockedAccount(new(bytes.Buffer), load(t), addr, &pass)
		require.Error(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		pass := testPassword
		_, err := GetUnlockedAccount(new(bytes.Buffer), load(t), util.Uint160{1, 2, 3}, &pass)
		require.ErrorContains(t, err, "wallet contains no account")
	})

	t.Run("password prompt", func(t *testing.T) {
		input.Stdin = strings.NewReader(testPassword + "\n")
		t.Cleanup(func() { input.Stdin = nil })
		out := new(bytes.Buffer)
		a, err := GetUnlockedAccount(out, load(t), addr, nil)
		require.NoError(t, err)
		require.True(t, a.CanSign())
		require.Contains(t, out.String(), "Enter account")
	})

	t.Run("no password", func(t *testing.T) {
		input.Stdin = strings.NewReader("")
		t.Cleanup(func() { input.Stdin = nil })
		_, err := GetUnlockedAccount(new(bytes.Buffer), load(t), addr, nil)
		require.ErrorContains(t, err, "error reading password")
	})
}

func TestGetAccFromContext(t *testing.T) {
	path, acc := newWallet(t)

	t.Run("no wallet", func(t *testing.T) {
		_, _, err := GetAccFromContext(newContext(t, nil))
		require.ErrorIs(t, err, errNoWallet)
	})

	t.Run("conflicting flags", func(t *testing.T) {
		_, _, err := GetAccFromContext(newContext(t, func(set *flag.FlagSet) {
			require.NoError(t, set.Set("wallet", path))
			require.NoError(t, set.Set("wallet-config", path))
		}))
		require.ErrorIs(t, err, errConflictingWalletFlags)
	})

	t.Run("wallet config", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "wallet.yml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("Path: "+path+"\nPassword: "+testPassword+"\n"), 0o644))

		a, w, err := GetAccFromContext(newContext(t, func(set *flag.FlagSet) {
			require.NoError(t, set.Set("wallet-config", cfgPath))
		}))
		require.NoError(t, err)
		t.Cleanup(w.Close)
		require.Equal(t, acc.ScriptHash(), a.ScriptHash())
		require.True(t, a.CanSign())
	})

	t.Run("explicit address", func(t *testing.T) {
		input.Stdin = strings.NewReader(testPassword + "\n")
		t.Cleanup(func() { input.Stdin = nil })
		a, w, err := GetAccFromContext(newContext(t, func(set *flag.FlagSet) {
			require.NoError(t, set.Set("wallet", path))
			require.NoError(t, set.Set("address", acc.Address))
		}))
		require.NoError(t, err)
		t.Cleanup(w.Close)
		require.Equal(t, acc.ScriptHash(), a.ScriptHash())
	})
}

func TestReadWalletConfig(t *testing.T) {
	_, err := ReadWalletConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorContains(t, err, "unable to read wallet config")

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("Path: [a"), 0o644))
	_, err = ReadWalletConfig(bad)
	require.ErrorContains(t, err, "failed to unmarshal")

	good := filepath.Join(t.TempDir(), "good.yml")
	require.NoError(t, os.WriteFile(good, []byte("Path: /tmp/wallet.json\nPassword: pass\n"), 0o644))
	cfg, err := ReadWalletConfig(good)
	require.NoError(t, err)
	require.Equal(t, "/tmp/wallet.json", cfg.Path)
	require.Equal(t, "pass", cfg.Password)
}

func TestGetConfigFromContext(t *testing.T) {
	ctx := newContext(t, func(set *flag.FlagSet) {
		require.NoError(t, set.Set(Config.Name, filepath.Join("..", "..", "config", "fundme.yml")))
	})
	cfg, err := GetConfigFromContext(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.DevelopmentNetworks)
}

func TestHandleLoggingParams(t *testing.T) {
	log, err := HandleLoggingParams(false)
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.DebugLevel))
	require.True(t, log.Core().Enabled(zapcore.InfoLevel))

	log, err = HandleLoggingParams(true)
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
