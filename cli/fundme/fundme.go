/*
Package fundme contains CLI commands working with a deployed FundMe
contract: querying its state, contributing, withdrawing and moving the
price of the mock feed on development networks.
*/
package fundme

import (
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/neo-fundme/fundme/cli/flags"
	"github.com/neo-fundme/fundme/cli/options"
	fundmerpc "github.com/neo-fundme/fundme/pkg/rpcclient/fundme"
	"github.com/neo-fundme/fundme/pkg/rpcclient/pricefeed"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/urfave/cli/v2"
)

// gasDecimals is the number of GAS decimals.
const gasDecimals = 8

var errNoFundMe = errors.New("no FundMe contract specified, use --fundme flag")

// NewCommands returns FundMe commands.
func NewCommands() []*cli.Command {
	queryFlags := slices.Concat([]cli.Flag{options.FundMe}, options.RPC)
	txFlags := slices.Concat([]cli.Flag{options.FundMe, options.Config, options.Debug}, options.RPC, options.Wallet)
	deployFlags := slices.Concat([]cli.Flag{options.Config, options.Debug, contractsFlag}, options.RPC, options.Wallet)
	return []*cli.Command{
		{
			Name:      "info",
			Usage:     "Show FundMe state: owner, price feed, funders and balance",
			UsageText: "info -r <endpoint> --fundme <hash>",
			Action:    info,
			Flags:     queryFlags,
		},
		{
			Name:      "fund",
			Usage:     "Contribute GAS to FundMe",
			UsageText: "fund -r <endpoint> -w <wallet> [-a <address>] --fundme <hash> --amount <GAS>",
			Description: `Transfers the given amount of GAS to FundMe and waits for the
   transaction to be accepted. The contribution must be worth at least 50 USD
   at the current price, use 'info' command to see the minimum.
`,
			Action: fund,
			Flags: slices.Concat(txFlags, []cli.Flag{&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount of GAS to contribute (decimal, e.g. 0.5)",
				Required: true,
			}}),
		},
		{
			Name:      "withdraw",
			Usage:     "Withdraw all collected GAS (owner only)",
			UsageText: "withdraw -r <endpoint> -w <wallet> [-a <address>] --fundme <hash> [--cheaper]",
			Action:    withdraw,
			Flags: slices.Concat(txFlags, []cli.Flag{&cli.BoolFlag{
				Name:  "cheaper",
				Usage: "Use cheaperWithdraw method",
			}}),
		},
		{
			Name:      "update-price",
			Usage:     "Set the answer of the mock price feed used by FundMe",
			UsageText: "update-price -r <endpoint> -w <wallet> [-a <address>] --fundme <hash> --answer <price>",
			Action:    updatePrice,
			Flags: slices.Concat(txFlags, []cli.Flag{&cli.StringFlag{
				Name:     "answer",
				Usage:    "New answer (integer, with feed decimals)",
				Required: true,
			}}),
		},
		{
			Name:      "deploy",
			Usage:     "Deploy FundMe (and the mock price feed on development networks)",
			UsageText: "deploy -r <endpoint> -w <wallet> [-a <address>] [--config <file>] [--contracts <dir>]",
			Description: `Deploys compiled FundMe contract. On networks listed in DevelopmentNetworks
   of the configuration file the mock price feed is deployed first and FundMe
   uses it, other networks use the PriceFeed from the configuration. Compiled
   contracts are expected to be in <dir>/fundme/fundme.{nef,manifest.json} and
   <dir>/mockaggregator/aggregator.{nef,manifest.json}, use 'neo-go contract
   compile' to produce them.
`,
			Action: deploy,
			Flags:  deployFlags,
		},
	}
}

func info(ctx *cli.Context) error {
	h, ok := flags.HashFromContext(ctx, options.FundMe.Name)
	if !ok {
		return cli.Exit(errNoFundMe, 1)
	}
	gctx, cancel := options.GetTimeoutContext(ctx, false)
	defer cancel()
	c, inv, exitErr := options.GetRPCWithInvoker(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	fm := fundmerpc.NewReader(inv, h)
	owner, err := fm.GetOwner()
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to get owner: %w", err), 1)
	}
	feed, err := fm.GetPriceFeed()
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to get price feed: %w", err), 1)
	}
	balance, err := gas.NewReader(inv).BalanceOf(h)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to get balance: %w", err), 1)
	}
	funders, err := fm.GetFunders()
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to get funders: %w", err), 1)
	}

	w := ctx.App.Writer
	fmt.Fprintf(w, "Owner:\t%s\n", address.Uint160ToString(owner))
	fmt.Fprintf(w, "Price feed:\t0x%s\n", feed.StringLE())
	fmt.Fprintf(w, "Balance:\t%s GAS\n", fixedn.ToString(balance, gasDecimals))
	minimum, err := fm.MinimumContribution()
	if err != nil {
		fmt.Fprintf(w, "Minimum:\tunavailable (%s)\n", err)
	} else {
		fmt.Fprintf(w, "Minimum:\t%s GAS\n", fixedn.ToString(minimum, gasDecimals))
	}
	fmt.Fprintf(w, "Funders:\t%d\n", len(funders))
	for _, f := range funders {
		amount, err := fm.GetAddressToAmountFunded(f)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to get amount funded by %s: %w", address.Uint160ToString(f), err), 1)
		}
		fmt.Fprintf(w, "\t%s\t%s GAS\n", address.Uint160ToString(f), fixedn.ToString(amount, gasDecimals))
	}
	return nil
}

func fund(ctx *cli.Context) error {
	amount, err := fixedn.FromString(ctx.String("amount"), gasDecimals)
	if err != nil {
		return cli.Exit(fmt.Errorf("invalid amount: %w", err), 1)
	}
	if amount.Sign() <= 0 {
		return cli.Exit("amount must be positive", 1)
	}
	return sendTx(ctx, withFundMe(func(s *session) (*state.AppExecResult, error) {
		aer, err := s.wait(s.fundMe.Fund(amount))
		if err != nil {
			return nil, err
		}
		events, err := fundmerpc.FundedEventsFromApplicationLog(appLog(aer))
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			s.log.Info("funded", zapAccount(e.Funder), zapGAS(e.Amount))
		}
		return aer, nil
	}))
}

func withdraw(ctx *cli.Context) error {
	cheaper := ctx.Bool("cheaper")
	return sendTx(ctx, withFundMe(func(s *session) (*state.AppExecResult, error) {
		var (
			aer *state.AppExecResult
			err error
		)
		if cheaper {
			aer, err = s.wait(s.fundMe.CheaperWithdraw())
		} else {
			aer, err = s.wait(s.fundMe.Withdraw())
		}
		if err != nil {
			return nil, err
		}
		events, err := fundmerpc.WithdrawnEventsFromApplicationLog(appLog(aer))
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			s.log.Info("withdrawn", zapAccount(e.Owner), zapGAS(e.Amount))
		}
		return aer, nil
	}))
}

func updatePrice(ctx *cli.Context) error {
	answer, ok := new(big.Int).SetString(ctx.String("answer"), 10)
	if !ok {
		return cli.Exit(fmt.Errorf("invalid answer: %q", ctx.String("answer")), 1)
	}
	return sendTx(ctx, withFundMe(func(s *session) (*state.AppExecResult, error) {
		h, err := s.fundMe.GetPriceFeed()
		if err != nil {
			return nil, fmt.Errorf("failed to get price feed: %w", err)
		}
		aer, err := s.wait(pricefeed.New(s.act, h).UpdateAnswer(answer))
		if err != nil {
			return nil, err
		}
		events, err := pricefeed.AnswerUpdatedEventsFromApplicationLog(appLog(aer))
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			s.log.Info("answer updated", zapInt("answer", e.Current), zapInt("round", e.RoundID))
		}
		return aer, nil
	}))
}

// withFundMe makes the action fail if no FundMe contract was given.
func withFundMe(action func(*session) (*state.AppExecResult, error)) func(*session) (*state.AppExecResult, error) {
	return func(s *session) (*state.AppExecResult, error) {
		if s.fundMe == nil {
			return nil, errNoFundMe
		}
		return action(s)
	}
}

// appLog wraps a single execution result into an application log.
func appLog(aer *state.AppExecResult) *result.ApplicationLog {
	return &result.ApplicationLog{
		Container:  aer.Container,
		Executions: []state.Execution{aer.Execution},
	}
}

// checkHalt returns an error if the transaction failed.
func checkHalt(aer *state.AppExecResult) error {
	if aer.VMState != vmstate.Halt {
		return fmt.Errorf("transaction %s failed: %s", aer.Container.StringLE(), aer.FaultException)
	}
	return nil
}
