package fundme

import (
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

type testAct struct {
	err    error
	res    *result.Invoke
	tx     *transaction.Transaction
	txh    util.Uint256
	vub    uint32
	sender util.Uint160

	// calls records invoked methods, responses maps method to the result.
	calls     []string
	responses map[string]*result.Invoke
}

func (t *testAct) Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	t.calls = append(t.calls, operation)
	if r, ok := t.responses[operation]; ok {
		return r, t.err
	}
	return t.res, t.err
}
func (t *testAct) MakeRun(script []byte) (*transaction.Transaction, error) {
	return t.tx, t.err
}
func (t *testAct) MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error) {
	return t.tx, t.err
}
func (t *testAct) SendRun(script []byte) (util.Uint256, uint32, error) {
	return t.txh, t.vub, t.err
}
func (t *testAct) MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error) {
	t.calls = append(t.calls, method)
	return t.tx, t.err
}
func (t *testAct) MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error) {
	t.calls = append(t.calls, method)
	return t.tx, t.err
}
func (t *testAct) SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error) {
	t.calls = append(t.calls, method)
	return t.txh, t.vub, t.err
}
func (t *testAct) Sender() util.Uint160 {
	return t.sender
}

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{State: "HALT", Stack: items}
}

func fault(msg string) *result.Invoke {
	return &result.Invoke{State: "FAULT", FaultException: msg}
}

func TestReader(t *testing.T) {
	ta := new(testAct)
	fm := NewReader(ta, util.Uint160{1, 2, 3})
	acc := util.Uint160{4, 5, 6}

	ta.err = errors.New("")
	_, err := fm.GetOwner()
	require.Error(t, err)
	_, err = fm.GetFundersCount()
	require.Error(t, err)

	ta.err = nil
	ta.calls = nil
	ta.res = halt(stackitem.Make(acc.BytesBE()))
	for _, get := range []func() (util.Uint160, error){fm.GetOwner, fm.GetPriceFeed} {
		h, err := get()
		require.NoError(t, err)
		require.Equal(t, acc, h)
	}
	require.Equal(t, []string{"getOwner", "getPriceFeed"}, ta.calls)

	ta.res = halt(stackitem.Make(100500))
	amount, err := fm.GetAddressToAmountFunded(acc)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100500), amount)

	rate, err := fm.GetConversionRate(big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100500), rate)

	ta.res = halt(stackitem.Make(3))
	n, err := fm.GetFundersCount()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	v, err := fm.GetVersion()
	require.NoError(t, err)
	require.Equal(t, int64(3), v)

	ta.res = halt(stackitem.Make([]byte{1, 2, 3}))
	_, err = fm.GetOwner()
	require.Error(t, err)
}

func TestGetFunder(t *testing.T) {
	ta := new(testAct)
	fm := NewReader(ta, util.Uint160{1, 2, 3})

	ta.res = halt(stackitem.Make(util.Uint160{7}.BytesBE()))
	f, err := fm.GetFunder(0)
	require.NoError(t, err)
	require.Equal(t, util.Uint160{7}, f)

	ta.res = fault("at instruction 42 (THROW): unhandled exception: \"funder index out of range\"")
	_, err = fm.GetFunder(1)
	require.ErrorIs(t, err, ErrFunderIndexOutOfRange)
	require.NotErrorIs(t, err, ErrNotOwner)

	ta.res = fault("something else")
	_, err = fm.GetFunder(1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrFunderIndexOutOfRange)
}

func TestGetFunders(t *testing.T) {
	ta := new(testAct)
	fm := NewReader(ta, util.Uint160{1, 2, 3})

	ta.responses = map[string]*result.Invoke{
		"getFundersCount": halt(stackitem.Make(2)),
		"getFunder":       halt(stackitem.Make(util.Uint160{9}.BytesBE())),
	}
	funders, err := fm.GetFunders()
	require.NoError(t, err)
	require.Equal(t, []util.Uint160{{9}, {9}}, funders)
	require.Equal(t, []string{"getFundersCount", "getFunder", "getFunder"}, ta.calls)

	ta.responses["getFundersCount"] = halt(stackitem.Make(0))
	funders, err = fm.GetFunders()
	require.NoError(t, err)
	require.Empty(t, funders)

	ta.responses["getFundersCount"] = halt(stackitem.Make(1))
	ta.responses["getFunder"] = fault("funder index out of range")
	_, err = fm.GetFunders()
	require.ErrorIs(t, err, ErrFunderIndexOutOfRange)

	ta.responses["getFundersCount"] = fault("boom")
	_, err = fm.GetFunders()
	require.Error(t, err)
}

func TestMinimumContribution(t *testing.T) {
	ta := new(testAct)
	fm := NewReader(ta, util.Uint160{1, 2, 3})

	round := func(answer int64) *result.Invoke {
		return halt(stackitem.NewStruct([]stackitem.Item{
			stackitem.Make(1), stackitem.Make(answer), stackitem.Make(0), stackitem.Make(0), stackitem.Make(1),
		}))
	}
	ta.responses = map[string]*result.Invoke{
		"getPriceFeed":    halt(stackitem.Make(util.Uint160{5}.BytesBE())),
		"decimals":        halt(stackitem.Make(8)),
		"latestRoundData": round(2000_00000000),
	}
	m, err := fm.MinimumContribution()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2_500_000), m)

	ta.responses["decimals"] = halt(stackitem.Make(6))
	ta.responses["latestRoundData"] = round(3000_000000)
	m, err = fm.MinimumContribution()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_666_667), m)

	ta.responses["latestRoundData"] = round(0)
	_, err = fm.MinimumContribution()
	require.Error(t, err)

	for _, method := range []string{"getPriceFeed", "decimals", "latestRoundData"} {
		saved := ta.responses[method]
		ta.responses[method] = fault("boom")
		_, err = fm.MinimumContribution()
		require.Error(t, err)
		ta.responses[method] = saved
	}
}

func TestFund(t *testing.T) {
	ta := &testAct{sender: util.Uint160{4, 5, 6}}
	fm := New(ta, util.Uint160{1, 2, 3})

	ta.err = errors.New("script failed (FAULT state) due to an error: at instruction 1 (THROW): unhandled exception: \"insufficient contribution\"")
	_, _, err := fm.Fund(big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientContribution)
	_, err = fm.FundTransaction(big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientContribution)
	_, err = fm.FundUnsigned(big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientContribution)

	ta.err = errors.New("only GAS is accepted")
	_, _, err = fm.Fund(big.NewInt(1))
	require.ErrorIs(t, err, ErrOnlyGAS)

	ta.err = nil
	ta.txh = util.Uint256{1, 2, 3}
	ta.vub = 42
	h, vub, err := fm.Fund(big.NewInt(1_0000_0000))
	require.NoError(t, err)
	require.Equal(t, ta.txh, h)
	require.Equal(t, ta.vub, vub)

	ta.tx = &transaction.Transaction{Nonce: 100500, ValidUntilBlock: 42}
	tx, err := fm.FundTransaction(big.NewInt(1_0000_0000))
	require.NoError(t, err)
	require.Equal(t, ta.tx, tx)
	tx, err = fm.FundUnsigned(big.NewInt(1_0000_0000))
	require.NoError(t, err)
	require.Equal(t, ta.tx, tx)
}

func TestWithdraw(t *testing.T) {
	ta := new(testAct)
	fm := New(ta, util.Uint160{1, 2, 3})

	for name, send := range map[string]func() (util.Uint256, uint32, error){
		"withdraw":        fm.Withdraw,
		"cheaperWithdraw": fm.CheaperWithdraw,
	} {
		t.Run(name, func(t *testing.T) {
			ta.calls = nil
			ta.err = errors.New("not owner")
			_, _, err := send()
			require.ErrorIs(t, err, ErrNotOwner)

			ta.err = nil
			ta.txh = util.Uint256{3, 2, 1}
			ta.vub = 7
			h, vub, err := send()
			require.NoError(t, err)
			require.Equal(t, ta.txh, h)
			require.Equal(t, ta.vub, vub)
			require.Equal(t, []string{name, name}, ta.calls)
		})
	}

	for name, fn := range map[string]func() (*transaction.Transaction, error){
		"WithdrawTransaction":        fm.WithdrawTransaction,
		"WithdrawUnsigned":           fm.WithdrawUnsigned,
		"CheaperWithdrawTransaction": fm.CheaperWithdrawTransaction,
		"CheaperWithdrawUnsigned":    fm.CheaperWithdrawUnsigned,
	} {
		t.Run(name, func(t *testing.T) {
			ta.err = errors.New("rpc failed")
			_, err := fn()
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrNotOwner)

			ta.err = nil
			ta.tx = &transaction.Transaction{Nonce: 12345, ValidUntilBlock: 99}
			tx, err := fn()
			require.NoError(t, err)
			require.Equal(t, ta.tx, tx)
		})
	}
}

func TestEvents(t *testing.T) {
	_, err := FundedEventsFromApplicationLog(nil)
	require.Error(t, err)
	_, err = WithdrawnEventsFromApplicationLog(nil)
	require.Error(t, err)

	funder, owner := util.Uint160{1}, util.Uint160{2}
	event := func(name string, acc util.Uint160, amount int64) state.NotificationEvent {
		return state.NotificationEvent{Name: name, Item: stackitem.NewArray([]stackitem.Item{
			stackitem.Make(acc.BytesBE()), stackitem.Make(amount),
		})}
	}
	log := &result.ApplicationLog{
		Executions: []state.Execution{{
			Events: []state.NotificationEvent{
				event("Transfer", funder, 5),
				event("Funded", funder, 5),
				event("Transfer", owner, 5),
				event("Withdrawn", owner, 5),
			},
		}},
	}

	funded, err := FundedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*FundedEvent{{Funder: funder, Amount: big.NewInt(5)}}, funded)

	withdrawn, err := WithdrawnEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*WithdrawnEvent{{Owner: owner, Amount: big.NewInt(5)}}, withdrawn)

	log.Executions[0].Events[1].Item = stackitem.NewArray([]stackitem.Item{stackitem.Make(1)})
	_, err = FundedEventsFromApplicationLog(log)
	require.Error(t, err)

	log.Executions[0].Events[3].Item = stackitem.NewArray([]stackitem.Item{
		stackitem.Make([]byte{1, 2}), stackitem.Make(1),
	})
	_, err = WithdrawnEventsFromApplicationLog(log)
	require.Error(t, err)

	require.Error(t, new(FundedEvent).FromStackItem(nil))
}
