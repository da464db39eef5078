/*
Package fundme contains RPC wrappers for the FundMe contract.

ContractReader provides safe methods, Contract adds contributions (GAS
transfers to the contract) and withdrawals. Errors caused by contract
failures can be checked with errors.Is against ErrNotOwner,
ErrInsufficientContribution and other sentinel errors of this package.
*/
package fundme

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	feedmath "github.com/neo-fundme/fundme/pkg/pricefeed"
	"github.com/neo-fundme/fundme/pkg/rpcclient/pricefeed"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Contract failures.
var (
	ErrNotOwner                 = errors.New("not owner")
	ErrInsufficientContribution = errors.New("insufficient contribution")
	ErrFunderIndexOutOfRange    = errors.New("funder index out of range")
	ErrOnlyGAS                  = errors.New("only GAS is accepted")
)

var contractErrors = []error{
	ErrNotOwner,
	ErrInsufficientContribution,
	ErrFunderIndexOutOfRange,
	ErrOnlyGAS,
}

// FundedEvent represents "Funded" event emitted by the contract.
type FundedEvent struct {
	Funder util.Uint160
	Amount *big.Int
}

// WithdrawnEvent represents "Withdrawn" event emitted by the contract.
type WithdrawnEvent struct {
	Owner  util.Uint160
	Amount *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	pricefeed.Invoker
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker
	nep17.Actor

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	Sender() util.Uint160
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract provides full FundMe interface, both safe and state-changing
// methods.
type Contract struct {
	ContractReader

	actor Actor
	gas   *nep17.Token
}

// NewReader creates an instance of ContractReader using the given contract
// hash and Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using the given contract hash and
// Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, gas.New(actor)}
}

// GetPriceFeed invokes `getPriceFeed` method of contract.
func (c *ContractReader) GetPriceFeed() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "getPriceFeed"))
}

// GetOwner invokes `getOwner` method of contract.
func (c *ContractReader) GetOwner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "getOwner"))
}

// GetAddressToAmountFunded returns the amount of GAS contributed by the
// funder since the last withdrawal.
func (c *ContractReader) GetAddressToAmountFunded(funder util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "getAddressToAmountFunded", funder))
}

// GetFunder returns the funder with the given index. ErrFunderIndexOutOfRange
// is returned for indexes outside of [0, GetFundersCount()).
func (c *ContractReader) GetFunder(index int64) (util.Uint160, error) {
	u, err := unwrap.Uint160(c.invoker.Call(c.hash, "getFunder", index))
	return u, contractError(err)
}

// GetFundersCount invokes `getFundersCount` method of contract.
func (c *ContractReader) GetFundersCount() (int64, error) {
	return unwrap.Int64(c.invoker.Call(c.hash, "getFundersCount"))
}

// GetFunders returns all funders since the last withdrawal in order of their
// first contribution.
func (c *ContractReader) GetFunders() ([]util.Uint160, error) {
	n, err := c.GetFundersCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get funders count: %w", err)
	}
	res := make([]util.Uint160, 0, n)
	for i := range n {
		f, err := c.GetFunder(i)
		if err != nil {
			return nil, fmt.Errorf("funder #%d: %w", i, err)
		}
		res = append(res, f)
	}
	return res, nil
}

// GetConversionRate returns the USD value (8 decimals) of the given GAS
// amount at the current price.
func (c *ContractReader) GetConversionRate(amount *big.Int) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "getConversionRate", amount))
}

// GetVersion returns the version of the price feed used by the contract.
func (c *ContractReader) GetVersion() (int64, error) {
	return unwrap.Int64(c.invoker.Call(c.hash, "getVersion"))
}

// MinimumContribution returns the smallest amount of GAS the contract
// accepts at the current price.
func (c *ContractReader) MinimumContribution() (*big.Int, error) {
	h, err := c.GetPriceFeed()
	if err != nil {
		return nil, fmt.Errorf("failed to get price feed: %w", err)
	}
	feed := pricefeed.NewReader(c.invoker, h)
	decimals, err := feed.Decimals()
	if err != nil {
		return nil, fmt.Errorf("failed to get feed decimals: %w", err)
	}
	round, err := feed.LatestRoundData()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	return feedmath.MinimumContribution(round.Answer, decimals)
}

// Fund creates a transaction transferring the given amount of GAS from the
// actor's sender to the contract, signs and sends it. The returned values are
// its hash, ValidUntilBlock value and an error, if any.
func (c *Contract) Fund(amount *big.Int) (util.Uint256, uint32, error) {
	h, vub, err := c.gas.Transfer(c.actor.Sender(), c.hash, amount, nil)
	return h, vub, contractError(err)
}

// FundTransaction is similar to Fund, but the transaction is only signed,
// not sent.
func (c *Contract) FundTransaction(amount *big.Int) (*transaction.Transaction, error) {
	tx, err := c.gas.TransferTransaction(c.actor.Sender(), c.hash, amount, nil)
	return tx, contractError(err)
}

// FundUnsigned is similar to Fund, but the transaction is neither signed nor
// sent.
func (c *Contract) FundUnsigned(amount *big.Int) (*transaction.Transaction, error) {
	tx, err := c.gas.TransferUnsigned(c.actor.Sender(), c.hash, amount, nil)
	return tx, contractError(err)
}

// Withdraw creates a transaction invoking `withdraw` method, signs and sends
// it. Only the owner can withdraw, ErrNotOwner is returned otherwise.
func (c *Contract) Withdraw() (util.Uint256, uint32, error) {
	return c.send("withdraw")
}

// WithdrawTransaction creates a transaction invoking `withdraw` method and
// signs it, but doesn't send it.
func (c *Contract) WithdrawTransaction() (*transaction.Transaction, error) {
	return c.make("withdraw")
}

// WithdrawUnsigned creates an unsigned transaction invoking `withdraw`
// method. Any fields of it that do not affect fees can be changed before
// signing.
func (c *Contract) WithdrawUnsigned() (*transaction.Transaction, error) {
	return c.makeUnsigned("withdraw")
}

// CheaperWithdraw is the same as Withdraw, but invokes `cheaperWithdraw`
// which costs less GAS.
func (c *Contract) CheaperWithdraw() (util.Uint256, uint32, error) {
	return c.send("cheaperWithdraw")
}

// CheaperWithdrawTransaction creates a transaction invoking
// `cheaperWithdraw` method and signs it, but doesn't send it.
func (c *Contract) CheaperWithdrawTransaction() (*transaction.Transaction, error) {
	return c.make("cheaperWithdraw")
}

// CheaperWithdrawUnsigned creates an unsigned transaction invoking
// `cheaperWithdraw` method.
func (c *Contract) CheaperWithdrawUnsigned() (*transaction.Transaction, error) {
	return c.makeUnsigned("cheaperWithdraw")
}

func (c *Contract) send(method string) (util.Uint256, uint32, error) {
	h, vub, err := c.actor.SendCall(c.hash, method)
	return h, vub, contractError(err)
}

func (c *Contract) make(method string) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeCall(c.hash, method)
	return tx, contractError(err)
}

func (c *Contract) makeUnsigned(method string) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeUnsignedCall(c.hash, method, nil)
	return tx, contractError(err)
}

// contractError wraps err with the matching contract failure if there is
// one.
func contractError(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range contractErrors {
		if strings.Contains(err.Error(), e.Error()) {
			return fmt.Errorf("%w: %w", e, err)
		}
	}
	return err
}

// FundedEventsFromApplicationLog retrieves a set of all emitted events with
// "Funded" name from the provided [result.ApplicationLog].
func FundedEventsFromApplicationLog(log *result.ApplicationLog) ([]*FundedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*FundedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Funded" {
				continue
			}
			event := new(FundedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize FundedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}
	return res, nil
}

// WithdrawnEventsFromApplicationLog retrieves a set of all emitted events
// with "Withdrawn" name from the provided [result.ApplicationLog].
func WithdrawnEventsFromApplicationLog(log *result.ApplicationLog) ([]*WithdrawnEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*WithdrawnEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Withdrawn" {
				continue
			}
			event := new(WithdrawnEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize WithdrawnEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}
	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to FundedEvent.
func (e *FundedEvent) FromStackItem(item *stackitem.Array) error {
	var err error
	e.Funder, e.Amount, err = accountAmount(item)
	return err
}

// FromStackItem converts provided [stackitem.Array] to WithdrawnEvent.
func (e *WithdrawnEvent) FromStackItem(item *stackitem.Array) error {
	var err error
	e.Owner, e.Amount, err = accountAmount(item)
	return err
}

func accountAmount(item *stackitem.Array) (util.Uint160, *big.Int, error) {
	if item == nil {
		return util.Uint160{}, nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return util.Uint160{}, nil, errors.New("not an array")
	}
	if len(arr) != 2 {
		return util.Uint160{}, nil, errors.New("wrong number of structure elements")
	}
	b, err := arr[0].TryBytes()
	if err != nil {
		return util.Uint160{}, nil, fmt.Errorf("field account: %w", err)
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, nil, fmt.Errorf("field account: %w", err)
	}
	amount, err := arr[1].TryInteger()
	if err != nil {
		return util.Uint160{}, nil, fmt.Errorf("field amount: %w", err)
	}
	return u, amount, nil
}
