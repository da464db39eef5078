/*
Package pricefeed contains RPC wrappers for price feed (aggregator) contracts.

ContractReader works with any feed implementing decimals, version,
description, latestRoundData and getRoundData methods. Contract adds
updateAnswer and updateRoundData state-changing methods of the mock feed
used on development networks.
*/
package pricefeed

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// MaxDecimals is the maximum number of decimals a feed can have.
const MaxDecimals = 18

// RoundData is a single round of the feed.
type RoundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
}

// AnswerUpdatedEvent represents "AnswerUpdated" event emitted by the feed.
type AnswerUpdatedEvent struct {
	Current   *big.Int
	RoundID   *big.Int
	UpdatedAt *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
}

// ContractReader implements safe feed methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract provides both safe and state-changing methods of the mock feed.
type Contract struct {
	ContractReader

	actor Actor
}

// NewReader creates an instance of ContractReader using the given contract
// hash and Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using the given contract hash and
// Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor}
}

// Hash returns the hash of the feed.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// Decimals returns the number of decimals feed answers have.
func (c *ContractReader) Decimals() (int, error) {
	r, err := c.invoker.Call(c.hash, "decimals")
	d, err := unwrap.LimitedInt64(r, err, 0, MaxDecimals)
	if err != nil {
		return 0, err
	}
	return int(d), nil
}

// Version invokes `version` method of the feed.
func (c *ContractReader) Version() (int64, error) {
	return unwrap.Int64(c.invoker.Call(c.hash, "version"))
}

// Description invokes `description` method of the feed.
func (c *ContractReader) Description() (string, error) {
	return unwrap.UTF8String(c.invoker.Call(c.hash, "description"))
}

// LatestRoundData returns the latest round of the feed.
func (c *ContractReader) LatestRoundData() (*RoundData, error) {
	return roundFromResult(c.invoker.Call(c.hash, "latestRoundData"))
}

// GetRoundData returns the given round of the feed.
func (c *ContractReader) GetRoundData(roundID *big.Int) (*RoundData, error) {
	return roundFromResult(c.invoker.Call(c.hash, "getRoundData", roundID))
}

// UpdateAnswer creates a transaction invoking `updateAnswer` method of the
// mock feed, signs and sends it. The returned values are its hash,
// ValidUntilBlock value and an error, if any.
func (c *Contract) UpdateAnswer(answer *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "updateAnswer", answer)
}

// UpdateAnswerTransaction creates a transaction invoking `updateAnswer`
// method and signs it, but doesn't send it.
func (c *Contract) UpdateAnswerTransaction(answer *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "updateAnswer", answer)
}

// UpdateAnswerUnsigned creates an unsigned transaction invoking
// `updateAnswer` method. Any fields of it that do not affect fees can be
// changed before signing.
func (c *Contract) UpdateAnswerUnsigned(answer *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "updateAnswer", nil, answer)
}

// UpdateRoundData creates a transaction invoking `updateRoundData` method of
// the mock feed, signs and sends it.
func (c *Contract) UpdateRoundData(r *RoundData) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "updateRoundData", r.RoundID, r.Answer, r.UpdatedAt, r.StartedAt)
}

// AnswerUpdatedEventsFromApplicationLog retrieves a set of all emitted
// events with "AnswerUpdated" name from the provided [result.ApplicationLog].
func AnswerUpdatedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AnswerUpdatedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AnswerUpdatedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AnswerUpdated" {
				continue
			}
			event := new(AnswerUpdatedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AnswerUpdatedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}
	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AnswerUpdatedEvent.
func (e *AnswerUpdatedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	vals, err := integers(item.Value(), 3)
	if err != nil {
		return err
	}
	e.Current, e.RoundID, e.UpdatedAt = vals[0], vals[1], vals[2]
	return nil
}

// FromStackItem converts the structure returned by the feed to RoundData.
func (r *RoundData) FromStackItem(item stackitem.Item) error {
	if item == nil {
		return errors.New("nil item")
	}
	vals, err := integers(item.Value(), 5)
	if err != nil {
		return err
	}
	r.RoundID, r.Answer, r.StartedAt, r.UpdatedAt, r.AnsweredInRound = vals[0], vals[1], vals[2], vals[3], vals[4]
	return nil
}

// ToStackItem implements stackitem.Convertible.
func (r *RoundData) ToStackItem() (stackitem.Item, error) {
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.Make(r.RoundID),
		stackitem.Make(r.Answer),
		stackitem.Make(r.StartedAt),
		stackitem.Make(r.UpdatedAt),
		stackitem.Make(r.AnsweredInRound),
	}), nil
}

func roundFromResult(r *result.Invoke, err error) (*RoundData, error) {
	itm, err := unwrap.Item(r, err)
	if err != nil {
		return nil, err
	}
	res := new(RoundData)
	err = res.FromStackItem(itm)
	if err != nil {
		return nil, fmt.Errorf("invalid round data: %w", err)
	}
	return res, nil
}

func integers(v any, n int) ([]*big.Int, error) {
	arr, ok := v.([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != n {
		return nil, errors.New("wrong number of structure elements")
	}
	res := make([]*big.Int, n)
	for i := range arr {
		bi, err := arr[i].TryInteger()
		if err != nil {
			return nil, fmt.Errorf("field #%d: %w", i, err)
		}
		res[i] = bi
	}
	return res, nil
}
