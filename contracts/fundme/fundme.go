/*
Package fundme contains a crowdfunding contract. Anyone can contribute GAS
worth at least MinimumUSD according to the price feed the contract was
deployed with; the contract owner can withdraw everything collected.

Contributions are plain GAS transfers to the contract, they're processed by
OnNEP17Payment. The price feed is expected to implement latestRoundData and
decimals methods of the aggregator interface (see contracts/mockaggregator).
*/
package fundme

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// MinimumUSD is the minimum contribution in USD (8 decimals).
const MinimumUSD = 50_00000000

const (
	ownerKey       = "owner"
	priceFeedKey   = "feed"
	funderCountKey = "n"

	// prefixAmount + funder -> contributed amount.
	prefixAmount = 'a'
	// prefixFunder + index -> funder.
	prefixFunder = "f"
)

// _deploy stores the price feed passed as deployment data and makes the
// sender of the deployment transaction the owner.
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}
	feed := data.(interop.Hash160)
	if len(feed) != interop.Hash160Len {
		panic("invalid price feed")
	}
	ctx := storage.GetContext()
	storage.Put(ctx, ownerKey, runtime.GetScriptContainer().Sender)
	storage.Put(ctx, priceFeedKey, feed)
}

// OnNEP17Payment accepts GAS contributions. The payment is rejected (and
// the whole transfer is reverted) if it's worth less than MinimumUSD.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	if !runtime.GetCallingScriptHash().Equals(gas.Hash) {
		panic("only GAS is accepted")
	}
	if len(from) != interop.Hash160Len {
		panic("invalid funder")
	}
	if GetConversionRate(amount) < MinimumUSD {
		panic("insufficient contribution")
	}

	ctx := storage.GetContext()
	key := amountKey(from)
	var funded int
	val := storage.Get(ctx, key)
	if val != nil {
		funded = val.(int)
	} else {
		n := fundersCount(ctx)
		storage.Put(ctx, funderKey(n), from)
		storage.Put(ctx, funderCountKey, n+1)
	}
	storage.Put(ctx, key, funded+amount)
	runtime.Notify("Funded", from, amount)
}

// Withdraw transfers the whole contract balance to the owner and resets
// all contributions.
func Withdraw() {
	ctx := storage.GetContext()
	owner := checkOwner(ctx)
	for i := 0; i < fundersCount(ctx); i++ {
		clearFunder(ctx, i)
	}
	storage.Delete(ctx, funderCountKey)
	payOwner(owner)
}

// CheaperWithdraw does the same thing Withdraw does, but it reads the number
// of funders from the storage only once.
func CheaperWithdraw() {
	ctx := storage.GetContext()
	owner := checkOwner(ctx)
	n := fundersCount(ctx)
	for i := 0; i < n; i++ {
		clearFunder(ctx, i)
	}
	storage.Delete(ctx, funderCountKey)
	payOwner(owner)
}

// GetPriceFeed returns the hash of the price feed used for conversion.
func GetPriceFeed() interop.Hash160 {
	return storage.Get(storage.GetReadOnlyContext(), priceFeedKey).(interop.Hash160)
}

// GetOwner returns the owner of the contract.
func GetOwner() interop.Hash160 {
	return storage.Get(storage.GetReadOnlyContext(), ownerKey).(interop.Hash160)
}

// GetAddressToAmountFunded returns the amount of GAS contributed by the
// funder since the last withdrawal.
func GetAddressToAmountFunded(funder interop.Hash160) int {
	val := storage.Get(storage.GetReadOnlyContext(), amountKey(funder))
	if val == nil {
		return 0
	}
	return val.(int)
}

// GetFunder returns the funder with the given index, funders are ordered by
// their first contribution.
func GetFunder(index int) interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	if index < 0 || index >= fundersCount(ctx) {
		panic("funder index out of range")
	}
	return storage.Get(ctx, funderKey(index)).(interop.Hash160)
}

// GetFundersCount returns the number of distinct funders since the last
// withdrawal.
func GetFundersCount() int {
	return fundersCount(storage.GetReadOnlyContext())
}

// GetVersion returns the version of the price feed.
func GetVersion() int {
	return contract.Call(GetPriceFeed(), "version", contract.ReadOnly).(int)
}

func checkOwner(ctx storage.Context) interop.Hash160 {
	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	if !runtime.CheckWitness(owner) {
		panic("not owner")
	}
	return owner
}

func payOwner(owner interop.Hash160) {
	self := runtime.GetExecutingScriptHash()
	balance := gas.BalanceOf(self)
	if !gas.Transfer(self, owner, balance, nil) {
		panic("failed to transfer funds to the owner")
	}
	runtime.Notify("Withdrawn", owner, balance)
}

func clearFunder(ctx storage.Context, index int) {
	key := funderKey(index)
	funder := storage.Get(ctx, key).(interop.Hash160)
	storage.Delete(ctx, amountKey(funder))
	storage.Delete(ctx, key)
}

func fundersCount(ctx storage.Context) int {
	val := storage.Get(ctx, funderCountKey)
	if val == nil {
		return 0
	}
	return val.(int)
}

func amountKey(funder interop.Hash160) []byte {
	return append([]byte{prefixAmount}, funder...)
}

func funderKey(index int) string {
	return prefixFunder + std.Itoa10(index)
}
