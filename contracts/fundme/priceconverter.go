package fundme

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
)

const (
	// priceDecimals is the precision prices are normalized to.
	priceDecimals = 8
	// gasFactor is 1 GAS in its smallest units.
	gasFactor = 1_0000_0000
)

// roundData is the structure returned by latestRoundData of the feed.
type roundData struct {
	RoundID         int
	Answer          int
	StartedAt       int
	UpdatedAt       int
	AnsweredInRound int
}

// GetConversionRate converts the given amount of GAS into USD (8 decimals)
// using the latest price.
func GetConversionRate(amount int) int {
	return getPrice(GetPriceFeed()) * amount / gasFactor
}

// getPrice returns the latest GAS price in USD with priceDecimals precision.
func getPrice(feed interop.Hash160) int {
	round := contract.Call(feed, "latestRoundData", contract.ReadOnly).(roundData)
	decimals := contract.Call(feed, "decimals", contract.ReadOnly).(int)
	price := round.Answer
	for decimals < priceDecimals {
		price *= 10
		decimals++
	}
	for decimals > priceDecimals {
		price /= 10
		decimals--
	}
	return price
}
