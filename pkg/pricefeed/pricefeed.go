/*
Package pricefeed mirrors the price conversion done by the FundMe contract
using big integers, so that thresholds can be computed off-chain exactly the
way the contract computes them.
*/
package pricefeed

import (
	"errors"
	"math/big"
)

const (
	// Decimals is the precision normalized prices and USD values have.
	Decimals = 8
	// MinimumUSD is the minimum contribution accepted by FundMe in USD
	// with Decimals precision.
	MinimumUSD = 50_00000000
)

// ErrNonPositivePrice is returned when no amount of GAS can reach the
// minimum because the price is zero or negative.
var ErrNonPositivePrice = errors.New("price is not positive")

// gasFactor is 1 GAS in its smallest units.
var gasFactor = big.NewInt(1_0000_0000)

// Normalize converts the feed answer with the given number of decimals to
// Decimals precision. Extra digits are truncated.
func Normalize(answer *big.Int, decimals int) *big.Int {
	res := new(big.Int).Set(answer)
	switch {
	case decimals < Decimals:
		res.Mul(res, pow10(Decimals-decimals))
	case decimals > Decimals:
		res.Quo(res, pow10(decimals-Decimals))
	}
	return res
}

// ConversionRate returns the USD value (Decimals precision) of the given GAS
// amount at the given feed answer.
func ConversionRate(answer *big.Int, decimals int, amount *big.Int) *big.Int {
	res := Normalize(answer, decimals)
	res.Mul(res, amount)
	return res.Quo(res, gasFactor)
}

// MinimumContribution returns the smallest GAS amount that is worth at least
// MinimumUSD at the given feed answer.
func MinimumContribution(answer *big.Int, decimals int) (*big.Int, error) {
	price := Normalize(answer, decimals)
	if price.Sign() <= 0 {
		return nil, ErrNonPositivePrice
	}
	res := new(big.Int).Mul(big.NewInt(MinimumUSD), gasFactor)
	res.Add(res, price)
	res.Sub(res, big.NewInt(1))
	return res.Quo(res, price), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
