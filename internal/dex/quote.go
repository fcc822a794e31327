package dex

import (
	"errors"
	"math/big"
)

// Client-side mirrors of the router's quote functions, for previewing swap
// amounts off-chain. Same constant-product formula with the 0.3% fee
// (997/1000) the pair enforces; all arithmetic is exact big.Int.

// ErrInsufficientLiquidity is returned when a quote hits an empty reserve
var ErrInsufficientLiquidity = errors.New("insufficient liquidity")

// ErrInsufficientAmount is returned for zero input/output amounts
var ErrInsufficientAmount = errors.New("insufficient amount")

var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
)

// Quote returns the amount of token B equivalent in value to amountA at the
// current reserve ratio: amountA * reserveB / reserveA. No fee applies.
func Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	if amountA.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	out := new(big.Int).Mul(amountA, reserveB)
	return out.Quo(out, reserveA), nil
}

// GetAmountOut returns the output amount for an exact input:
// amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997).
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	inWithFee := new(big.Int).Mul(amountIn, feeNumerator)
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, feeDenominator)
	denominator.Add(denominator, inWithFee)
	return numerator.Quo(numerator, denominator), nil
}

// GetAmountIn returns the input amount required for an exact output:
// reserveIn*amountOut*1000 / ((reserveOut-amountOut)*997) + 1.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Cmp(amountOut) <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	numerator := new(big.Int).Mul(reserveIn, amountOut)
	numerator.Mul(numerator, feeDenominator)
	denominator := new(big.Int).Sub(reserveOut, amountOut)
	denominator.Mul(denominator, feeNumerator)
	in := numerator.Quo(numerator, denominator)
	return in.Add(in, big.NewInt(1)), nil
}
