package types

import (
	"cosmossdk.io/math"
)

// Price bounds. Prices are clamped strictly inside (0,1) so share counts
// stay finite.
var (
	PriceFloor   = math.LegacyNewDecWithPrec(1, 2)  // 0.01
	PriceCeiling = math.LegacyNewDecWithPrec(99, 2) // 0.99
	priceEven    = math.LegacyNewDecWithPrec(50, 2) // 0.50
)

// Price derives the market price from the pooled collateral:
// poolTrue / (poolTrue + poolFalse), clamped to [0.01, 0.99]. Empty pools
// price at 0.50.
func Price(poolTrue, poolFalse math.LegacyDec) math.LegacyDec {
	total := poolTrue.Add(poolFalse)
	if total.IsZero() {
		return priceEven
	}
	return ClampPrice(poolTrue.Quo(total))
}

// ClampPrice forces p into [0.01, 0.99].
func ClampPrice(p math.LegacyDec) math.LegacyDec {
	if p.LT(PriceFloor) {
		return PriceFloor
	}
	if p.GT(PriceCeiling) {
		return PriceCeiling
	}
	return p
}

// SharesLong returns the shares a true-side buyer receives for cc at price p,
// redeemable 1:1 if the market resolves true.
func SharesLong(cc, p math.LegacyDec) (math.LegacyDec, error) {
	if err := validatePricingInput(cc, p); err != nil {
		return math.LegacyDec{}, err
	}
	return cc.Quo(p), nil
}

// SharesShort returns the shares a false-side buyer receives for cc at price
// p, redeemable 1:1 if the market resolves false.
func SharesShort(cc, p math.LegacyDec) (math.LegacyDec, error) {
	if err := validatePricingInput(cc, p); err != nil {
		return math.LegacyDec{}, err
	}
	return cc.Quo(math.LegacyOneDec().Sub(p)), nil
}

// Collateral computes the informational collateral figure for a position.
// Long positions carry shares·(1−entry); short positions, by symmetry,
// shares·entry. Ledger movements use the position's cost basis, not this
// value.
func Collateral(side Side, shares, entryPrice math.LegacyDec) math.LegacyDec {
	var c math.LegacyDec
	if side == SideTrue {
		c = shares.Mul(math.LegacyOneDec().Sub(entryPrice))
	} else {
		c = shares.Mul(entryPrice)
	}
	if c.IsNegative() {
		return math.LegacyZeroDec()
	}
	return c
}

func validatePricingInput(cc, p math.LegacyDec) error {
	if cc.IsNil() || p.IsNil() {
		return ErrInvalidInput
	}
	if !cc.IsPositive() {
		return ErrInvalidInput.Wrap("cc must be positive")
	}
	if !p.IsPositive() || p.GTE(math.LegacyOneDec()) {
		return ErrInvalidInput.Wrap("price must be inside (0,1)")
	}
	return nil
}
