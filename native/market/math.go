package market

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Ledger amounts are bounded to 64 bits like the historical ledger format.
// Intermediate products run through 256-bit integers so the multiply-before-
// divide in the accrual math can never wrap; any result escaping the 64-bit
// range is surfaced as ErrArithmeticOverflow rather than silently truncated.

func toWide(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return uint256.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	wide, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	if !wide.IsUint64() {
		return nil, ErrArithmeticOverflow
	}
	return wide, nil
}

// checkedAdd returns a+b, failing when either operand or the sum leaves the
// 64-bit ledger range.
func checkedAdd(a, b *big.Int) (*big.Int, error) {
	wa, err := toWide(a)
	if err != nil {
		return nil, err
	}
	wb, err := toWide(b)
	if err != nil {
		return nil, err
	}
	sum, carry := new(uint256.Int).AddOverflow(wa, wb)
	if carry || !sum.IsUint64() {
		return nil, ErrArithmeticOverflow
	}
	return sum.ToBig(), nil
}

// mulDiv returns floor(a*b/d) with a 256-bit intermediate product.
func mulDiv(a, b, d *big.Int) (*big.Int, error) {
	if d == nil || d.Sign() == 0 {
		return nil, ErrArithmeticOverflow
	}
	wa, err := toWide(a)
	if err != nil {
		return nil, err
	}
	wb, err := toWide(b)
	if err != nil {
		return nil, err
	}
	wd, err := toWide(d)
	if err != nil {
		return nil, err
	}
	product, overflow := new(uint256.Int).MulOverflow(wa, wb)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	quotient := product.Div(product, wd)
	if !quotient.IsUint64() {
		return nil, ErrArithmeticOverflow
	}
	return quotient.ToBig(), nil
}

// shareOf returns floor(amount*bps/10000).
func shareOf(amount *big.Int, bps uint64) (*big.Int, error) {
	return mulDiv(amount, new(big.Int).SetUint64(bps), big.NewInt(BpsDenominator))
}
