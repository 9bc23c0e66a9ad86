package market

import (
	"fmt"
	"math/big"
)

const (
	// BpsDenominator defines the scaling factor used for basis point math
	// when splitting sale revenue.
	BpsDenominator = 10_000

	// DefaultAuthorShareBps routes 70% of every sale to the author.
	DefaultAuthorShareBps = 7_000
	// DefaultStakerShareBps routes 10% of every sale into the staking pool.
	// The platform takes whatever remains after the author and staker cuts,
	// absorbing any floor-rounding loss.
	DefaultStakerShareBps = 1_000

	// DefaultMaxChapterPrice caps a single chapter at 1e9 base units.
	DefaultMaxChapterPrice = 1_000_000_000
	// DefaultMaxStakeAmount caps a single deposit at 1e10 base units.
	DefaultMaxStakeAmount = 10_000_000_000
	// DefaultMaxStakers bounds the stake roster per book.
	DefaultMaxStakers = 255
	// DefaultMaxChapters bounds the chapter list per book.
	DefaultMaxChapters = 255
)

// Params carries the externally supplied marketplace constants. The engine is
// constructed with a Params value so tests can vary every ceiling and split.
type Params struct {
	AuthorShareBps  uint64
	StakerShareBps  uint64
	MaxChapterPrice uint64
	MaxStakeAmount  uint64
	MaxStakers      int
	MaxChapters     int
}

// DefaultParams returns the observed production parameterisation.
func DefaultParams() Params {
	return Params{
		AuthorShareBps:  DefaultAuthorShareBps,
		StakerShareBps:  DefaultStakerShareBps,
		MaxChapterPrice: DefaultMaxChapterPrice,
		MaxStakeAmount:  DefaultMaxStakeAmount,
		MaxStakers:      DefaultMaxStakers,
		MaxChapters:     DefaultMaxChapters,
	}
}

// ApplyDefaults ensures unset fields fall back to module defaults.
func (p Params) ApplyDefaults() Params {
	if p.AuthorShareBps == 0 && p.StakerShareBps == 0 {
		p.AuthorShareBps = DefaultAuthorShareBps
		p.StakerShareBps = DefaultStakerShareBps
	}
	if p.MaxChapterPrice == 0 {
		p.MaxChapterPrice = DefaultMaxChapterPrice
	}
	if p.MaxStakeAmount == 0 {
		p.MaxStakeAmount = DefaultMaxStakeAmount
	}
	if p.MaxStakers == 0 {
		p.MaxStakers = DefaultMaxStakers
	}
	if p.MaxChapters == 0 {
		p.MaxChapters = DefaultMaxChapters
	}
	return p
}

// Validate rejects parameterisations the settlement math cannot honour.
func (p Params) Validate() error {
	if p.AuthorShareBps+p.StakerShareBps > BpsDenominator {
		return fmt.Errorf("market params: author and staker shares exceed %d bps", BpsDenominator)
	}
	if p.MaxChapterPrice == 0 {
		return fmt.Errorf("market params: max chapter price must be positive")
	}
	if p.MaxStakeAmount == 0 {
		return fmt.Errorf("market params: max stake amount must be positive")
	}
	if p.MaxStakers < 1 {
		return fmt.Errorf("market params: max stakers must be at least 1")
	}
	// Chapter indices are stored as a single byte, so the roster cannot
	// exceed 256 entries.
	if p.MaxChapters < 1 || p.MaxChapters > 256 {
		return fmt.Errorf("market params: max chapters must be within [1, 256]")
	}
	return nil
}

func (p Params) maxChapterPrice() *big.Int {
	return new(big.Int).SetUint64(p.MaxChapterPrice)
}

func (p Params) maxStakeAmount() *big.Int {
	return new(big.Int).SetUint64(p.MaxStakeAmount)
}
