package market

import "math/big"

// accrueStakeShare distributes stakeShare across the book's stakers pro-rata
// to their principal. Every staker's cut is floored against the pre-accrual
// TotalStake snapshot, so iteration order cannot change any result; stakes are
// still walked in stable storage order to keep event streams reproducible.
//
// The floors leave up to len(stakes)-1 base units undistributed. That dust is
// not redistributed; it stays in the book's pooled balance.
func accrueStakeShare(book *Book, stakeShare *big.Int) error {
	if book == nil {
		return ErrBookNotFound
	}
	if book.TotalStake == nil || book.TotalStake.Sign() == 0 {
		return ErrNoStakers
	}
	if stakeShare == nil || stakeShare.Sign() == 0 {
		return nil
	}
	totalStake := new(big.Int).Set(book.TotalStake)
	for i := range book.Stakes {
		stake := &book.Stakes[i]
		cut, err := mulDiv(stake.Amount, stakeShare, totalStake)
		if err != nil {
			return err
		}
		earnings, err := checkedAdd(stake.Earnings, cut)
		if err != nil {
			return err
		}
		lifetime, err := checkedAdd(stake.TotalEarning, cut)
		if err != nil {
			return err
		}
		stake.Earnings = earnings
		stake.TotalEarning = lifetime
	}
	return nil
}
