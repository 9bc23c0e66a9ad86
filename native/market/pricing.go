package market

import "math/big"

// Split is the result of pricing a purchase. The three shares always sum to
// exactly Price: the author and staker cuts are floored and the platform takes
// the remainder, so rounding loss ends up with the platform instead of
// vanishing.
type Split struct {
	Price    *big.Int
	Author   *big.Int
	Stakers  *big.Int
	Platform *big.Int
}

// PriceAndSplit computes what the buyer owes for the target and how the
// proceeds divide between author, staking pool and platform. Pure function
// over the book's current state.
//
// A full-book purchase is priced as the sum of the chapters the buyer does
// not yet hold, so a buyer who collected some chapters piecemeal pays only
// for the remainder. A full-book price of zero means there is nothing left to
// buy and is rejected with ErrInvalidPrice.
func PriceAndSplit(book *Book, buyer [20]byte, target PurchaseKind, params Params) (*Split, error) {
	if book == nil {
		return nil, ErrBookNotFound
	}
	price, err := purchasePrice(book, buyer, target)
	if err != nil {
		return nil, err
	}
	authorShare, err := shareOf(price, params.AuthorShareBps)
	if err != nil {
		return nil, err
	}
	stakerShare, err := shareOf(price, params.StakerShareBps)
	if err != nil {
		return nil, err
	}
	// With nobody staked there is no pool to feed. The cut is not dropped on
	// the floor (the historical ledger leaked it): the platform absorbs it
	// through the remainder below.
	if book.TotalStake == nil || book.TotalStake.Sign() == 0 {
		stakerShare = big.NewInt(0)
	}
	platformShare := new(big.Int).Sub(price, authorShare)
	platformShare.Sub(platformShare, stakerShare)
	// A negative remainder means the configured cuts exceed the price. That
	// only happens through a parameterisation that was never validated;
	// refusing to settle here keeps the ledger from minting balance.
	if platformShare.Sign() < 0 {
		return nil, ErrInvalidShareSplit
	}
	return &Split{
		Price:    price,
		Author:   authorShare,
		Stakers:  stakerShare,
		Platform: platformShare,
	}, nil
}

func purchasePrice(book *Book, buyer [20]byte, target PurchaseKind) (*big.Int, error) {
	if index, ok := target.ChapterIndex(); ok {
		if int(index) >= len(book.Chapters) {
			return nil, ErrInvalidChapterIndex
		}
		return cloneBigInt(book.Chapters[index].Price), nil
	}
	price := big.NewInt(0)
	for i := range book.Chapters {
		if book.Chapters[i].HasReader(buyer) {
			continue
		}
		var err error
		price, err = checkedAdd(price, book.Chapters[i].Price)
		if err != nil {
			return nil, err
		}
	}
	if price.Sign() == 0 {
		return nil, ErrInvalidPrice
	}
	return price, nil
}
