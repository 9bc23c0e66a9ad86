package market

import "math/big"

// Book is the aggregate the settlement and staking orchestrators operate on.
// Entitlements are tracked as reader sets: an address in Readers holds the
// whole book, an address in a chapter's Readers holds that chapter.
type Book struct {
	ID          [32]byte   `json:"id"`
	Author      [20]byte   `json:"author"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Genre       string     `json:"genre"`
	ImageURL    string     `json:"imageUrl"`
	PublishedAt int64      `json:"publishedAt"`
	FullPrice   *big.Int   `json:"fullPrice"`
	TotalStake  *big.Int   `json:"totalStake"`
	Chapters    []Chapter  `json:"chapters"`
	Readers     [][20]byte `json:"readers"`
	Stakes      []Stake    `json:"stakes"`
}

// Chapter is a priced installment of a book. Indices are dense starting at 0.
type Chapter struct {
	Index   uint8      `json:"index"`
	Name    string     `json:"name"`
	URL     string     `json:"url"`
	Price   *big.Int   `json:"price"`
	Readers [][20]byte `json:"readers"`
}

// Stake records a reader's principal behind a book together with the claimable
// and lifetime earnings accrued from downstream sales. Earnings resets to zero
// on claim; TotalEarning never decreases.
type Stake struct {
	Staker       [20]byte `json:"staker"`
	Amount       *big.Int `json:"amount"`
	Earnings     *big.Int `json:"earnings"`
	TotalEarning *big.Int `json:"totalEarning"`
}

// HasReader reports whether addr holds full-book entitlement.
func (b *Book) HasReader(addr [20]byte) bool {
	if b == nil {
		return false
	}
	for _, reader := range b.Readers {
		if reader == addr {
			return true
		}
	}
	return false
}

// HasReader reports whether addr holds entitlement to this chapter.
func (c *Chapter) HasReader(addr [20]byte) bool {
	if c == nil {
		return false
	}
	for _, reader := range c.Readers {
		if reader == addr {
			return true
		}
	}
	return false
}

// HasAllChapters reports whether addr holds every chapter of the book. A book
// without chapters has nothing to hold, so the answer is false.
func (b *Book) HasAllChapters(addr [20]byte) bool {
	if b == nil || len(b.Chapters) == 0 {
		return false
	}
	for i := range b.Chapters {
		if !b.Chapters[i].HasReader(addr) {
			return false
		}
	}
	return true
}

// StakeFor returns the stake record held by addr, if any.
func (b *Book) StakeFor(addr [20]byte) (*Stake, bool) {
	if b == nil {
		return nil, false
	}
	for i := range b.Stakes {
		if b.Stakes[i].Staker == addr {
			return &b.Stakes[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	clone := *b
	clone.FullPrice = cloneBigInt(b.FullPrice)
	clone.TotalStake = cloneBigInt(b.TotalStake)
	if b.Chapters != nil {
		clone.Chapters = make([]Chapter, len(b.Chapters))
		for i := range b.Chapters {
			clone.Chapters[i] = *b.Chapters[i].Clone()
		}
	}
	clone.Readers = cloneReaders(b.Readers)
	if b.Stakes != nil {
		clone.Stakes = make([]Stake, len(b.Stakes))
		for i := range b.Stakes {
			clone.Stakes[i] = *b.Stakes[i].Clone()
		}
	}
	return &clone
}

// Clone returns a deep copy of the chapter.
func (c *Chapter) Clone() *Chapter {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Price = cloneBigInt(c.Price)
	clone.Readers = cloneReaders(c.Readers)
	return &clone
}

// Clone returns a deep copy of the stake.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Amount = cloneBigInt(s.Amount)
	clone.Earnings = cloneBigInt(s.Earnings)
	clone.TotalEarning = cloneBigInt(s.TotalEarning)
	return &clone
}

func cloneReaders(readers [][20]byte) [][20]byte {
	if readers == nil {
		return nil
	}
	out := make([][20]byte, len(readers))
	copy(out, readers)
	return out
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
