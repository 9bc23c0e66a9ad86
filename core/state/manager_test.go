package state

import (
	"math/big"
	"testing"

	"openshelf/core/types"
	"openshelf/native/market"
	"openshelf/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestAccountRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	owner := addr(0x01)

	got, err := manager.GetAccount(owner[:])
	if err != nil {
		t.Fatalf("get missing account: %v", err)
	}
	if got != nil {
		t.Fatalf("missing account = %+v, want nil", got)
	}

	account := &types.Account{Nonce: 3, Balance: big.NewInt(12_345)}
	if err := manager.PutAccount(owner[:], account); err != nil {
		t.Fatalf("put account: %v", err)
	}
	got, err = manager.GetAccount(owner[:])
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Nonce != 3 || got.Balance.Cmp(big.NewInt(12_345)) != 0 {
		t.Fatalf("account = %+v", got)
	}
}

func TestBookRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	author := addr(0x01)
	reader := addr(0x02)
	staker := addr(0x03)

	book := &market.Book{
		ID:          market.BookID(author, "Round Trip"),
		Author:      author,
		Title:       "Round Trip",
		Description: "Persistence fixture.",
		Genre:       "fiction",
		ImageURL:    "https://img.example/cover.png",
		PublishedAt: 1_700_000_000,
		FullPrice:   big.NewInt(300),
		TotalStake:  big.NewInt(1_000),
		Chapters: []market.Chapter{
			{Index: 0, Name: "One", URL: "https://c/0", Price: big.NewInt(100), Readers: [][20]byte{reader}},
			{Index: 1, Name: "Two", URL: "https://c/1", Price: big.NewInt(200)},
		},
		Readers: [][20]byte{reader},
		Stakes: []market.Stake{
			{Staker: staker, Amount: big.NewInt(1_000), Earnings: big.NewInt(40), TotalEarning: big.NewInt(90)},
		},
	}
	if err := manager.MarketBookPut(book); err != nil {
		t.Fatalf("put book: %v", err)
	}

	got, ok, err := manager.MarketBookGet(book.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if !ok {
		t.Fatal("book not found after put")
	}
	if got.Title != book.Title || got.Author != author || got.PublishedAt != book.PublishedAt {
		t.Fatalf("book header = %+v", got)
	}
	if got.FullPrice.Cmp(book.FullPrice) != 0 || got.TotalStake.Cmp(book.TotalStake) != 0 {
		t.Fatalf("book totals = %s/%s", got.FullPrice, got.TotalStake)
	}
	if len(got.Chapters) != 2 || !got.Chapters[0].HasReader(reader) || got.Chapters[1].HasReader(reader) {
		t.Fatalf("chapters = %+v", got.Chapters)
	}
	if !got.HasReader(reader) {
		t.Fatal("book reader set lost")
	}
	stake, ok := got.StakeFor(staker)
	if !ok {
		t.Fatal("stake lost")
	}
	if stake.Earnings.Cmp(big.NewInt(40)) != 0 || stake.TotalEarning.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("stake = %+v", stake)
	}
}

func TestBookMissing(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	_, ok, err := manager.MarketBookGet([32]byte{0xEE})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("phantom book")
	}
}

func TestBookListIndexing(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	author := addr(0x01)

	var want [][32]byte
	for _, title := range []string{"First", "Second", "Third"} {
		book := &market.Book{
			ID:        market.BookID(author, title),
			Author:    author,
			Title:     title,
			FullPrice: big.NewInt(0),
		}
		if err := manager.MarketBookPut(book); err != nil {
			t.Fatalf("put %q: %v", title, err)
		}
		want = append(want, book.ID)
	}
	// Rewriting an existing book must not duplicate its index entry.
	if err := manager.MarketBookPut(&market.Book{ID: want[0], Author: author, Title: "First", FullPrice: big.NewInt(0)}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := manager.MarketBookList()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("list has %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("list[%d] = %x, want %x", i, got[i], want[i])
		}
	}
}
