package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"openshelf/core/types"
	"openshelf/native/market"
	"openshelf/storage"
)

var (
	accountPrefix = []byte("account:")
	bookPrefix    = []byte("market/book:")
	bookListKey   = ethcrypto.Keccak256([]byte("market/book-list"))
)

// Manager provides keccak-keyed, RLP-encoded persistence of accounts and book
// aggregates on top of a key-value database. It satisfies the market engine's
// state interface.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

func bookKey(id [32]byte) []byte {
	buf := make([]byte, len(bookPrefix)+len(id))
	copy(buf, bookPrefix)
	copy(buf[len(bookPrefix):], id[:])
	return ethcrypto.Keccak256(buf)
}

// --- stored records ---
//
// RLP handles unsigned integers only, so timestamps are widened into mirror
// structs at the persistence boundary instead of leaking uint64 into the
// domain types.

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

type storedChapter struct {
	Index   uint8
	Name    string
	URL     string
	Price   *big.Int
	Readers [][20]byte
}

type storedStake struct {
	Staker       [20]byte
	Amount       *big.Int
	Earnings     *big.Int
	TotalEarning *big.Int
}

type storedBook struct {
	ID          [32]byte
	Author      [20]byte
	Title       string
	Description string
	Genre       string
	ImageURL    string
	PublishedAt uint64
	FullPrice   *big.Int
	TotalStake  *big.Int
	Chapters    []storedChapter
	Readers     [][20]byte
	Stakes      []storedStake
}

func toStoredBook(book *market.Book) *storedBook {
	record := &storedBook{
		ID:          book.ID,
		Author:      book.Author,
		Title:       book.Title,
		Description: book.Description,
		Genre:       book.Genre,
		ImageURL:    book.ImageURL,
		PublishedAt: uint64(book.PublishedAt),
		FullPrice:   book.FullPrice,
		TotalStake:  book.TotalStake,
		Readers:     book.Readers,
	}
	for i := range book.Chapters {
		chapter := &book.Chapters[i]
		record.Chapters = append(record.Chapters, storedChapter{
			Index:   chapter.Index,
			Name:    chapter.Name,
			URL:     chapter.URL,
			Price:   chapter.Price,
			Readers: chapter.Readers,
		})
	}
	for i := range book.Stakes {
		stake := &book.Stakes[i]
		record.Stakes = append(record.Stakes, storedStake{
			Staker:       stake.Staker,
			Amount:       stake.Amount,
			Earnings:     stake.Earnings,
			TotalEarning: stake.TotalEarning,
		})
	}
	return record
}

func fromStoredBook(record *storedBook) *market.Book {
	book := &market.Book{
		ID:          record.ID,
		Author:      record.Author,
		Title:       record.Title,
		Description: record.Description,
		Genre:       record.Genre,
		ImageURL:    record.ImageURL,
		PublishedAt: int64(record.PublishedAt),
		FullPrice:   record.FullPrice,
		TotalStake:  record.TotalStake,
		Readers:     record.Readers,
	}
	for i := range record.Chapters {
		chapter := &record.Chapters[i]
		book.Chapters = append(book.Chapters, market.Chapter{
			Index:   chapter.Index,
			Name:    chapter.Name,
			URL:     chapter.URL,
			Price:   chapter.Price,
			Readers: chapter.Readers,
		})
	}
	for i := range record.Stakes {
		stake := &record.Stakes[i]
		book.Stakes = append(book.Stakes, market.Stake{
			Staker:       stake.Staker,
			Amount:       stake.Amount,
			Earnings:     stake.Earnings,
			TotalEarning: stake.TotalEarning,
		})
	}
	return book
}

// GetAccount loads the account stored for addr, or nil when none exists yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	data, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := new(storedAccount)
	if err := rlp.DecodeBytes(data, record); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &types.Account{Nonce: record.Nonce, Balance: record.Balance}, nil
}

// PutAccount persists the account under addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("nil account for %x", addr)
	}
	encoded, err := rlp.EncodeToBytes(&storedAccount{Nonce: account.Nonce, Balance: account.Balance})
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	return m.db.Put(accountKey(addr), encoded)
}

// MarketBookGet loads a book aggregate by identifier.
func (m *Manager) MarketBookGet(id [32]byte) (*market.Book, bool, error) {
	data, err := m.db.Get(bookKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	record := new(storedBook)
	if err := rlp.DecodeBytes(data, record); err != nil {
		return nil, false, fmt.Errorf("decode book: %w", err)
	}
	return fromStoredBook(record), true, nil
}

// MarketBookPut persists the book aggregate and records it in the book index.
func (m *Manager) MarketBookPut(book *market.Book) error {
	if book == nil {
		return fmt.Errorf("nil book")
	}
	encoded, err := rlp.EncodeToBytes(toStoredBook(book))
	if err != nil {
		return fmt.Errorf("encode book: %w", err)
	}
	if err := m.db.Put(bookKey(book.ID), encoded); err != nil {
		return err
	}
	return m.indexBook(book.ID)
}

func (m *Manager) loadBookList() ([][32]byte, error) {
	data, err := m.db.Get(bookListKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list [][32]byte
	if err := rlp.DecodeBytes(data, &list); err != nil {
		return nil, fmt.Errorf("decode book list: %w", err)
	}
	return list, nil
}

func (m *Manager) indexBook(id [32]byte) error {
	list, err := m.loadBookList()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == id {
			return nil
		}
	}
	list = append(list, id)
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return fmt.Errorf("encode book list: %w", err)
	}
	return m.db.Put(bookListKey, encoded)
}

// MarketBookList returns the identifiers of every registered book in insertion
// order.
func (m *Manager) MarketBookList() ([][32]byte, error) {
	return m.loadBookList()
}
