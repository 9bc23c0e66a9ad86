package core

import (
	"fmt"
	"math/big"
	"sync"

	"openshelf/core/events"
	"openshelf/core/state"
	"openshelf/core/types"
	"openshelf/native/market"
	"openshelf/storage"
)

// Node owns the database and runs every marketplace operation as one
// indivisible unit: operations are serialised behind a mutex, execute against
// a write overlay, and reach the backing store only when the whole unit
// succeeded. A failed operation drops its overlay and leaves no partial
// effect.
type Node struct {
	mu           sync.Mutex
	db           storage.Database
	params       market.Params
	platform     [20]byte
	emitter      events.Emitter
	synchronizer market.Synchronizer
	nowFn        func() int64
}

// NewNode constructs a node over the supplied database.
func NewNode(db storage.Database, params market.Params, platform [20]byte) *Node {
	return &Node{
		db:           db,
		params:       params.ApplyDefaults(),
		platform:     platform,
		emitter:      events.NoopEmitter{},
		synchronizer: market.NoopSynchronizer{},
	}
}

// SetEmitter configures the event emitter handed to each engine run.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	n.mu.Lock()
	n.emitter = emitter
	n.mu.Unlock()
}

// SetSynchronizer configures the entitlement synchronizer.
func (n *Node) SetSynchronizer(sync market.Synchronizer) {
	if sync == nil {
		sync = market.NoopSynchronizer{}
	}
	n.mu.Lock()
	n.synchronizer = sync
	n.mu.Unlock()
}

// SetNowFunc overrides the time source for deterministic testing.
func (n *Node) SetNowFunc(now func() int64) {
	n.mu.Lock()
	n.nowFn = now
	n.mu.Unlock()
}

// withEngine runs fn against a fresh engine bound to an overlay of the backing
// store, flushing the overlay only when fn succeeds.
func (n *Node) withEngine(fn func(*market.Engine) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	overlay := storage.NewOverlay(n.db)
	engine := market.NewEngine(n.params)
	engine.SetState(state.NewManager(overlay))
	engine.SetEmitter(n.emitter)
	engine.SetPlatformAccount(n.platform)
	if n.nowFn != nil {
		engine.SetNowFunc(n.nowFn)
	}
	if err := fn(engine); err != nil {
		return err
	}
	return overlay.Flush()
}

// AddBook registers a new book.
func (n *Node) AddBook(author [20]byte, title, description, genre, imageURL string) (*market.Book, error) {
	var book *market.Book
	err := n.withEngine(func(engine *market.Engine) error {
		var err error
		book, err = engine.AddBook(author, title, description, genre, imageURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// AddChapter appends or replaces a chapter.
func (n *Node) AddChapter(author [20]byte, bookID [32]byte, url string, index uint8, price *big.Int, name string) (*market.Chapter, error) {
	var chapter *market.Chapter
	err := n.withEngine(func(engine *market.Engine) error {
		var err error
		chapter, err = engine.AddChapter(author, bookID, url, index, price, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chapter, nil
}

// Purchase settles a chapter or full-book sale. The synchronizer hears about
// the settlement only after the overlay has flushed, so the external mirror
// can never claim an entitlement the backing store does not hold. An announce
// failure is reported on the receipt, never unwound.
func (n *Node) Purchase(buyer [20]byte, bookID [32]byte, target market.PurchaseKind) (*market.PurchaseReceipt, error) {
	var receipt *market.PurchaseReceipt
	err := n.withEngine(func(engine *market.Engine) error {
		var err error
		receipt, err = engine.Purchase(buyer, bookID, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	sync := n.synchronizer
	n.mu.Unlock()
	if err := sync.Notify(receipt.BookID, receipt.Buyer, receipt.Entitlement, receipt.TxRef); err != nil {
		receipt.AnnounceErr = err
	}
	return receipt, nil
}

// StakeOnBook deposits stake principal behind a book.
func (n *Node) StakeOnBook(staker [20]byte, bookID [32]byte, amount *big.Int) (*market.Stake, error) {
	var stake *market.Stake
	err := n.withEngine(func(engine *market.Engine) error {
		var err error
		stake, err = engine.StakeOnBook(staker, bookID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stake, nil
}

// ClaimEarnings withdraws a staker's accrued earnings.
func (n *Node) ClaimEarnings(staker [20]byte, bookID [32]byte) (*market.Stake, error) {
	var stake *market.Stake
	err := n.withEngine(func(engine *market.Engine) error {
		var err error
		stake, err = engine.ClaimEarnings(staker, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stake, nil
}

// Book returns a copy of the stored aggregate.
func (n *Node) Book(bookID [32]byte) (*market.Book, error) {
	var book *market.Book
	err := n.withEngine(func(engine *market.Engine) error {
		var err error
		book, err = engine.Book(bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Books returns the identifiers of every registered book.
func (n *Node) Books() ([][32]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return state.NewManager(n.db).MarketBookList()
}

// Balance reports the spendable balance of an address.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	account, err := state.NewManager(n.db).GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if account == nil || account.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(account.Balance), nil
}

// Credit mints balance onto an address. The value-transfer primitive proper is
// external to the marketplace; Credit stands in for inbound deposits so
// deployments and tests can fund principals.
func (n *Node) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	manager := state.NewManager(n.db)
	account, err := manager.GetAccount(addr[:])
	if err != nil {
		return err
	}
	if account == nil {
		account = types.NewAccount()
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return manager.PutAccount(addr[:], account)
}
