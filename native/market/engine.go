package market

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"openshelf/core/events"
	"openshelf/core/types"
)

const (
	maxTitleLen       = 50
	maxDescriptionLen = 200
	maxGenreLen       = 50
	maxImageURLLen    = 200
	maxChapterNameLen = 100
	maxChapterURLLen  = 100
)

type engineState interface {
	MarketBookGet(id [32]byte) (*Book, bool, error)
	MarketBookPut(book *Book) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine wires the marketplace business logic with persistence and event
// emission. All Book mutation in the system goes through here; callers
// serialise operations and own the commit boundary (see core.Node), which is
// also where settled purchases are announced to the entitlement synchronizer.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	params   Params
	platform [20]byte
	nowFn    func() int64
}

// NewEngine constructs a marketplace engine with default dependencies.
func NewEngine(params Params) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  params.ApplyDefaults(),
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPlatformAccount configures the treasury that receives the platform cut.
func (e *Engine) SetPlatformAccount(addr [20]byte) { e.platform = addr }

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Params returns the parameterisation the engine was constructed with.
func (e *Engine) Params() Params { return e.params }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return types.NewAccount()
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func hexBookID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// BookID derives the stable identifier for an author/title pair.
func BookID(author [20]byte, title string) [32]byte {
	digest := ethcrypto.Keccak256([]byte("market/book/"), author[:], []byte(strings.TrimSpace(title)))
	var id [32]byte
	copy(id[:], digest)
	return id
}

// BookVaultAddress derives the account holding a book's pooled stake balance.
func BookVaultAddress(id [32]byte) [20]byte {
	digest := ethcrypto.Keccak256([]byte("market/vault/"), id[:])
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

// transfer is the balance-movement primitive the orchestrators trade through.
// It fails closed on insufficient balance and moves nothing on a zero amount.
// Ledger amounts are unsigned; a negative amount would move money backwards
// through the balance guard and is rejected outright.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrArithmeticOverflow
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

func (e *Engine) loadBook(id [32]byte) (*Book, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	book, ok, err := e.state.MarketBookGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// Book returns a copy of the stored aggregate without mutating state.
func (e *Engine) Book(id [32]byte) (*Book, error) {
	book, err := e.loadBook(id)
	if err != nil {
		return nil, err
	}
	return book.Clone(), nil
}

// AddBook registers a new book for the author and emits the corresponding
// event. The identifier derives from the author and trimmed title, so an
// author cannot register the same title twice.
func (e *Engine) AddBook(author [20]byte, title, description, genre, imageURL string) (*Book, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	genre = strings.TrimSpace(genre)
	imageURL = strings.TrimSpace(imageURL)
	switch {
	case title == "":
		return nil, ErrEmptyBookTitle
	case len(title) > maxTitleLen:
		return nil, ErrBookTitleTooLong
	case description == "":
		return nil, ErrEmptyBookDescription
	case len(description) > maxDescriptionLen:
		return nil, ErrBookDescriptionTooLong
	case genre == "":
		return nil, ErrEmptyBookGenre
	case len(genre) > maxGenreLen:
		return nil, ErrBookGenreTooLong
	case imageURL == "":
		return nil, ErrEmptyImageURL
	case len(imageURL) > maxImageURLLen:
		return nil, ErrImageURLTooLong
	}
	id := BookID(author, title)
	if _, ok, err := e.state.MarketBookGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrBookExists
	}
	book := &Book{
		ID:          id,
		Author:      author,
		Title:       title,
		Description: description,
		Genre:       genre,
		ImageURL:    imageURL,
		PublishedAt: e.now(),
		FullPrice:   big.NewInt(0),
		TotalStake:  big.NewInt(0),
	}
	if err := e.state.MarketBookPut(book); err != nil {
		return nil, err
	}
	e.emit(BookAddedEvent(hexBookID(id), hexAddr(author), title))
	return book.Clone(), nil
}

// AddChapter appends a chapter at index == len(chapters) or replaces a not yet
// sold chapter at an existing index. The full-book price tracks the sum of
// chapter prices with checked arithmetic.
func (e *Engine) AddChapter(author [20]byte, bookID [32]byte, url string, index uint8, price *big.Int, name string) (*Chapter, error) {
	book, err := e.loadBook(bookID)
	if err != nil {
		return nil, err
	}
	if book.Author != author {
		return nil, ErrNotAuthor
	}
	url = strings.TrimSpace(url)
	name = strings.TrimSpace(name)
	switch {
	case url == "":
		return nil, ErrEmptyChapterURL
	case len(url) > maxChapterURLLen:
		return nil, ErrChapterURLTooLong
	case name == "":
		return nil, ErrEmptyChapterName
	case len(name) > maxChapterNameLen:
		return nil, ErrChapterNameTooLong
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidChapterPrice
	}
	if price.Cmp(e.params.maxChapterPrice()) > 0 {
		return nil, ErrChapterPriceTooHigh
	}
	if int(index) > len(book.Chapters) {
		return nil, ErrInvalidChapterIndex
	}
	chapter := Chapter{
		Index: index,
		Name:  name,
		URL:   url,
		Price: cloneBigInt(price),
	}
	if int(index) == len(book.Chapters) {
		if len(book.Chapters) >= e.params.MaxChapters {
			return nil, ErrMaxChaptersReached
		}
		fullPrice, err := checkedAdd(book.FullPrice, price)
		if err != nil {
			return nil, err
		}
		book.Chapters = append(book.Chapters, chapter)
		book.FullPrice = fullPrice
	} else {
		existing := &book.Chapters[index]
		if len(existing.Readers) > 0 {
			return nil, ErrChapterAlreadySold
		}
		remainder := new(big.Int).Sub(book.FullPrice, existing.Price)
		fullPrice, err := checkedAdd(remainder, price)
		if err != nil {
			return nil, err
		}
		book.Chapters[index] = chapter
		book.FullPrice = fullPrice
	}
	if err := e.state.MarketBookPut(book); err != nil {
		return nil, err
	}
	e.emit(ChapterAddedEvent(hexBookID(bookID), strconv.Itoa(int(chapter.Index)), price.String(), book.FullPrice.String()))
	return chapter.Clone(), nil
}

// PurchaseReceipt reports a settlement. AnnounceErr is filled in by the node
// once the settlement has reached the backing store and the synchronizer has
// been told; a non-nil AnnounceErr means "committed, announce failed", never
// "not committed".
type PurchaseReceipt struct {
	BookID        [32]byte
	Buyer         [20]byte
	Requested     PurchaseKind
	Entitlement   PurchaseKind
	Price         *big.Int
	AuthorShare   *big.Int
	StakerShare   *big.Int
	PlatformShare *big.Int
	TxRef         string
	AnnounceErr   error
}

// Purchase settles a chapter or full-book sale as one unit: validate, price,
// transfer the author and platform cuts, feed the staking pool when it has
// stakers and update entitlements. Announcing the outcome is deferred to the
// caller so the mirror never hears about a settlement that did not commit.
//
// When the pool is empty the calculator zeroes the staker cut and the platform
// share absorbs it, so the full price still moves and nothing is forfeited.
func (e *Engine) Purchase(buyer [20]byte, bookID [32]byte, target PurchaseKind) (*PurchaseReceipt, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if isZeroAddress(e.platform) {
		return nil, ErrPlatformNotConfigured
	}
	book, err := e.loadBook(bookID)
	if err != nil {
		return nil, err
	}
	if err := validatePurchase(book, buyer, target); err != nil {
		return nil, err
	}
	split, err := PriceAndSplit(book, buyer, target, e.params)
	if err != nil {
		return nil, err
	}
	buyerAcc, err := e.state.GetAccount(buyer[:])
	if err != nil {
		return nil, err
	}
	if ensureAccount(buyerAcc).Balance.Cmp(split.Price) < 0 {
		return nil, ErrInsufficientFunds
	}
	if err := e.transfer(buyer, book.Author, split.Author); err != nil {
		return nil, err
	}
	if err := e.transfer(buyer, e.platform, split.Platform); err != nil {
		return nil, err
	}
	if book.TotalStake != nil && book.TotalStake.Sign() > 0 {
		if err := e.transfer(buyer, BookVaultAddress(bookID), split.Stakers); err != nil {
			return nil, err
		}
		if err := accrueStakeShare(book, split.Stakers); err != nil {
			return nil, err
		}
	}
	entitlement := applyEntitlement(book, buyer, target)
	if err := e.state.MarketBookPut(book); err != nil {
		return nil, err
	}
	txRef := uuid.NewString()
	e.emit(PurchaseSettledEvent(
		hexBookID(bookID), hexAddr(buyer), entitlement.String(),
		split.Price.String(), split.Author.String(), split.Stakers.String(), split.Platform.String(),
		txRef,
	))
	receipt := &PurchaseReceipt{
		BookID:        bookID,
		Buyer:         buyer,
		Requested:     target,
		Entitlement:   entitlement,
		Price:         split.Price,
		AuthorShare:   split.Author,
		StakerShare:   split.Stakers,
		PlatformShare: split.Platform,
		TxRef:         txRef,
	}
	return receipt, nil
}

func validatePurchase(book *Book, buyer [20]byte, target PurchaseKind) error {
	if index, ok := target.ChapterIndex(); ok {
		if int(index) >= len(book.Chapters) {
			return ErrInvalidChapterIndex
		}
		if book.Chapters[index].HasReader(buyer) {
			return ErrAlreadyPurchased
		}
		return nil
	}
	if book.HasReader(buyer) {
		return ErrAlreadyPurchased
	}
	return nil
}

// applyEntitlement records the buyer in the target reader sets and returns the
// final entitlement kind. A chapter purchase that completes the buyer's
// collection is reclassified as a full-book entitlement.
func applyEntitlement(book *Book, buyer [20]byte, target PurchaseKind) PurchaseKind {
	if index, ok := target.ChapterIndex(); ok {
		book.Chapters[index].Readers = append(book.Chapters[index].Readers, buyer)
		if book.HasAllChapters(buyer) {
			if !book.HasReader(buyer) {
				book.Readers = append(book.Readers, buyer)
			}
			return FullBookPurchase()
		}
		return ChapterPurchase(index)
	}
	book.Readers = append(book.Readers, buyer)
	for i := range book.Chapters {
		if !book.Chapters[i].HasReader(buyer) {
			book.Chapters[i].Readers = append(book.Chapters[i].Readers, buyer)
		}
	}
	return FullBookPurchase()
}

// StakeOnBook deposits principal behind a book. Staking is a reader-loyalty
// mechanism: only holders of the full book qualify. A repeat deposit grows the
// existing stake in place.
func (e *Engine) StakeOnBook(staker [20]byte, bookID [32]byte, amount *big.Int) (*Stake, error) {
	book, err := e.loadBook(bookID)
	if err != nil {
		return nil, err
	}
	if !book.HasReader(staker) {
		return nil, ErrNotQualifiedForStaking
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidStakeAmount
	}
	if amount.Cmp(e.params.maxStakeAmount()) > 0 {
		return nil, ErrStakeAmountTooHigh
	}
	stakerAcc, err := e.state.GetAccount(staker[:])
	if err != nil {
		return nil, err
	}
	if ensureAccount(stakerAcc).Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}
	newTotal, err := checkedAdd(book.TotalStake, amount)
	if err != nil {
		return nil, err
	}
	stake, ok := book.StakeFor(staker)
	if ok {
		grown, err := checkedAdd(stake.Amount, amount)
		if err != nil {
			return nil, err
		}
		stake.Amount = grown
	} else {
		if len(book.Stakes) >= e.params.MaxStakers {
			return nil, ErrMaxStakersReached
		}
		book.Stakes = append(book.Stakes, Stake{
			Staker:       staker,
			Amount:       cloneBigInt(amount),
			Earnings:     big.NewInt(0),
			TotalEarning: big.NewInt(0),
		})
		stake = &book.Stakes[len(book.Stakes)-1]
	}
	if err := e.transfer(staker, BookVaultAddress(bookID), amount); err != nil {
		return nil, err
	}
	book.TotalStake = newTotal
	if err := e.state.MarketBookPut(book); err != nil {
		return nil, err
	}
	e.emit(StakeDepositedEvent(hexBookID(bookID), hexAddr(staker), amount.String(), book.TotalStake.String()))
	return stake.Clone(), nil
}

// ClaimEarnings withdraws a staker's accrued earnings and resets the claimable
// counter to zero. The lifetime counter is left untouched. The pooled balance
// check should never fire while accrual bookkeeping is correct; it exists to
// fail closed rather than overdraw the vault.
func (e *Engine) ClaimEarnings(staker [20]byte, bookID [32]byte) (*Stake, error) {
	book, err := e.loadBook(bookID)
	if err != nil {
		return nil, err
	}
	stake, ok := book.StakeFor(staker)
	if !ok {
		return nil, ErrStakerNotFound
	}
	if stake.Earnings == nil || stake.Earnings.Sign() == 0 {
		return nil, ErrNoEarningsToClaim
	}
	vault := BookVaultAddress(bookID)
	vaultAcc, err := e.state.GetAccount(vault[:])
	if err != nil {
		return nil, err
	}
	if ensureAccount(vaultAcc).Balance.Cmp(stake.Earnings) < 0 {
		return nil, ErrInsufficientFunds
	}
	claimed := cloneBigInt(stake.Earnings)
	if err := e.transfer(vault, staker, claimed); err != nil {
		return nil, err
	}
	stake.Earnings = big.NewInt(0)
	if err := e.state.MarketBookPut(book); err != nil {
		return nil, err
	}
	e.emit(EarningsClaimedEvent(hexBookID(bookID), hexAddr(staker), claimed.String()))
	return stake.Clone(), nil
}
