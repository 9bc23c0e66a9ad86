package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"openshelf/native/market"
	"openshelf/nft"
)

type addBookParams struct {
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	ImageURL    string `json:"imageUrl"`
}

type addChapterParams struct {
	Author string `json:"author"`
	BookID string `json:"bookId"`
	URL    string `json:"url"`
	Index  uint8  `json:"index"`
	Price  string `json:"price"`
	Name   string `json:"name"`
}

type purchaseChapterParams struct {
	Buyer  string `json:"buyer"`
	BookID string `json:"bookId"`
	Index  uint8  `json:"index"`
}

type purchaseBookParams struct {
	Buyer  string `json:"buyer"`
	BookID string `json:"bookId"`
}

type stakeParams struct {
	Staker string `json:"staker"`
	BookID string `json:"bookId"`
	Amount string `json:"amount"`
}

type claimParams struct {
	Staker string `json:"staker"`
	BookID string `json:"bookId"`
}

type bookIDParams struct {
	BookID string `json:"bookId"`
}

type addressParams struct {
	Address string `json:"address"`
}

type fundParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type chapterResult struct {
	Index   uint8    `json:"index"`
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Price   string   `json:"price"`
	Readers []string `json:"readers"`
}

type stakeResult struct {
	Staker       string `json:"staker"`
	Amount       string `json:"amount"`
	Earnings     string `json:"earnings"`
	TotalEarning string `json:"totalEarning"`
}

type bookResult struct {
	ID          string          `json:"id"`
	Author      string          `json:"author"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Genre       string          `json:"genre"`
	ImageURL    string          `json:"imageUrl"`
	PublishedAt int64           `json:"publishedAt"`
	FullPrice   string          `json:"fullPrice"`
	TotalStake  string          `json:"totalStake"`
	Chapters    []chapterResult `json:"chapters"`
	Readers     []string        `json:"readers"`
	Stakes      []stakeResult   `json:"stakes"`
}

type receiptResult struct {
	BookID        string `json:"bookId"`
	Buyer         string `json:"buyer"`
	Entitlement   string `json:"entitlement"`
	Price         string `json:"price"`
	AuthorShare   string `json:"authorShare"`
	StakerShare   string `json:"stakerShare"`
	PlatformShare string `json:"platformShare"`
	TxRef         string `json:"txRef"`
	AnnounceError string `json:"announceError,omitempty"`
}

func (s *Server) handleAddBook(raw json.RawMessage) (interface{}, *RPCError) {
	var params addBookParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	author, rpcErr := parseAddress(params.Author, "author")
	if rpcErr != nil {
		return nil, rpcErr
	}
	book, err := s.node.AddBook(author, params.Title, params.Description, params.Genre, params.ImageURL)
	if err != nil {
		return nil, marketError(err)
	}
	return formatBook(book), nil
}

func (s *Server) handleAddChapter(raw json.RawMessage) (interface{}, *RPCError) {
	var params addChapterParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	author, rpcErr := parseAddress(params.Author, "author")
	if rpcErr != nil {
		return nil, rpcErr
	}
	bookID, rpcErr := parseBookID(params.BookID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	price, rpcErr := parseAmount(params.Price, "price")
	if rpcErr != nil {
		return nil, rpcErr
	}
	chapter, err := s.node.AddChapter(author, bookID, params.URL, params.Index, price, params.Name)
	if err != nil {
		return nil, marketError(err)
	}
	return formatChapter(chapter), nil
}

func (s *Server) handlePurchaseChapter(raw json.RawMessage) (interface{}, *RPCError) {
	var params purchaseChapterParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return s.purchase(params.Buyer, params.BookID, market.ChapterPurchase(params.Index))
}

func (s *Server) handlePurchaseBook(raw json.RawMessage) (interface{}, *RPCError) {
	var params purchaseBookParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return s.purchase(params.Buyer, params.BookID, market.FullBookPurchase())
}

func (s *Server) purchase(buyerHex, bookIDHex string, target market.PurchaseKind) (interface{}, *RPCError) {
	buyer, rpcErr := parseAddress(buyerHex, "buyer")
	if rpcErr != nil {
		return nil, rpcErr
	}
	bookID, rpcErr := parseBookID(bookIDHex)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.node.Purchase(buyer, bookID, target)
	if err != nil {
		return nil, marketError(err)
	}
	result := receiptResult{
		BookID:        params0x(receipt.BookID[:]),
		Buyer:         params0x(receipt.Buyer[:]),
		Entitlement:   receipt.Entitlement.String(),
		Price:         receipt.Price.String(),
		AuthorShare:   receipt.AuthorShare.String(),
		StakerShare:   receipt.StakerShare.String(),
		PlatformShare: receipt.PlatformShare.String(),
		TxRef:         receipt.TxRef,
	}
	if receipt.AnnounceErr != nil {
		result.AnnounceError = receipt.AnnounceErr.Error()
	}
	return result, nil
}

func (s *Server) handleStake(raw json.RawMessage) (interface{}, *RPCError) {
	var params stakeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	staker, rpcErr := parseAddress(params.Staker, "staker")
	if rpcErr != nil {
		return nil, rpcErr
	}
	bookID, rpcErr := parseBookID(params.BookID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	stake, err := s.node.StakeOnBook(staker, bookID, amount)
	if err != nil {
		return nil, marketError(err)
	}
	return formatStake(stake), nil
}

func (s *Server) handleClaimEarnings(raw json.RawMessage) (interface{}, *RPCError) {
	var params claimParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	staker, rpcErr := parseAddress(params.Staker, "staker")
	if rpcErr != nil {
		return nil, rpcErr
	}
	bookID, rpcErr := parseBookID(params.BookID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	stake, err := s.node.ClaimEarnings(staker, bookID)
	if err != nil {
		return nil, marketError(err)
	}
	return formatStake(stake), nil
}

func (s *Server) handleGetBook(raw json.RawMessage) (interface{}, *RPCError) {
	var params bookIDParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	bookID, rpcErr := parseBookID(params.BookID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	book, err := s.node.Book(bookID)
	if err != nil {
		return nil, marketError(err)
	}
	return formatBook(book), nil
}

func (s *Server) handleGetBooks(raw json.RawMessage) (interface{}, *RPCError) {
	ids, err := s.node.Books()
	if err != nil {
		return nil, marketError(err)
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, params0x(id[:]))
	}
	return out, nil
}

func (s *Server) handleGetStakes(raw json.RawMessage) (interface{}, *RPCError) {
	var params bookIDParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	bookID, rpcErr := parseBookID(params.BookID)
	if rpcErr != nil {
		return nil, rpcErr
	}
	book, err := s.node.Book(bookID)
	if err != nil {
		return nil, marketError(err)
	}
	out := make([]stakeResult, 0, len(book.Stakes))
	for i := range book.Stakes {
		out = append(out, formatStake(&book.Stakes[i]))
	}
	return out, nil
}

func (s *Server) handleGetBalance(raw json.RawMessage) (interface{}, *RPCError) {
	var params addressParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		return nil, marketError(err)
	}
	return balance.String(), nil
}

func (s *Server) handleGetCollectibles(raw json.RawMessage) (interface{}, *RPCError) {
	var params addressParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if s.registry == nil {
		return []nft.Collectible{}, nil
	}
	collectibles, err := s.registry.OwnerCollectibles(addr)
	if err != nil {
		return nil, &RPCError{Code: codeServerError, Message: err.Error()}
	}
	if collectibles == nil {
		collectibles = []nft.Collectible{}
	}
	return collectibles, nil
}

func (s *Server) handleFund(raw json.RawMessage) (interface{}, *RPCError) {
	if !s.faucetEnabled {
		return nil, &RPCError{Code: codeMethodNotFound, Message: "market_fund is disabled"}
	}
	var params fundParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddress(params.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(params.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.Credit(addr, amount); err != nil {
		return nil, marketError(err)
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		return nil, marketError(err)
	}
	return balance.String(), nil
}

// --- helpers ---

func decodeParams(raw json.RawMessage, into interface{}) *RPCError {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
	}
	return nil
}

func parseAddress(value, field string) ([20]byte, *RPCError) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return addr, &RPCError{Code: codeInvalidParams, Message: field + " must be a 0x-prefixed address"}
	}
	copy(addr[:], common.HexToAddress(trimmed).Bytes())
	return addr, nil
}

func parseBookID(value string) ([32]byte, *RPCError) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(id) {
		return id, &RPCError{Code: codeInvalidParams, Message: "bookId must be a 32-byte hex identifier"}
	}
	copy(id[:], decoded)
	return id, nil
}

func parseAmount(value, field string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: field + " required"}
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: field + " must be a decimal amount"}
	}
	return amount, nil
}

func params0x(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func formatBook(book *market.Book) bookResult {
	result := bookResult{
		ID:          params0x(book.ID[:]),
		Author:      params0x(book.Author[:]),
		Title:       book.Title,
		Description: book.Description,
		Genre:       book.Genre,
		ImageURL:    book.ImageURL,
		PublishedAt: book.PublishedAt,
		FullPrice:   book.FullPrice.String(),
		TotalStake:  book.TotalStake.String(),
		Chapters:    make([]chapterResult, 0, len(book.Chapters)),
		Readers:     formatAddresses(book.Readers),
		Stakes:      make([]stakeResult, 0, len(book.Stakes)),
	}
	for i := range book.Chapters {
		result.Chapters = append(result.Chapters, formatChapter(&book.Chapters[i]))
	}
	for i := range book.Stakes {
		result.Stakes = append(result.Stakes, formatStake(&book.Stakes[i]))
	}
	return result
}

func formatChapter(chapter *market.Chapter) chapterResult {
	return chapterResult{
		Index:   chapter.Index,
		Name:    chapter.Name,
		URL:     chapter.URL,
		Price:   chapter.Price.String(),
		Readers: formatAddresses(chapter.Readers),
	}
}

func formatStake(stake *market.Stake) stakeResult {
	return stakeResult{
		Staker:       params0x(stake.Staker[:]),
		Amount:       stake.Amount.String(),
		Earnings:     stake.Earnings.String(),
		TotalEarning: stake.TotalEarning.String(),
	}
}

func formatAddresses(addrs [][20]byte) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, params0x(addr[:]))
	}
	return out
}

// marketError maps engine sentinels onto JSON-RPC error codes: integrity
// failures get their own code so callers can distinguish a configuration or
// logic defect from recoverable validation input.
func marketError(err error) *RPCError {
	if errors.Is(err, market.ErrArithmeticOverflow) || errors.Is(err, market.ErrInvalidShareSplit) {
		return &RPCError{Code: codeIntegrity, Message: err.Error()}
	}
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return &RPCError{Code: codeValidation, Message: err.Error()}
		}
	}
	return &RPCError{Code: codeServerError, Message: err.Error()}
}

var validationSentinels = []error{
	market.ErrBookExists,
	market.ErrBookNotFound,
	market.ErrNotAuthor,
	market.ErrEmptyBookTitle,
	market.ErrBookTitleTooLong,
	market.ErrEmptyBookDescription,
	market.ErrBookDescriptionTooLong,
	market.ErrEmptyBookGenre,
	market.ErrBookGenreTooLong,
	market.ErrEmptyImageURL,
	market.ErrImageURLTooLong,
	market.ErrInvalidChapterIndex,
	market.ErrMaxChaptersReached,
	market.ErrEmptyChapterURL,
	market.ErrChapterURLTooLong,
	market.ErrEmptyChapterName,
	market.ErrChapterNameTooLong,
	market.ErrInvalidChapterPrice,
	market.ErrChapterPriceTooHigh,
	market.ErrChapterAlreadySold,
	market.ErrAlreadyPurchased,
	market.ErrInvalidPrice,
	market.ErrInsufficientFunds,
	market.ErrNoStakers,
	market.ErrInvalidStakeAmount,
	market.ErrStakeAmountTooHigh,
	market.ErrNotQualifiedForStaking,
	market.ErrMaxStakersReached,
	market.ErrStakerNotFound,
	market.ErrNoEarningsToClaim,
}
