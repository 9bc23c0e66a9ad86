package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"openshelf/core"
	"openshelf/native/market"
	"openshelf/nft"
	"openshelf/storage"
)

const (
	authorHex   = "0x0000000000000000000000000000000000000001"
	buyerHex    = "0x0000000000000000000000000000000000000002"
	platformHex = "0x00000000000000000000000000000000000000ff"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	var platform [20]byte
	platform[19] = 0xFF
	node := core.NewNode(storage.NewMemDB(), market.DefaultParams(), platform)
	node.SetNowFunc(func() int64 { return 1_700_000_000 })

	registry, err := nft.NewRegistry(filepath.Join(t.TempDir(), "collectibles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })
	node.SetSynchronizer(registry)

	server := NewServer(node, registry, nil)
	server.EnableFaucet()
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return server, ts
}

func call(t *testing.T, ts *httptest.Server, method string, params interface{}) (json.RawMessage, *RPCError) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Result, envelope.Error
}

func mustCall(t *testing.T, ts *httptest.Server, method string, params, into interface{}) {
	t.Helper()
	result, rpcErr := call(t, ts, method, params)
	require.Nil(t, rpcErr, "method %s", method)
	if into != nil {
		require.NoError(t, json.Unmarshal(result, into))
	}
}

func publishTestBook(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	var book bookResult
	mustCall(t, ts, "market_addBook", map[string]string{
		"author":      authorHex,
		"title":       "Wire Fixtures",
		"description": "A book published over the wire.",
		"genre":       "fiction",
		"imageUrl":    "https://img.example/cover.png",
	}, &book)
	mustCall(t, ts, "market_addChapter", map[string]interface{}{
		"author": authorHex,
		"bookId": book.ID,
		"url":    "https://content.example/ch0",
		"index":  0,
		"price":  "100",
		"name":   "Opening",
	}, nil)
	return book.ID
}

func TestRPCFullFlow(t *testing.T) {
	_, ts := newTestServer(t)
	bookID := publishTestBook(t, ts)

	var balance string
	mustCall(t, ts, "market_fund", map[string]string{"address": buyerHex, "amount": "1000"}, &balance)
	require.Equal(t, "1000", balance)

	var receipt receiptResult
	mustCall(t, ts, "market_purchaseChapter", map[string]interface{}{
		"buyer": buyerHex, "bookId": bookID, "index": 0,
	}, &receipt)
	require.Equal(t, "100", receipt.Price)
	require.Equal(t, "70", receipt.AuthorShare)
	require.Equal(t, "0", receipt.StakerShare)
	require.Equal(t, "30", receipt.PlatformShare)
	require.NotEmpty(t, receipt.TxRef)
	require.Empty(t, receipt.AnnounceError)

	mustCall(t, ts, "market_getBalance", map[string]string{"address": buyerHex}, &balance)
	require.Equal(t, "900", balance)
	mustCall(t, ts, "market_getBalance", map[string]string{"address": platformHex}, &balance)
	require.Equal(t, "30", balance)

	var book bookResult
	mustCall(t, ts, "market_getBook", map[string]string{"bookId": bookID}, &book)
	require.Len(t, book.Chapters, 1)
	require.Contains(t, book.Chapters[0].Readers, buyerHex)

	var ids []string
	mustCall(t, ts, "market_getBooks", nil, &ids)
	require.Equal(t, []string{bookID}, ids)

	var collectibles []nft.Collectible
	mustCall(t, ts, "market_getCollectibles", map[string]string{"address": buyerHex}, &collectibles)
	require.Len(t, collectibles, 1)
	require.Equal(t, "full_book", collectibles[0].Kind)
	require.Equal(t, receipt.TxRef, collectibles[0].TxRef)
}

func TestRPCStakeAndClaim(t *testing.T) {
	_, ts := newTestServer(t)
	bookID := publishTestBook(t, ts)
	stakerHex := "0x0000000000000000000000000000000000000003"
	readerHex := "0x0000000000000000000000000000000000000004"

	mustCall(t, ts, "market_fund", map[string]string{"address": stakerHex, "amount": "10000"}, nil)
	mustCall(t, ts, "market_fund", map[string]string{"address": readerHex, "amount": "1000"}, nil)

	mustCall(t, ts, "market_purchaseBook", map[string]string{"buyer": stakerHex, "bookId": bookID}, nil)

	var stake stakeResult
	mustCall(t, ts, "market_stake", map[string]string{
		"staker": stakerHex, "bookId": bookID, "amount": "1000",
	}, &stake)
	require.Equal(t, "1000", stake.Amount)

	mustCall(t, ts, "market_purchaseChapter", map[string]interface{}{
		"buyer": readerHex, "bookId": bookID, "index": 0,
	}, nil)

	var stakes []stakeResult
	mustCall(t, ts, "market_getStakes", map[string]string{"bookId": bookID}, &stakes)
	require.Len(t, stakes, 1)
	require.Equal(t, "10", stakes[0].Earnings)

	mustCall(t, ts, "market_claimEarnings", map[string]string{
		"staker": stakerHex, "bookId": bookID,
	}, &stake)
	require.Equal(t, "0", stake.Earnings)
	require.Equal(t, "10", stake.TotalEarning)
}

func TestRPCValidationErrors(t *testing.T) {
	_, ts := newTestServer(t)
	bookID := publishTestBook(t, ts)

	_, rpcErr := call(t, ts, "market_purchaseChapter", map[string]interface{}{
		"buyer": buyerHex, "bookId": bookID, "index": 0,
	})
	require.NotNil(t, rpcErr)
	require.Equal(t, codeValidation, rpcErr.Code, "insufficient funds maps to the validation code")

	_, rpcErr = call(t, ts, "market_addBook", map[string]string{
		"author": "not-an-address", "title": "x", "description": "y", "genre": "z", "imageUrl": "u",
	})
	require.NotNil(t, rpcErr)
	require.Equal(t, codeInvalidParams, rpcErr.Code)

	_, rpcErr = call(t, ts, "market_getBook", map[string]string{"bookId": "0xdeadbeef"})
	require.NotNil(t, rpcErr)
	require.Equal(t, codeInvalidParams, rpcErr.Code)

	_, rpcErr = call(t, ts, "market_getBook", map[string]string{
		"bookId": "0x1111111111111111111111111111111111111111111111111111111111111111",
	})
	require.NotNil(t, rpcErr)
	require.Equal(t, codeValidation, rpcErr.Code, "unknown book maps to the validation code")

	_, rpcErr = call(t, ts, "market_unknown", nil)
	require.NotNil(t, rpcErr)
	require.Equal(t, codeMethodNotFound, rpcErr.Code)
}

func TestMarketErrorCodes(t *testing.T) {
	require.Equal(t, codeIntegrity, marketError(market.ErrArithmeticOverflow).Code)
	require.Equal(t, codeIntegrity, marketError(market.ErrInvalidShareSplit).Code)
	require.Equal(t, codeValidation, marketError(market.ErrInsufficientFunds).Code)
	require.Equal(t, codeValidation, marketError(market.ErrBookNotFound).Code)
	require.Equal(t, codeServerError, marketError(errors.New("backend down")).Code)
}

func TestRPCFaucetDisabled(t *testing.T) {
	var platform [20]byte
	platform[19] = 0xFF
	node := core.NewNode(storage.NewMemDB(), market.DefaultParams(), platform)
	server := NewServer(node, nil, nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	_, rpcErr := call(t, ts, "market_fund", map[string]string{"address": buyerHex, "amount": "10"})
	require.NotNil(t, rpcErr)
	require.Equal(t, codeMethodNotFound, rpcErr.Code)
}

func TestRPCRejectsBadEnvelope(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := json.Marshal(map[string]interface{}{"jsonrpc": "1.0", "id": 1, "method": "market_getBooks"})
	require.NoError(t, err)
	resp, err = http.Post(ts.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
