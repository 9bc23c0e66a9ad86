package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"openshelf/core"
	"openshelf/nft"
	"openshelf/observability"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeValidation     = -32010
	codeIntegrity      = -32020
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// RPCError mirrors the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Server exposes the marketplace node over JSON-RPC 2.0.
type Server struct {
	node          *core.Node
	registry      *nft.Registry
	log           *slog.Logger
	faucetEnabled bool
}

// NewServer constructs an RPC server over the node. The registry may be nil
// when no collectible mirror is configured; collectible queries then return
// an empty list.
func NewServer(node *core.Node, registry *nft.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{node: node, registry: registry, log: logger}
}

// EnableFaucet turns on the development-only market_fund method.
func (s *Server) EnableFaucet() { s.faucetEnabled = true }

// Router builds the HTTP handler: JSON-RPC on POST /, liveness on /healthz and
// prometheus metrics on /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handleRPC)
	return r
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "2.0" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	result, rpcErr := s.dispatch(req.Method, req.Params)
	metrics := observability.ModuleMetrics()
	if rpcErr != nil {
		metrics.ObserveRequest(req.Method, "error", time.Since(start))
		metrics.ObserveError(req.Method, strconv.Itoa(rpcErr.Code))
		s.log.Warn("rpc request failed", "method", req.Method, "code", rpcErr.Code, "message", rpcErr.Message)
		writeError(w, statusForCode(rpcErr.Code), req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	metrics.ObserveRequest(req.Method, "ok", time.Since(start))
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(method string, params json.RawMessage) (interface{}, *RPCError) {
	switch method {
	case "market_addBook":
		return s.handleAddBook(params)
	case "market_addChapter":
		return s.handleAddChapter(params)
	case "market_purchaseChapter":
		return s.handlePurchaseChapter(params)
	case "market_purchaseBook":
		return s.handlePurchaseBook(params)
	case "market_stake":
		return s.handleStake(params)
	case "market_claimEarnings":
		return s.handleClaimEarnings(params)
	case "market_getBook":
		return s.handleGetBook(params)
	case "market_getBooks":
		return s.handleGetBooks(params)
	case "market_getStakes":
		return s.handleGetStakes(params)
	case "market_getBalance":
		return s.handleGetBalance(params)
	case "market_getCollectibles":
		return s.handleGetCollectibles(params)
	case "market_fund":
		return s.handleFund(params)
	default:
		return nil, &RPCError{Code: codeMethodNotFound, Message: "unknown method " + method}
	}
}

func statusForCode(code int) int {
	switch code {
	case codeParseError, codeInvalidRequest, codeInvalidParams, codeValidation:
		return http.StatusBadRequest
	case codeMethodNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}
