package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"marketd/native/market"
	"marketd/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError        = -32700
	codeInvalidRequest    = -32600
	codeMethodNotFound    = -32601
	codeInvalidParams     = -32602
	codeServerError       = -32000
	codeUnauthorized      = -32001
	codeNotFound          = -32002
	codeInsufficientFunds = -32003
	codeRateLimited       = -32020
)

// Server exposes the marketplace engine over JSON-RPC 2.0. The engine's
// execution model is single-threaded and non-reentrant, so the server
// serializes every transition and query behind one mutex.
type Server struct {
	engine  *market.Engine
	logger  *slog.Logger
	metrics *observability.MarketMetrics
	tracer  trace.Tracer

	mu sync.Mutex

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   float64
	burst    int

	httpMu sync.Mutex
	http   *http.Server
}

// Config carries the tunables for the RPC server.
type Config struct {
	// RequestsPerMinute bounds per-source request rates; zero disables
	// rate limiting.
	RequestsPerMinute float64
	Burst             int
}

// NewServer creates an RPC server bound to the supplied engine.
func NewServer(engine *market.Engine, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		engine:   engine,
		logger:   logger,
		metrics:  observability.Metrics(),
		tracer:   otel.Tracer("marketd/rpc"),
		limiters: make(map[string]*rate.Limiter),
		perMin:   cfg.RequestsPerMinute,
		burst:    burst,
	}
}

// Handler returns the HTTP routing tree: the JSON-RPC endpoint, a health
// probe and the Prometheus scrape endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handle)
	return r
}

// Start serves the handler on the provided address, blocking until the
// listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	s.httpMu.Lock()
	s.http = srv
	s.httpMu.Unlock()

	s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests
// to drain, bounded by the supplied context.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpMu.Lock()
	srv := s.http
	s.httpMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	resp := rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &rpcError{Code: code, Message: message}}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) allow(remote string) bool {
	if s.perMin <= 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	s.limitMu.Lock()
	defer s.limitMu.Unlock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.perMin/60.0), s.burst)
		s.limiters[host] = limiter
	}
	return limiter.Allow()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.allow(r.RemoteAddr) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body")
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large")
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
		return
	}

	_, span := s.tracer.Start(r.Context(), req.Method, trace.WithAttributes(
		attribute.String("rpc.method", req.Method),
	))
	defer span.End()

	start := time.Now()
	result, rpcErr := s.dispatch(&req)
	elapsed := time.Since(start)

	// Unknown method names come straight from the client; collapsing them
	// into one label keeps the metric cardinality bounded.
	method := req.Method
	if rpcErr != nil && rpcErr.Code == codeMethodNotFound {
		method = "unknown"
	}

	if rpcErr != nil {
		span.SetAttributes(attribute.Int("rpc.error_code", rpcErr.Code))
		s.metrics.ObserveRequest(method, "error", elapsed)
		s.metrics.ObserveError(method, strconv.Itoa(rpcErr.Code))
		s.logger.Warn("rpc request failed",
			slog.String("method", req.Method),
			slog.Int("code", rpcErr.Code),
			slog.String("reason", rpcErr.Message),
		)
		writeError(w, statusForCode(rpcErr.Code), req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	s.metrics.ObserveRequest(method, "ok", elapsed)
	writeResult(w, req.ID, result)
}

func statusForCode(code int) int {
	switch code {
	case codeMethodNotFound:
		return http.StatusNotFound
	case codeInvalidParams, codeInvalidRequest, codeParseError:
		return http.StatusBadRequest
	case codeUnauthorized:
		return http.StatusForbidden
	case codeNotFound, codeInsufficientFunds:
		return http.StatusOK
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) dispatch(req *rpcRequest) (interface{}, *rpcError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Method {
	case "market_list":
		return s.handleList(req)
	case "market_buy":
		return s.handleBuy(req)
	case "market_withdraw":
		return s.handleWithdraw(req)
	case "market_getOfferings":
		return s.handleGetOfferings()
	case "market_getCount":
		return s.handleGetCount()
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found"}
	}
}

func engineError(err error) *rpcError {
	switch {
	case errors.Is(err, market.ErrOfferingNotFound):
		return &rpcError{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, market.ErrInsufficientFunds):
		return &rpcError{Code: codeInsufficientFunds, Message: err.Error()}
	case errors.Is(err, market.ErrUnauthorized):
		return &rpcError{Code: codeUnauthorized, Message: err.Error()}
	default:
		return &rpcError{Code: codeServerError, Message: err.Error()}
	}
}
