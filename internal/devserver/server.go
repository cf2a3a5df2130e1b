// Package devserver is a local stand-in for the FrugalAgent backend. It
// serves the same four endpoints over an in-memory or SQLite ledger so the
// dashboard can run without the hosted API.
package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"frugal/internal/core"
	applog "frugal/internal/log"
	"frugal/internal/storage"
)

const maxBodyBytes = 1 << 20

// Server wraps http.Server with a one-shot shutdown that also closes the
// ledger.
type Server struct {
	http.Server
	ledger       storage.Ledger
	logger       *applog.Logger
	shutdownOnce sync.Once
}

type handler struct {
	ledger    storage.Ledger
	responder *Responder
}

// NewRouter builds the chi router serving the backend endpoints.
func NewRouter(ledger storage.Ledger, logger *applog.Logger) http.Handler {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentDevServer)
	h := &handler{ledger: ledger, responder: NewResponder(ledger, logger)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(applog.Middleware(logger, requestID))
	r.Use(allowAnyOrigin)

	r.Get("/", h.handleRoot)
	r.Get("/healthz", handleHealth)
	r.Get("/transactions", h.handleTransactions)
	r.Get("/insights", h.handleInsights)
	r.Get("/stats", h.handleStats)
	r.With(newClientLimiter(ChatRequestsPerMinute).middleware).Post("/chat", h.handleChat)

	return r
}

// NewServer returns a ready-to-run server on addr.
func NewServer(addr string, ledger storage.Ledger, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           NewRouter(ledger, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger: ledger,
		logger: logger.WithComponent(applog.ComponentDevServer),
	}
}

// Shutdown stops the listener and closes the ledger. Repeated calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		if err := s.ledger.Close(); err != nil {
			s.logger.Error("Failed to close ledger",
				applog.FieldOperation, applog.OpShutdown,
				applog.FieldErrorType, applog.ErrorTypeDatabase,
				applog.FieldError, err)
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
	})
	return shutdownErr
}

func (h *handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageDTO{Message: "FrugalAgent API is running"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.ListTransactions(r.Context())
	if err != nil {
		h.internalError(w, r, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *handler) handleInsights(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.ListTransactions(r.Context())
	if err != nil {
		h.internalError(w, r, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryTotalDTOs(core.SummarizeByCategory(txs)))
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := h.ledger.ListTransactions(ctx)
	if err != nil {
		h.internalError(w, r, "list transactions", err)
		return
	}
	cats, err := h.ledger.ListCategories(ctx)
	if err != nil {
		h.internalError(w, r, "list categories", err)
		return
	}
	debts, err := h.ledger.ListDebts(ctx)
	if err != nil {
		h.internalError(w, r, "list debts", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(core.NewDashboardStats(txs, cats, debts)))
}

func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequestDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorDTO{Detail: "request body must be a JSON object"})
		return
	}
	if req.Message == nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorDTO{Detail: "field required: message"})
		return
	}
	if strings.TrimSpace(*req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorDTO{Detail: "message must not be empty"})
		return
	}

	reply, err := h.responder.Reply(r.Context(), *req.Message)
	if err != nil {
		if isClientError(err) {
			writeJSON(w, http.StatusBadRequest, errorDTO{Detail: err.Error()})
			return
		}
		h.internalError(w, r, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponseDTO{Response: reply})
}

func (h *handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	fields := applog.NewFields().
		WithOperation(op).
		WithErrorType(applog.ErrorTypeDatabase).
		WithError(err)
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	writeJSON(w, http.StatusInternalServerError, errorDTO{Detail: "internal server error"})
}

// allowAnyOrigin mirrors the permissive CORS setup of the hosted API.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID exposes chi's request id to the log middleware.
func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
