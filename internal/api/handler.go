// Package api exposes the action-based HTTP surface and the realtime
// stream. Handlers translate between wire shapes and the service layer;
// they never touch the store directly.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/gyaneshwarpardhi/imposter/internal/broadcast"
	"github.com/gyaneshwarpardhi/imposter/internal/config"
	"github.com/gyaneshwarpardhi/imposter/internal/identity"
	"github.com/gyaneshwarpardhi/imposter/internal/service"
	"github.com/gyaneshwarpardhi/imposter/internal/simulate"
	"github.com/gyaneshwarpardhi/imposter/internal/store"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	svc    *service.Service
	broker *broadcast.Broker
	store  store.Store
	loader *config.Loader
}

// New creates the router with all routes and middleware registered.
func New(svc *service.Service, broker *broadcast.Broker, st store.Store, loader *config.Loader) http.Handler {
	h := &Handler{svc: svc, broker: broker, store: st, loader: loader}
	cfg := loader.Config()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())

	limiter := newIPRateLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware(cfg.CORSAllowedOrigins))
		r.Use(limiter.Middleware())
		r.HandleFunc("/email", h.email)
		r.HandleFunc("/phone", h.phone)
		r.HandleFunc("/card", h.card)
		r.HandleFunc("/settings", h.settings)
		r.Post("/cleanup", h.cleanup)
		r.Get("/stream", h.stream)
	})

	return r
}

// --- email ---------------------------------------------------------------

func (h *Handler) email(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	address := r.URL.Query().Get("address")

	switch action {
	case "new":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		res, err := h.svc.NewEmail(r.Context())
		if err != nil {
			slog.Error("email: create failed", "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate email address")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"address":   res.Key,
			"expiresAt": res.ExpiresAt,
		})

	case "sync":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if address == "" {
			writeError(w, http.StatusBadRequest, "Address required")
			return
		}
		n, err := h.svc.SyncInbox(r.Context(), address)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Address not found")
				return
			}
			slog.Error("email: sync failed", "address", address, "err", err)
			writeError(w, http.StatusInternalServerError, "Sync failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"synced": n})

	case "messages":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if address == "" {
			writeError(w, http.StatusBadRequest, "Address required")
			return
		}
		msgs, err := h.svc.Messages(r.Context(), address)
		if err != nil && !errors.Is(err, identity.ErrNotFound) {
			slog.Error("email: messages failed", "address", address, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if msgs == nil {
			msgs = []identity.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})

	case "delete":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if address == "" {
			writeError(w, http.StatusBadRequest, "Address required")
			return
		}
		if err := h.svc.DeleteEmail(r.Context(), address); err != nil {
			slog.Error("email: delete failed", "address", address, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

// --- phone ---------------------------------------------------------------

func (h *Handler) phone(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	number := r.URL.Query().Get("number")

	switch action {
	case "new":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		res, err := h.svc.NewPhone(r.Context())
		if err != nil {
			slog.Error("phone: create failed", "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate number")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"number":    res.Key,
			"expiresAt": res.ExpiresAt,
		})

	case "messages":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if number == "" {
			writeError(w, http.StatusBadRequest, "Number required")
			return
		}
		msgs, err := h.svc.PhoneMessages(r.Context(), number)
		if err != nil && !errors.Is(err, identity.ErrNotFound) {
			slog.Error("phone: messages failed", "number", number, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if msgs == nil {
			msgs = []identity.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})

	case "delete":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if number == "" {
			writeError(w, http.StatusBadRequest, "Number required")
			return
		}
		if err := h.svc.DeletePhone(r.Context(), number); err != nil {
			slog.Error("phone: delete failed", "number", number, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case "simulate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if number == "" {
			writeError(w, http.StatusBadRequest, "Number required")
			return
		}
		var body struct {
			From string `json:"from"`
			Body string `json:"body"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		ev, err := h.svc.AddSMS(r.Context(), number, body.From, body.Body)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Number not found")
				return
			}
			slog.Error("phone: simulate failed", "number", number, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, ev)

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

// --- card ----------------------------------------------------------------

type cardResponse struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	Expiry    string    `json:"expiry"`
	CVV       string    `json:"cvv"`
	Holder    string    `json:"holder"`
	Limit     int       `json:"limit"`
	Locked    bool      `json:"locked"`
	IsReal    bool      `json:"isReal"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func cardJSON(res *identity.Resource) cardResponse {
	out := cardResponse{
		ID:        res.Key,
		Locked:    res.Locked,
		CreatedAt: res.CreatedAt,
		ExpiresAt: res.ExpiresAt,
	}
	if res.Card != nil {
		out.Number = res.Card.Number
		out.Expiry = res.Card.Expiry
		out.CVV = res.Card.CVV
		out.Holder = res.Card.Holder
		out.Limit = res.Card.Limit
		out.IsReal = res.Card.Real
	}
	return out
}

func (h *Handler) card(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	id := r.URL.Query().Get("id")

	switch action {
	case "new":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		res, err := h.svc.NewCard(r.Context())
		if err != nil {
			slog.Error("card: create failed", "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate card")
			return
		}
		writeJSON(w, http.StatusOK, cardJSON(res))

	case "get":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if id == "" {
			writeError(w, http.StatusBadRequest, "Card ID required")
			return
		}
		res, err := h.svc.GetCard(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "Card not found")
			return
		}
		writeJSON(w, http.StatusOK, cardJSON(res))

	case "lock":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if id == "" {
			writeError(w, http.StatusBadRequest, "Card ID required")
			return
		}
		res, err := h.svc.ToggleLock(r.Context(), id)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Card not found")
				return
			}
			slog.Error("card: lock failed", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to update lock state")
			return
		}
		writeJSON(w, http.StatusOK, cardJSON(res))

	case "transactions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if id == "" {
			writeError(w, http.StatusBadRequest, "Card ID required")
			return
		}
		txs, err := h.svc.Transactions(r.Context(), id)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				writeError(w, http.StatusNotFound, "Card not found")
				return
			}
			slog.Error("card: transactions failed", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if txs == nil {
			txs = []identity.Event{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})

	case "simulate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if id == "" {
			writeError(w, http.StatusBadRequest, "Card ID required")
			return
		}
		ev, err := h.svc.AddTransaction(r.Context(), id, simulate.RandomMerchant(), simulate.RandomAmount(), "USD")
		if err != nil {
			// Lock state is deliberately not distinguished from absence.
			if errors.Is(err, identity.ErrNotFound) || errors.Is(err, identity.ErrLocked) {
				writeError(w, http.StatusNotFound, "Card not found or locked")
				return
			}
			slog.Error("card: simulate failed", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, ev)

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

// --- settings ------------------------------------------------------------

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "clear":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := h.svc.ClearAll(r.Context()); err != nil {
			slog.Error("settings: clear failed", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "All simulation data cleared",
		})

	case "ttl":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var body struct {
			Kind  identity.Kind `json:"kind"`
			TTLMs int64         `json:"ttl_ms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := h.svc.SetTTL(body.Kind, time.Duration(body.TTLMs)*time.Millisecond); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid kind or TTL")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

// --- cleanup -------------------------------------------------------------

// cleanup hard-removes expired and soft-deleted resources. Meant to be
// invoked by an external scheduler holding the cron secret.
func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	secret := h.loader.Config().CronSecret
	auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if secret == "" || subtle.ConstantTimeCompare([]byte(auth), []byte(secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	n, err := h.svc.PurgeExpired(r.Context())
	if err != nil {
		slog.Error("cleanup: purge failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"purged":  n,
	})
}

// --- health --------------------------------------------------------------

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.HealthCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
