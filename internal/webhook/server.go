// Package webhook receives payment notifications from the payment provider.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"dice-casino-bot/internal/cryptopay"
	"dice-casino-bot/internal/settlement"
)

const maxBodyBytes = 1 << 20

// Settler settles a decoded payment notification.
type Settler interface {
	HandlePaymentNotification(ctx context.Context, update *cryptopay.Update) *settlement.PaymentResult
}

// Listener is told about every settled payment.
type Listener interface {
	OnPayment(ctx context.Context, res *settlement.PaymentResult)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, res *settlement.PaymentResult)

// OnPayment calls f.
func (f ListenerFunc) OnPayment(ctx context.Context, res *settlement.PaymentResult) {
	f(ctx, res)
}

// Config configures the receiver.
type Config struct {
	Addr            string
	Path            string
	Token           string
	VerifySignature bool
}

// Handler serves the webhook endpoint.
type Handler struct {
	cfg      Config
	settler  Settler
	listener Listener
}

// NewHandler creates a Handler. listener may be nil.
func NewHandler(cfg Config, settler Settler, listener Listener) *Handler {
	if cfg.Path == "" {
		cfg.Path = "/cryptopay/webhook"
	}
	return &Handler{cfg: cfg, settler: settler, listener: listener}
}

// Router returns the chi router with all endpoints registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post(h.cfg.Path, h.handleUpdate)

	return r
}

// NewServer creates the *http.Server for the receiver.
func NewServer(h *Handler) *http.Server {
	return &http.Server{
		Addr:              h.cfg.Addr,
		Handler:           h.Router(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	if h.cfg.VerifySignature && !cryptopay.VerifySignature(h.cfg.Token, body, r.Header.Get(cryptopay.SignatureHeader)) {
		log.Warn().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("remote", r.RemoteAddr).
			Msg("Rejected webhook with invalid signature")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	update, err := cryptopay.DecodeUpdate(body)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected malformed webhook body")
		writeError(w, http.StatusBadRequest, "malformed update")
		return
	}

	res := h.settler.HandlePaymentNotification(r.Context(), update)

	if res.Status == settlement.PaymentSettled && h.listener != nil {
		// The provider only needs an acknowledgement; follow-up work must
		// not be tied to this request.
		go h.listener.OnPayment(context.WithoutCancel(r.Context()), res)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(res.Status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
