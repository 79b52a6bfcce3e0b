package webhook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v66/github"
)

// Handler verifies and dispatches GitHub webhook deliveries.
type Handler struct {
	secret     []byte
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewHandler creates a handler that rejects deliveries not signed with secret.
func NewHandler(secret []byte, dispatcher *Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{secret: secret, dispatcher: dispatcher, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("webhook signature rejected", slog.String("error", err.Error()))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event := github.WebHookType(r)
	log := h.logger.With(
		slog.String("event", event),
		slog.String("delivery", github.DeliveryID(r)),
	)

	if event == EventPing {
		w.WriteHeader(http.StatusOK)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), event, payload)
	switch {
	case errors.Is(err, ErrUnsupportedEvent):
		log.Debug("webhook event ignored")
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, ErrMalformedPayload):
		log.Warn("webhook payload rejected", slog.String("error", err.Error()))
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	case err != nil:
		log.Error("webhook dispatch failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
