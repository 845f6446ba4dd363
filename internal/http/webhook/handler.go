package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/clubledger/internal/webhook"
)

const maxBodyBytes = 1 << 16

type Handler struct {
	svc *webhook.Service
}

func NewHandler(svc *webhook.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/stripe", h.stripe)
}

type eventResponse struct {
	Received bool            `json:"received"`
	EventID  string          `json:"event_id"`
	Outcome  webhook.Outcome `json:"outcome"`
}

func (h *Handler) stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	res, err := h.svc.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidEvent) {
			slog.Warn("rejected webhook", "error", err)
			http.Error(w, "invalid event", http.StatusBadRequest)

			return
		}

		// A 5xx makes the gateway redeliver.
		slog.Error("failed to handle webhook", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(eventResponse{
		Received: true,
		EventID:  res.EventID,
		Outcome:  res.Outcome,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
