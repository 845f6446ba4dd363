package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

const maxLimit = 1000

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{externalID}", h.get)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.svc.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list ledger records", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(records)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetByExternalID(r.Context(), chi.URLParam(r, "externalID"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "ledger record not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to get ledger record", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func parseFilter(q url.Values) (ledger.ListFilter, error) {
	filter := ledger.ListFilter{Limit: maxLimit}

	if s := q.Get("type"); s != "" {
		t := ledger.Type(s)
		if !slices.Contains(ledger.Types, t) {
			return filter, fmt.Errorf("unknown type %q", s)
		}

		filter.Type = &t
	}

	if s := q.Get("status"); s != "" {
		st := ledger.Status(s)
		if !slices.Contains(ledger.Statuses, st) {
			return filter, fmt.Errorf("unknown status %q", s)
		}

		filter.Status = &st
	}

	if s := q.Get("member_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, errors.New("invalid member_id")
		}

		filter.MemberID = &id
	}

	if s := q.Get("orphans"); s != "" {
		orphans, err := strconv.ParseBool(s)
		if err != nil {
			return filter, errors.New("invalid orphans flag")
		}

		filter.OrphanedOnly = orphans
	}

	var err error

	if filter.CreatedFrom, err = parseTime(q.Get("since")); err != nil {
		return filter, fmt.Errorf("invalid since: %w", err)
	}

	if filter.CreatedUntil, err = parseTime(q.Get("until")); err != nil {
		return filter, fmt.Errorf("invalid until: %w", err)
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return filter, errors.New("invalid limit")
		}

		filter.Limit = min(n, maxLimit)
	}

	return filter, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
