package search

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/middleware"
)

type SearchRequest struct {
	Username string `json:"username"`
}

type SearchResponse struct {
	Found      bool            `json:"found"`
	Data       json.RawMessage `json:"data,omitempty"`
	Unlimited  bool            `json:"unlimited,omitempty"`
	NewBalance *int64          `json:"new_balance,omitempty"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Search handles POST /api/v1/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	res, err := h.svc.Search(r.Context(), sess, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, `{"error":"enter a valid username"}`, http.StatusBadRequest)
		case errors.Is(err, account.ErrInsufficientCredit):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":     "insufficient credit",
				"unit_cost": h.svc.UnitCost(),
			})
		default:
			h.log.Error("search failed", "error", err)
			http.Error(w, `{"error":"search failed"}`, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(SearchResponse{
		Found:      res.Found,
		Data:       res.Data,
		Unlimited:  res.Unlimited,
		NewBalance: res.NewBalance,
	})
}
