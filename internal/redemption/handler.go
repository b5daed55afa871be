package redemption

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/middleware"
)

type RedeemRequest struct {
	Code string `json:"code"`
}

type RedeemResponse struct {
	NewBalance int64 `json:"new_balance"`
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

// Redeem handles POST /api/v1/redeem. Requires an account-backed session:
// coupon sessions have no balance to credit.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if sess.AccessHash == "" {
		http.Error(w, `{"error":"redeeming requires an account"}`, http.StatusUnprocessableEntity)
		return
	}

	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	newBalance, err := h.svc.Redeem(r.Context(), req.Code, sess.AccessHash)
	if err != nil {
		switch {
		case errors.Is(err, ErrRejected):
			http.Error(w, `{"error":"code invalid or already used"}`, http.StatusUnprocessableEntity)
		case errors.Is(err, account.ErrNotFound):
			h.log.Error("redeem: account vanished mid-session", "access_hash", sess.AccessHash)
			http.Error(w, `{"error":"redeem failed"}`, http.StatusInternalServerError)
		default:
			h.log.Error("redeem failed", "error", err)
			http.Error(w, `{"error":"redeem failed"}`, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RedeemResponse{NewBalance: newBalance})
}
