package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sbsimple/backend/internal/middleware"
	"github.com/sbsimple/backend/internal/models"
)

type LoginRequest struct {
	HashCode string `json:"hash_code"`
	Coupon   string `json:"coupon"`
}

type LoginResponse struct {
	Token   string      `json:"token"`
	Name    string      `json:"name"`
	Tier    models.Tier `json:"tier"`
	Balance *int64      `json:"balance,omitempty"`
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

// Login handles POST /api/v1/auth/login. A coupon, when present, wins over
// a hash code.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.HashCode == "" && req.Coupon == "" {
		http.Error(w, `{"error":"hash_code or coupon is required"}`, http.StatusBadRequest)
		return
	}

	var (
		res *LoginResult
		err error
	)
	if req.Coupon != "" {
		res, err = h.svc.AuthenticateByCoupon(r.Context(), req.Coupon)
	} else {
		res, err = h.svc.AuthenticateByHash(r.Context(), req.HashCode)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LoginResponse{
		Token:   res.Token,
		Name:    res.DisplayName,
		Tier:    res.Tier,
		Balance: res.Balance,
	})
}

// Logout handles POST /api/v1/auth/logout. Always succeeds: a missing or
// dead token leaves nothing to do.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.ExtractBearer(r); token != "" {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			h.log.Error("logout: session delete failed", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
