package router

import (
	"encoding/json"
	"net/http"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/middleware"
	"github.com/sbsimple/backend/internal/redemption"
	"github.com/sbsimple/backend/internal/search"
	"github.com/sbsimple/backend/internal/session"
)

// New returns an http.Handler serving the API under /api/v1.
// Register and login are open; redeem and search require a live session.
func New(
	accountHandler *account.Handler,
	sessionHandler *session.Handler,
	redemptionHandler *redemption.Handler,
	searchHandler *search.Handler,
	authority middleware.SessionValidator,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	auth := middleware.SessionAuth(authority)

	mux.HandleFunc("POST "+base+"/auth/register", accountHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", sessionHandler.Login)
	// Logout is open so a stale token still logs out cleanly.
	mux.HandleFunc("POST "+base+"/auth/logout", sessionHandler.Logout)

	mux.Handle("POST "+base+"/redeem", auth(http.HandlerFunc(redemptionHandler.Redeem)))
	mux.Handle("POST "+base+"/search", auth(http.HandlerFunc(searchHandler.Search)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	return mux
}
