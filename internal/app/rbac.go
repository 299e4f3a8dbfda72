package app

import (
	"net/http"

	"comandas-go/internal/db"
	"comandas-go/internal/httpx"
)

const (
	RoleAdmin   = db.RoleAdmin
	RoleWaiter  = db.RoleWaiter
	RoleKitchen = db.RoleKitchen
)

// ValidRole reports whether r names one of the staff roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleWaiter || r == RoleKitchen
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="comandas"`)
	httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "your role cannot perform this action", http.StatusForbidden))
}

func (a *App) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.CurrentUser(r) == nil {
			unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) RequireRole(role string) func(http.Handler) http.Handler {
	return a.RequireAnyRole(role)
}

func (a *App) RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	set := map[string]bool{}
	for _, r := range roles {
		set[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := a.CurrentUser(r)
			if u == nil {
				unauthorized(w, r)
				return
			}
			if !set[u.Role] {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
