package app

import (
	"context"
	"net/http"
	"strings"

	"comandas-go/internal/db"
	"comandas-go/internal/httpx"
	"comandas-go/internal/orders"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// bearerToken reads the Authorization header. EventSource cannot set headers, so the
// SSE stream may pass the token as ?access_token= instead.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if r.URL.Path == "/api/events" {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func (a *App) middlewareLoadCurrentUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := bearerToken(r); tok != "" {
			userID, err := a.ParseToken(tok)
			if err == nil {
				u, err := a.store.Q.GetUserByID(r.Context(), userID)
				if err != nil {
					a.log.Error("load current user failed", "user_id", userID, "err", err)
				} else if u != nil && u.IsActive {
					r = r.WithContext(context.WithValue(r.Context(), ctxKeyUser, u))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// middlewareOnboardingGate enforces:
// - If NO admin exists -> only /api/onboarding and /health are reachable
// - If admin exists -> /api/onboarding answers 409 (handled by the handler)
func (a *App) middlewareOnboardingGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/api/onboarding" {
			next.ServeHTTP(w, r)
			return
		}

		hasAdmin, err := a.store.Q.HasAnyAdmin(r.Context())
		if err != nil {
			// Fail open: a broken check should not lock staff out mid-service.
			a.log.Error("onboarding gate: HasAnyAdmin failed", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if !hasAdmin {
			httpx.WriteError(r.Context(), w, httpx.NewError("onboarding_required",
				"create the first admin via POST /api/onboarding", http.StatusServiceUnavailable))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) CurrentUser(r *http.Request) *db.User {
	u, _ := r.Context().Value(ctxKeyUser).(*db.User)
	return u
}

// Actor is the acting user of r as the order service sees it. It is the zero Actor
// for anonymous requests.
func (a *App) Actor(r *http.Request) orders.Actor {
	u := a.CurrentUser(r)
	if u == nil {
		return orders.Actor{}
	}
	return orders.Actor{ID: u.ID, Name: u.DisplayName, Role: u.Role}
}

// Exported wrappers so router wiring can live outside the app package (no handlers import cycle).
func (a *App) MiddlewareLoadCurrentUser(next http.Handler) http.Handler {
	return a.middlewareLoadCurrentUser(next)
}

func (a *App) MiddlewareOnboardingGate(next http.Handler) http.Handler {
	return a.middlewareOnboardingGate(next)
}
