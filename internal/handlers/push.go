package handlers

import (
	"net/http"
	"strings"

	"comandas-go/internal/db"
	"comandas-go/internal/httpx"
)

// pushSubscription mirrors the browser's PushSubscription.toJSON().
type pushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *Server) PushPublicKey(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"enabled":    s.App.Push().Enabled(),
		"public_key": s.App.Push().PublicKey(),
	})
}

func (s *Server) PushSubscribe(w http.ResponseWriter, r *http.Request) {
	var in pushSubscription
	if !s.decodeJSON(w, r, &in) {
		return
	}
	endpoint := strings.TrimSpace(in.Endpoint)
	if !strings.HasPrefix(endpoint, "https://") || in.Keys.P256dh == "" || in.Keys.Auth == "" {
		s.badRequest(w, r, "endpoint (https) and keys.p256dh/keys.auth are required")
		return
	}

	u := s.App.CurrentUser(r)
	if err := s.App.Store().Q.SavePushSubscription(r.Context(), db.SavePushSubscriptionParams{
		UserID:   u.ID,
		Endpoint: endpoint,
		P256dh:   in.Keys.P256dh,
		Auth:     in.Keys.Auth,
	}); err != nil {
		s.fail(w, r, err)
		return
	}
	s.App.Logger().Debug("push subscription saved", "user_id", u.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) PushUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var in pushSubscription
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Endpoint) == "" {
		s.badRequest(w, r, "endpoint is required")
		return
	}
	if err := s.App.Store().Q.DeletePushSubscription(r.Context(), strings.TrimSpace(in.Endpoint)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) PrinterTest(w http.ResponseWriter, r *http.Request) {
	if err := s.App.Orders().TestPrinter(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"printed": true})
}
