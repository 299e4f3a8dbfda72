package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"comandas-go/internal/app"
	"comandas-go/internal/db"
	"comandas-go/internal/httpx"
	"comandas-go/internal/orders"
	"comandas-go/internal/printer"
)

const maxBodyBytes = 1 << 20

type Server struct {
	App *app.App
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", msg, http.StatusBadRequest))
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	httpx.WriteError(r.Context(), w, httpx.NewError("validation_error", msg, http.StatusBadRequest))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("not_found", "route not found", http.StatusNotFound))
}

// fail maps service errors onto the JSON envelope. Unknown errors are logged and hidden.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var stockErr *orders.InsufficientStockError
	if errors.As(err, &stockErr) {
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "not enough stock for the requested items", http.StatusConflict).
			WithDetails(map[string]any{"shortages": stockErr.Shortages}))
		return
	}
	var negErr *orders.NegativeStockError
	if errors.As(err, &negErr) {
		httpx.WriteError(ctx, w, httpx.NewError("negative_stock", "stock cannot go below zero", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"product_id": negErr.ProductID, "current": negErr.Current, "requested": negErr.Requested}))
		return
	}

	switch {
	case errors.Is(err, orders.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError("validation_error", publicMessage(err), http.StatusBadRequest))
	case errors.Is(err, orders.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", publicMessage(err), http.StatusNotFound))
	case errors.Is(err, orders.ErrInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", publicMessage(err), http.StatusConflict))
	case errors.Is(err, orders.ErrForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", publicMessage(err), http.StatusForbidden))
	case errors.Is(err, printer.ErrDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("printer_disabled", "no printer is configured", http.StatusServiceUnavailable))
	case errors.Is(err, printer.ErrUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("print_failed", err.Error(), http.StatusBadGateway))
	default:
		s.App.Logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

// publicMessage drops the "orders: <kind>: " prefix of a wrapped sentinel.
func publicMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{orders.ErrValidation, orders.ErrNotFound, orders.ErrInvalidState, orders.ErrForbidden} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

func idParam(r *http.Request, key string) (int64, bool) {
	v := strings.TrimSpace(chi.URLParam(r, key))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil && id > 0
}

// pathID reads a positive id URL parameter, answering 400 when it is malformed.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, ok := idParam(r, key)
	if !ok {
		s.badRequest(w, r, fmt.Sprintf("invalid %s", key))
	}
	return id, ok
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.App.Store().Ping(); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("db_unavailable", "database not reachable", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

/* ---------------- Login ---------------- */

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

func (s *Server) writeToken(w http.ResponseWriter, r *http.Request, status int, u *db.User) {
	tok, exp, err := s.App.IssueToken(u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, status, tokenResponse{Token: tok, ExpiresAt: exp, User: newUserView(*u)})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !s.decodeJSON(w, r, &in) {
		return
	}
	email := app.NormalizeEmail(in.Email)

	u, err := s.App.Store().Q.GetUserByEmail(r.Context(), email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if u == nil || !u.IsActive || !app.CheckPassword(u.PasswordHash, in.Password) {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_credentials", "invalid email or password", http.StatusUnauthorized))
		return
	}
	s.App.Logger().Info("user logged in", "user_id", u.ID, "role", u.Role)
	s.writeToken(w, r, http.StatusOK, u)
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u := s.App.CurrentUser(r)
	httpx.WriteJSON(w, http.StatusOK, newUserView(*u))
}

/* ---------------- Onboarding ---------------- */

// Onboarding creates the first admin. It answers 409 once any admin exists.
func (s *Server) Onboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hasAdmin, err := s.App.Store().Q.HasAnyAdmin(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if hasAdmin {
		httpx.WriteError(ctx, w, httpx.NewError("already_onboarded", "an admin already exists, log in instead", http.StatusConflict))
		return
	}

	var in credentials
	if !s.decodeJSON(w, r, &in) {
		return
	}
	email := app.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	if email == "" || name == "" {
		s.badRequest(w, r, "email and display_name are required")
		return
	}
	hash, err := app.HashPassword(in.Password)
	if err != nil {
		s.badRequest(w, r, "password must be at least 8 characters")
		return
	}

	id, err := s.App.Store().Q.CreateUser(ctx, db.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         app.RoleAdmin,
		DisplayName:  name,
		IsActive:     true,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			httpx.WriteError(ctx, w, httpx.NewError("email_taken", "email already registered", http.StatusConflict))
			return
		}
		s.fail(w, r, err)
		return
	}
	u, err := s.App.Store().Q.GetUserByID(ctx, id)
	if err != nil {
		s.fail(w, r, fmt.Errorf("reload admin %d: %w", id, err))
		return
	}
	s.App.Logger().Info("first admin created", "user_id", id)
	s.writeToken(w, r, http.StatusCreated, u)
}
