package handlers

import (
	"net/http"
	"strings"

	"comandas-go/internal/app"
	"comandas-go/internal/db"
	"comandas-go/internal/httpx"
	"comandas-go/internal/printer"
)

func (s *Server) UserList(w http.ResponseWriter, r *http.Request) {
	users, err := s.App.Store().Q.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (s *Server) UserCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
		Password    string `json:"password"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}
	email := app.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	role := strings.TrimSpace(in.Role)

	if email == "" || name == "" || role == "" {
		s.badRequest(w, r, "email, display_name and role are required")
		return
	}
	if !app.ValidRole(role) {
		s.badRequest(w, r, "role must be admin, waiter or kitchen")
		return
	}
	hash, err := app.HashPassword(in.Password)
	if err != nil {
		s.badRequest(w, r, "password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	id, err := s.App.Store().Q.CreateUser(ctx, db.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
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
		s.fail(w, r, err)
		return
	}
	s.App.Logger().Info("user created", "user_id", id, "role", role, "by", s.App.CurrentUser(r).ID)
	httpx.WriteJSON(w, http.StatusCreated, newUserView(*u))
}

// UserSetActive enables or disables a staff account. The last active admin stays active.
func (s *Server) UserSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Active *bool `json:"active"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}
	if in.Active == nil {
		s.badRequest(w, r, "active is required")
		return
	}

	ctx := r.Context()
	q := s.App.Store().Q
	target, err := q.GetUserByID(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if target == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "user not found", http.StatusNotFound))
		return
	}

	if target.Role == app.RoleAdmin && target.IsActive && !*in.Active {
		n, err := q.CountActiveAdmins(ctx)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if n <= 1 {
			httpx.WriteError(ctx, w, httpx.NewError("last_admin", "cannot disable the last active admin", http.StatusConflict))
			return
		}
	}

	if err := q.SetUserActive(ctx, id, *in.Active); err != nil {
		s.fail(w, r, err)
		return
	}
	target.IsActive = *in.Active
	s.App.Logger().Info("user active changed", "user_id", id, "active", *in.Active)
	httpx.WriteJSON(w, http.StatusOK, newUserView(*target))
}

type settingsView struct {
	DBPath      string         `json:"db_path"`
	DataDir     string         `json:"data_dir"`
	PrinterMode string         `json:"printer_mode"`
	PushEnabled bool           `json:"push_enabled"`
	Counts      map[string]int `json:"counts"`
}

func (s *Server) AdminSettings(w http.ResponseWriter, r *http.Request) {
	counts, err := s.App.Store().Q.Counts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cfg := s.App.Config()
	mode := cfg.Printer.Mode
	if mode == "" {
		mode = printer.ModeNone
	}
	httpx.WriteJSON(w, http.StatusOK, settingsView{
		DBPath:      cfg.DBPath,
		DataDir:     cfg.DataDir,
		PrinterMode: mode,
		PushEnabled: s.App.Push().Enabled(),
		Counts:      counts,
	})
}
