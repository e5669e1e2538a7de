// Package server exposes the HTTP API: auth, chat, sessions, tasks, moods,
// and feedback.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dostify/dostify/internal/auth"
	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/types"
)

// Server is the HTTP handler for the Dostify API.
type Server struct {
	orch     *chat.Orchestrator
	auth     *auth.Service
	sessions types.SessionStore
	tasks    types.TaskStore
	moods    types.MoodStore
	mux      *http.ServeMux
}

// NewServer wires all routes. Everything under /api except the auth
// endpoints requires a bearer token.
func NewServer(orch *chat.Orchestrator, authSvc *auth.Service, sessions types.SessionStore, tasks types.TaskStore, moods types.MoodStore) *Server {
	s := &Server{
		orch:     orch,
		auth:     authSvc,
		sessions: sessions,
		tasks:    tasks,
		moods:    moods,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/reset/request", s.handleResetRequest)
	s.mux.HandleFunc("POST /api/auth/reset/confirm", s.handleResetConfirm)

	authed := func(h http.HandlerFunc) http.Handler { return authSvc.Middleware(h) }
	s.mux.Handle("POST /api/chat", authed(s.handleChat))
	s.mux.Handle("POST /api/feedback", authed(s.handleFeedback))
	s.mux.Handle("GET /api/sessions", authed(s.handleListSessions))
	s.mux.Handle("GET /api/sessions/search", authed(s.handleSearchSessions))
	s.mux.Handle("GET /api/sessions/{key}/messages", authed(s.handleSessionMessages))
	s.mux.Handle("GET /api/sessions/{key}/export", authed(s.handleExportSession))
	s.mux.Handle("PATCH /api/sessions/{key}", authed(s.handleRenameSession))
	s.mux.Handle("DELETE /api/sessions/{key}", authed(s.handleDeleteSession))
	s.mux.Handle("GET /api/tasks", authed(s.handleListTasks))
	s.mux.Handle("POST /api/tasks", authed(s.handleCreateTask))
	s.mux.Handle("PATCH /api/tasks/{id}", authed(s.handleUpdateTask))
	s.mux.Handle("DELETE /api/tasks/{id}", authed(s.handleDeleteTask))
	s.mux.Handle("GET /api/moods", authed(s.handleListMoods))
	s.mux.Handle("POST /api/moods", authed(s.handleLogMood))

	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// mustUser returns the authenticated user id; the auth middleware
// guarantees it is present on these routes.
func mustUser(r *http.Request) types.UserID {
	id, _ := auth.UserFromContext(r.Context())
	return id
}
