package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dostify/dostify/internal/auth"
	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/mailer"
	"github.com/dostify/dostify/internal/store/memory"
	"github.com/dostify/dostify/internal/types"
	"github.com/dostify/dostify/pkg/llm"
)

// scriptedProvider replays a fixed sequence of responses.
type scriptedProvider struct {
	responses []*llm.Response
	errs      []error
	calls     int
}

func (p *scriptedProvider) Complete(_ context.Context, _ []llm.Message, _ []llm.Tool) (*llm.Response, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.responses) {
		return nil, errors.New("unexpected provider call")
	}
	return p.responses[i], nil
}

type testEnv struct {
	srv   *Server
	token string
}

func setupServer(t *testing.T, provider llm.Provider) *testEnv {
	t.Helper()
	sessions := memory.NewSessionStore()
	tasks := memory.NewTaskStore()
	moods := memory.NewMoodStore()
	users := memory.NewUserStore()

	authSvc := auth.NewService(users, mailer.NewLogMailer(), "test-secret", time.Hour, 4)

	reg := chat.NewRegistry()
	history, err := chat.NewHistoryBuilder("gpt-4o", 0, 0)
	if err != nil {
		t.Fatalf("NewHistoryBuilder failed: %v", err)
	}
	orch := chat.NewOrchestrator(provider, sessions, reg, history, "prompt")

	srv := NewServer(orch, authSvc, sessions, tasks, moods)

	_, token, err := authSvc.Register(context.Background(), "ada@example.com", "Ada", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return &testEnv{srv: srv, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	env := setupServer(t, &scriptedProvider{})

	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decode[map[string]string](t, w)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupServer(t, &scriptedProvider{})
	env.token = ""

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/chat"},
		{http.MethodGet, "/api/tasks"},
		{http.MethodGet, "/api/sessions"},
		{http.MethodGet, "/api/moods"},
	} {
		w := env.do(t, route.method, route.path, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status %d, want 401", route.method, route.path, w.Code)
		}
	}
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	env := setupServer(t, &scriptedProvider{})
	env.token = ""

	w := env.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": "new@example.com", "name": "New", "password": "pw"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d (body %s)", w.Code, w.Body.String())
	}
	created := decode[authResponse](t, w)
	if created.Token == "" || created.User.Email != "new@example.com" {
		t.Errorf("register response = %+v", created)
	}

	// Duplicate registration conflicts.
	w = env.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": "new@example.com", "password": "pw"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "new@example.com", "password": "pw"})
	if w.Code != http.StatusOK {
		t.Errorf("login status = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "new@example.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", w.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.Response{
		{Content: "hello there", FinishReason: "stop"},
	}}
	env := setupServer(t, provider)

	w := env.do(t, http.MethodPost, "/api/chat",
		map[string]string{"session_key": "default", "message": "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat status = %d (body %s)", w.Code, w.Body.String())
	}
	resp := decode[chatResponse](t, w)
	if resp.Reply != "hello there" || resp.SessionKey != "default" {
		t.Errorf("chat response = %+v", resp)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("response carried %d messages, want 2", len(resp.Messages))
	}
	if resp.Messages[0].Role != types.RoleUser || resp.Messages[1].Role != types.RoleAssistant {
		t.Errorf("message roles = %s, %s", resp.Messages[0].Role, resp.Messages[1].Role)
	}
	if resp.Messages[1].Content != "hello there" {
		t.Errorf("assistant message content = %q", resp.Messages[1].Content)
	}
}

func TestChatEndpointValidation(t *testing.T) {
	env := setupServer(t, &scriptedProvider{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing message", map[string]string{"session_key": "default"}},
		{"missing session key", map[string]string{"message": "hi"}},
		{"image without url", map[string]string{"session_key": "s", "message": "m", "content_type": "image"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/chat", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestChatEndpointUpstreamFailure(t *testing.T) {
	provider := &scriptedProvider{errs: []error{&llm.UpstreamError{Status: 503, Body: "overloaded"}}}
	env := setupServer(t, provider)

	w := env.do(t, http.MethodPost, "/api/chat",
		map[string]string{"session_key": "default", "message": "hi"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	env := setupServer(t, &scriptedProvider{})

	w := env.do(t, http.MethodPost, "/api/tasks",
		map[string]string{"title": "Buy milk", "due_date": "2026-09-10"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body %s)", w.Code, w.Body.String())
	}
	created := decode[taskView](t, w)
	if created.ID == "" || created.Title != "Buy milk" || created.DueDate == nil {
		t.Errorf("created = %+v", created)
	}

	w = env.do(t, http.MethodGet, "/api/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[[]taskView](t, w)
	if len(list) != 1 {
		t.Fatalf("listed %d tasks, want 1", len(list))
	}

	w = env.do(t, http.MethodPatch, "/api/tasks/"+created.ID,
		map[string]any{"completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d (body %s)", w.Code, w.Body.String())
	}
	updated := decode[taskView](t, w)
	if !updated.Completed {
		t.Error("task should be completed")
	}

	// completed=false filter excludes it now
	w = env.do(t, http.MethodGet, "/api/tasks?completed=false", nil)
	if got := decode[[]taskView](t, w); len(got) != 0 {
		t.Errorf("filter returned %d tasks, want 0", len(got))
	}

	w = env.do(t, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestTaskListPagination(t *testing.T) {
	env := setupServer(t, &scriptedProvider{})

	for _, title := range []string{"one", "two", "three"} {
		w := env.do(t, http.MethodPost, "/api/tasks", map[string]string{"title": title})
		if w.Code != http.StatusCreated {
			t.Fatalf("create %q status = %d", title, w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/api/tasks", nil)
	all := decode[[]taskView](t, w)
	if len(all) != 3 {
		t.Fatalf("listed %d tasks, want 3", len(all))
	}

	w = env.do(t, http.MethodGet, "/api/tasks?limit=1&offset=1", nil)
	page := decode[[]taskView](t, w)
	if len(page) != 1 {
		t.Fatalf("page length = %d, want 1", len(page))
	}
	if page[0].ID != all[1].ID {
		t.Errorf("page returned %q, want %q", page[0].Title, all[1].Title)
	}

	w = env.do(t, http.MethodGet, "/api/tasks?offset=3", nil)
	if got := decode[[]taskView](t, w); len(got) != 0 {
		t.Errorf("offset past end returned %d tasks, want 0", len(got))
	}
}

func TestMoodEndpoints(t *testing.T) {
	env := setupServer(t, &scriptedProvider{})

	w := env.do(t, http.MethodPost, "/api/moods", map[string]any{"mood": 8, "note": "great"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d (body %s)", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/moods", map[string]any{"mood": 11})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range mood status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/moods?days=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	logs := decode[[]moodView](t, w)
	if len(logs) != 1 || logs[0].Mood != 8 {
		t.Errorf("logs = %+v", logs)
	}
}

func TestSessionEndpoints(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.Response{
		{Content: "reply one", FinishReason: "stop"},
		{Content: "reply two", FinishReason: "stop"},
	}}
	env := setupServer(t, provider)

	for _, msg := range []string{"first message", "second message"} {
		w := env.do(t, http.MethodPost, "/api/chat",
			map[string]string{"session_key": "planning", "message": msg})
		if w.Code != http.StatusOK {
			t.Fatalf("chat status = %d", w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/api/sessions", nil)
	sessions := decode[[]sessionView](t, w)
	if len(sessions) != 1 || sessions[0].Key != "planning" || sessions[0].MessageCount != 4 {
		t.Fatalf("sessions = %+v", sessions)
	}

	w = env.do(t, http.MethodPatch, "/api/sessions/planning",
		map[string]string{"title": "Weekly planning"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/sessions/search?q=weekly", nil)
	found := decode[[]sessionView](t, w)
	if len(found) != 1 || found[0].Title != "Weekly planning" {
		t.Errorf("search = %+v", found)
	}

	w = env.do(t, http.MethodGet, "/api/sessions/planning/messages?limit=2&offset=0", nil)
	page := decode[map[string]any](t, w)
	if page["total"] != float64(4) {
		t.Errorf("total = %v, want 4", page["total"])
	}
	if msgs := page["messages"].([]any); len(msgs) != 2 {
		t.Errorf("page has %d messages, want 2", len(msgs))
	}

	w = env.do(t, http.MethodGet, "/api/sessions/planning/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	exported := decode[types.Session](t, w)
	if exported.Key != "planning" || len(exported.Messages) != 4 {
		t.Errorf("export = key %q, %d messages", exported.Key, len(exported.Messages))
	}

	w = env.do(t, http.MethodDelete, "/api/sessions/planning", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/sessions/planning/export", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("export after delete status = %d, want 404", w.Code)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.Response{
		{Content: "try a short walk", FinishReason: "stop"},
	}}
	env := setupServer(t, provider)

	w := env.do(t, http.MethodPost, "/api/chat",
		map[string]string{"session_key": "default", "message": "how do I relax?"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat status = %d", w.Code)
	}

	// Last stored message is the assistant reply, index 0.
	idx := 0
	w = env.do(t, http.MethodPost, "/api/feedback",
		map[string]any{"session_key": "default", "message_index": &idx, "rating": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("feedback status = %d (body %s)", w.Code, w.Body.String())
	}

	// Index 1 is the user message; rejected.
	idx = 1
	w = env.do(t, http.MethodPost, "/api/feedback",
		map[string]any{"session_key": "default", "message_index": &idx, "rating": 5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("feedback on user message status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/feedback",
		map[string]any{"session_key": "missing", "message_index": 0, "rating": 5})
	if w.Code != http.StatusNotFound {
		t.Errorf("feedback on missing session status = %d, want 404", w.Code)
	}
}
