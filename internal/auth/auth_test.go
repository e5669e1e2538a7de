package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dostify/dostify/internal/mailer"
	"github.com/dostify/dostify/internal/store/memory"
	"github.com/dostify/dostify/internal/types"
)

// captureMailer remembers the last mail instead of logging it.
type captureMailer struct {
	to      string
	subject string
	body    string
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return nil
}

func newTestService(t *testing.T) (*Service, *memory.UserStore, *captureMailer) {
	t.Helper()
	users := memory.NewUserStore()
	mail := &captureMailer{}
	// min bcrypt cost keeps the tests fast
	return NewService(users, mail, "test-secret", time.Hour, 4), users, mail
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Ada@Example.com", "Ada", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email should be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "hunter22" {
		t.Error("password must not be stored in clear")
	}

	loggedIn, token, err := svc.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.ID != user.ID || token == "" {
		t.Errorf("login returned %v / %q", loggedIn.ID, token)
	}

	userID, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if userID != user.ID {
		t.Errorf("token subject = %v, want %v", userID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ada@example.com", "Ada", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, _, err := svc.Register(ctx, "ADA@example.com", "Other", "pw"); !errors.Is(err, types.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginRejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ada@example.com", "Ada", "correct"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, types.ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, types.ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	other := NewService(memory.NewUserStore(), mailer.NewLogMailer(), "other-secret", time.Hour, 4)

	_, token, err := svc.Register(context.Background(), "ada@example.com", "Ada", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Error("token signed with a different secret must not verify")
	}
	if _, err := svc.Verify(token + "x"); err == nil {
		t.Error("tampered token must not verify")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService(memory.NewUserStore(), mailer.NewLogMailer(), "test-secret", -time.Minute, 4)

	_, token, err := svc.Register(context.Background(), "ada@example.com", "Ada", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := svc.Verify(token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestPasswordReset(t *testing.T) {
	svc, _, mail := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ada@example.com", "Ada", "oldpw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if mail.to != "ada@example.com" {
		t.Fatalf("reset mail sent to %q", mail.to)
	}

	// The mail body ends with the token.
	token := mail.body[len(mail.body)-36:]
	if err := svc.ResetPassword(ctx, token, "newpw"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "ada@example.com", "oldpw"); !errors.Is(err, types.ErrInvalidCredentials) {
		t.Error("old password should be rejected after reset")
	}
	if _, _, err := svc.Login(ctx, "ada@example.com", "newpw"); err != nil {
		t.Errorf("new password should work, got %v", err)
	}

	// Tokens are single-use.
	if err := svc.ResetPassword(ctx, token, "again"); !errors.Is(err, types.ErrResetTokenInvalid) {
		t.Errorf("expected ErrResetTokenInvalid on reuse, got %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc, _, mail := newTestService(t)

	if err := svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if mail.to != "" {
		t.Error("no mail should go out for unknown emails")
	}
}

func TestMiddleware(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, token, err := svc.Register(context.Background(), "ada@example.com", "Ada", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	var gotUser types.UserID
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"malformed", token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && gotUser != user.ID {
				t.Errorf("context user = %v, want %v", gotUser, user.ID)
			}
			if tt.status == http.StatusUnauthorized {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("content type = %q, want application/json", ct)
				}
				var body map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if body["error"] == "" {
					t.Error("error body missing error field")
				}
			}
		})
	}
}
