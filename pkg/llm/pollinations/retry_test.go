package pollinations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dostify/dostify/pkg/llm"
)

func TestRetryPolicyClassification(t *testing.T) {
	policy := DefaultRetryPolicy()

	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"transport failure", &llm.UpstreamError{Err: errors.New("connection refused")}, true},
		{"throttled", &llm.UpstreamError{Status: 429, Body: "slow down"}, true},
		{"server error", &llm.UpstreamError{Status: 502, Body: "bad gateway"}, true},
		{"bad request", &llm.UpstreamError{Status: 400, Body: "nope"}, false},
		{"unauthorized", &llm.UpstreamError{Status: 401, Body: "nope"}, false},
		{"cancelled context", &llm.UpstreamError{Err: context.Canceled}, false},
		{"deadline exceeded", &llm.UpstreamError{Err: context.DeadlineExceeded}, false},
		{"non-upstream error", errors.New("marshaling request: boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.isRetryable(tc.err); got != tc.retryable {
				t.Errorf("isRetryable(%v) = %v, want %v", tc.err, got, tc.retryable)
			}
		})
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := DefaultRetryPolicy()

	if d := policy.NextDelay(1); d != 1*time.Second {
		t.Errorf("expected 1s delay, got %v", d)
	}
	if d := policy.NextDelay(2); d != 2*time.Second {
		t.Errorf("expected 2s delay, got %v", d)
	}
	if d := policy.NextDelay(3); d != 4*time.Second {
		t.Errorf("expected 4s delay, got %v", d)
	}
	if d := policy.NextDelay(10); d != policy.MaxDelay {
		t.Errorf("expected delay capped at %v, got %v", policy.MaxDelay, d)
	}
}

func TestRetryPolicyExecuteStopsOnPermanent(t *testing.T) {
	policy := fastRetry()

	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		return &llm.UpstreamError{Status: 400, Body: "bad"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryPolicyExecuteExhaustsAttempts(t *testing.T) {
	policy := fastRetry()

	attempts := 0
	err := policy.Execute(context.Background(), func() error {
		attempts++
		return &llm.UpstreamError{Status: 503, Body: "unavailable"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != policy.MaxAttempts {
		t.Errorf("expected %d attempts, got %d", policy.MaxAttempts, attempts)
	}
}
