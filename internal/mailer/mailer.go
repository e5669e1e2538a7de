// Package mailer sends transactional mail. The default implementation only
// logs, which is enough for local development; production deployments plug
// in a real provider.
package mailer

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes outgoing mail to the log instead of delivering it.
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	slog.Info("mail (not delivered)", "to", to, "subject", subject, "body", body)
	return nil
}
