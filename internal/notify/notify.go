// Package notify delivers account emails: verification codes, sign-in codes
// and password reset links.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Message is the data rendered into an account email.
type Message struct {
	To        string
	Name      string
	Code      string
	Link      string
	ExpiresIn time.Duration
}

// Notifier sends account emails.
type Notifier interface {
	SendVerificationCode(ctx context.Context, msg Message) error
	SendLoginCode(ctx context.Context, msg Message) error
	SendPasswordReset(ctx context.Context, msg Message) error
}

// LogNotifier writes a redacted record of each email to the log instead of
// delivering it.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

// SendVerificationCode logs a verification code email.
func (n *LogNotifier) SendVerificationCode(_ context.Context, msg Message) error {
	n.record("verification_code", msg)
	return nil
}

// SendLoginCode logs a sign-in code email.
func (n *LogNotifier) SendLoginCode(_ context.Context, msg Message) error {
	n.record("login_code", msg)
	return nil
}

// SendPasswordReset logs a password reset email.
func (n *LogNotifier) SendPasswordReset(_ context.Context, msg Message) error {
	n.record("password_reset", msg)
	return nil
}

func (n *LogNotifier) record(kind string, msg Message) {
	n.logger.Info().
		Str("kind", kind).
		Str("to", MaskEmail(msg.To)).
		Bool("has_code", msg.Code != "").
		Bool("has_link", msg.Link != "").
		Dur("expires_in", msg.ExpiresIn).
		Msg("account email queued")
}

// MaskEmail hides the local part of an address except its first character.
func MaskEmail(email string) string {
	at := -1
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			at = i
			break
		}
	}
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
