package memory

import (
	"context"

	"github.com/baechuer/otp-auth/internal/application/auth"
	"github.com/baechuer/otp-auth/internal/logger"
)

// LogNotifier records outgoing mail in the log instead of delivering it.
// Only the envelope is logged; bodies carry OTP codes.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Send(ctx context.Context, msg auth.Message) error {
	logger.WithCtx(ctx).Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Bool("html", msg.HTML).
		Msg("mail (log notifier)")
	return nil
}
