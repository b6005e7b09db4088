package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/ports"
)

// LogNotifier records reset requests in the log. It is meant for local
// development where no mail pipeline exists; the link itself carries the
// token and is only emitted at debug level.
type LogNotifier struct {
	log zerolog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, notice ports.PasswordResetNotice) error {
	msg, err := RenderPasswordReset(notice)
	if err != nil {
		return err
	}
	n.log.Info().
		Str("to", msg.To).
		Time("expires_at", msg.ExpiresAt).
		Msg("password reset requested")
	n.log.Debug().
		Str("to", msg.To).
		Str("link", msg.Link).
		Msg("password reset link")
	return nil
}
