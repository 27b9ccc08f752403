package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/logger"
)

const (
	defaultVerifyOTPTTL = 10 * time.Minute
	defaultResetOTPTTL  = 5 * time.Minute
)

type Service struct {
	users    UserRepo
	hasher   PasswordHasher
	issuer   TokenIssuer
	notifier Notifier
	mails    MailRenderer
	otp      *OTPGenerator

	now   func() time.Time
	audit func(action string, fields map[string]string)

	verifyOTPTTL time.Duration
	resetOTPTTL  time.Duration
}

type Config struct {
	VerifyOTPTTL time.Duration
	ResetOTPTTL  time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	issuer TokenIssuer,
	notifier Notifier,
	mails MailRenderer,
	cfg Config,
) *Service {
	verifyTTL := cfg.VerifyOTPTTL
	if verifyTTL <= 0 {
		verifyTTL = defaultVerifyOTPTTL
	}
	resetTTL := cfg.ResetOTPTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetOTPTTL
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		notifier: notifier,
		mails:    mails,
		otp:      NewOTPGenerator(),
		now:      time.Now,
		audit:    func(string, map[string]string) {},

		verifyOTPTTL: verifyTTL,
		resetOTPTTL:  resetTTL,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock overrides the time source for OTP issuing and matching.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.otp.now = now
	}
	return s
}

// AuthResult is returned by register/login; Token goes into the session cookie.
type AuthResult struct {
	User  domain.User
	Token string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// missing returns the names of empty values, in pair order: name1, value1, name2, value2...
func missing(pairs ...string) []string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			out = append(out, pairs[i])
		}
	}
	return out
}

// hashError keeps domain errors from the hasher (e.g. an over-long password).
func hashError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.ErrHashFailed(err)
}

func (s *Service) issueToken(userID string) (string, error) {
	tok, err := s.issuer.Issue(userID)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return tok, nil
}

// issueOTP stores a fresh code in the given slot and emails it.
// If the email cannot be sent the previous slot contents are put back.
func (s *Service) issueOTP(ctx context.Context, u domain.User, kind domain.OTPKind) error {
	ttl := s.verifyOTPTTL
	render := s.mails.VerifyOTP
	if kind == domain.OTPPasswordReset {
		ttl = s.resetOTPTTL
		render = s.mails.ResetOTP
	}

	code, expiresAt, err := s.otp.Generate(ttl)
	if err != nil {
		return err
	}

	msg, err := render(u.Email, code)
	if err != nil {
		return domain.ErrInternal(err)
	}

	prev := u.Slot(kind)
	if err := s.users.SetOTP(ctx, u.ID, kind, domain.OTPSlot{Code: code, ExpiresAt: expiresAt.UnixMilli()}); err != nil {
		return err
	}

	if err := s.notifier.Send(ctx, msg); err != nil {
		// restore even when the request was cancelled
		if rerr := s.users.RestoreOTP(context.WithoutCancel(ctx), u.ID, kind, code, prev); rerr != nil {
			logger.WithCtx(ctx).Error().Err(rerr).Str("user_id", u.ID).Msg("otp restore failed")
		}
		return domain.ErrNotifierUnavailable(err)
	}

	s.audit("otp_sent", map[string]string{"user_id": u.ID, "kind": string(kind)})
	return nil
}
