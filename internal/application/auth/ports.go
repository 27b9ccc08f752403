package auth

import (
	"context"

	"github.com/baechuer/otp-auth/internal/domain"
)

/*
UserRepo
--------
Credential Store port.
Only describes WHAT the auth workflow needs, not HOW it's stored.
Create must reject a duplicate email with domain.ErrEmailAlreadyExists.
Writes touch only the columns they name, so overlapping operations on one
user cannot undo each other's changes.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// SetOTP overwrites one OTP slot; last write wins.
	SetOTP(ctx context.Context, userID string, kind domain.OTPKind, slot domain.OTPSlot) error

	// RestoreOTP puts prev back only while the slot still holds issued.
	RestoreOTP(ctx context.Context, userID string, kind domain.OTPKind, issued string, prev domain.OTPSlot) error

	// ConsumeVerifyOTP clears the verify slot and marks the account verified
	// while the slot still holds code; otherwise domain.ErrInvalidOTP.
	ConsumeVerifyOTP(ctx context.Context, userID, code string) error

	// ConsumeResetOTP clears the reset slot and stores passwordHash
	// while the slot still holds code; otherwise domain.ErrInvalidOTP.
	ConsumeResetOTP(ctx context.Context, userID, code, passwordHash string) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenIssuer
-----------
Issues and verifies session tokens.
Used by service + session gate.
*/
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (userID string, err error)
}

/*
Notifier
--------
Delivers an email. Implementations: direct SMTP, RabbitMQ publisher
(delivered later by the mailer worker), or a log-only notifier for dev.
*/
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Message is the notifier payload. Body is HTML when HTML is true.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    bool   `json:"html"`
}

/*
MailRenderer
------------
Builds subjects and bodies for workflow emails.
*/
type MailRenderer interface {
	Welcome(name, email string) (Message, error)
	VerifyOTP(email, otp string) (Message, error)
	ResetOTP(email, otp string) (Message, error)
}
