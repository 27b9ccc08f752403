package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/otp-auth/internal/domain"
)

const pgUniqueViolation = "23505"

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg string) (domain.User, error) {
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// ---------- auth.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingFields("email")
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1;`
	return r.getOne(ctx, q, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingFields("id")
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	return r.getOne(ctx, q, id)
}

// Create relies on the unique index on email; concurrent inserts of the same
// address leave exactly one row.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingFields("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingFields("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingFields("password_hash")
	}

	q := `
INSERT INTO users (id, name, email, password_hash, is_account_verified)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns + `;`

	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsAccountVerified,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// otpColumns names the code and expiry columns of one slot.
func otpColumns(kind domain.OTPKind) (code, expiresAt string, err error) {
	switch kind {
	case domain.OTPVerifyEmail:
		return "verify_otp", "verify_otp_expires_at", nil
	case domain.OTPPasswordReset:
		return "reset_otp", "reset_otp_expires_at", nil
	}
	return "", "", domain.ErrInternal(fmt.Errorf("unknown otp kind %q", kind))
}

func (r *UserRepo) SetOTP(ctx context.Context, userID string, kind domain.OTPKind, slot domain.OTPSlot) error {
	codeCol, expCol, err := otpColumns(kind)
	if err != nil {
		return err
	}

	q := `UPDATE users SET ` + codeCol + ` = $2, ` + expCol + ` = $3, updated_at = NOW() WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, userID, slot.Code, slot.ExpiresAt)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// RestoreOTP matches no row once the slot has moved past issued; that is not an error.
func (r *UserRepo) RestoreOTP(ctx context.Context, userID string, kind domain.OTPKind, issued string, prev domain.OTPSlot) error {
	codeCol, expCol, err := otpColumns(kind)
	if err != nil {
		return err
	}

	q := `UPDATE users SET ` + codeCol + ` = $3, ` + expCol + ` = $4, updated_at = NOW() WHERE id = $1 AND ` + codeCol + ` = $2;`
	if _, err := r.db.ExecContext(ctx, q, userID, issued, prev.Code, prev.ExpiresAt); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *UserRepo) ConsumeVerifyOTP(ctx context.Context, userID, code string) error {
	const q = `
UPDATE users
SET is_account_verified = TRUE,
    verify_otp = '',
    verify_otp_expires_at = 0,
    updated_at = NOW()
WHERE id = $1 AND verify_otp = $2 AND verify_otp <> '';
`
	return r.consume(ctx, q, userID, code)
}

func (r *UserRepo) ConsumeResetOTP(ctx context.Context, userID, code, passwordHash string) error {
	const q = `
UPDATE users
SET password_hash = $3,
    reset_otp = '',
    reset_otp_expires_at = 0,
    updated_at = NOW()
WHERE id = $1 AND reset_otp = $2 AND reset_otp <> '';
`
	return r.consume(ctx, q, userID, code, passwordHash)
}

// consume runs a guarded update; no matched row means the code was used or replaced.
func (r *UserRepo) consume(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvalidOTP()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *UserRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
