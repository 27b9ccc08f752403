package postgres

import (
	"time"

	"github.com/baechuer/otp-auth/internal/domain"
)

type userRow struct {
	ID                 string
	Name               string
	Email              string
	PasswordHash       string
	IsAccountVerified  bool
	VerifyOTP          string
	VerifyOTPExpiresAt int64
	ResetOTP           string
	ResetOTPExpiresAt  int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const userColumns = `id, name, email, password_hash, is_account_verified,
verify_otp, verify_otp_expires_at, reset_otp, reset_otp_expires_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row scanner) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Name,
		&ur.Email,
		&ur.PasswordHash,
		&ur.IsAccountVerified,
		&ur.VerifyOTP,
		&ur.VerifyOTPExpiresAt,
		&ur.ResetOTP,
		&ur.ResetOTPExpiresAt,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	return domain.User{
		ID:                 ur.ID,
		Name:               ur.Name,
		Email:              ur.Email,
		PasswordHash:       ur.PasswordHash,
		IsAccountVerified:  ur.IsAccountVerified,
		VerifyOTP:          ur.VerifyOTP,
		VerifyOTPExpiresAt: ur.VerifyOTPExpiresAt,
		ResetOTP:           ur.ResetOTP,
		ResetOTPExpiresAt:  ur.ResetOTPExpiresAt,
		CreatedAt:          ur.CreatedAt,
		UpdatedAt:          ur.UpdatedAt,
	}
}
