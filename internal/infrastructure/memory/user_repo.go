package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/otp-auth/internal/domain"
)

// UserRepo is the in-memory store used in dev when no DB_ADDR is set.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // email -> userID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

// Create checks and inserts under one lock, so the same email can only win once.
func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingFields("id")
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *UserRepo) SetOTP(ctx context.Context, userID string, kind domain.OTPKind, slot domain.OTPSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	setSlot(&u, kind, slot)
	u.UpdatedAt = time.Now()
	r.byID[userID] = u
	return nil
}

// RestoreOTP is a no-op once the slot has moved past issued.
func (r *UserRepo) RestoreOTP(ctx context.Context, userID string, kind domain.OTPKind, issued string, prev domain.OTPSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok || u.Slot(kind).Code != issued {
		return nil
	}
	setSlot(&u, kind, prev)
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) ConsumeVerifyOTP(ctx context.Context, userID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok || code == "" || u.VerifyOTP != code {
		return domain.ErrInvalidOTP()
	}
	u.IsAccountVerified = true
	u.ClearOTP(domain.OTPVerifyEmail)
	u.UpdatedAt = time.Now()
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) ConsumeResetOTP(ctx context.Context, userID, code, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok || code == "" || u.ResetOTP != code {
		return domain.ErrInvalidOTP()
	}
	u.PasswordHash = passwordHash
	u.ClearOTP(domain.OTPPasswordReset)
	u.UpdatedAt = time.Now()
	r.byID[userID] = u
	return nil
}

func setSlot(u *domain.User, kind domain.OTPKind, slot domain.OTPSlot) {
	if slot.Code == "" {
		u.ClearOTP(kind)
		return
	}
	u.SetOTP(kind, slot.Code, time.UnixMilli(slot.ExpiresAt))
}

func (r *UserRepo) Ping(ctx context.Context) error { return nil }
