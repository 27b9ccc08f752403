package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/otp-auth/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID    map[string]domain.User
	byEmail map[string]string // email -> id

	// injected errors (if set, method returns error)
	getByIDErr    error
	getByEmailErr error
	createErr     error
	writeErr      error

	writes int

	// afterRead runs once, after the next Get*, outside the lock
	afterRead func()
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[string]domain.User{},
		byEmail: map[string]string{},
	}
}

func (f *fakeUserRepo) fireAfterRead() {
	f.mu.Lock()
	fn := f.afterRead
	f.afterRead = nil
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	defer f.fireAfterRead()
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	id, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return f.byID[id], nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	defer f.fireAfterRead()
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
	return u, nil
}

func (f *fakeUserRepo) SetOTP(ctx context.Context, userID string, kind domain.OTPKind, slot domain.OTPSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.SetOTP(kind, slot.Code, time.UnixMilli(slot.ExpiresAt))
	f.byID[userID] = u
	f.writes++
	return nil
}

func (f *fakeUserRepo) RestoreOTP(ctx context.Context, userID string, kind domain.OTPKind, issued string, prev domain.OTPSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok || u.Slot(kind).Code != issued {
		return nil
	}
	if prev.Code == "" {
		u.ClearOTP(kind)
	} else {
		u.SetOTP(kind, prev.Code, time.UnixMilli(prev.ExpiresAt))
	}
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) ConsumeVerifyOTP(ctx context.Context, userID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	u, ok := f.byID[userID]
	if !ok || code == "" || u.VerifyOTP != code {
		return domain.ErrInvalidOTP()
	}
	u.IsAccountVerified = true
	u.ClearOTP(domain.OTPVerifyEmail)
	f.byID[userID] = u
	f.writes++
	return nil
}

func (f *fakeUserRepo) ConsumeResetOTP(ctx context.Context, userID, code, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	u, ok := f.byID[userID]
	if !ok || code == "" || u.ResetOTP != code {
		return domain.ErrInvalidOTP()
	}
	u.PasswordHash = passwordHash
	u.ClearOTP(domain.OTPPasswordReset)
	f.byID[userID] = u
	f.writes++
	return nil
}

// mustGet is a test shortcut for reading the stored row.
func (f *fakeUserRepo) mustGet(t *testing.T, email string) domain.User {
	t.Helper()
	u, err := f.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("user %q not stored: %v", email, err)
	}
	return u
}

type fakeHasher struct {
	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeIssuer struct {
	issueErr error
}

func (i *fakeIssuer) Issue(userID string) (string, error) {
	if i.issueErr != nil {
		return "", i.issueErr
	}
	return "jwt:" + userID, nil
}

func (i *fakeIssuer) Verify(token string) (string, error) {
	if len(token) > 4 && token[:4] == "jwt:" {
		return token[4:], nil
	}
	return "", domain.ErrTokenInvalid()
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []Message
	sendErr error
}

func (n *fakeNotifier) Send(ctx context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) last(t *testing.T) Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatalf("expected a sent message")
	}
	return n.sent[len(n.sent)-1]
}

// fakeMails puts the code in Body so tests can read it back from the notifier.
type fakeMails struct {
	renderErr error
}

func (m *fakeMails) Welcome(name, email string) (Message, error) {
	if m.renderErr != nil {
		return Message{}, m.renderErr
	}
	return Message{To: email, Subject: "Account Verification", Body: "welcome " + name}, nil
}

func (m *fakeMails) VerifyOTP(email, otp string) (Message, error) {
	if m.renderErr != nil {
		return Message{}, m.renderErr
	}
	return Message{To: email, Subject: "Account Verification OTP", Body: otp, HTML: true}, nil
}

func (m *fakeMails) ResetOTP(email, otp string) (Message, error) {
	if m.renderErr != nil {
		return Message{}, m.renderErr
	}
	return Message{To: email, Subject: "Password Reset OTP", Body: otp, HTML: true}, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testDeps struct {
	users    *fakeUserRepo
	hasher   *fakeHasher
	issuer   *fakeIssuer
	notifier *fakeNotifier
	mails    *fakeMails
	clock    *fakeClock

	auditMu sync.Mutex
	audits  []auditEntry
}

func (d *testDeps) actions() []string {
	d.auditMu.Lock()
	defer d.auditMu.Unlock()
	out := make([]string, 0, len(d.audits))
	for _, a := range d.audits {
		out = append(out, a.action)
	}
	return out
}

func newSvcForTest(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	d := &testDeps{
		users:    newFakeUserRepo(),
		hasher:   &fakeHasher{},
		issuer:   &fakeIssuer{},
		notifier: &fakeNotifier{},
		mails:    &fakeMails{},
		clock:    &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}

	svc := NewService(d.users, d.hasher, d.issuer, d.notifier, d.mails, Config{
		VerifyOTPTTL: 10 * time.Minute,
		ResetOTPTTL:  5 * time.Minute,
	}).
		WithClock(d.clock.Now).
		WithAudit(func(action string, fields map[string]string) {
			d.auditMu.Lock()
			defer d.auditMu.Unlock()
			d.audits = append(d.audits, auditEntry{action: action, fields: fields})
		})

	return svc, d
}

// registerForTest creates an account and returns its id.
func registerForTest(t *testing.T, svc *Service, name, email, password string) string {
	t.Helper()
	res, err := svc.Register(context.Background(), name, email, password)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.User.ID
}
