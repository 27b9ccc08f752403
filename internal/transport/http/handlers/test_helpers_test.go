package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/otp-auth/internal/application/auth"
	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/infrastructure/mail"
	"github.com/baechuer/otp-auth/internal/infrastructure/memory"
	"github.com/baechuer/otp-auth/internal/infrastructure/security"
	"github.com/baechuer/otp-auth/internal/transport/http/middleware"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []auth.Message
	err  error
}

func (n *captureNotifier) Send(_ context.Context, msg auth.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

type testEnv struct {
	repo     *memory.UserRepo
	notifier *captureNotifier
	signer   *security.JWTSigner
	auth     *AuthHandler
	user     *UserHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := memory.NewUserRepo()
	notifier := &captureNotifier{}
	signer := security.NewJWTSigner("test-secret", "otp-auth", time.Hour)
	svc := auth.NewService(
		repo,
		security.NewBcryptHasher(bcrypt.MinCost),
		signer,
		notifier,
		mail.NewRenderer("noreply@test.local", 10*time.Minute, 5*time.Minute),
		auth.Config{},
	)

	return &testEnv{
		repo:     repo,
		notifier: notifier,
		signer:   signer,
		auth:     NewAuthHandler(svc, security.CookieConfig{TTL: time.Hour}),
		user:     NewUserHandler(svc),
	}
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func post(t *testing.T, h http.HandlerFunc, body any, userID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", mustJSONBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta"`
}

func mustEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body: %v; body=%s", err, rr.Body.String())
	}
	return env
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if rr.Code != status {
		t.Fatalf("expected status %d, got %d; body=%s", status, rr.Code, rr.Body.String())
	}
	env := mustEnvelope(t, rr)
	if env.Success || env.Code != code {
		t.Fatalf("expected failure %q, got %+v", code, env)
	}
}

// readCookie finds cookie by name from response headers.
func readCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// registerUser goes through the handler and returns the stored user.
func (e *testEnv) registerUser(t *testing.T, name, email, password string) domain.User {
	t.Helper()

	rr := post(t, e.auth.Register, map[string]string{"name": name, "email": email, "password": password}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: status %d body=%s", rr.Code, rr.Body.String())
	}
	u, err := e.repo.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("registered user not stored: %v", err)
	}
	return u
}

func (e *testEnv) storedUser(t *testing.T, email string) domain.User {
	t.Helper()

	u, err := e.repo.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u
}

func withUser(req *http.Request, userID string) context.Context {
	return middleware.WithUserID(req.Context(), userID)
}
