package auth

import (
	"crypto/rand"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/baechuer/otp-auth/internal/domain"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPGenerator produces 6-digit codes in [100000, 999999] with an expiry.
type OTPGenerator struct {
	rand io.Reader
	now  func() time.Time
}

func NewOTPGenerator() *OTPGenerator {
	return &OTPGenerator{rand: rand.Reader, now: time.Now}
}

// Generate returns a fresh code and now+ttl.
func (g *OTPGenerator) Generate(ttl time.Duration) (string, time.Time, error) {
	n, err := rand.Int(g.rand, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", time.Time{}, domain.ErrRandomFailed(err)
	}
	code := strconv.FormatInt(n.Int64()+otpMin, 10)
	return code, g.now().Add(ttl), nil
}
