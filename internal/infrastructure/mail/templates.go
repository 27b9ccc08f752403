package mail

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/otp-auth/internal/application/auth"
)

const otpLayout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>{{.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1 style="color: {{.Color}};">{{.Title}}</h1>
		<p>{{.Intro}} <span style="color: {{.Color}};">{{.Email}}</span>.</p>
		<p>{{.Action}}</p>
		<div style="text-align: center; margin: 30px 0;">
			<span style="background-color: {{.Color}}; color: white; padding: 12px 30px; border-radius: 5px; font-size: 22px; letter-spacing: 4px; display: inline-block;">{{.OTP}}</span>
		</div>
		<p>This OTP is valid for {{.ValidFor}}.</p>
		<hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
		<p style="color: #999; font-size: 12px;">This is an automated message, please do not reply.</p>
	</div>
</body>
</html>`

var otpTmpl = template.Must(template.New("otp").Parse(otpLayout))

type otpView struct {
	Title    string
	Color    string
	Intro    string
	Action   string
	Email    string
	OTP      string
	ValidFor string
}

// Renderer builds the three outgoing messages. It implements auth.MailRenderer.
type Renderer struct {
	from        string
	verifyValid string
	resetValid  string
}

func NewRenderer(from string, verifyTTL, resetTTL time.Duration) *Renderer {
	return &Renderer{
		from:        from,
		verifyValid: humanize(verifyTTL),
		resetValid:  humanize(resetTTL),
	}
}

func (r *Renderer) Welcome(name, email string) (auth.Message, error) {
	return auth.Message{
		From:    r.from,
		To:      email,
		Subject: "Account Verification",
		Body: fmt.Sprintf("Hello %s, welcome to our platform. Your account has been created successfully with this email %s",
			name, email),
	}, nil
}

func (r *Renderer) VerifyOTP(email, otp string) (auth.Message, error) {
	body, err := render(otpView{
		Title:    "Verify your email",
		Color:    "#4CAF50",
		Intro:    "You are just one step away from verifying your account for",
		Action:   "Use the OTP below to verify your account.",
		Email:    email,
		OTP:      otp,
		ValidFor: r.verifyValid,
	})
	if err != nil {
		return auth.Message{}, err
	}
	return auth.Message{From: r.from, To: email, Subject: "Account Verification OTP", Body: body, HTML: true}, nil
}

func (r *Renderer) ResetOTP(email, otp string) (auth.Message, error) {
	body, err := render(otpView{
		Title:    "Password Reset Request",
		Color:    "#2196F3",
		Intro:    "We received a password reset request for your account",
		Action:   "Use the OTP below to reset your password.",
		Email:    email,
		OTP:      otp,
		ValidFor: r.resetValid,
	})
	if err != nil {
		return auth.Message{}, err
	}
	return auth.Message{From: r.from, To: email, Subject: "Password Reset OTP", Body: body, HTML: true}, nil
}

func render(v otpView) (string, error) {
	var buf strings.Builder
	if err := otpTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// humanize renders whole hours or minutes as words, anything else as a Go duration.
func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	}
	return d.String()
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
