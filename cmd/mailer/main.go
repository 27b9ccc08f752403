// cmd/mailer drains the outgoing mail queue and delivers each message over SMTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/baechuer/otp-auth/internal/config"
	"github.com/baechuer/otp-auth/internal/infrastructure/mail"
	"github.com/baechuer/otp-auth/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/otp-auth/internal/logger"
)

// consumer is the part of rabbitmq.Consumer run() drives.
type consumer interface {
	Run(ctx context.Context) error
}

func run(ctx context.Context, c consumer, lg zerolog.Logger) int {
	lg.Info().Msg("mailer started")
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		lg.Error().Err(err).Msg("mailer stopped")
		return 1
	}
	lg.Info().Msg("mailer shutdown complete")
	return 0
}

func build(cfg *config.MailerConfig) (consumer, error) {
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SenderEmail,
	})
	if err != nil {
		return nil, err
	}

	return rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:      cfg.Rabbit.URL,
		Exchange: cfg.Rabbit.Exchange,
		Queue:    cfg.Rabbit.Queue,
		Prefetch: cfg.Rabbit.Prefetch,
	}, sender.Send), nil
}

func main() {
	logger.Init()

	cfg, err := config.LoadMailer()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("config")
	}

	c, err := build(cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("bootstrap failed")
	}

	os.Exit(serve(c, logger.Logger))
}

// serve runs c until SIGINT/SIGTERM and releases the signal handler before returning.
func serve(c consumer, lg zerolog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, c, lg)
}
