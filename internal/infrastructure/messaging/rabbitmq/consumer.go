package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/otp-auth/internal/application/auth"
	"github.com/baechuer/otp-auth/internal/logger"
	pkgctx "github.com/baechuer/otp-auth/internal/pkg/context"
)

// MailHandler delivers one decoded message.
type MailHandler func(ctx context.Context, msg auth.Message) error

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// Consumer reads notifier messages from the mail queue and hands them to a MailHandler.
type Consumer struct {
	cfg     ConsumerConfig
	handler MailHandler
}

func NewConsumer(cfg ConsumerConfig, handler MailHandler) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	return &Consumer{cfg: cfg, handler: handler}
}

// Run consumes until ctx is cancelled or the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if err := declareExchange(ch, c.cfg.Exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.cfg.Queue, MailRoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}

	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	logger.Logger.Info().Str("queue", c.cfg.Queue).Msg("mail consumer started")

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info().Msg("mail consumer stopping")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks on success, drops malformed payloads and requeues a failed send once.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	if rid, ok := d.Headers[headerRequestID].(string); ok && rid != "" {
		ctx = pkgctx.WithRequestID(ctx, rid)
	}
	log := logger.WithCtx(ctx)

	var msg auth.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" {
		log.Error().Err(err).Msg("malformed mail message, dropping")
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		requeue := !d.Redelivered
		log.Warn().Err(err).Bool("requeue", requeue).Str("subject", msg.Subject).Msg("mail delivery failed")
		_ = d.Nack(false, requeue)
		return
	}

	log.Info().Str("subject", msg.Subject).Msg("mail delivered")
	_ = d.Ack(false)
}
