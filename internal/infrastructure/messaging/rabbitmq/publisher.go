package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/otp-auth/internal/application/auth"
	"github.com/baechuer/otp-auth/internal/logger"
	pkgctx "github.com/baechuer/otp-auth/internal/pkg/context"
)

const (
	DefaultExchange = "auth.events"
	DefaultQueue    = "auth.mail.queue"
	MailRoutingKey  = "auth.mail.send"

	headerRequestID = "X-Request-ID"

	// how long to wait for the broker confirm after a publish
	confirmWait = 2 * time.Second
)

// Publisher hands mail to the broker for cmd/mailer to deliver. It implements auth.Notifier.
// Publishes are mandatory and confirmed, so an unroutable or nacked message is an error.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// Ping reports whether the broker connection is open.
func (p *Publisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureConnected()
}

func (p *Publisher) Send(ctx context.Context, msg auth.Message) error {
	pub, err := encodeMessage(ctx, msg)
	if err != nil {
		return err
	}
	return p.publish(ctx, MailRoutingKey, pub)
}

func encodeMessage(ctx context.Context, msg auth.Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		pub.Headers = amqp.Table{headerRequestID: rid}
	}
	return pub, nil
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.conn = conn
	p.ch = ch
	return nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) publish(ctx context.Context, routingKey string, pub amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, confirmWait)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// drop stale confirms/returns from a previous timed-out publish
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, pub); err != nil {
		p.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	// The broker sends basic.return before basic.ack for unroutable mandatory messages.
	var returned *amqp.Return
	for {
		select {
		case ret := <-p.returnCh:
			returned = &ret

		case conf := <-p.confirmCh:
			if returned != nil {
				return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s",
					routingKey, returned.ReplyCode, returned.ReplyText)
			}
			if !conf.Ack {
				return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
			}
			logger.WithCtx(ctx).Debug().Str("routing_key", routingKey).Msg("mail published")
			return nil

		case <-ctx.Done():
			return fmt.Errorf("rabbitmq publish: %w", ctx.Err())
		}
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
