package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/baechuer/member-portal/internal/domain"
)

const (
	DefaultExchange = "portal.notifications"
	DefaultQueue    = "portal.mailer"

	RKAdminReview         = "portal.admin.review.requested"
	RKDecision            = "portal.user.decision"
	RKPasswordReset       = "portal.password.reset.requested"
	RKContactMessage      = "portal.contact.message"
	RKContactConfirmation = "portal.contact.confirmation"

	// window to wait for Return / Confirm
	publishWait = 2 * time.Second
)

// RoutingKeys lists every key the publisher emits.
func RoutingKeys() []string {
	return []string{RKAdminReview, RKDecision, RKPasswordReset, RKContactMessage, RKContactConfirmation}
}

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements the notification ports by publishing JSON events to a
// topic exchange with publisher confirms and mandatory routing.
type Publisher struct {
	url      string
	exchange string
	lg       zerolog.Logger

	mu sync.Mutex

	conn *amqp.Connection
	ch   channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return

	dial func() error
}

func NewPublisher(url, exchange string, lg zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		url:      url,
		exchange: exchange,
		lg:       lg.With().Str("component", "rabbitmq_publisher").Logger(),
	}
	p.dial = p.connect
	if err := p.connect(); err != nil {
		return nil, domain.ErrRabbitUnavailable(err)
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

func (p *Publisher) SendAdminReviewRequest(ctx context.Context, req domain.ReviewRequest) error {
	return p.publishJSON(ctx, RKAdminReview, req)
}

func (p *Publisher) SendDecision(ctx context.Context, n domain.DecisionNotice) error {
	return p.publishJSON(ctx, RKDecision, n)
}

func (p *Publisher) SendPasswordReset(ctx context.Context, n domain.PasswordResetNotice) error {
	return p.publishJSON(ctx, RKPasswordReset, n)
}

func (p *Publisher) SendContactMessage(ctx context.Context, m domain.ContactMessage) error {
	return p.publishJSON(ctx, RKContactMessage, m)
}

func (p *Publisher) SendContactConfirmation(ctx context.Context, m domain.ContactMessage) error {
	return p.publishJSON(ctx, RKContactConfirmation, m)
}

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

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
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

func (p *Publisher) ensureConnected() error {
	if p.ch != nil && (p.conn == nil || !p.conn.IsClosed()) {
		return nil
	}
	return p.dial()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ErrNotificationFailed(fmt.Errorf("marshal payload: %w", err))
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return domain.ErrNotificationFailed(err)
	}

	// drop stale confirms / returns from an earlier publish
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}); err != nil {
		p.resetConn()
		return domain.ErrNotificationFailed(fmt.Errorf("publish failed: %w", err))
	}

	if err := p.awaitConfirm(ctx, routingKey); err != nil {
		p.lg.Warn().Err(err).Str("routing_key", routingKey).Msg("publish not confirmed")
		return domain.ErrNotificationFailed(err)
	}
	p.lg.Debug().Str("routing_key", routingKey).Msg("published")
	return nil
}

// awaitConfirm waits for the broker ack. A mandatory return arrives before
// the ack of the same message, so it is checked first.
func (p *Publisher) awaitConfirm(ctx context.Context, routingKey string) error {
	timer := time.NewTimer(publishWait)
	defer timer.Stop()

	select {
	case ret := <-p.returnCh:
		return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)

	case conf := <-p.confirmCh:
		select {
		case ret := <-p.returnCh:
			return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-timer.C:
		return fmt.Errorf("rabbitmq publish timeout: key=%s", routingKey)

	case <-ctx.Done():
		return ctx.Err()
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
