package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/baechuer/member-portal/internal/domain"
)

// Sender delivers decoded notifications (SMTP in production).
type Sender interface {
	SendAdminReviewRequest(ctx context.Context, req domain.ReviewRequest) error
	SendDecision(ctx context.Context, n domain.DecisionNotice) error
	SendPasswordReset(ctx context.Context, n domain.PasswordResetNotice) error
	SendContactMessage(ctx context.Context, m domain.ContactMessage) error
	SendContactConfirmation(ctx context.Context, m domain.ContactMessage) error
}

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
	Tag      string
}

const (
	deadLetterExchange = "portal.notifications.dlx"
	deadLetterKey      = "portal.dead"
)

type Consumer struct {
	cfg    ConsumerConfig
	sender Sender
	lg     zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	conn    *amqp.Connection
	ch      *amqp.Channel
}

const (
	dialTimeout  = 5 * time.Second
	heartbeat    = 10 * time.Second
	maxBackoff   = 30 * time.Second
	startBackoff = time.Second
)

func NewConsumer(cfg ConsumerConfig, s Sender, lg zerolog.Logger) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	return &Consumer{cfg: cfg, sender: s, lg: lg.With().Str("component", "rabbitmq_consumer").Logger()}
}

// Start runs the consume supervisor in the background. It reconnects with
// backoff until ctx is cancelled or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if c.sender == nil {
		return fmt.Errorf("nil sender")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.doneCh = make(chan struct{})
	c.running = true
	go c.run(runCtx, c.doneCh)
	return nil
}

func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	doneCh, cancel := c.doneCh, c.cancel
	c.running = false
	c.mu.Unlock()

	// Cancelling wakes the reconnect backoff, an in-flight dial and the consume loop.
	cancel()
	c.closeConn()

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Consumer) run(ctx context.Context, doneCh chan struct{}) {
	defer func() {
		c.closeConn()
		c.mu.Lock()
		if c.doneCh == doneCh {
			c.running = false
		}
		c.mu.Unlock()
		close(doneCh)
	}()

	backoff := startBackoff

	for ctx.Err() == nil && c.isRunning() {
		deliveries, err := c.connectAndDeclare(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.lg.Error().Err(err).Dur("backoff", backoff).Msg("connect failed; retrying")
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = startBackoff
		c.consumeLoop(ctx, deliveries)
		c.closeConn()
	}
}

// dial honours ctx so Stop can abort a connect to an unresponsive broker.
func (c *Consumer) dial(ctx context.Context) (*amqp.Connection, error) {
	return amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// amqp clears the deadline once the handshake completes.
			if err := conn.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func (c *Consumer) connectAndDeclare(ctx context.Context) (<-chan amqp.Delivery, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("consume channel: %w", err)
	}
	fail := func(step string, err error) (<-chan amqp.Delivery, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("exchange declare", err)
	}
	if err := ch.ExchangeDeclare(deadLetterExchange, "topic", true, false, false, false, nil); err != nil {
		return fail("dlx declare", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    deadLetterExchange,
		"x-dead-letter-routing-key": deadLetterKey,
	}); err != nil {
		return fail("queue declare", err)
	}
	dlq := c.cfg.Queue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fail("dlq declare", err)
	}
	if err := ch.QueueBind(dlq, deadLetterKey, deadLetterExchange, false, nil); err != nil {
		return fail("dlq bind", err)
	}
	for _, key := range RoutingKeys() {
		if err := ch.QueueBind(c.cfg.Queue, key, c.cfg.Exchange, false, nil); err != nil {
			return fail("queue bind "+key, err)
		}
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fail("qos", err)
	}
	dlv, err := ch.Consume(c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
	if err != nil {
		return fail("consume", err)
	}

	c.mu.Lock()
	if !c.running || ctx.Err() != nil {
		c.mu.Unlock()
		_ = ch.Close()
		_ = conn.Close()
		return nil, context.Canceled
	}
	c.conn, c.ch = conn, ch
	c.mu.Unlock()

	c.lg.Info().Str("exchange", c.cfg.Exchange).Str("queue", c.cfg.Queue).Int("prefetch", c.cfg.Prefetch).Msg("rabbitmq consumer ready")
	return dlv, nil
}

func (c *Consumer) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.lg.Warn().Msg("deliveries channel closed")
				return
			}
			c.settle(d, c.Handle(ctx, d.RoutingKey, d.Body), d.Redelivered)
		}
	}
}

// acknowledger is the settle surface of amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle acks on success. Permanent failures are dead-lettered straight away;
// transient ones get one redelivery before they are dead-lettered too.
func (c *Consumer) settle(d acknowledger, err error, redelivered bool) {
	if err == nil {
		_ = d.Ack(false)
		return
	}
	requeue := !redelivered && !IsPermanent(err)
	c.lg.Warn().Err(err).Bool("requeue", requeue).Msg("notification handling failed")
	_ = d.Nack(false, requeue)
}

// Handle decodes one message and hands it to the sender. Unknown routing
// keys are dropped (acked) so they cannot block the queue.
func (c *Consumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	switch strings.TrimSpace(routingKey) {
	case RKAdminReview:
		var v domain.ReviewRequest
		if err := decode(body, &v); err != nil {
			return err
		}
		return c.sender.SendAdminReviewRequest(ctx, v)
	case RKDecision:
		var v domain.DecisionNotice
		if err := decode(body, &v); err != nil {
			return err
		}
		return c.sender.SendDecision(ctx, v)
	case RKPasswordReset:
		var v domain.PasswordResetNotice
		if err := decode(body, &v); err != nil {
			return err
		}
		return c.sender.SendPasswordReset(ctx, v)
	case RKContactMessage:
		var v domain.ContactMessage
		if err := decode(body, &v); err != nil {
			return err
		}
		return c.sender.SendContactMessage(ctx, v)
	case RKContactConfirmation:
		var v domain.ContactMessage
		if err := decode(body, &v); err != nil {
			return err
		}
		return c.sender.SendContactConfirmation(ctx, v)
	default:
		c.lg.Warn().Str("routing_key", truncate(routingKey, 100)).Msg("unknown routing key; dropping")
		return nil
	}
}

type permanentError struct{ err error }

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() error   { return e.err }
func (e permanentError) Permanent() bool { return true }

// IsPermanent reports errors that a retry cannot fix.
func IsPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return permanentError{err: fmt.Errorf("bad json: %w", err)}
	}
	return nil
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
