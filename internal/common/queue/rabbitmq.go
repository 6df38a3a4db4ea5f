package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Disposition tells the consumer how to settle a delivery.
type Disposition int

const (
	Ack Disposition = iota
	Reject
	Requeue
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Reject:
		return "reject"
	case Requeue:
		return "requeue"
	}
	return "unknown"
}

// Handler processes one delivery body.
type Handler interface {
	Handle(ctx context.Context, routingKey string, body []byte) Disposition
}

type HandlerFunc func(ctx context.Context, routingKey string, body []byte) Disposition

func (f HandlerFunc) Handle(ctx context.Context, routingKey string, body []byte) Disposition {
	return f(ctx, routingKey, body)
}

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection is the subset of *amqp.Connection used here.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(url string) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	return c.Connection.Channel()
}

// DialAMQP is the production Dialer.
func DialAMQP(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// Topology names the exchange, the queue and the keys that bind them.
type Topology struct {
	Exchange    string
	Queue       string
	RoutingKeys []string
}

// Declare creates a durable topic exchange and a durable queue bound to
// every routing key. Redeclaring is idempotent.
func (t Topology) Declare(ch Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", t.Queue, err)
	}
	for _, key := range t.RoutingKeys {
		if err := ch.QueueBind(t.Queue, key, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", key, t.Queue, err)
		}
	}
	return nil
}

const defaultReconnectDelay = 5 * time.Second

// Consumer pulls deliveries with manual acknowledgement and settles each
// one according to the handler's Disposition.
//
// Handlers run on a context that survives cancellation of Run's context,
// so a shutdown stops new deliveries but lets in-flight ones finish and
// be settled. handlerTimeout bounds each handler call.
type Consumer struct {
	url            string
	topology       Topology
	tag            string
	workers        int
	reconnectDelay time.Duration
	handlerTimeout time.Duration
	dial           Dialer
	logger         logger.Logger
}

type ConsumerOption func(*Consumer)

func WithDialer(d Dialer) ConsumerOption {
	return func(c *Consumer) { c.dial = d }
}

func WithReconnectDelay(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.reconnectDelay = d }
}

// WithHandlerTimeout bounds every handler call. Zero means unbounded.
func WithHandlerTimeout(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.handlerTimeout = d }
}

func WithConsumerTag(tag string) ConsumerOption {
	return func(c *Consumer) { c.tag = tag }
}

func NewConsumer(cfg config.RabbitMQConfig, topology Topology, log logger.Logger, opts ...ConsumerOption) *Consumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	c := &Consumer{
		url:            cfg.GetURL(),
		topology:       topology,
		tag:            "notification-dispatcher",
		workers:        workers,
		reconnectDelay: defaultReconnectDelay,
		dial:           DialAMQP,
		logger:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is cancelled, reconnecting after broker failures.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		err := c.runOnce(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("consumer disconnected, reconnecting", map[string]interface{}{
			"error": fmt.Sprint(err),
			"delay": c.reconnectDelay.String(),
		})
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Consumer) runOnce(ctx context.Context, h Handler) error {
	conn, err := c.dial(c.url)
	if err != nil {
		return errors.NewQueueUnavailableError(err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return errors.NewQueueUnavailableError(err)
	}
	defer ch.Close()

	if err := c.topology.Declare(ch); err != nil {
		return errors.NewQueueUnavailableError(err)
	}
	if err := ch.Qos(c.workers, 0, false); err != nil {
		return errors.NewQueueUnavailableError(err)
	}
	deliveries, err := ch.Consume(c.topology.Queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return errors.NewQueueUnavailableError(err)
	}

	c.logger.Info("consuming", map[string]interface{}{
		"exchange": c.topology.Exchange,
		"queue":    c.topology.Queue,
		"workers":  c.workers,
	})

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	done := make(chan struct{})
	go func() {
		c.Consume(ctx, deliveries, h)
		close(done)
	}()

	select {
	case <-ctx.Done():
		// Cancelling the consumer closes deliveries once the broker stops
		// sending; the channel stays open until every worker has settled.
		if err := ch.Cancel(c.tag, false); err != nil {
			c.logger.Warn("failed to cancel consumer", map[string]interface{}{"error": err.Error()})
		}
		<-done
		return ctx.Err()
	case amqpErr := <-closed:
		<-done
		if amqpErr != nil {
			return amqpErr
		}
		return fmt.Errorf("connection closed")
	case <-done:
		return fmt.Errorf("delivery channel closed")
	}
}

// Consume fans deliveries out to the worker pool and returns once the
// delivery channel is closed and every in-flight message is settled.
// Cancelling ctx does not interrupt a running handler.
func (c *Consumer) Consume(ctx context.Context, deliveries <-chan amqp.Delivery, h Handler) {
	base := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				c.settle(d, c.handle(base, h, d))
			}
		}()
	}
	wg.Wait()
}

func (c *Consumer) handle(ctx context.Context, h Handler, d amqp.Delivery) Disposition {
	if c.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.handlerTimeout)
		defer cancel()
	}
	return h.Handle(ctx, d.RoutingKey, d.Body)
}

func (c *Consumer) settle(d amqp.Delivery, disp Disposition) {
	var err error
	switch disp {
	case Ack:
		err = d.Ack(false)
	case Reject:
		err = d.Reject(false)
	default:
		err = d.Nack(false, true)
	}
	if err != nil {
		c.logger.Error("failed to settle delivery", map[string]interface{}{
			"routingKey":  d.RoutingKey,
			"deliveryTag": d.DeliveryTag,
			"disposition": disp.String(),
			"error":       err.Error(),
		})
	}
}

// Publisher sends persistent JSON messages to the exchange.
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
	now      func() time.Time
}

func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return errors.NewQueueUnavailableError(err)
	}
	return nil
}
