package printer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "kitchen_print"

	routingTicket = "print.ticket"
	routingTest   = "print.test"
)

// publisher is the subset of *amqp.Channel the queue printer uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Queue publishes tickets as JSON jobs on a topic exchange. A print agent next to the
// physical printer consumes them.
type Queue struct {
	Exchange string
	Timeout  time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   publisher
}

// job is the message body. Test jobs carry no ticket.
type job struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Ticket    *Ticket   `json:"ticket,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DialQueue connects to RabbitMQ and declares the durable exchange.
func DialQueue(url, exchange string, timeout time.Duration) (*Queue, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Queue{Exchange: exchange, Timeout: timeout, conn: conn, ch: ch}, nil
}

func (q *Queue) PrintTicket(ctx context.Context, t Ticket) error {
	return q.publish(ctx, routingTicket, job{Kind: "ticket", Ticket: &t})
}

func (q *Queue) Test(ctx context.Context) error {
	return q.publish(ctx, routingTest, job{Kind: "test"})
}

func (q *Queue) publish(ctx context.Context, key string, j job) error {
	j.ID = uuid.NewString()
	j.CreatedAt = time.Now().UTC()
	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode print job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, q.Timeout)
	defer cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.ch.PublishWithContext(ctx,
		q.Exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    j.ID,
			Timestamp:    j.CreatedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("%w: publish print job: %w", ErrUnavailable, err)
	}
	return nil
}

func (q *Queue) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}
