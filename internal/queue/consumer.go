package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer reads booking events and appends one line per event to
// <LogDir>/booking.log.  Confirmations with an email are also mailed when
// a Mailer is set.
type Consumer struct {
	URL    string
	LogDir string
	Mailer Mailer

	mu  sync.Mutex
	log *logrus.Entry
}

func NewConsumer(url, logDir string, mailer Mailer) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{URL: url, LogDir: logDir, Mailer: mailer, log: logrus.WithField("component", "booking-consumer")}
}

// Run keeps a connection to the broker and consumes until ctx is done.
// Connection failures are retried with backoff.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}

	deliveries := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	closed := make(chan struct{})
	go func() {
		wg.Wait()
		close(closed)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-closed:
			return errors.New("deliveries channel closed")
		case d := <-deliveries:
			if err := c.Handle(d.Body); err != nil {
				c.log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // no requeue, avoids tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle processes one message body.
func (c *Consumer) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.appendLine(FormatLine(ev)); err != nil {
		return err
	}
	if ev.Type == QueueBookingConfirmed && ev.UserEmail != "" && c.Mailer != nil {
		// mail failures must not drop the event
		if err := c.Mailer.SendBookingConfirmation(ev); err != nil {
			c.log.WithError(err).WithField("booking_id", ev.BookingID).Warn("confirmation mail failed")
		}
	}
	return nil
}

func (c *Consumer) appendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

var verbs = map[string]string{
	QueueBookingConfirmed: "Booking confirmed",
	QueueBookingCancelled: "Booking cancelled",
	QueueBookingCompleted: "Booking completed",
}

// FormatLine renders ev as one booking.log line.
func FormatLine(ev BookingEvent) string {
	verb, ok := verbs[ev.Type]
	if !ok {
		verb = "Booking event " + ev.Type
	}
	return fmt.Sprintf("[%s] %s | booking_id=%s | session_id=%s | movie=%q | show=\"%s %s\" | seats=[%s] | total=%d | status=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), verb, ev.BookingID, ev.SessionID, ev.MovieTitle,
		ev.ShowTime, ev.ShowDate, strings.Join(ev.Seats, ","), ev.TotalAmount, ev.Status)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
