// Package queue carries booking events over RabbitMQ: the publisher used
// by session stores and the consumer that writes logs/booking.log.
package queue

import (
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// Queue names double as event types.  Each is a durable queue bound to
// the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
	QueueBookingCompleted = "booking.completed"
)

// Queues lists every queue the consumer reads.
var Queues = []string{QueueBookingConfirmed, QueueBookingCancelled, QueueBookingCompleted}

// BookingEvent is published whenever a session store records or archives
// a booking.  It carries enough for the consumer to log and notify
// without reaching back into the session.
type BookingEvent struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	BookingID   string    `json:"booking_id"`
	MovieID     int64     `json:"movie_id"`
	MovieTitle  string    `json:"movie_title"`
	ShowTime    string    `json:"show_time"`
	ShowDate    string    `json:"show_date"`
	Seats       []string  `json:"seats"`
	TotalAmount int       `json:"total_amount"`
	Status      string    `json:"status"`
	UserEmail   string    `json:"user_email,omitempty"`
	UserName    string    `json:"user_name,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewBookingEvent builds the event for rec.  The type follows the record
// status: active records are confirmations.
func NewBookingEvent(sessionID string, rec model.BookingRecord, who *model.Identity, at time.Time) BookingEvent {
	ev := BookingEvent{
		Type:        typeFor(rec.Status),
		SessionID:   sessionID,
		BookingID:   rec.ID,
		MovieID:     rec.MovieID,
		MovieTitle:  rec.Title,
		ShowTime:    rec.Show.Time,
		ShowDate:    rec.Show.Date,
		Seats:       append([]string(nil), rec.Seats...),
		TotalAmount: rec.TotalAmount,
		Status:      string(rec.Status),
		OccurredAt:  at.UTC(),
	}
	if who != nil {
		ev.UserEmail = who.Email
		ev.UserName = who.DisplayName
	}
	return ev
}

func typeFor(s model.BookingStatus) string {
	switch s {
	case model.BookingCancelled:
		return QueueBookingCancelled
	case model.BookingCompleted:
		return QueueBookingCompleted
	}
	return QueueBookingConfirmed
}
