package model

import "time"

// Showtime is one of the screenings offered by the booking wizard.
type Showtime struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

// BookingStatus is the lifecycle state of a BookingRecord.  A record
// starts ACTIVE and moves once to either COMPLETED or CANCELLED.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingRecord is the result of a paid wizard run.  Records are owned by
// a booking store for the lifetime of the visitor session.
//
// Fields:
//  ID          – uuid generated at confirmation, immutable.
//  MovieID     – catalog id of the booked movie.
//  Title       – movie title at booking time.
//  PosterURL   – poster shown in the bookings list.
//  Rating      – rating string copied from the movie projection.
//  Show        – chosen showtime.
//  Seats       – seat labels in selection order.
//  TotalAmount – seats × unit price, fixed at confirmation.
//  BookingDate – creation timestamp (UTC).
//  Status      – active, completed or cancelled.
type BookingRecord struct {
	ID          string        `json:"id"`
	MovieID     int64         `json:"movieId"`
	Title       string        `json:"title"`
	PosterURL   string        `json:"posterUrl"`
	Rating      string        `json:"rating"`
	Show        Showtime      `json:"show"`
	Seats       []string      `json:"seats"`
	TotalAmount int           `json:"totalAmount"`
	BookingDate time.Time     `json:"bookingDate"`
	Status      BookingStatus `json:"status"`
}

// Clone returns a deep copy so callers never share the seats slice with the store.
func (b BookingRecord) Clone() BookingRecord {
	out := b
	out.Seats = append([]string(nil), b.Seats...)
	return out
}
