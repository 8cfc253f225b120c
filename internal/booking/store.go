package booking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-booking/internal/model"
)

// Listener is notified after a store mutation has been applied.  It is
// called outside the store lock.
type Listener func(rec model.BookingRecord)

// Store is the single source of truth for one visitor's bookings.  Active
// records and history records are kept in separate slices and a record is
// moved, never copied, between them.
type Store struct {
	mu      sync.Mutex
	active  []model.BookingRecord
	history []model.BookingRecord

	now         func() time.Time
	newID       func() string
	onConfirmed Listener
	onArchived  Listener
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the booking timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the booking id source.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// WithListeners registers callbacks for new bookings and for bookings that
// moved to history (cancelled or completed).
func WithListeners(confirmed, archived Listener) StoreOption {
	return func(s *Store) {
		s.onConfirmed = confirmed
		s.onArchived = archived
	}
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfirmBooking records a new active booking for movie.  No overlap check
// is made against other bookings.
func (s *Store) ConfirmBooking(movie model.Movie, show model.Showtime, seats []string, totalAmount int) model.BookingRecord {
	rec := model.BookingRecord{
		ID:          s.newID(),
		MovieID:     movie.ID,
		Title:       movie.Title,
		PosterURL:   movie.PosterURL,
		Rating:      movie.Rating,
		Show:        show,
		Seats:       append([]string(nil), seats...),
		TotalAmount: totalAmount,
		BookingDate: s.now(),
		Status:      model.BookingActive,
	}

	s.mu.Lock()
	s.active = append(s.active, rec)
	s.mu.Unlock()

	if s.onConfirmed != nil {
		s.onConfirmed(rec.Clone())
	}
	return rec.Clone()
}

// CancelBooking moves an active booking to history as cancelled.  Unknown
// or already moved ids are ignored.
func (s *Store) CancelBooking(id string) {
	s.archive(id, model.BookingCancelled)
}

// MoveBookingToHistory moves an active booking to history as completed,
// used once its show is in the past.  Unknown ids are ignored.
func (s *Store) MoveBookingToHistory(id string) {
	s.archive(id, model.BookingCompleted)
}

func (s *Store) archive(id string, status model.BookingStatus) {
	s.mu.Lock()
	idx := -1
	for i, rec := range s.active {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	moved := s.active[idx]
	s.active = append(s.active[:idx:idx], s.active[idx+1:]...)

	inserted := false
	if !s.inHistory(id) {
		moved.Status = status
		s.history = append(s.history, moved)
		inserted = true
	}
	s.mu.Unlock()

	if inserted && s.onArchived != nil {
		s.onArchived(moved.Clone())
	}
}

func (s *Store) inHistory(id string) bool {
	for _, rec := range s.history {
		if rec.ID == id {
			return true
		}
	}
	return false
}

// ClearAllBookings empties both collections.
func (s *Store) ClearAllBookings() {
	s.mu.Lock()
	s.active = nil
	s.history = nil
	s.mu.Unlock()
}

// Active returns a copy of the active bookings in creation order.
func (s *Store) Active() []model.BookingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.active)
}

// History returns a copy of the cancelled and completed bookings in the
// order they were moved.
func (s *Store) History() []model.BookingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.history)
}

// Get looks a booking up in either collection.
func (s *Store) Get(id string) (model.BookingRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range [][]model.BookingRecord{s.active, s.history} {
		for _, rec := range list {
			if rec.ID == id {
				return rec.Clone(), true
			}
		}
	}
	return model.BookingRecord{}, false
}

func cloneAll(in []model.BookingRecord) []model.BookingRecord {
	out := make([]model.BookingRecord, 0, len(in))
	for _, rec := range in {
		out = append(out, rec.Clone())
	}
	return out
}
