// Package session owns the per-visitor state: one booking store, one
// booking wizard and one catalog feed per session.  Sessions never share
// state and are torn down explicitly or after being idle.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-booking/internal/booking"
	"github.com/iliyamo/movie-booking/internal/catalog"
	"github.com/iliyamo/movie-booking/internal/model"
)

// ErrNotFound is returned for unknown or ended sessions.
var ErrNotFound = errors.New("session not found")

// BookingListener is told about store changes of any session.  who is the
// identity the session was signed in with at the time, or nil.
type BookingListener func(sessionID string, who *model.Identity, rec model.BookingRecord)

// Session is one visitor's state.
type Session struct {
	ID        string
	CreatedAt time.Time
	Store     *booking.Store
	Wizard    *booking.Wizard
	Feed      *catalog.Feed

	mu       sync.Mutex
	lastSeen time.Time
	identity *model.Identity
}

// SetIdentity records who is signed in on this session.  nil clears it.
func (s *Session) SetIdentity(who *model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if who == nil {
		s.identity = nil
		return
	}
	cp := *who
	s.identity = &cp
}

// Identity returns a copy of the signed-in identity, or nil.
func (s *Session) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	cp := *s.identity
	return &cp
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen is the time of the last lookup.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Wizard.Close()
	s.Feed.Close()
}

// Manager creates and looks up sessions.
type Manager struct {
	catalog *catalog.Catalog
	gateway booking.Gateway
	now     func() time.Time

	onConfirmed BookingListener
	onArchived  BookingListener

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option customises a Manager.
type Option func(*Manager)

// WithBookingListeners forwards every session store's listeners.
func WithBookingListeners(confirmed, archived BookingListener) Option {
	return func(m *Manager) {
		m.onConfirmed = confirmed
		m.onArchived = archived
	}
}

// WithClock overrides the idle clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(cat *catalog.Catalog, gateway booking.Gateway, opts ...Option) *Manager {
	m := &Manager{
		catalog:  cat,
		gateway:  gateway,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Feed:      catalog.NewFeed(m.catalog),
		lastSeen:  now,
	}
	s.Store = booking.NewStore(booking.WithListeners(m.bind(s, m.onConfirmed), m.bind(s, m.onArchived)))
	s.Wizard = booking.NewWizard(s.Store, m.gateway)
	s.Wizard.SetOwner(s.ID)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) bind(s *Session, l BookingListener) booking.Listener {
	if l == nil {
		return nil
	}
	return func(rec model.BookingRecord) { l(s.ID, s.Identity(), rec) }
}

// Get returns the session and marks it as seen.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// End tears the session down.  In-flight feed loads and wizard callbacks
// of the session are discarded.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.close()
	return nil
}

// ForgetIdentity clears the identity of every session signed in as userID
// and returns how many it cleared.  Bookings stay with their session.
func (m *Manager) ForgetIdentity(userID string) int {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	n := 0
	for _, s := range all {
		s.mu.Lock()
		if s.identity != nil && s.identity.UserID == userID {
			s.identity = nil
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// Sweep ends sessions not seen for idle and returns how many it ended.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.close()
	}
	return len(stale)
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
