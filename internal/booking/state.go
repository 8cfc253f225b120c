// Package booking holds the booking wizard state machine and the
// session-scoped booking store.
package booking

import (
	"fmt"

	"github.com/iliyamo/movie-booking/internal/model"
)

// UnitPrice is the price of one seat in whole currency units.
const UnitPrice = 20

// Step identifies where a wizard run currently is.
type Step int

const (
	StepSelectShow Step = iota + 1
	StepSelectSeats
	StepPayment
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepSelectShow:
		return "select_show"
	case StepSelectSeats:
		return "select_seats"
	case StepPayment:
		return "payment"
	case StepConfirmed:
		return "confirmed"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Showtimes is the fixed set of screenings offered for every movie.
var Showtimes = []model.Showtime{
	{Time: "10:00 AM", Date: "Fri, Oct 25"},
	{Time: "02:00 PM", Date: "Fri, Oct 25"},
	{Time: "06:00 PM", Date: "Fri, Oct 25"},
}

const (
	seatRow   = "A"
	seatCount = 25
	// SeatColumns is the width of the rendered seat grid.
	SeatColumns = 5
)

// SeatLabels returns the seat grid in render order (A1..A25).
func SeatLabels() []string {
	out := make([]string, 0, seatCount)
	for i := 1; i <= seatCount; i++ {
		out = append(out, fmt.Sprintf("%s%d", seatRow, i))
	}
	return out
}

// IsSeat reports whether label is part of the grid.
func IsSeat(label string) bool {
	for _, s := range SeatLabels() {
		if s == label {
			return true
		}
	}
	return false
}

// IsShowtime reports whether show is one of the offered Showtimes.
func IsShowtime(show model.Showtime) bool {
	for _, s := range Showtimes {
		if s == show {
			return true
		}
	}
	return false
}

// State is the value of one wizard run.  Transition methods never modify
// the receiver; they return the next state and whether anything changed.
type State struct {
	Step  Step
	Show  *model.Showtime
	Seats []string
}

// Initial is the state every wizard run starts from.
func Initial() State {
	return State{Step: StepSelectShow}
}

func (s State) clone() State {
	out := State{Step: s.Step, Seats: append([]string(nil), s.Seats...)}
	if s.Show != nil {
		show := *s.Show
		out.Show = &show
	}
	return out
}

// SelectShow picks a showtime.  Only valid while choosing a show.
func (s State) SelectShow(show model.Showtime) (State, bool) {
	if s.Step != StepSelectShow {
		return s, false
	}
	next := s.clone()
	next.Show = &show
	return next, true
}

// ToggleSeat adds the seat when absent and removes it when present.
func (s State) ToggleSeat(seat string) (State, bool) {
	if s.Step != StepSelectSeats {
		return s, false
	}
	next := s.clone()
	for i, have := range next.Seats {
		if have == seat {
			next.Seats = append(next.Seats[:i], next.Seats[i+1:]...)
			return next, true
		}
	}
	next.Seats = append(next.Seats, seat)
	return next, true
}

// HasSeat reports whether seat is currently selected.
func (s State) HasSeat(seat string) bool {
	for _, have := range s.Seats {
		if have == seat {
			return true
		}
	}
	return false
}

// CanNext reports whether the forward action is enabled.
func (s State) CanNext() bool {
	switch s.Step {
	case StepSelectShow:
		return s.Show != nil
	case StepSelectSeats:
		return len(s.Seats) > 0
	}
	return false
}

// Next advances one step when the guard of the current step holds.
func (s State) Next() (State, bool) {
	if !s.CanNext() {
		return s, false
	}
	next := s.clone()
	next.Step++
	return next, true
}

// CanBack reports whether the back action is available.
func (s State) CanBack() bool {
	return s.Step == StepSelectSeats || s.Step == StepPayment
}

// Back returns to the previous step, keeping the selections made so far.
func (s State) Back() (State, bool) {
	if !s.CanBack() {
		return s, false
	}
	next := s.clone()
	next.Step--
	return next, true
}

// Confirm moves a run that is at the payment step to its terminal state.
func (s State) Confirm() (State, bool) {
	if s.Step != StepPayment {
		return s, false
	}
	next := s.clone()
	next.Step = StepConfirmed
	return next, true
}

// Total is the amount due for the current seat selection.
func (s State) Total() int {
	return len(s.Seats) * UnitPrice
}
