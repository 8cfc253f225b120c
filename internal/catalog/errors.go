package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies a catalog failure.
type Kind int

const (
	// KindUpstream means the catalog answered with a non-2xx status.
	KindUpstream Kind = iota + 1
	// KindNetwork means no response was received (connection, timeout).
	KindNetwork
	// KindUnknown covers local failures such as building the request or
	// decoding the body.
	KindUnknown
	// KindGenres means the genre list came back empty.
	KindGenres
	// KindConfig means the client has no API key.
	KindConfig
)

const (
	msgNetwork  = "Network Error: Could not connect to TMDB API."
	msgGenres   = "Failed to load genres from TMDb. Check API key/network."
	msgNoAPIKey = "TMDB API key is not configured."
)

// Error is returned by every Client and Catalog call that fails.  Its
// message is the text shown to the visitor.
type Error struct {
	Kind    Kind
	Status  int    // upstream HTTP status, KindUpstream only
	Message string // upstream status_message or local error text
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUpstream:
		msg := e.Message
		if msg == "" {
			msg = "Request failed"
		}
		return fmt.Sprintf("TMDB API Error (%d): %s", e.Status, msg)
	case KindNetwork:
		return msgNetwork
	case KindGenres:
		return msgGenres
	case KindConfig:
		return msgNoAPIKey
	}
	return "Unknown API Error: " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a catalog *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == k
}
