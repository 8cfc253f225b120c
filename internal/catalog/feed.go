package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/iliyamo/movie-booking/internal/model"
)

const (
	heroPlaceholder = "https://via.placeholder.com/1600x900.png?text=Movie+Banner"
	heroFallback    = "Featured Movie"
)

// FeedState is what a browsing visitor sees.
type FeedState struct {
	Query      Query         `json:"-"`
	Movies     []model.Movie `json:"items"`
	Loading    bool          `json:"loading"`
	Error      string        `json:"error,omitempty"`
	GenreNames []string      `json:"genres"`
}

// Feed is the browse state of one session.  Each Load is numbered and its
// result is dropped when a newer Load started or the feed was closed
// while it was in flight.
type Feed struct {
	cat *Catalog

	mu     sync.Mutex
	gen    uint64
	closed bool
	state  FeedState
}

// NewFeed returns an empty feed reading from cat.
func NewFeed(cat *Catalog) *Feed {
	return &Feed{cat: cat, state: FeedState{Movies: []model.Movie{}}}
}

// Load fetches the listing for q.  applied is false when the result was
// discarded as stale; the returned state is then the feed's current one.
func (f *Feed) Load(ctx context.Context, q Query) (state FeedState, applied bool) {
	gen, ok := f.begin(q)
	if !ok {
		return f.State(), false
	}

	movies, msg := f.cat.Listing(ctx, q)
	var names []string
	if msg == "" {
		names, _ = f.cat.GenreNames(ctx)
	}
	return f.finish(gen, movies, msg, names)
}

func (f *Feed) begin(q Query) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, false
	}
	f.gen++
	f.state.Query = q
	f.state.Loading = true
	f.state.Error = ""
	return f.gen, true
}

func (f *Feed) finish(gen uint64, movies []model.Movie, msg string, names []string) (FeedState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.gen {
		return f.snapshotLocked(), false
	}
	f.state.Movies = movies
	f.state.Error = msg
	f.state.Loading = false
	if names != nil {
		f.state.GenreNames = names
	}
	return f.snapshotLocked(), true
}

// State returns a copy of the current feed state.
func (f *Feed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() FeedState {
	out := f.state
	out.Movies = append([]model.Movie{}, f.state.Movies...)
	out.GenreNames = append([]string(nil), f.state.GenreNames...)
	return out
}

// Close stops the feed from accepting results.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Hero is the banner shown above the popular listing.
type Hero struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

// HomeView groups a feed state into the rows of the home page.
type HomeView struct {
	Title    string        `json:"title"`
	Hero     *Hero         `json:"hero,omitempty"`
	Movies   []model.Movie `json:"items"`
	Thriller []model.Movie `json:"thriller"`
	Family   []model.Movie `json:"family"`
	Loading  bool          `json:"loading"`
	Error    string        `json:"error,omitempty"`
}

// Home builds the home page from s.  The hero is omitted while searching.
func Home(s FeedState) HomeView {
	v := HomeView{
		Title:    "Popular Movies",
		Movies:   s.Movies,
		Thriller: withGenre(s.Movies, "Thriller"),
		Family:   withGenre(s.Movies, "Family"),
		Loading:  s.Loading,
		Error:    s.Error,
	}
	if v.Movies == nil {
		v.Movies = []model.Movie{}
	}
	if q := s.Query.Query; q != "" {
		v.Title = `Search Results for "` + q + `"`
		return v
	}
	hero := Hero{Title: heroFallback, ImageURL: heroPlaceholder}
	if len(s.Movies) > 0 {
		first := s.Movies[0]
		if first.Title != "" {
			hero.Title = first.Title
		}
		if first.BackdropURL != "" {
			hero.ImageURL = first.BackdropURL
		}
	}
	v.Hero = &hero
	return v
}

func withGenre(in []model.Movie, genre string) []model.Movie {
	out := []model.Movie{}
	for _, m := range in {
		if strings.Contains(m.GenresString, genre) {
			out = append(out, m)
		}
	}
	return out
}
