// Package catalog turns TMDb listings into the movie display model and
// keeps the per-session browse feed.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/movie-booking/internal/logging"
	"github.com/iliyamo/movie-booking/internal/model"
)

const (
	posterBase        = "https://image.tmdb.org/t/p/w500"
	backdropBase      = "https://image.tmdb.org/t/p/w1280"
	posterPlaceholder = "https://via.placeholder.com/500x750?text=No+Image"

	// FilterAll disables a filter.
	FilterAll = "all"
)

// Query selects a listing.  An empty Query.Query means the popular listing.
type Query struct {
	Query string
	Genre string
	Year  string
	Page  int
}

// GenreCache is a shared store for the genre list.
type GenreCache interface {
	Get(ctx context.Context) ([]Genre, bool)
	Set(ctx context.Context, genres []Genre)
}

// Catalog resolves listings against a Client and remembers the genre map
// once it has been loaded successfully.
type Catalog struct {
	client *Client
	cache  GenreCache

	mu     sync.RWMutex
	genres []Genre
	byID   map[int]string
}

// Option customises a Catalog.
type Option func(*Catalog)

// WithGenreCache shares the genre list through cache.
func WithGenreCache(cache GenreCache) Option {
	return func(c *Catalog) { c.cache = cache }
}

// New returns a Catalog backed by client.
func New(client *Client, opts ...Option) *Catalog {
	c := &Catalog{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Movies loads the listing selected by q, applies the genre and year
// filters and projects every entry.
func (c *Catalog) Movies(ctx context.Context, q Query) ([]model.Movie, error) {
	names, err := c.genreMap(ctx)
	if err != nil {
		return nil, err
	}

	var results []Result
	if strings.TrimSpace(q.Query) != "" {
		results, err = c.client.Search(ctx, q.Query, q.Page)
	} else {
		results, err = c.client.Popular(ctx, q.Page)
	}
	if err != nil {
		return nil, err
	}

	results = filterGenre(results, names, q.Genre)
	results = filterYear(results, q.Year)

	out := make([]model.Movie, 0, len(results))
	for _, r := range results {
		out = append(out, project(r, names))
	}
	return out, nil
}

// Listing is Movies for display: a failure yields an empty list and the
// message to show instead of an error value.
func (c *Catalog) Listing(ctx context.Context, q Query) ([]model.Movie, string) {
	movies, err := c.Movies(ctx, q)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("catalog listing failed")
		return []model.Movie{}, err.Error()
	}
	return movies, ""
}

// Movie returns the details projection of one movie.
func (c *Catalog) Movie(ctx context.Context, id int64) (model.Movie, error) {
	r, err := c.client.Details(ctx, id)
	if err != nil {
		return model.Movie{}, err
	}
	names := map[int]string{}
	for _, g := range r.Genres {
		names[g.ID] = g.Name
		r.GenreIDs = append(r.GenreIDs, g.ID)
	}
	return project(r, names), nil
}

// GenreNames lists the genre names in upstream id order.
func (c *Catalog) GenreNames(ctx context.Context) ([]string, error) {
	if _, err := c.genreMap(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.genres))
	for _, g := range c.genres {
		out = append(out, g.Name)
	}
	return out, nil
}

// Years returns the year filter options: next year and the five before it,
// newest first.
func Years(now time.Time) []string {
	first := now.Year() + 1
	out := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		out = append(out, strconv.Itoa(first-i))
	}
	return out
}

func (c *Catalog) genreMap(ctx context.Context) (map[int]string, error) {
	c.mu.RLock()
	byID := c.byID
	c.mu.RUnlock()
	if byID != nil {
		return byID, nil
	}

	var genres []Genre
	cached := false
	if c.cache != nil {
		genres, cached = c.cache.Get(ctx)
	}
	if !cached {
		var err error
		genres, err = c.client.Genres(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(genres) == 0 {
		return nil, &Error{Kind: KindGenres}
	}
	if !cached && c.cache != nil {
		c.cache.Set(ctx, genres)
	}

	sorted := append([]Genre(nil), genres...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	byID = make(map[int]string, len(sorted))
	for _, g := range sorted {
		byID[g.ID] = g.Name
	}

	c.mu.Lock()
	c.genres = sorted
	c.byID = byID
	c.mu.Unlock()
	return byID, nil
}

func filterGenre(in []Result, names map[int]string, genre string) []Result {
	if genre == "" || genre == FilterAll {
		return in
	}
	id, ok := 0, false
	for gid, name := range names {
		if name == genre && (!ok || gid < id) {
			id, ok = gid, true
		}
	}
	if !ok {
		return in
	}
	out := make([]Result, 0, len(in))
	for _, r := range in {
		for _, gid := range r.GenreIDs {
			if gid == id {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func filterYear(in []Result, year string) []Result {
	if year == "" || year == FilterAll {
		return in
	}
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if r.ReleaseDate != "" && strings.HasPrefix(r.ReleaseDate, year) {
			out = append(out, r)
		}
	}
	return out
}

func project(r Result, names map[int]string) model.Movie {
	m := model.Movie{
		ID:           r.ID,
		Title:        r.Title,
		Overview:     r.Overview,
		PosterURL:    posterPlaceholder,
		ReleaseYear:  model.NotAvailable,
		Rating:       model.NotAvailable,
		GenresString: model.NotAvailable,
	}
	if r.PosterPath != "" {
		m.PosterURL = posterBase + r.PosterPath
	}
	if r.BackdropPath != "" {
		m.BackdropURL = backdropBase + r.BackdropPath
	}
	if r.ReleaseDate != "" {
		m.ReleaseYear = r.ReleaseDate
		if len(m.ReleaseYear) > 4 {
			m.ReleaseYear = m.ReleaseYear[:4]
		}
	}
	if r.VoteAverage != nil {
		m.Rating = fmt.Sprintf("%.1f", *r.VoteAverage)
	}
	var genres []string
	for _, id := range r.GenreIDs {
		if name := names[id]; name != "" {
			genres = append(genres, name)
		}
	}
	if len(genres) > 0 {
		m.GenresString = strings.Join(genres, ", ")
	}
	return m
}
