package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/movie-booking/internal/logging"
)

// DefaultBaseURL is the TMDb v3 API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// Genre is one entry of the upstream genre list.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Result is the subset of an upstream movie payload the service reads.
// List endpoints fill GenreIDs, the details endpoint fills Genres.
type Result struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Overview     string   `json:"overview"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	ReleaseDate  string   `json:"release_date"`
	VoteAverage  *float64 `json:"vote_average"`
	GenreIDs     []int    `json:"genre_ids"`
	Genres       []Genre  `json:"genres"`
}

// Client talks to the TMDb REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a client for baseURL authenticated with apiKey.  Every
// request is bounded by timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Popular returns one page of the popular listing.
func (c *Client) Popular(ctx context.Context, page int) ([]Result, error) {
	var body struct {
		Results []Result `json:"results"`
	}
	if err := c.get(ctx, "/movie/popular", url.Values{"page": {pageParam(page)}}, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// Search returns one page of movies matching query.
func (c *Client) Search(ctx context.Context, query string, page int) ([]Result, error) {
	var body struct {
		Results []Result `json:"results"`
	}
	params := url.Values{"query": {query}, "page": {pageParam(page)}}
	if err := c.get(ctx, "/search/movie", params, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// Genres returns the movie genre list.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var body struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", nil, &body); err != nil {
		return nil, err
	}
	return body.Genres, nil
}

// Details returns a single movie.
func (c *Client) Details(ctx context.Context, id int64) (Result, error) {
	var body Result
	err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &body)
	return body, err
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	log := logging.FromContext(ctx).WithField("endpoint", path)
	if c.apiKey == "" {
		return &Error{Kind: KindConfig}
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		log.WithError(err).Error("tmdb request build failed")
		return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("tmdb unreachable")
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var upstream struct {
			StatusMessage string `json:"status_message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &upstream)
		log.WithField("status", resp.StatusCode).Warn("tmdb error response")
		return &Error{Kind: KindUpstream, Status: resp.StatusCode, Message: upstream.StatusMessage}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &Error{Kind: KindNetwork, Err: err}
		}
		log.WithError(err).Error("tmdb decode failed")
		return &Error{Kind: KindUnknown, Message: fmt.Sprintf("decode %s: %v", path, err), Err: err}
	}
	return nil
}

func pageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return strconv.Itoa(page)
}
