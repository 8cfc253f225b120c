package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/model"
)

const genresJSON = `{"genres":[{"id":53,"name":"Thriller"},{"id":28,"name":"Action"},{"id":10751,"name":"Family"}]}`

const popularJSON = `{"page":1,"results":[
 {"id":1,"title":"Heat","overview":"LA heist","poster_path":"/heat.jpg","backdrop_path":"/heat-bd.jpg","release_date":"1995-12-15","vote_average":7.94,"genre_ids":[28,53]},
 {"id":2,"title":"Paddington","overview":"Bear","poster_path":null,"backdrop_path":null,"release_date":"2024-11-08","vote_average":0,"genre_ids":[10751,999]},
 {"id":3,"title":"Untitled","overview":"","release_date":"","genre_ids":[]}
]}`

type fakeTMDB struct {
	srv         *httptest.Server
	genreCalls  atomic.Int32
	lastQuery   atomic.Value
	popularHook func()
}

func newFakeTMDB(t *testing.T) *fakeTMDB {
	t.Helper()
	f := &fakeTMDB{}
	mux := http.NewServeMux()
	mux.HandleFunc("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		f.genreCalls.Add(1)
		_, _ = w.Write([]byte(genresJSON))
	})
	mux.HandleFunc("/movie/popular", func(w http.ResponseWriter, r *http.Request) {
		if f.popularHook != nil {
			f.popularHook()
		}
		_, _ = w.Write([]byte(popularJSON))
	})
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery.Store(r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"results":[{"id":9,"title":"Heat 2","release_date":"2026-01-01","genre_ids":[28]}]}`))
	})
	mux.HandleFunc("/movie/550", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club","poster_path":"/fc.jpg","release_date":"1999-10-15","vote_average":8.43,"genres":[{"id":18,"name":"Drama"}]}`))
	})
	mux.HandleFunc("/movie/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
	})
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status_message":"Invalid API key: You must be granted a valid key."}`))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTMDB) catalog(opts ...Option) *Catalog {
	return New(NewClient(f.srv.URL, "test-key", 2*time.Second), opts...)
}

func TestMoviesProjection(t *testing.T) {
	f := newFakeTMDB(t)
	movies, err := f.catalog().Movies(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, movies, 3)

	assert.Equal(t, model.Movie{
		ID:           1,
		Title:        "Heat",
		Overview:     "LA heist",
		PosterURL:    "https://image.tmdb.org/t/p/w500/heat.jpg",
		BackdropURL:  "https://image.tmdb.org/t/p/w1280/heat-bd.jpg",
		ReleaseYear:  "1995",
		Rating:       "7.9",
		GenresString: "Action, Thriller",
	}, movies[0])

	assert.Equal(t, "https://via.placeholder.com/500x750?text=No+Image", movies[1].PosterURL)
	assert.Empty(t, movies[1].BackdropURL)
	assert.Equal(t, "0.0", movies[1].Rating)
	assert.Equal(t, "Family", movies[1].GenresString)

	assert.Equal(t, "N/A", movies[2].ReleaseYear)
	assert.Equal(t, "N/A", movies[2].Rating)
	assert.Equal(t, "N/A", movies[2].GenresString)
}

func TestMoviesFilters(t *testing.T) {
	f := newFakeTMDB(t)
	cat := f.catalog()
	ctx := context.Background()

	movies, err := cat.Movies(ctx, Query{Genre: "Thriller", Year: FilterAll})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Heat", movies[0].Title)

	movies, err = cat.Movies(ctx, Query{Genre: FilterAll, Year: "2024"})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Paddington", movies[0].Title)

	movies, err = cat.Movies(ctx, Query{Genre: "Western"})
	require.NoError(t, err)
	assert.Len(t, movies, 3, "unknown genre does not filter")

	assert.Equal(t, int32(1), f.genreCalls.Load(), "genres are loaded once")
}

func TestMoviesSearch(t *testing.T) {
	f := newFakeTMDB(t)
	movies, err := f.catalog().Movies(context.Background(), Query{Query: "heat"})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Heat 2", movies[0].Title)
	assert.Equal(t, "heat", f.lastQuery.Load())
}

func TestListingUpstreamVersusNetwork(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(genresJSON))
	})
	mux.HandleFunc("/movie/popular", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	movies, upstreamMsg := New(NewClient(upstream.URL, "k", time.Second)).Listing(context.Background(), Query{})
	assert.NotNil(t, movies)
	assert.Empty(t, movies)
	assert.Equal(t, "TMDB API Error (404): The resource you requested could not be found.", upstreamMsg)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	movies, networkMsg := New(NewClient(deadURL, "k", time.Second)).Listing(context.Background(), Query{})
	assert.Empty(t, movies)
	assert.Equal(t, "Network Error: Could not connect to TMDB API.", networkMsg)
	assert.NotEqual(t, upstreamMsg, networkMsg)
}

func TestGenreFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"genres":[]}`))
	}))
	defer srv.Close()

	_, err := New(NewClient(srv.URL, "k", time.Second)).Movies(context.Background(), Query{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindGenres))
	assert.Equal(t, "Failed to load genres from TMDb. Check API key/network.", err.Error())

	f := newFakeTMDB(t)
	_, err = New(NewClient(f.srv.URL, "wrong", time.Second)).Movies(context.Background(), Query{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUpstream))
	assert.Contains(t, err.Error(), "TMDB API Error (401)")

	_, err = New(NewClient(f.srv.URL, "", time.Second)).Movies(context.Background(), Query{})
	assert.True(t, IsKind(err, KindConfig))
}

func TestUpstreamWithoutMessage(t *testing.T) {
	e := &Error{Kind: KindUpstream, Status: 500}
	assert.Equal(t, "TMDB API Error (500): Request failed", e.Error())
	e = &Error{Kind: KindUnknown, Message: "bad url"}
	assert.Equal(t, "Unknown API Error: bad url", e.Error())
}

func TestMovieDetails(t *testing.T) {
	f := newFakeTMDB(t)
	cat := f.catalog()

	m, err := cat.Movie(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", m.Title)
	assert.Equal(t, "Drama", m.GenresString)
	assert.Equal(t, "8.4", m.Rating)

	_, err = cat.Movie(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUpstream))
}

func TestGenreNamesAndYears(t *testing.T) {
	f := newFakeTMDB(t)
	names, err := f.catalog().GenreNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Thriller", "Family"}, names)

	years := Years(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"2026", "2025", "2024", "2023", "2022", "2021"}, years)
}

func TestRedisGenreCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := NewRedisGenreCache(rdb, "", time.Hour)

	f := newFakeTMDB(t)
	_, err := f.catalog(WithGenreCache(cache)).Movies(context.Background(), Query{})
	require.NoError(t, err)
	require.True(t, mr.Exists("catalog:genres"))

	var stored []Genre
	raw, err := mr.Get("catalog:genres")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Len(t, stored, 3)

	// a second catalog reads the list from Redis
	_, err = f.catalog(WithGenreCache(cache)).Movies(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.genreCalls.Load())

	assert.Nil(t, NewRedisGenreCache(nil, "", time.Hour))
}
