package model

// Movie is the display projection of a catalog entry.  It is rebuilt
// from the upstream payload on every fetch and never mutated afterwards.
//
// Fields:
//  ID           – catalog identifier of the movie.
//  Title        – display title.
//  Overview     – plot summary as returned by the catalog.
//  PosterURL    – absolute poster URL, or a placeholder image when absent.
//  BackdropURL  – absolute backdrop URL, empty when the catalog has none.
//  ReleaseYear  – four digit year or "N/A".
//  Rating       – vote average with one decimal or "N/A".
//  GenresString – comma separated genre names or "N/A".
type Movie struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Overview     string `json:"overview"`
	PosterURL    string `json:"posterUrl"`
	BackdropURL  string `json:"backdropUrl,omitempty"`
	ReleaseYear  string `json:"releaseYear"`
	Rating       string `json:"rating"`
	GenresString string `json:"genresString"`
}

// NotAvailable is the sentinel shown for missing rating, year or genre text.
const NotAvailable = "N/A"
