package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/catalog"
	"github.com/iliyamo/movie-booking/internal/logging"
)

// CatalogHandler serves the public movie catalog.  Listings never fail
// with an error status: the body carries an empty list and the message.
type CatalogHandler struct {
	Cat *catalog.Catalog
	Now func() time.Time
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{Cat: cat, Now: time.Now}
}

// queryFrom reads ?query&genre&year&page.  Bad page numbers mean page 1.
func queryFrom(c echo.Context) catalog.Query {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return catalog.Query{
		Query: strings.TrimSpace(c.QueryParam("query")),
		Genre: strings.TrimSpace(c.QueryParam("genre")),
		Year:  strings.TrimSpace(c.QueryParam("year")),
		Page:  page,
	}
}

// ListMovies returns {items, error}.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	movies, msg := h.Cat.Listing(c.Request().Context(), queryFrom(c))
	if msg != "" {
		c.Response().Header().Set("Cache-Control", "no-store")
		return c.JSON(http.StatusOK, echo.Map{"items": movies, "error": msg})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// GetMovie returns one movie's details.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	movie, err := h.Cat.Movie(c.Request().Context(), id)
	if err != nil {
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, movie)
}

// Filters returns the genre and year filter options.
func (h *CatalogHandler) Filters(c echo.Context) error {
	genres, err := h.Cat.GenreNames(c.Request().Context())
	if err != nil {
		c.Response().Header().Set("Cache-Control", "no-store")
		return c.JSON(http.StatusOK, echo.Map{
			"genres": []string{},
			"years":  catalog.Years(h.Now()),
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"genres": genres, "years": catalog.Years(h.Now())})
}

// catalogError maps a catalog failure on a single-resource route.
func catalogError(c echo.Context, err error) error {
	var ce *catalog.Error
	status := http.StatusBadGateway
	if errors.As(err, &ce) {
		switch {
		case ce.Kind == catalog.KindUpstream && ce.Status == http.StatusNotFound:
			status = http.StatusNotFound
		case ce.Kind == catalog.KindConfig:
			status = http.StatusServiceUnavailable
		}
	}
	logging.FromContext(c.Request().Context()).WithError(err).Warn("catalog request failed")
	return c.JSON(status, echo.Map{"error": err.Error()})
}
