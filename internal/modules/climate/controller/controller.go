package controller

import (
	"net/http"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/repository"
)

// indexRoutes is the route listing shown on the index page, in the
// placeholder notation used by the API documentation.
var indexRoutes = []string{
	"/api/v1.0/precipitation",
	"/api/v1.0/stations",
	"/api/v1.0/tobs",
	"/api/v1.0/<start>",
	"/api/v1.0/<start>/<end>",
}

const indexDateFormat = "%Y-%m-%d"

// Options fixes the temperature observation window served by /api/v1.0/tobs.
type Options struct {
	TobsStation string
	// TobsCutoff is the first date (inclusive, YYYY-MM-DD) returned.
	TobsCutoff string
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	repository repository.ClimateRepository
	opts       Options
}

func NewClimateController(repository repository.ClimateRepository, opts Options) ClimateController {
	return &climateControllerImpl{repository: repository, opts: opts}
}

// RegisterRoutes mounts the API. The literal /api/v1.0 routes are more
// specific than the {start} wildcard, so ServeMux always prefers them.
func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleStartSummary)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleRangeSummary)
}
