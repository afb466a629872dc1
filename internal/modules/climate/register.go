package climate

import (
	"database/sql"
	"net/http"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/controller"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/repository"
)

func RegisterFeature(mux *http.ServeMux, db *sql.DB, driver string, opts controller.Options) {
	climateRepository := repository.NewRepository(db, driver)
	climateController := controller.NewClimateController(climateRepository, opts)
	climateController.RegisterRoutes(mux)
}
