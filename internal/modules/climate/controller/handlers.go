package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/types"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/modules/climate/views"
	"github.com/caschkerke/DA-sqlalchemy-challenge/internal/utils"
)

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := &views.IndexData{DateFormat: indexDateFormat, Routes: indexRoutes}
	if err := views.RenderIndex(&buf, data); err != nil {
		slog.Error("index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// handlePrecipitation answers a date -> prcp object. Several stations report
// the same date, and only the last row per date in date order survives.
func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	rows, err := c.repository.GetPrecipitation(r.Context())
	if err != nil {
		internalError(w, "precipitation", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.PrecipitationByDate(rows))
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	ids, err := c.repository.GetStationIDs(r.Context())
	if err != nil {
		internalError(w, "stations", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ids)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	observations, err := c.repository.GetTemperatureObservations(r.Context(), c.opts.TobsStation, c.opts.TobsCutoff)
	if err != nil {
		internalError(w, "tobs", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

// Path dates are passed through unchecked; the store compares them as strings.
func (c *climateControllerImpl) handleStartSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := c.repository.GetTemperatureSummary(r.Context(), r.PathValue("start"), nil)
	if err != nil {
		internalError(w, "start summary", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (c *climateControllerImpl) handleRangeSummary(w http.ResponseWriter, r *http.Request) {
	end := r.PathValue("end")
	summary, err := c.repository.GetTemperatureSummary(r.Context(), r.PathValue("start"), &end)
	if err != nil {
		internalError(w, "range summary", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

// internalError logs err and answers a bare 500; store details stay in the log.
func internalError(w http.ResponseWriter, route string, err error) {
	slog.Error(route+": query failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
