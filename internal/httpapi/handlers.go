// ABOUTME: HTTP handlers for tracking control and stored locations
// ABOUTME: Maps service and storage errors onto HTTP status codes

package httpapi

import (
	"errors"
	"net/http"

	"github.com/harper/tracker/internal/geojson"
	"github.com/harper/tracker/internal/storage"
	"github.com/harper/tracker/internal/tracker"
	"github.com/labstack/echo/v4"
)

// GeoJSONContentType is the media type for GeoJSON responses.
const GeoJSONContentType = "application/geo+json"

func (s *Server) getTracking(c echo.Context) error {
	return c.JSON(http.StatusOK, s.tracker.Status())
}

func (s *Server) startTracking(c echo.Context) error {
	return s.handle(c, tracker.Start)
}

func (s *Server) stopTracking(c echo.Context) error {
	return s.handle(c, tracker.Stop)
}

func (s *Server) handle(c echo.Context, action tracker.Action) error {
	err := s.tracker.Handle(c.Request().Context(), action)
	switch {
	case errors.Is(err, tracker.ErrClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.logger.Error("tracking command failed", "action", action, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, s.tracker.Status())
}

func (s *Server) listLocations(c echo.Context) error {
	samples, err := s.locations.AllLocations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, samples)
}

func (s *Server) clearLocations(c echo.Context) error {
	if err := s.locations.ClearLocations(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) latestLocation(c echo.Context) error {
	sample, err := s.locations.LatestLocation(c.Request().Context())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no locations recorded")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sample)
}

// locationsGeoJSON serves the map view; ?view=points gives one Point per sample.
func (s *Server) locationsGeoJSON(c echo.Context) error {
	samples, err := s.locations.AllLocations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var fc *geojson.FeatureCollection
	switch c.QueryParam("view") {
	case "", "track":
		fc = geojson.ToTrackFeatureCollection(samples)
	case "points":
		fc = geojson.ToPointsFeatureCollection(samples)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "view must be track or points")
	}

	data, err := fc.ToJSON()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, GeoJSONContentType, data)
}
