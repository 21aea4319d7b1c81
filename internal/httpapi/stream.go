// ABOUTME: Server-sent event stream of the stored trace
// ABOUTME: Sends the full newest-first list on connect and after every change

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// LocationsEvent names the SSE event carrying a location list.
const LocationsEvent = "locations"

func (s *Server) streamLocations(c echo.Context) error {
	ctx := c.Request().Context()
	updates, err := s.locations.WatchLocations(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case samples, ok := <-updates:
			if !ok {
				return nil
			}
			data, err := json.Marshal(samples)
			if err != nil {
				s.logger.Error("failed to encode locations", "err", err)
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", LocationsEvent, data); err != nil {
				return nil
			}
			res.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ":\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
