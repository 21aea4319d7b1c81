// ABOUTME: Fix ingestion endpoint for phones and other pushers
// ABOUTME: Accepts OwnTracks-style location JSON, one object or an array

package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harper/tracker/internal/location"
	"github.com/labstack/echo/v4"
)

const maxFixBody = 1 << 20

// FixRequest is one pushed location. Field names follow OwnTracks so its
// HTTP mode can post here directly; messages of other types are ignored.
type FixRequest struct {
	Type      string   `json:"_type,omitempty"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
	// Timestamp is Unix seconds; 0 means now.
	Timestamp int64 `json:"tst,omitempty"`
	// Accuracy is in metres.
	Accuracy float64 `json:"acc,omitempty"`
}

// FixResponse reports how many fixes were queued.
type FixResponse struct {
	Accepted int `json:"accepted"`
}

func decodeFixRequests(body []byte) ([]FixRequest, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if body[0] == '[' {
		var reqs []FixRequest
		if err := json.Unmarshal(body, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}
	var req FixRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return []FixRequest{req}, nil
}

func (s *Server) postFixes(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxFixBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reqs, err := decodeFixRequests(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid fix: %v", err))
	}

	fixes := make([]location.Fix, 0, len(reqs))
	for i, r := range reqs {
		if r.Type != "" && r.Type != "location" {
			continue
		}
		if r.Latitude == nil || r.Longitude == nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("fix %d: lat and lon are required", i))
		}
		f := location.Fix{Latitude: *r.Latitude, Longitude: *r.Longitude, Accuracy: r.Accuracy}
		if r.Timestamp > 0 {
			f.Time = time.Unix(r.Timestamp, 0)
		}
		fixes = append(fixes, f)
	}

	if len(fixes) > 0 {
		if err := s.sink.Submit(fixes...); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusAccepted, FixResponse{Accepted: len(fixes)})
}
