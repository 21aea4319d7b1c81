// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for samples, fixes, and tracking status

package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harper/tracker/internal/models"
	"github.com/harper/tracker/internal/notify"
	"github.com/harper/tracker/internal/tracker"
)

// EmptyListHint is printed when there are no samples to show.
const EmptyListHint = "No locations recorded yet. Run 'tracker start' to begin tracking."

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatSample formats one list row: "Lat: <lat>, Lng: <lng>" and how long ago.
func FormatSample(s *models.Sample) string {
	if s == nil {
		return color.New(color.Faint).Sprint("(no location)")
	}
	text := fmt.Sprintf("Lat: %s, Lng: %s", coord(s.Latitude), coord(s.Longitude))
	return fmt.Sprintf("%s - %s",
		color.CyanString(text),
		color.New(color.Faint).Sprint(FormatRelativeTime(s.Time())))
}

// FormatSampleList renders samples one per line in the order given, or the
// empty hint.
func FormatSampleList(samples []*models.Sample) string {
	if len(samples) == 0 {
		return color.New(color.Faint).Sprint(EmptyListHint)
	}
	lines := make([]string, len(samples))
	for i, s := range samples {
		lines[i] = FormatSample(s)
	}
	return strings.Join(lines, "\n")
}

// FormatLocation formats a single fetched location.
func FormatLocation(lat, lng float64) string {
	return notify.LocationText(lat, lng)
}

// FormatStatus summarizes the tracking service state.
func FormatStatus(st tracker.Status) string {
	var b strings.Builder
	if st.Running {
		fmt.Fprintf(&b, "%s", color.GreenString("● tracking"))
		if st.StartedAt != nil {
			fmt.Fprintf(&b, " since %s", st.StartedAt.Format("Jan 2, 3:04 PM"))
		}
	} else {
		fmt.Fprintf(&b, "%s", color.New(color.Faint).Sprint("○ stopped"))
	}
	fmt.Fprintf(&b, "\n  recorded: %d", st.Recorded)
	if st.Errors > 0 {
		fmt.Fprintf(&b, "  %s", color.RedString("errors: %d", st.Errors))
	}
	if st.LastFix != nil {
		fmt.Fprintf(&b, "\n  last: %s (%s)",
			FormatLocation(st.LastFix.Latitude, st.LastFix.Longitude),
			FormatRelativeTime(st.LastFix.Time))
	}
	return b.String()
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
