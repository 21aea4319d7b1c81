// ABOUTME: Persistent status surface for the tracking service
// ABOUTME: Defines the notification payload and the Notifier interface

package notify

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Title is shown on every tracking notification.
const Title = "Location Tracker"

// Notification is the current content of the status surface.
type Notification struct {
	Title     string    `json:"title"`
	Text      string    `json:"text,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	At        time.Time `json:"at"`
}

// Started is the notification shown before the first fix arrives.
func Started(at time.Time) Notification {
	return Notification{Title: Title, At: at}
}

// ForLocation is the notification shown after each recorded fix.
func ForLocation(lat, lng float64, at time.Time) Notification {
	return Notification{
		Title:     Title,
		Text:      LocationText(lat, lng),
		Latitude:  &lat,
		Longitude: &lng,
		At:        at,
	}
}

// LocationText renders coordinates as "Location: <lat> / <lng>".
func LocationText(lat, lng float64) string {
	return "Location: " + formatCoord(lat) + " / " + formatCoord(lng)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Notifier shows, refreshes and removes the tracking notification.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Update(ctx context.Context, n Notification) error
	Remove(ctx context.Context) error
}

// Multi fans every call out to all notifiers and joins their errors.
type Multi []Notifier

// Show implements Notifier.
func (m Multi) Show(ctx context.Context, n Notification) error {
	var errs []error
	for _, x := range m {
		errs = append(errs, x.Show(ctx, n))
	}
	return errors.Join(errs...)
}

// Update implements Notifier.
func (m Multi) Update(ctx context.Context, n Notification) error {
	var errs []error
	for _, x := range m {
		errs = append(errs, x.Update(ctx, n))
	}
	return errors.Join(errs...)
}

// Remove implements Notifier.
func (m Multi) Remove(ctx context.Context) error {
	var errs []error
	for _, x := range m {
		errs = append(errs, x.Remove(ctx))
	}
	return errors.Join(errs...)
}

// Nop discards everything.
type Nop struct{}

// Show does nothing.
func (Nop) Show(context.Context, Notification) error { return nil }

// Update does nothing.
func (Nop) Update(context.Context, Notification) error { return nil }

// Remove does nothing.
func (Nop) Remove(context.Context) error { return nil }
