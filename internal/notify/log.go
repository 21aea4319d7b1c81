// ABOUTME: Logging notifier
// ABOUTME: Emits notification changes as structured log records

package notify

import (
	"context"

	"github.com/charmbracelet/log"
)

// Log reports notification changes through a logger.
type Log struct {
	logger *log.Logger
}

// NewLog wraps logger.
func NewLog(logger *log.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) keyvals(n Notification) []interface{} {
	kv := []interface{}{"title", n.Title}
	if n.Latitude != nil && n.Longitude != nil {
		kv = append(kv, "lat", *n.Latitude, "lng", *n.Longitude)
	}
	return kv
}

// Show implements Notifier.
func (l *Log) Show(_ context.Context, n Notification) error {
	l.logger.Info("notification shown", l.keyvals(n)...)
	return nil
}

// Update implements Notifier.
func (l *Log) Update(_ context.Context, n Notification) error {
	l.logger.Info(n.Text, l.keyvals(n)...)
	return nil
}

// Remove implements Notifier.
func (l *Log) Remove(_ context.Context) error {
	l.logger.Info("notification removed")
	return nil
}
