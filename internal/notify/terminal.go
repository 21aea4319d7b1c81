// ABOUTME: Terminal notifier
// ABOUTME: Prints colored status lines for foreground runs

package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Terminal writes one status line per notification change.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal writes to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) print(marker string, n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := fmt.Sprintf("%s %s", marker, color.CyanString(n.Title))
	if n.Text != "" {
		line += " " + n.Text
	}
	if !n.At.IsZero() {
		line += " " + color.New(color.Faint).Sprint(n.At.Format("15:04:05"))
	}
	_, err := fmt.Fprintln(t.out, line)
	return err
}

// Show implements Notifier.
func (t *Terminal) Show(_ context.Context, n Notification) error {
	return t.print(color.GreenString("●"), n)
}

// Update implements Notifier.
func (t *Terminal) Update(_ context.Context, n Notification) error {
	return t.print(color.BlueString("↻"), n)
}

// Remove implements Notifier.
func (t *Terminal) Remove(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.out, color.New(color.Faint).Sprint("○ tracking stopped"))
	return err
}
