package watcher

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// levelRank orders alert levels for MinLevel filtering.
var levelRank = map[string]int{LevelInfo: 0, LevelWarning: 1, LevelCritical: 2}

// Notifier sends desktop notifications for alerts at or above MinLevel.
// On macOS it uses osascript, on Linux notify-send. When neither works the
// alert is written to Fallback.
type Notifier struct {
	MinLevel string
	Fallback io.Writer

	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args ...string) error
}

// NewNotifier returns a Notifier for the current platform.
func NewNotifier(minLevel string, fallback io.Writer) *Notifier {
	return &Notifier{
		MinLevel: minLevel,
		Fallback: fallback,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Notify delivers a. Alerts below MinLevel are dropped.
func (n *Notifier) Notify(a Alert) error {
	if levelRank[a.Level] < levelRank[n.MinLevel] {
		return nil
	}
	switch n.goos {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title "hourwatch" subtitle %q`, a.Message, a.Title)
		if err := n.run("osascript", "-e", script); err == nil {
			return nil
		}
	case "linux":
		if _, err := n.lookPath("notify-send"); err == nil {
			if err := n.run("notify-send", "hourwatch: "+a.Title, a.Message); err == nil {
				return nil
			}
		}
	}
	return n.fallback(a)
}

func (n *Notifier) fallback(a Alert) error {
	if n.Fallback == nil {
		return nil
	}
	_, err := fmt.Fprintf(n.Fallback, "[%s] %s: %s\n", a.Level, a.Title, a.Message)
	return err
}
