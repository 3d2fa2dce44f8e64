package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Level classifies a user-facing notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelLoading Level = "loading"
)

// Notifier shows short, non-blocking messages to the user. Loading notices
// stay up until the returned dismiss func is called; other levels return
// a no-op. Dismiss funcs are safe to call more than once.
type Notifier interface {
	Notify(level Level, msg string) (dismiss func())
}

// Notice is one notification as written in JSON mode or kept by a Recorder.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Done    bool      `json:"done,omitempty"`
	Time    time.Time `json:"time"`
}

var prefixes = map[Level]string{
	LevelInfo:    "ℹ️  ",
	LevelSuccess: "✅ ",
	LevelWarn:    "⚠️  ",
	LevelError:   "❌ ",
	LevelLoading: "⏳ ",
}

// Console writes notifications to a terminal or, in JSON mode, as one JSON
// object per line. Warnings and errors go to errW.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errW   io.Writer
	format Format
	now    func() time.Time
}

// NewConsole creates a console notifier.
func NewConsole(out, errW io.Writer, format Format) *Console {
	return &Console{out: out, errW: errW, format: format, now: time.Now}
}

// Notify implements Notifier.
func (c *Console) Notify(level Level, msg string) func() {
	c.write(Notice{Level: level, Message: msg})
	if level != LevelLoading {
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if c.format == FormatJSON {
				c.write(Notice{Level: level, Message: msg, Done: true})
			}
		})
	}
}

func (c *Console) write(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.out
	if n.Level == LevelWarn || n.Level == LevelError {
		w = c.errW
	}

	if c.format == FormatJSON {
		n.Time = c.now().UTC()
		_ = WriteJSONLine(w, n)
		return
	}
	_, _ = fmt.Fprintln(w, prefixes[n.Level]+n.Message)
}

// Recorder is an in-memory Notifier.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(level Level, msg string) func() {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg, Time: time.Now()})
	r.mu.Unlock()

	if level != LevelLoading {
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.notices = append(r.notices, Notice{Level: level, Message: msg, Done: true, Time: time.Now()})
			r.mu.Unlock()
		})
	}
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Count returns how many notices of the given level were recorded, ignoring
// loading dismissals.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Level == level && !notice.Done {
			n++
		}
	}
	return n
}

// Messages returns the recorded messages of the given level, ignoring
// loading dismissals.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, notice := range r.notices {
		if notice.Level == level && !notice.Done {
			out = append(out, notice.Message)
		}
	}
	return out
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Level, string) func() { return func() {} }
