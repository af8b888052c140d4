// Package notify reports recording progress to the user.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gen2brain/beeep"
)

// State is the user-visible phase of the dictation cycle.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	}
	return "idle"
}

// Indicator receives lifecycle events. Implementations must be safe for
// concurrent use; events arrive from the session and its worker.
type Indicator interface {
	StateChanged(s State)
	// RecordingStopped fires once the input stream has been closed.
	RecordingStopped()
	Tick(elapsed time.Duration)
	Transcript(text string, audio time.Duration)
	Error(stage string, err error)
}

// FormatElapsed renders a recording timer as mm:ss.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Console writes bracket-prefixed lines.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	ticks bool
}

// NewConsole prints timer ticks only when ticks is set.
func NewConsole(w io.Writer, ticks bool) *Console {
	return &Console{w: w, ticks: ticks}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	fmt.Fprintf(c.w, format, args...)
	c.mu.Unlock()
}

func (c *Console) StateChanged(s State) { c.printf("[session] %s\n", s) }

func (c *Console) RecordingStopped() {
	if c.ticks {
		c.printf("[session] microphone closed\n")
	}
}

func (c *Console) Tick(elapsed time.Duration) {
	if c.ticks {
		c.printf("[session] recording %s\n", FormatElapsed(elapsed))
	}
}

func (c *Console) Transcript(text string, audio time.Duration) {
	c.printf("[transcript] (%.1fs) %s\n", audio.Seconds(), text)
}

func (c *Console) Error(stage string, err error) {
	c.printf("[error] %s: %v\n", stage, err)
}

const (
	appName       = "Hold-To-Speak"
	beepFrequency = 200
	beepMillis    = 100
	maxNoteRunes  = 200
)

// Desktop shows system notifications and beeps when recording stops.
type Desktop struct {
	notifications bool
	sound         bool

	notifyFn func(title, message string) error
	beepFn   func(freq float64, millis int) error
}

func NewDesktop(notifications, sound bool) *Desktop {
	return &Desktop{
		notifications: notifications,
		sound:         sound,
		notifyFn:      func(title, message string) error { return beeep.Notify(title, message, "") },
		beepFn:        beeep.Beep,
	}
}

func (d *Desktop) StateChanged(State) {}

func (d *Desktop) RecordingStopped() {
	if !d.sound {
		return
	}
	if err := d.beepFn(beepFrequency, beepMillis); err != nil {
		fmt.Printf("[notify] beep failed: %v\n", err)
	}
}

func (d *Desktop) Tick(time.Duration) {}

func (d *Desktop) Transcript(text string, audio time.Duration) {
	d.show(appName, truncate(text, maxNoteRunes))
}

func (d *Desktop) Error(stage string, err error) {
	d.show(appName+" error", fmt.Sprintf("%s: %v", stage, err))
}

func (d *Desktop) show(title, message string) {
	if !d.notifications {
		return
	}
	if err := d.notifyFn(title, message); err != nil {
		fmt.Printf("[notify] notification failed: %v\n", err)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// Multi fans every event out to several indicators.
type Multi []Indicator

// NewMulti drops nil entries.
func NewMulti(ins ...Indicator) Multi {
	out := make(Multi, 0, len(ins))
	for _, in := range ins {
		if in != nil {
			out = append(out, in)
		}
	}
	return out
}

func (m Multi) StateChanged(s State) {
	for _, in := range m {
		in.StateChanged(s)
	}
}

func (m Multi) RecordingStopped() {
	for _, in := range m {
		in.RecordingStopped()
	}
}

func (m Multi) Tick(elapsed time.Duration) {
	for _, in := range m {
		in.Tick(elapsed)
	}
}

func (m Multi) Transcript(text string, audio time.Duration) {
	for _, in := range m {
		in.Transcript(text, audio)
	}
}

func (m Multi) Error(stage string, err error) {
	for _, in := range m {
		in.Error(stage, err)
	}
}
