package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConsoleLines(t *testing.T) {
	var b strings.Builder
	c := NewConsole(&b, false)
	c.StateChanged(Recording)
	c.Tick(3 * time.Second)
	c.RecordingStopped()
	c.Transcript("hello", 2500*time.Millisecond)
	c.Error("upload", errors.New("timeout"))

	want := "[session] recording\n[transcript] (2.5s) hello\n[error] upload: timeout\n"
	require.Equal(t, want, b.String())

	b.Reset()
	verbose := NewConsole(&b, true)
	verbose.Tick(75 * time.Second)
	verbose.RecordingStopped()
	require.Equal(t, "[session] recording 01:15\n[session] microphone closed\n", b.String())
}

func TestDesktopBeepsWhenRecordingStops(t *testing.T) {
	d := NewDesktop(true, true)
	var beeps []float64
	var notes []string
	d.beepFn = func(freq float64, millis int) error {
		beeps = append(beeps, freq)
		require.Equal(t, 100, millis)
		return nil
	}
	d.notifyFn = func(title, message string) error {
		notes = append(notes, title+"|"+message)
		return nil
	}

	d.StateChanged(Recording)
	d.StateChanged(Processing)
	d.StateChanged(Idle)
	require.Empty(t, beeps)
	d.RecordingStopped()
	require.Equal(t, []float64{200}, beeps)

	d.Transcript(strings.Repeat("ż", 250), time.Second)
	d.Error("paste", errors.New("denied"))
	require.Len(t, notes, 2)
	require.True(t, strings.HasSuffix(notes[0], "..."))
	require.Len(t, []rune(notes[0]), len("Hold-To-Speak|")+200+len("..."))
	require.Equal(t, "Hold-To-Speak error|paste: denied", notes[1])
}

func TestDesktopRespectsSwitches(t *testing.T) {
	d := NewDesktop(false, false)
	d.beepFn = func(float64, int) error {
		t.Fatalf("beep disabled")
		return nil
	}
	d.notifyFn = func(string, string) error {
		t.Fatalf("notifications disabled")
		return nil
	}
	d.RecordingStopped()
	d.Transcript("x", time.Second)
	d.Error("x", errors.New("x"))
}

type recorder struct{ events []string }

func (r *recorder) StateChanged(s State)                 { r.events = append(r.events, s.String()) }
func (r *recorder) RecordingStopped()                    { r.events = append(r.events, "stopped") }
func (r *recorder) Tick(e time.Duration)                 { r.events = append(r.events, FormatElapsed(e)) }
func (r *recorder) Transcript(s string, _ time.Duration) { r.events = append(r.events, s) }
func (r *recorder) Error(stage string, _ error)          { r.events = append(r.events, stage) }

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := NewMulti(a, nil, b)
	require.Len(t, m, 2)

	m.StateChanged(Processing)
	m.RecordingStopped()
	m.Tick(61 * time.Second)
	m.Transcript("hi", 0)
	m.Error("transcribe", nil)

	want := []string{"processing", "stopped", "01:01", "hi", "transcribe"}
	require.Equal(t, want, a.events)
	require.Equal(t, want, b.events)
}
