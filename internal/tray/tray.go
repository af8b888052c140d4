// Package tray shows a text-only system tray menu for the dictation session.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/getlantern/systray"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/notify"
)

const (
	appTitle      = "Hold-To-Speak"
	maxStatusRune = 48
)

// Actions are invoked from menu clicks.
type Actions struct {
	Toggle func()
	Quit   func()
}

// surface is the part of the tray the indicator writes to.
type surface interface {
	SetTitle(string)
	SetTooltip(string)
	SetStatus(string)
	SetToggleLabel(string)
}

// Tray is a notify.Indicator backed by the system tray. Events that
// arrive before the tray is ready are dropped.
type Tray struct {
	actions Actions
	hotkey  string

	mu  sync.Mutex
	ui  surface
	rec bool
}

func New(hotkey string, actions Actions) *Tray {
	return &Tray{hotkey: hotkey, actions: actions}
}

// Run blocks on the tray event loop until Quit is clicked or ctx ends.
// On macOS it must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	status := systray.AddMenuItem("Idle", "Last event")
	status.Disable()
	systray.AddSeparator()
	toggle := systray.AddMenuItem("Start recording", "Start or stop a recording")
	quit := systray.AddMenuItem("Quit", "Quit the application")

	t.attach(&systraySurface{status: status, toggle: toggle})

	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				t.clickToggle()
			case <-quit.ClickedCh:
				t.clickQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	t.ui = nil
	t.mu.Unlock()
}

func (t *Tray) attach(ui surface) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ui = ui
	ui.SetTitle(appTitle)
	ui.SetTooltip(fmt.Sprintf("Hold %s to dictate", t.hotkey))
}

func (t *Tray) clickToggle() {
	if t.actions.Toggle != nil {
		go t.actions.Toggle()
	}
}

func (t *Tray) clickQuit() {
	if t.actions.Quit != nil {
		t.actions.Quit()
	}
	systray.Quit()
}

func (t *Tray) with(fn func(ui surface)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ui != nil {
		fn(t.ui)
	}
}

func (t *Tray) StateChanged(s notify.State) {
	t.with(func(ui surface) {
		t.rec = s == notify.Recording
		switch s {
		case notify.Recording:
			ui.SetTitle("● REC")
			ui.SetToggleLabel("Stop recording")
			ui.SetStatus("Recording")
		case notify.Processing:
			ui.SetTitle("… " + appTitle)
			ui.SetToggleLabel("Start recording")
			ui.SetStatus("Transcribing")
		default:
			ui.SetTitle(appTitle)
			ui.SetToggleLabel("Start recording")
			ui.SetTooltip(fmt.Sprintf("Hold %s to dictate", t.hotkey))
		}
	})
}

func (t *Tray) RecordingStopped() {}

func (t *Tray) Tick(elapsed time.Duration) {
	t.with(func(ui surface) {
		if t.rec {
			ui.SetTooltip("Recording " + notify.FormatElapsed(elapsed))
		}
	})
}

func (t *Tray) Transcript(text string, _ time.Duration) {
	t.with(func(ui surface) { ui.SetStatus("Last: " + shorten(text)) })
}

func (t *Tray) Error(stage string, err error) {
	t.with(func(ui surface) { ui.SetStatus(shorten(fmt.Sprintf("Error (%s): %v", stage, err))) })
}

func shorten(s string) string {
	if utf8.RuneCountInString(s) <= maxStatusRune {
		return s
	}
	return string([]rune(s)[:maxStatusRune]) + "…"
}

type systraySurface struct {
	status *systray.MenuItem
	toggle *systray.MenuItem
}

func (s *systraySurface) SetTitle(v string)       { systray.SetTitle(v) }
func (s *systraySurface) SetTooltip(v string)     { systray.SetTooltip(v) }
func (s *systraySurface) SetStatus(v string)      { s.status.SetTitle(v) }
func (s *systraySurface) SetToggleLabel(v string) { s.toggle.SetTitle(v) }
