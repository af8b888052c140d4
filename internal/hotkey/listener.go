package hotkey

import (
	"context"
	"fmt"

	hook "github.com/robotn/gohook"
)

// Handler receives Start and Stop transitions. It is called on the
// listener goroutine and should return quickly.
type Handler func(Event)

// Listener reads the global keyboard hook and feeds a Tracker.
type Listener struct {
	tracker *Tracker
	handler Handler
	debug   bool

	start func() chan hook.Event
	end   func()
	names map[uint16]string
}

func NewListener(t *Tracker, h Handler, debug bool) *Listener {
	return &Listener{
		tracker: t,
		handler: h,
		debug:   debug,
		start:   hook.Start,
		end:     hook.End,
		names:   keycodeNames(hook.Keycode),
	}
}

// Run blocks until ctx is cancelled or the hook channel closes. If the
// hook closes mid-hold the handler gets a final Stop.
func (l *Listener) Run(ctx context.Context) error {
	evChan := l.start()
	defer l.end()
	defer l.tracker.Reset()

	if l.debug {
		fmt.Printf("[hotkey] listening for %s\n", l.tracker.Combination())
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-evChan:
			if !ok {
				if l.tracker.Active() && l.handler != nil {
					l.handler(Stop)
				}
				return fmt.Errorf("keyboard hook closed")
			}
			l.dispatch(ev)
		}
	}
}

func (l *Listener) dispatch(ev hook.Event) {
	var out Event
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		name := l.keyName(ev)
		if name == "" {
			return
		}
		out = l.tracker.Press(name)
	case hook.KeyUp:
		name := l.keyName(ev)
		if name == "" {
			return
		}
		out = l.tracker.Release(name)
	default:
		return
	}
	if out == None {
		return
	}
	if l.debug {
		fmt.Printf("[hotkey] %s (%s)\n", out, l.tracker.Combination())
	}
	if l.handler != nil {
		l.handler(out)
	}
}

func (l *Listener) keyName(ev hook.Event) string {
	if n, ok := l.names[ev.Keycode]; ok {
		return n
	}
	if ev.Keychar > 0 && ev.Keychar < 128 {
		return NormalizeKey(string(ev.Keychar))
	}
	return ""
}

// keycodeNames inverts the hook's name table into canonical names.
func keycodeNames(table map[string]uint16) map[uint16]string {
	out := make(map[uint16]string, len(table))
	for name, code := range table {
		n := NormalizeKey(name)
		if n == "" {
			continue
		}
		if prev, ok := out[code]; ok && prev <= n {
			continue
		}
		out[code] = n
	}
	return out
}
