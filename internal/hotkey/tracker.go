package hotkey

import "sync"

// Event is what a key transition means for the recording lifecycle.
type Event int

const (
	None Event = iota
	Start
	Stop
)

func (e Event) String() string {
	switch e {
	case Start:
		return "start"
	case Stop:
		return "stop"
	}
	return "none"
}

// Tracker follows which keys are held and reports when the combination
// becomes fully held or is broken.
type Tracker struct {
	mu      sync.Mutex
	combo   Combination
	pressed map[string]bool
	active  bool
}

func NewTracker(c Combination) *Tracker {
	return &Tracker{combo: c, pressed: make(map[string]bool)}
}

// Press marks key as held. It returns Start the first time the whole
// combination is down while the tracker is inactive. Keys outside the
// combination are not tracked.
func (t *Tracker) Press(key string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.combo.Contains(key) {
		return None
	}
	t.pressed[key] = true
	if !t.active && t.held() {
		t.active = true
		return Start
	}
	return None
}

// Release marks key as up. It returns Stop when an active combination is broken.
func (t *Tracker) Release(key string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pressed, key)
	if t.active && !t.held() {
		t.active = false
		return Stop
	}
	return None
}

// SetCombination swaps the combination and forgets held keys. An active
// hold stays active until its next key release.
func (t *Tracker) SetCombination(c Combination) {
	t.mu.Lock()
	t.combo = c
	t.pressed = make(map[string]bool)
	t.mu.Unlock()
}

// Reset forgets held keys and the active hold without emitting Stop.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.pressed = make(map[string]bool)
	t.active = false
	t.mu.Unlock()
}

func (t *Tracker) Combination() Combination {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.combo
}

// Active reports whether the combination is currently considered held.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Tracker) held() bool {
	if len(t.combo) == 0 {
		return false
	}
	for _, k := range t.combo {
		if !t.pressed[k] {
			return false
		}
	}
	return true
}
