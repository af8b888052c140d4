// Package clipboard hands a transcript to the focused application.
package clipboard

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// ErrPaste means the text was copied but the paste keystroke failed.
var ErrPaste = errors.New("paste keystroke failed")

const (
	pasteDelay   = 100 * time.Millisecond
	restoreDelay = 120 * time.Millisecond
)

// Paster copies text and optionally pastes it with Ctrl+V.
type Paster struct {
	autoPaste bool
	restore   bool

	read  func() (string, error)
	write func(string) error
	keys  func() error
	sleep func(time.Duration)

	mu sync.Mutex
	kb *keybd_event.KeyBonding
}

func New(autoPaste, restore bool) *Paster {
	p := &Paster{
		autoPaste: autoPaste,
		restore:   restore,
		read:      clipboard.ReadAll,
		write:     clipboard.WriteAll,
		sleep:     time.Sleep,
	}
	p.keys = p.ctrlV
	return p
}

// Deliver copies text to the clipboard and, with auto-paste on, pastes it.
// With restore on, the previous clipboard contents come back after a paste.
func (p *Paster) Deliver(text string) error {
	var prev string
	var hadPrev bool
	if p.autoPaste && p.restore {
		if s, err := p.read(); err == nil {
			prev, hadPrev = s, true
		}
	}

	if err := p.write(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	if !p.autoPaste {
		return nil
	}

	p.sleep(pasteDelay)
	if err := p.keys(); err != nil {
		return fmt.Errorf("%w: %v", ErrPaste, err)
	}
	if hadPrev {
		p.sleep(restoreDelay)
		_ = p.write(prev)
	}
	return nil
}

func (p *Paster) ctrlV() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.kb == nil {
		kb, err := keybd_event.NewKeyBonding()
		if err != nil {
			return err
		}
		// the virtual uinput device needs time to register
		if runtime.GOOS == "linux" {
			time.Sleep(2 * time.Second)
		}
		p.kb = &kb
	}
	p.kb.Clear()
	p.kb.HasCTRL(true)
	p.kb.SetKeys(keybd_event.VK_V)
	return p.kb.Launching()
}
