package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/hotkey"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/notify"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/session"
)

// combinationHolder is the hotkey tracker as seen by the command loop.
type combinationHolder interface {
	Combination() hotkey.Combination
	SetCombination(c hotkey.Combination)
}

// runCommands reads one command per line until r is exhausted or ctx ends.
// "quit" calls quit; end of input does not.
func runCommands(ctx context.Context, r io.Reader, w io.Writer, ctl recordingController, keys combinationHolder, quit func()) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !execCommand(ctx, strings.TrimSpace(line), w, ctl, keys) {
				quit()
				return
			}
		}
	}
}

// execCommand runs one command and reports whether to keep reading.
func execCommand(ctx context.Context, cmd string, w io.Writer, ctl recordingController, keys combinationHolder) bool {
	name, arg := cmd, ""
	if i := strings.IndexAny(cmd, " \t"); i >= 0 {
		name, arg = cmd[:i], strings.TrimSpace(cmd[i+1:])
	}
	switch strings.ToLower(name) {
	case "":
	case "toggle", "t":
		if err := ctl.Toggle(ctx); err != nil {
			fmt.Fprintf(w, "[cmd] toggle: %v\n", err)
		}
	case "cancel", "c":
		if err := ctl.Cancel(); err != nil {
			if errors.Is(err, session.ErrNotRecording) {
				fmt.Fprintln(w, "[cmd] not recording; nothing to cancel")
			} else {
				fmt.Fprintf(w, "[cmd] cancel: %v\n", err)
			}
		}
	case "status", "s":
		st := ctl.Status()
		if st.State == session.Recording {
			fmt.Fprintf(w, "[cmd] state=%s elapsed=%s queued=%d\n", st.State, notify.FormatElapsed(st.Elapsed), st.Queued)
		} else {
			fmt.Fprintf(w, "[cmd] state=%s queued=%d\n", st.State, st.Queued)
		}
	case "hotkey", "k":
		setHotkey(w, keys, arg)
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(w, "[cmd] unknown command %q (toggle, cancel, status, hotkey [combo], quit)\n", cmd)
	}
	return true
}

// setHotkey prints the combination, or replaces it when arg is given.
func setHotkey(w io.Writer, keys combinationHolder, arg string) {
	if keys == nil {
		fmt.Fprintln(w, "[cmd] hotkey listener not running")
		return
	}
	if arg == "" {
		fmt.Fprintf(w, "[cmd] hotkey=%s\n", keys.Combination())
		return
	}
	combo, err := hotkey.ParseCombination(arg)
	if err != nil {
		fmt.Fprintf(w, "[cmd] invalid hotkey: %v\n", err)
		return
	}
	keys.SetCombination(combo)
	fmt.Fprintf(w, "[cmd] hotkey set to %s\n", combo)
}
