package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/history"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/record"
)

const recentShown = 5

// PrintStats writes usage statistics and the latest transcripts.
func PrintStats(ctx context.Context, cfg config.Config, w io.Writer) error {
	store, err := history.Open(ctx, cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if !store.Enabled() {
		fmt.Fprintln(w, "[stats] history is disabled (HISTORY_PATH is empty)")
		return nil
	}

	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "[stats] recordings:        %d\n", st.TotalRecordings)
	fmt.Fprintf(w, "[stats] recorded time:     %s\n", formatMinutes(time.Duration(st.TotalSeconds*float64(time.Second))))
	fmt.Fprintf(w, "[stats] characters:        %d\n", st.TotalCharacters)
	fmt.Fprintf(w, "[stats] api calls:         %d\n", st.APICalls)
	fmt.Fprintf(w, "[stats] time saved:        %s\n", formatMinutes(st.TimeSaved()))
	if st.LastUsed.IsZero() {
		fmt.Fprintln(w, "[stats] last used:         never")
	} else {
		fmt.Fprintf(w, "[stats] last used:         %s\n", st.LastUsed.Local().Format("2006-01-02 15:04:05"))
	}

	recent, err := store.Recent(ctx, recentShown)
	if err != nil {
		return err
	}
	for _, e := range recent {
		fmt.Fprintf(w, "[recent] %s %s (%.1fs) %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Provider, e.Duration.Seconds(), e.Text)
	}
	return nil
}

// ClearStats deletes every stored entry.
func ClearStats(ctx context.Context, cfg config.Config, w io.Writer) error {
	store, err := history.Open(ctx, cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if !store.Enabled() {
		fmt.Fprintln(w, "[stats] history is disabled (HISTORY_PATH is empty)")
		return nil
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "[stats] statistics cleared")
	return nil
}

// PrintDevices lists the input devices PortAudio can open.
func PrintDevices(w io.Writer) error {
	devs, err := record.ListDevices()
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		fmt.Fprintln(w, "[devices] no input devices found")
		return nil
	}
	for _, d := range devs {
		def := ""
		if d.Default {
			def = " (default)"
		}
		fmt.Fprintf(w, "[devices] %d: %s channels=%d%s\n", d.Index, d.Name, d.InputChannels, def)
	}
	return nil
}

// formatMinutes renders a duration as signed minutes and seconds.
func formatMinutes(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	secs := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%s%dm %02ds", sign, secs/60, secs%60)
}
