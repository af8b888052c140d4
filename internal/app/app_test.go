package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/history"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/hotkey"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/session"
)

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	startErr error
	stopErr  error
	status   session.Status
}

func (f *fakeController) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeController) Start(context.Context) error  { f.record("start"); return f.startErr }
func (f *fakeController) Stop(context.Context) error   { f.record("stop"); return f.stopErr }
func (f *fakeController) Toggle(context.Context) error { f.record("toggle"); return nil }
func (f *fakeController) Cancel() error                { f.record("cancel"); return session.ErrNotRecording }
func (f *fakeController) Status() session.Status       { return f.status }

func TestRunCommands(t *testing.T) {
	ctl := &fakeController{status: session.Status{State: session.Recording, Elapsed: 75 * time.Second, Queued: 2}}
	var out strings.Builder
	quit := false

	in := strings.NewReader("toggle\n\n  STATUS \ncancel\nbogus\nquit\ntoggle\n")
	runCommands(context.Background(), in, &out, ctl, nil, func() { quit = true })

	require.True(t, quit)
	require.Equal(t, []string{"toggle", "cancel"}, ctl.calls)
	text := out.String()
	require.Contains(t, text, "[cmd] state=recording elapsed=01:15 queued=2")
	require.Contains(t, text, "[cmd] not recording; nothing to cancel")
	require.Contains(t, text, `unknown command "bogus"`)
}

func TestRunCommandsEOFDoesNotQuit(t *testing.T) {
	ctl := &fakeController{}
	quit := false
	runCommands(context.Background(), strings.NewReader("toggle\n"), &strings.Builder{}, ctl, nil, func() { quit = true })
	require.False(t, quit)
	require.Equal(t, []string{"toggle"}, ctl.calls)
}

func TestHotkeyCommandSwapsCombination(t *testing.T) {
	tr := hotkey.NewTracker(hotkey.Combination{"ctrl", "shift"})
	var out strings.Builder
	in := strings.NewReader("hotkey\nhotkey Alt + Space\nk ctrl+hyper\nhotkey\n")
	runCommands(context.Background(), in, &out, &fakeController{}, tr, func() {})

	require.Equal(t, "alt+space", tr.Combination().String())
	require.Equal(t, hotkey.None, tr.Press("alt"))
	require.Equal(t, hotkey.Start, tr.Press("space"))
	text := out.String()
	require.Contains(t, text, "[cmd] hotkey=ctrl+shift\n")
	require.Contains(t, text, "[cmd] hotkey set to alt+space\n")
	require.Contains(t, text, "[cmd] invalid hotkey:")
	require.Contains(t, text, "[cmd] hotkey=alt+space\n")

	out.Reset()
	runCommands(context.Background(), strings.NewReader("hotkey a\n"), &out, &fakeController{}, nil, func() {})
	require.Contains(t, out.String(), "not running")
}

func TestHandleHotkey(t *testing.T) {
	ctl := &fakeController{startErr: session.ErrAlreadyRecording, stopErr: session.ErrNotRecording}
	handleHotkey(context.Background(), ctl, hotkey.Start, false)
	handleHotkey(context.Background(), ctl, hotkey.Stop, false)
	handleHotkey(context.Background(), ctl, hotkey.None, false)
	require.Equal(t, []string{"start", "stop"}, ctl.calls)
}

func TestFileCacheKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "RecordTemp_a.wav")
	ogg := filepath.Join(dir, "RecordTemp_a.ogg")
	require.NoError(t, os.WriteFile(wav, []byte("w"), 0o600))
	require.NoError(t, os.WriteFile(ogg, []byte("o"), 0o600))

	cacheDir := filepath.Join(dir, "cache")
	require.NoError(t, os.Mkdir(cacheDir, 0o755))
	cfg := config.DefaultConfig()
	cfg.KeepCache = true
	cfg.CacheDir = cacheDir
	c := newFileCache(cfg)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC) }

	c.Store(wav, ogg, []byte(`{"text":"hi"}`), true)

	base := filepath.Join(cacheDir, "audio-2026-01-02-03.04.05.006")
	for _, ext := range []string{".wav", ".ogg", ".json"} {
		_, err := os.Stat(base + ext)
		require.NoError(t, err, ext)
	}
	_, err := os.Stat(wav)
	require.True(t, os.IsNotExist(err))
}

func TestFileCacheRemovesWithoutKeep(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "RecordTemp_b.wav")
	require.NoError(t, os.WriteFile(wav, []byte("w"), 0o600))

	cfg := config.DefaultConfig()
	cfg.KeepCache = true
	cfg.CacheDir = ""
	newFileCache(cfg).Store(wav, "", []byte("{}"), true)

	_, err := os.Stat(wav)
	require.True(t, os.IsNotExist(err))
}

func TestCleanupOldTempFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"RecordTemp_1.wav", "RecordTemp_2.ogg", "keep.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	cleanupOldTempFiles(dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "keep.wav", entries[0].Name())

	p := tempOutputPath(dir, "ogg")
	require.True(t, strings.HasPrefix(filepath.Base(p), "RecordTemp_"))
	require.True(t, strings.HasSuffix(p, ".ogg"))
	require.Len(t, strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), "RecordTemp_"), ".ogg"), 16)
}

func TestRunFileModeWritesTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"from file"}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "memo.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0o600))
	output := filepath.Join(dir, "memo.txt")

	cfg := config.DefaultConfig()
	cfg.Provider = config.ProviderDeepInfra
	cfg.DeepInfraKey = "k"
	cfg.DeepInfraEndpoint = server.URL
	cfg.CacheDir = dir
	cfg.RetryBaseDelay = 0

	require.NoError(t, RunFileMode(context.Background(), cfg, input, output))
	b, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "from file", string(b))

	_, err = os.Stat(input)
	require.NoError(t, err, "input must survive when no conversion happens")
}

func TestRunFileModeUploadFailureExitCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	dir := t.TempDir()
	input := filepath.Join(dir, "memo.wav")
	require.NoError(t, os.WriteFile(input, []byte("RIFF"), 0o600))

	cfg := config.DefaultConfig()
	cfg.Provider = config.ProviderDeepInfra
	cfg.DeepInfraKey = "k"
	cfg.DeepInfraEndpoint = server.URL
	cfg.CacheDir = dir
	cfg.MaxRetry = 1

	err := RunFileMode(context.Background(), cfg, input, filepath.Join(dir, "out.txt"))
	require.Error(t, err)
	require.Equal(t, ExitUpload, ExitCode(err))

	err = RunFileMode(context.Background(), cfg, filepath.Join(dir, "missing.wav"), "")
	require.Equal(t, ExitConfig, ExitCode(err))
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, ExitConvert, ExitCode(&ExitError{Code: ExitConvert, Err: errors.New("x")}))
}

func TestPrintAndClearStats(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.HistoryPath = filepath.Join(t.TempDir(), "stats.db")

	store, err := history.Open(ctx, cfg.HistoryPath)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, history.Entry{Provider: "openai", Duration: 30 * time.Second, Characters: 400, Text: "hello"}))
	require.NoError(t, store.Close())

	var out strings.Builder
	require.NoError(t, PrintStats(ctx, cfg, &out))
	text := out.String()
	require.Contains(t, text, "[stats] recordings:        1")
	require.Contains(t, text, "[stats] time saved:        1m 30s")
	require.Contains(t, text, "openai (30.0s) hello")

	out.Reset()
	require.NoError(t, ClearStats(ctx, cfg, &out))
	out.Reset()
	require.NoError(t, PrintStats(ctx, cfg, &out))
	require.Contains(t, out.String(), "[stats] recordings:        0")
	require.Contains(t, out.String(), "never")

	cfg.HistoryPath = ""
	out.Reset()
	require.NoError(t, PrintStats(ctx, cfg, &out))
	require.Contains(t, out.String(), "disabled")
}

func TestFormatMinutes(t *testing.T) {
	require.Equal(t, "2m 05s", formatMinutes(125*time.Second))
	require.Equal(t, "-1m 30s", formatMinutes(-90*time.Second))
}

func TestNewHTTPClient(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VerifySSL = false
	cfg.RequestTimeout = 7
	c := newHTTPClient(cfg)
	require.Equal(t, 7*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	require.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}
