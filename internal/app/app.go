package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/asr"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/audio/ffmpeg"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/clipboard"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/history"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/hotkey"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/notify"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/record"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/session"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/tray"
)

// Exit codes used by the CLI.
const (
	ExitConfig  = 1
	ExitConvert = 2
	ExitUpload  = 3
)

// ExitError carries the process exit code for a failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a run mode to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitConfig
}

// RunRecordMode listens for the hotkey and runs the dictation loop until
// ctx is cancelled or the user quits.
func RunRecordMode(ctx context.Context, cfg config.Config) error {
	combo, err := hotkey.ParseCombination(cfg.Hotkey)
	if err != nil {
		return err
	}
	tempDir := config.TempDir(&cfg)
	cleanupOldTempFiles(tempDir)

	httpClient := newHTTPClient(cfg)
	defer httpClient.CloseIdleConnections()
	transcriber, err := asr.New(cfg, httpClient)
	if err != nil {
		return err
	}

	hist, err := history.Open(ctx, cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ctl *session.Controller
	indicators := []notify.Indicator{
		notify.NewConsole(os.Stdout, cfg.RECORD_DEBUG),
		notify.NewDesktop(cfg.Notification, cfg.SoundNotification),
	}
	var menu *tray.Tray
	if cfg.Tray {
		menu = tray.New(combo.String(), tray.Actions{
			Toggle: func() { reportToggle(ctl.Toggle(ctx)) },
			Quit:   cancel,
		})
		indicators = append(indicators, menu)
	}

	deps := session.Deps{
		Recorder:    record.New(cfg, tempDir),
		Transcriber: transcriber,
		Deliverer:   clipboard.New(cfg.AutoPaste, cfg.RestoreClipboard),
		History:     hist,
		Cache:       newFileCache(cfg),
		Indicator:   notify.NewMulti(indicators...),
	}
	if config.NeedsTranscode(cfg) {
		deps.Converter = ffmpeg.New(cfg)
	}
	ctl = session.New(ctx, deps, session.Options{
		Provider:  cfg.Provider,
		UploadExt:    config.ContainerExt(cfg.CONTAINER),
		DrainTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		Debug:        cfg.RECORD_DEBUG,
	})
	defer ctl.Close()

	tracker := hotkey.NewTracker(combo)
	listener := hotkey.NewListener(tracker, func(ev hotkey.Event) {
		handleHotkey(ctx, ctl, ev, cfg.HOTKEY_DEBUG)
	}, cfg.HOTKEY_DEBUG)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Printf("[hotkey] listener stopped: %v\n", err)
			cancel()
		}
	}()
	go runCommands(ctx, os.Stdin, os.Stdout, ctl, tracker, cancel)

	fmt.Printf("[main] ready. Hold %s to record. Commands: toggle, cancel, status, hotkey [combo], quit.\n", combo)
	if menu != nil {
		menu.Run(ctx)
		cancel()
	} else {
		<-ctx.Done()
	}
	fmt.Println("[main] shutting down")
	return nil
}

// recordingController is the part of the session the hotkey and the
// command loop drive.
type recordingController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Toggle(ctx context.Context) error
	Cancel() error
	Status() session.Status
}

func handleHotkey(ctx context.Context, ctl recordingController, ev hotkey.Event, debug bool) {
	var err error
	switch ev {
	case hotkey.Start:
		err = ctl.Start(ctx)
	case hotkey.Stop:
		err = ctl.Stop(ctx)
	default:
		return
	}
	if err == nil {
		return
	}
	if errors.Is(err, session.ErrAlreadyRecording) || errors.Is(err, session.ErrNotRecording) {
		if debug {
			fmt.Printf("[hotkey] ignored %s: %v\n", ev, err)
		}
		return
	}
	if debug {
		fmt.Printf("[hotkey] %s failed: %v\n", ev, err)
	}
}

func reportToggle(err error) {
	if err != nil && !errors.Is(err, record.ErrNoAudio) {
		fmt.Printf("[main] toggle failed: %v\n", err)
	}
}

// RunFileMode uploads an existing file and writes the result to a .txt file.
func RunFileMode(ctx context.Context, cfg config.Config, inputPath string, outputPath string) error {
	tempDir := config.TempDir(&cfg)
	cleanupOldTempFiles(tempDir)

	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("file '%s' stat failed: %w", inputPath, err)
	}

	httpClient := newHTTPClient(cfg)
	defer httpClient.CloseIdleConnections()
	transcriber, err := asr.New(cfg, httpClient)
	if err != nil {
		return err
	}

	upload, tempOut := inputPath, ""
	if config.NeedsTranscode(cfg) {
		tempOut = tempOutputPath(tempDir, config.ContainerExt(cfg.CONTAINER))
		if err := ffmpeg.New(cfg).Convert(ctx, inputPath, tempOut); err != nil {
			_ = os.Remove(tempOut)
			return &ExitError{Code: ExitConvert, Err: err}
		}
		upload = tempOut
	}

	cache := newFileCache(cfg)
	tr, err := transcriber.Transcribe(ctx, upload)
	if err != nil {
		cache.Store("", tempOut, nil, false)
		return &ExitError{Code: ExitUpload, Err: err}
	}
	cache.Store("", tempOut, tr.Raw, true)

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outPath = filepath.Join(".", base+".txt")
	}
	if err := os.WriteFile(outPath, []byte(tr.Text), 0644); err != nil {
		return err
	}
	fmt.Printf("[main] transcript written to %s\n", outPath)
	return nil
}

func newHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(tr); err != nil && cfg.UPLOAD_DEBUG {
			fmt.Printf("[upload] http2 setup failed: %v\n", err)
		}
	}
	return &http.Client{
		Transport: tr,
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

func cleanupOldTempFiles(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Printf("[cleanup] read dir '%s' failed: %v\n", dir, err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "RecordTemp_") {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			fmt.Printf("[cleanup] failed remove %s: %v\n", path, err)
		} else {
			fmt.Printf("[cleanup] removed %s\n", path)
		}
	}
}

func tempOutputPath(dir, ext string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	base := fmt.Sprintf("RecordTemp_%s.%s", id, ext)
	if dir == "" {
		cwd, _ := os.Getwd()
		dir = cwd
	}
	return filepath.Join(dir, base)
}
