// Package session drives the hold-to-talk lifecycle: it starts and stops
// the recorder and feeds finished clips through a single worker that
// transcribes and delivers them in recording order.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/asr"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/clipboard"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/history"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/notify"
)

var (
	ErrAlreadyRecording = errors.New("a recording is already active")
	ErrNotRecording     = errors.New("no active recording")
	ErrQueueFull        = errors.New("processing queue is full")
	ErrClosed           = errors.New("session closed")
	ErrEmptyTranscript  = errors.New("transcript is empty")
)

// State is the recording state. Processing runs in the background and
// does not block a new recording.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Status is a snapshot of the controller.
type Status struct {
	State   State
	Queued  int
	Elapsed time.Duration
}

// Options tunes the controller.
type Options struct {
	// Provider is stored with each history entry.
	Provider string
	// UploadExt is the extension of converted clips. Ignored without a Converter.
	UploadExt    string
	TickInterval time.Duration
	QueueSize    int
	// DrainTimeout bounds how long Close waits for queued clips before
	// aborting the upload in progress.
	DrainTimeout time.Duration
	Debug        bool
}

// Deps are the collaborators. Converter, History and Cache may be nil.
type Deps struct {
	Recorder    Recorder
	Converter   Converter
	Transcriber asr.Transcriber
	Deliverer   Deliverer
	History     History
	Cache       Cache
	Indicator   notify.Indicator
}

type job struct {
	wavPath  string
	duration time.Duration
}

// Controller serializes Start, Stop and Cancel and owns the worker.
type Controller struct {
	deps  Deps
	opts  Options
	ctx   context.Context
	abort context.CancelFunc

	mu       sync.Mutex
	state    State
	started  time.Time
	stopTick chan struct{}
	tickDone chan struct{}
	pending  int
	closed   bool

	jobs chan job
	wg   sync.WaitGroup
}

// New starts the worker. The worker keeps ctx's values but not its
// cancellation, so clips queued at shutdown still finish; Close bounds
// that with DrainTimeout.
func New(ctx context.Context, deps Deps, opts Options) *Controller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 30 * time.Second
	}
	if deps.Indicator == nil {
		deps.Indicator = notify.NewMulti()
	}
	workCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	c := &Controller{
		deps:  deps,
		opts:  opts,
		ctx:   workCtx,
		abort: abort,
		jobs:  make(chan job, opts.QueueSize),
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// Start begins a recording unless one is already active.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state == Recording {
		return ErrAlreadyRecording
	}

	if err := c.deps.Recorder.Start(ctx); err != nil {
		err = fmt.Errorf("start recording: %w", err)
		c.deps.Indicator.Error("record", err)
		c.deps.Indicator.StateChanged(c.restingState())
		return err
	}

	c.state = Recording
	c.started = time.Now()
	c.stopTick = make(chan struct{})
	c.tickDone = make(chan struct{})
	go c.tick(c.started, c.stopTick, c.tickDone)

	if c.opts.Debug {
		fmt.Println("[session] recording started")
	}
	c.deps.Indicator.StateChanged(notify.Recording)
	return nil
}

// Stop ends the active recording and queues the clip for processing.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return ErrNotRecording
	}
	c.haltTicker()
	c.deps.Indicator.StateChanged(notify.Processing)

	res, err := c.deps.Recorder.Stop()
	c.state = Idle
	c.deps.Indicator.RecordingStopped()
	if err != nil {
		c.deps.Indicator.Error("record", err)
		c.deps.Indicator.StateChanged(c.restingState())
		return err
	}
	if c.opts.Debug {
		fmt.Printf("[session] recording stopped: %s (%v)\n", res.WavPath, res.Duration)
	}

	select {
	case c.jobs <- job{wavPath: res.WavPath, duration: res.Duration}:
		c.pending++
		return nil
	default:
		_ = os.Remove(res.WavPath)
		c.deps.Indicator.Error("queue", ErrQueueFull)
		c.deps.Indicator.StateChanged(c.restingState())
		return ErrQueueFull
	}
}

// Toggle stops an active recording or starts a new one.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.Status().State == Recording {
		return c.Stop(ctx)
	}
	return c.Start(ctx)
}

// Cancel discards the active recording without uploading it.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return ErrNotRecording
	}
	c.haltTicker()
	err := c.deps.Recorder.Cancel()
	c.state = Idle
	if c.opts.Debug {
		fmt.Println("[session] recording canceled")
	}
	c.deps.Indicator.StateChanged(c.restingState())
	return err
}

// Status reports the state and how many clips are queued or in progress.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{State: c.state, Queued: c.pending}
	if c.state == Recording {
		st.Elapsed = time.Since(c.started)
	}
	return st
}

// Close discards an active recording and lets queued clips finish. After
// DrainTimeout the upload in progress is aborted and the rest fail fast.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.state == Recording {
		c.haltTicker()
		_ = c.deps.Recorder.Cancel()
		c.state = Idle
	}
	c.closed = true
	close(c.jobs)
	pending := c.pending
	c.mu.Unlock()

	if pending > 0 {
		fmt.Printf("[session] finishing %d queued clip(s)\n", pending)
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	t := time.NewTimer(c.opts.DrainTimeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		fmt.Printf("[session] drain timed out after %v; aborting\n", c.opts.DrainTimeout)
		c.abort()
		<-done
	}
	c.abort()
}

// restingState is what the user sees when not recording. Callers hold mu.
func (c *Controller) restingState() notify.State {
	if c.pending > 0 {
		return notify.Processing
	}
	return notify.Idle
}

// haltTicker stops the timer goroutine. Callers hold mu.
func (c *Controller) haltTicker() {
	if c.stopTick == nil {
		return
	}
	close(c.stopTick)
	<-c.tickDone
	c.stopTick, c.tickDone = nil, nil
}

func (c *Controller) tick(started time.Time, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(c.opts.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-t.C:
			c.deps.Indicator.Tick(now.Sub(started))
		}
	}
}

func (c *Controller) worker() {
	defer c.wg.Done()
	for j := range c.jobs {
		c.process(j)

		c.mu.Lock()
		c.pending--
		idle := c.state == Idle && c.pending == 0
		c.mu.Unlock()
		if idle {
			c.deps.Indicator.StateChanged(notify.Idle)
		}
	}
}

// process runs one clip through conversion, transcription, delivery and
// history. The first failing step ends the job.
func (c *Controller) process(j job) {
	var (
		uploadPath string
		raw        []byte
		ok         bool
	)
	defer func() { c.finish(j.wavPath, uploadPath, raw, ok) }()

	upload := j.wavPath
	if c.deps.Converter != nil {
		uploadPath = strings.TrimSuffix(j.wavPath, filepath.Ext(j.wavPath)) + "." + c.opts.UploadExt
		if err := c.deps.Converter.Convert(c.ctx, j.wavPath, uploadPath); err != nil {
			c.deps.Indicator.Error("convert", err)
			return
		}
		upload = uploadPath
	}

	tr, err := c.deps.Transcriber.Transcribe(c.ctx, upload)
	if err != nil {
		c.deps.Indicator.Error("transcribe", err)
		return
	}
	raw, ok = tr.Raw, true

	text := strings.TrimSpace(tr.Text)
	if text == "" {
		c.deps.Indicator.Error("transcribe", ErrEmptyTranscript)
		return
	}
	c.deps.Indicator.Transcript(text, j.duration)

	if err := c.deps.Deliverer.Deliver(text); err != nil {
		c.deps.Indicator.Error("deliver", err)
		// a failed paste still leaves the text on the clipboard
		if !errors.Is(err, clipboard.ErrPaste) {
			return
		}
	}

	if c.deps.History != nil {
		entry := history.Entry{Provider: c.opts.Provider, Duration: j.duration, Text: text}
		if err := c.deps.History.Record(c.ctx, entry); err != nil {
			c.deps.Indicator.Error("history", err)
		}
	}
}

func (c *Controller) finish(wavPath, uploadPath string, raw []byte, ok bool) {
	if c.deps.Cache != nil {
		c.deps.Cache.Store(wavPath, uploadPath, raw, ok)
		return
	}
	_ = os.Remove(wavPath)
	if uploadPath != "" {
		_ = os.Remove(uploadPath)
	}
}
