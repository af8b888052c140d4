package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
)

var (
	// ErrNoAudio means the stream delivered no frames before it was stopped.
	ErrNoAudio = errors.New("no audio was recorded")
	// ErrBusy is returned by Start when a recording is already running.
	ErrBusy = errors.New("recorder not idle")
	// ErrNotRunning is returned by Stop and Cancel when nothing is recording.
	ErrNotRunning = errors.New("recorder not running")
)

// consecutive read failures tolerated before the recording is aborted
const maxReadErrors = 20

// State represents recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateCanceled:
		return "canceled"
	}
	return "idle"
}

// Result describes a finished recording.
type Result struct {
	WavPath  string
	Duration time.Duration
	Frames   int
}

// inputStream is a started capture stream that fills the buffer it was
// opened with and reports how many frames it read.
type inputStream interface {
	Read() (int, error)
	Close() error
}

type opener func(cfg config.Config, buf []int16) (inputStream, error)

type outcome struct {
	res Result
	err error
}

// Recorder manages PortAudio capture and streaming WAV writing.
type Recorder struct {
	mu      sync.Mutex
	state   State
	cfg     config.Config
	tempDir string
	open    opener
	stop    chan struct{}
	done    chan outcome
}

// New creates a recorder writing clips into tempDir.
func New(cfg config.Config, tempDir string) *Recorder {
	return &Recorder{cfg: cfg, tempDir: tempDir, state: StateIdle, open: openPortAudio}
}

// Start opens the input stream and begins writing a WAV file.
// It returns once capture is running or has failed to start.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrBusy
	}
	r.state = StateRecording
	stop := make(chan struct{})
	done := make(chan outcome, 1)
	r.stop, r.done = stop, done
	r.mu.Unlock()

	ready := make(chan error, 1)
	go r.recordLoop(ctx, stop, ready, done)
	if err := <-ready; err != nil {
		r.setState(StateIdle)
		return err
	}
	return nil
}

// Stop ends capture and returns the finished clip.
func (r *Recorder) Stop() (Result, error) {
	done, err := r.halt(StateStopping)
	if err != nil {
		return Result{}, err
	}
	out := <-done
	r.setState(StateIdle)
	return out.res, out.err
}

// Cancel ends capture and deletes whatever was written.
func (r *Recorder) Cancel() error {
	done, err := r.halt(StateCanceled)
	if err != nil {
		return err
	}
	out := <-done
	if out.res.WavPath != "" {
		_ = os.Remove(out.res.WavPath)
	}
	r.setState(StateIdle)
	return nil
}

// State returns the current recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) halt(next State) (chan outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return nil, ErrNotRunning
	}
	r.state = next
	close(r.stop)
	return r.done, nil
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Recorder) recordLoop(ctx context.Context, stop <-chan struct{}, ready chan<- error, done chan<- outcome) {
	channels := r.cfg.Channels
	rate := r.cfg.SAMPLING_RATE
	in := make([]int16, r.cfg.FramesPerBuffer*channels)

	stream, err := r.open(r.cfg, in)
	if err != nil {
		ready <- err
		return
	}

	wavPath := r.generateTempWav()
	file, err := os.Create(wavPath)
	if err != nil {
		_ = stream.Close()
		ready <- fmt.Errorf("create wav failed: %w", err)
		return
	}
	ready <- nil

	if r.cfg.RECORD_DEBUG {
		fmt.Printf("[record] starting, writing to %s\n", wavPath)
	}

	enc := wav.NewEncoder(file, rate, 16, channels, 1)
	format := &audio.Format{NumChannels: channels, SampleRate: rate}
	intBuf := make([]int, len(in))
	frames := 0
	readErrors := 0
	var loopErr error

loop:
	for {
		select {
		case <-stop:
			break loop
		case <-ctx.Done():
			break loop
		default:
		}

		n, err := stream.Read()
		if err != nil {
			readErrors++
			if r.cfg.RECORD_DEBUG {
				fmt.Printf("[record] stream read error: %v\n", err)
			}
			if readErrors >= maxReadErrors {
				loopErr = fmt.Errorf("stream read failed: %w", err)
				break loop
			}
			continue
		}
		readErrors = 0
		if n <= 0 {
			continue
		}
		samples := n * channels
		for i, v := range in[:samples] {
			intBuf[i] = int(v)
		}
		buf := &audio.IntBuffer{Format: format, Data: intBuf[:samples], SourceBitDepth: 16}
		if err := enc.Write(buf); err != nil {
			loopErr = fmt.Errorf("wav write failed: %w", err)
			break loop
		}
		frames += n
	}

	_ = stream.Close()
	closeErr := enc.Close()
	_ = file.Close()

	if loopErr == nil && closeErr != nil {
		loopErr = fmt.Errorf("wav close failed: %w", closeErr)
	}
	if loopErr == nil && frames == 0 {
		loopErr = ErrNoAudio
	}
	if loopErr != nil {
		_ = os.Remove(wavPath)
		done <- outcome{err: loopErr}
		return
	}

	res := Result{
		WavPath:  wavPath,
		Frames:   frames,
		Duration: time.Duration(frames) * time.Second / time.Duration(rate),
	}
	if r.cfg.RECORD_DEBUG {
		fmt.Printf("[record] finished %s (%d frames, %v)\n", wavPath, frames, res.Duration)
	}
	done <- outcome{res: res}
}

func (r *Recorder) generateTempWav() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	base := fmt.Sprintf("RecordTemp_%s.wav", id)
	dir := r.tempDir
	if dir == "" {
		cwd, _ := os.Getwd()
		dir = cwd
	}
	return filepath.Join(dir, base)
}
