package record

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
)

type fakeStream struct {
	mu     sync.Mutex
	buf    []int16
	frames int
	reads  int
	closed bool
	fail   error
}

func (s *fakeStream) Read() (int, error) {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.fail != nil {
		return 0, s.fail
	}
	for i := range s.buf {
		s.buf[i] = int16(i % 100)
	}
	return s.frames, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Channels = 2
	cfg.SAMPLING_RATE = 8000
	cfg.FramesPerBuffer = 80
	return cfg
}

func newTestRecorder(t *testing.T, s *fakeStream, frames int) *Recorder {
	t.Helper()
	r := New(testConfig(), t.TempDir())
	r.open = func(cfg config.Config, buf []int16) (inputStream, error) {
		require.Len(t, buf, cfg.FramesPerBuffer*cfg.Channels)
		s.buf = buf
		s.frames = frames
		return s, nil
	}
	return r
}

func waitReads(t *testing.T, s *fakeStream, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.readCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("stream never reached %d reads", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRecorderWritesWav(t *testing.T) {
	s := &fakeStream{}
	r := newTestRecorder(t, s, 80)

	require.NoError(t, r.Start(context.Background()))
	require.Equal(t, StateRecording, r.State())
	require.ErrorIs(t, r.Start(context.Background()), ErrBusy)

	waitReads(t, s, 3)
	res, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, StateIdle, r.State())
	require.True(t, s.closed)
	require.True(t, strings.HasPrefix(filepath.Base(res.WavPath), "RecordTemp_"))
	require.Equal(t, 0, res.Frames%80)
	require.GreaterOrEqual(t, res.Frames, 240)
	require.Equal(t, time.Duration(res.Frames)*time.Second/8000, res.Duration)

	f, err := os.Open(res.WavPath)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	pcm, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, 2, pcm.Format.NumChannels)
	require.Equal(t, 8000, pcm.Format.SampleRate)
	require.Len(t, pcm.Data, res.Frames*2)
	require.Equal(t, 42, pcm.Data[42])
}

func TestRecorderCancelRemovesFile(t *testing.T) {
	s := &fakeStream{}
	r := newTestRecorder(t, s, 80)

	require.NoError(t, r.Start(context.Background()))
	waitReads(t, s, 2)
	require.NoError(t, r.Cancel())
	require.Equal(t, StateIdle, r.State())

	entries, err := os.ReadDir(r.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRecorderNoAudio(t *testing.T) {
	s := &fakeStream{}
	r := newTestRecorder(t, s, 0)

	require.NoError(t, r.Start(context.Background()))
	waitReads(t, s, 2)
	_, err := r.Stop()
	require.ErrorIs(t, err, ErrNoAudio)

	entries, err := os.ReadDir(r.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRecorderAbortsAfterRepeatedReadErrors(t *testing.T) {
	s := &fakeStream{fail: errors.New("device unplugged")}
	r := newTestRecorder(t, s, 80)

	require.NoError(t, r.Start(context.Background()))
	waitReads(t, s, maxReadErrors)
	_, err := r.Stop()
	require.Error(t, err)
	require.Contains(t, err.Error(), "device unplugged")
}

func TestRecorderStartFailureReturnsToIdle(t *testing.T) {
	r := New(testConfig(), t.TempDir())
	r.open = func(config.Config, []int16) (inputStream, error) {
		return nil, ErrNoInputDevice
	}
	require.ErrorIs(t, r.Start(context.Background()), ErrNoInputDevice)
	require.Equal(t, StateIdle, r.State())

	_, err := r.Stop()
	require.ErrorIs(t, err, ErrNotRunning)
	require.ErrorIs(t, r.Cancel(), ErrNotRunning)
}

func TestSelectDevice(t *testing.T) {
	devs := []Device{
		{Index: 0, Name: "HDMI Output", InputChannels: 0},
		{Index: 1, Name: "Built-in Microphone", InputChannels: 1},
		{Index: 2, Name: "USB Microphone Pro", InputChannels: 2, Default: true},
		{Index: 3, Name: "USB Microphone", InputChannels: 1},
	}
	cases := []struct {
		name string
		want int
	}{
		{"USB Microphone", 3},
		{"usb microphone", 3},
		{"built-in", 1},
		{"Pro", 2},
		{"", 2},
		{"Missing Device", 2},
		{"HDMI", 2},
	}
	for _, tc := range cases {
		d, err := SelectDevice(devs, tc.name)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, d.Index, tc.name)
	}

	noDefault := []Device{devs[0], devs[1], devs[3]}
	d, err := SelectDevice(noDefault, "")
	require.NoError(t, err)
	require.Equal(t, 1, d.Index)

	_, err = SelectDevice([]Device{devs[0]}, "")
	require.ErrorIs(t, err, ErrNoInputDevice)
}
