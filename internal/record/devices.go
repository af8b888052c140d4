package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
)

// ErrNoInputDevice is returned when no device can capture audio.
var ErrNoInputDevice = errors.New("no input device available")

// Device is an audio input as seen by the selection logic.
type Device struct {
	Index         int
	Name          string
	InputChannels int
	Default       bool
}

// SelectDevice picks the configured microphone: an exact name match first,
// then the first name containing it, then the default input, then the first
// device that has input channels.
func SelectDevice(devs []Device, name string) (Device, error) {
	var inputs []Device
	for _, d := range devs {
		if d.InputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	if len(inputs) == 0 {
		return Device{}, ErrNoInputDevice
	}

	want := strings.TrimSpace(name)
	if want != "" {
		for _, d := range inputs {
			if strings.EqualFold(d.Name, want) {
				return d, nil
			}
		}
		lw := strings.ToLower(want)
		for _, d := range inputs {
			if strings.Contains(strings.ToLower(d.Name), lw) {
				return d, nil
			}
		}
	}
	for _, d := range inputs {
		if d.Default {
			return d, nil
		}
	}
	return inputs[0], nil
}

// ListDevices enumerates input devices through PortAudio.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices failed: %w", err)
	}
	var out []Device
	for _, d := range toDevices(infos) {
		if d.InputChannels > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

func toDevices(infos []*portaudio.DeviceInfo) []Device {
	def, _ := portaudio.DefaultInputDevice()
	devs := make([]Device, 0, len(infos))
	for i, info := range infos {
		devs = append(devs, Device{
			Index:         i,
			Name:          info.Name,
			InputChannels: info.MaxInputChannels,
			Default:       def != nil && def.Name == info.Name && def.HostApi == info.HostApi,
		})
	}
	return devs
}

// paStream adapts a blocking PortAudio input stream.
type paStream struct {
	stream *portaudio.Stream
	frames int
}

func (s *paStream) Read() (int, error) {
	err := s.stream.Read()
	if err == portaudio.InputOverflowed {
		return s.frames, nil
	}
	if err != nil {
		return 0, err
	}
	return s.frames, nil
}

func (s *paStream) Close() error {
	_ = s.stream.Stop()
	err := s.stream.Close()
	_ = portaudio.Terminate()
	return err
}

func openPortAudio(cfg config.Config, buf []int16) (inputStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	fail := func(err error) (inputStream, error) {
		_ = portaudio.Terminate()
		return nil, err
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return fail(fmt.Errorf("list devices failed: %w", err))
	}
	dev, err := SelectDevice(toDevices(infos), cfg.Microphone)
	if err != nil {
		return fail(err)
	}
	if cfg.RECORD_DEBUG {
		fmt.Printf("[record] using input device %q (channels=%d)\n", dev.Name, dev.InputChannels)
	}

	params := portaudio.LowLatencyParameters(infos[dev.Index], nil)
	params.Input.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SAMPLING_RATE)
	params.FramesPerBuffer = cfg.FramesPerBuffer

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return fail(fmt.Errorf("open stream failed: %w", err))
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fail(fmt.Errorf("start stream failed: %w", err))
	}
	return &paStream{stream: stream, frames: cfg.FramesPerBuffer}, nil
}
