// Package ffmpeg transcodes recorded WAV clips into the upload container.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
)

// Converter runs the ffmpeg binary with arguments derived from the config.
type Converter struct {
	cfg    config.Config
	binary string
	run    func(ctx context.Context, name string, args []string) ([]byte, error)
}

func New(cfg config.Config) *Converter {
	return &Converter{cfg: cfg, binary: "ffmpeg", run: runCommand}
}

// Convert writes inPath to outPath using the configured codec and container.
func (c *Converter) Convert(ctx context.Context, inPath, outPath string) error {
	args, err := Args(c.cfg, inPath, outPath)
	if err != nil {
		return err
	}
	if c.cfg.FFMPEG_DEBUG {
		fmt.Printf("[ffmpeg] executing: %s %s\n", c.binary, strings.Join(args, " "))
	}
	if out, err := c.run(ctx, c.binary, args); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Args builds the ffmpeg command line for one conversion.
func Args(cfg config.Config, inPath, outPath string) ([]string, error) {
	ffCodec, hasBitrate := codecFor(cfg.CODECS)
	if ffCodec == "" {
		return nil, fmt.Errorf("unsupported codec: %s", cfg.CODECS)
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	bitrate := cfg.BIT_RATE
	if bitrate <= 0 {
		bitrate = 64
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", inPath, "-ac", strconv.Itoa(channels)}
	if cfg.SAMPLING_RATE > 0 {
		args = append(args, "-ar", strconv.Itoa(cfg.SAMPLING_RATE))
	}
	args = append(args, "-c:a", ffCodec)
	if hasBitrate {
		args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate))
	}
	if f := formatFor(cfg.CONTAINER); f != "" {
		args = append(args, "-f", f)
	}
	return append(args, outPath), nil
}

func codecFor(key string) (string, bool) {
	switch k := strings.ToLower(strings.TrimSpace(key)); k {
	case "opus", "libopus":
		return "libopus", true
	case "vorbis", "libvorbis":
		return "libvorbis", true
	case "mp3":
		return "libmp3lame", true
	case "aac":
		return "aac", true
	case "flac":
		return "flac", false
	case "pcm_s16le", "pcm":
		return "pcm_s16le", false
	}
	return "", false
}

// formatFor names the muxer where the file extension alone is ambiguous.
func formatFor(container string) string {
	switch config.ContainerExt(container) {
	case "oga":
		return "ogg"
	case "m4a":
		return "ipod"
	}
	return ""
}

func runCommand(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
