package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// override is one explicitly set flag, applied on top of the loaded config.
type override struct {
	name  string
	apply func(cfg *Config)
}

// FlagValues holds parsed flags with explicit set tracking.
type FlagValues struct {
	overrides []override

	OutputPath    string
	OutputPathSet bool
}

type stringFlag struct {
	fv     *FlagValues
	name   string
	value  string
	assign func(cfg *Config, v string)
}

func (s *stringFlag) String() string {
	if s == nil {
		return ""
	}
	return s.value
}

func (s *stringFlag) Set(v string) error {
	s.value = v
	s.fv.record(s.name, func(cfg *Config) { s.assign(cfg, v) })
	return nil
}

type intFlag struct {
	fv     *FlagValues
	name   string
	value  int
	assign func(cfg *Config, v int)
}

func (i *intFlag) String() string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(i.value)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	i.value = n
	i.fv.record(i.name, func(cfg *Config) { i.assign(cfg, n) })
	return nil
}

type floatFlag struct {
	fv     *FlagValues
	name   string
	value  float64
	assign func(cfg *Config, v float64)
}

func (f *floatFlag) String() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%v", f.value)
}

func (f *floatFlag) Set(v string) error {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return err
	}
	f.value = n
	f.fv.record(f.name, func(cfg *Config) { f.assign(cfg, n) })
	return nil
}

type boolFlag struct {
	fv     *FlagValues
	name   string
	value  bool
	assign func(cfg *Config, v bool)
}

func (b *boolFlag) String() string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(b.value)
}

// IsBoolFlag lets "-auto-paste" stand for "-auto-paste=true".
func (b *boolFlag) IsBoolFlag() bool { return true }

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := parseBoolExt(v)
	if err != nil {
		return err
	}
	b.value = n
	b.fv.record(b.name, func(cfg *Config) { b.assign(cfg, n) })
	return nil
}

type outputFlag struct{ fv *FlagValues }

func (o *outputFlag) String() string {
	if o == nil || o.fv == nil {
		return ""
	}
	return o.fv.OutputPath
}

func (o *outputFlag) Set(v string) error {
	o.fv.OutputPath = v
	o.fv.OutputPathSet = true
	return nil
}

func (fv *FlagValues) record(name string, apply func(cfg *Config)) {
	fv.overrides = append(fv.overrides, override{name: name, apply: apply})
}

func (fv *FlagValues) str(fs *flag.FlagSet, name, usage string, assign func(*Config, string)) {
	fs.Var(&stringFlag{fv: fv, name: name, assign: assign}, name, usage)
}

func (fv *FlagValues) num(fs *flag.FlagSet, name, usage string, assign func(*Config, int)) {
	fs.Var(&intFlag{fv: fv, name: name, assign: assign}, name, usage)
}

func (fv *FlagValues) float(fs *flag.FlagSet, name, usage string, assign func(*Config, float64)) {
	fs.Var(&floatFlag{fv: fv, name: name, assign: assign}, name, usage)
}

func (fv *FlagValues) boolean(fs *flag.FlagSet, name, usage string, assign func(*Config, bool)) {
	fs.Var(&boolFlag{fv: fv, name: name, assign: assign}, name, usage)
}

// BindFlags registers all config override flags and returns the populated FlagValues.
func BindFlags(fs *flag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fv.str(fs, "provider", "transcription provider (openai, deepinfra)", func(c *Config, v string) { c.Provider = strings.ToLower(v) })
	fv.str(fs, "openai-key", "OpenAI API key", func(c *Config, v string) { c.OpenAIKey = v })
	fv.str(fs, "openai-endpoint", "OpenAI API base URL", func(c *Config, v string) { c.OpenAIEndpoint = v })
	fv.str(fs, "openai-model", "OpenAI transcription model", func(c *Config, v string) { c.OpenAIModel = v })
	fv.str(fs, "deepinfra-key", "DeepInfra API key", func(c *Config, v string) { c.DeepInfraKey = v })
	fv.str(fs, "deepinfra-endpoint", "DeepInfra Whisper inference URL", func(c *Config, v string) { c.DeepInfraEndpoint = v })
	fv.str(fs, "language", "language hint (e.g. pl, en)", func(c *Config, v string) { c.Language = v })
	fv.str(fs, "prompt", "prompt / initial prompt", func(c *Config, v string) { c.Prompt = v })
	fv.str(fs, "text-path", "JSON path to extract text", func(c *Config, v string) { c.TEXTPath = v })
	fv.str(fs, "extra-config", "extra JSON fields to merge into the DeepInfra form", func(c *Config, v string) { c.ExtraConfig = v })

	fv.str(fs, "hotkey", "key combination to hold while recording (e.g. ctrl+shift)", func(c *Config, v string) { c.Hotkey = v })
	fv.str(fs, "microphone", "input device name (exact or partial match)", func(c *Config, v string) { c.Microphone = v })

	fv.str(fs, "codecs", "audio codec used when CONTAINER is not wav (e.g. OPUS, MP3, FLAC)", func(c *Config, v string) { c.CODECS = v })
	fv.str(fs, "container", "upload container (e.g. WAV, OGG, MP3, FLAC)", func(c *Config, v string) { c.CONTAINER = v })
	fv.num(fs, "channels", "channels (int)", func(c *Config, v int) { c.Channels = v })
	fv.num(fs, "sampling-rate", "sampling rate (Hz)", func(c *Config, v int) { c.SAMPLING_RATE = v })
	fv.num(fs, "frames-per-buffer", "frames read per capture buffer", func(c *Config, v int) { c.FramesPerBuffer = v })
	fv.num(fs, "bit-rate", "bit rate (kbps)", func(c *Config, v int) { c.BIT_RATE = v })

	fv.num(fs, "request-timeout", "request timeout seconds", func(c *Config, v int) { c.RequestTimeout = v })
	fv.num(fs, "max-retry", "max upload attempts", func(c *Config, v int) { c.MaxRetry = v })
	fv.float(fs, "retry-base-delay", "retry base delay seconds (float)", func(c *Config, v float64) { c.RetryBaseDelay = v })
	fv.boolean(fs, "enable-http2", "enable HTTP/2 (true/false)", func(c *Config, v bool) { c.EnableHTTP2 = v })
	fv.boolean(fs, "verify-ssl", "verify TLS certificates (true/false)", func(c *Config, v bool) { c.VerifySSL = v })

	fv.boolean(fs, "auto-paste", "paste the transcript with Ctrl+V (true/false)", func(c *Config, v bool) { c.AutoPaste = v })
	fv.boolean(fs, "restore-clipboard", "restore the previous clipboard after pasting (true/false)", func(c *Config, v bool) { c.RestoreClipboard = v })
	fv.boolean(fs, "notification", "enable desktop notifications (true/false)", func(c *Config, v bool) { c.Notification = v })
	fv.boolean(fs, "sound-notification", "beep when recording stops (true/false)", func(c *Config, v bool) { c.SoundNotification = v })
	fv.boolean(fs, "tray", "show a system tray menu (true/false)", func(c *Config, v bool) { c.Tray = v })

	fv.str(fs, "cache-dir", "cache directory", func(c *Config, v string) { c.CacheDir = v })
	fv.boolean(fs, "keep-cache", "keep cache files (true/false)", func(c *Config, v bool) { c.KeepCache = v })
	fv.str(fs, "history", "SQLite statistics database path (empty disables)", func(c *Config, v string) { c.HistoryPath = v })

	fv.boolean(fs, "ffmpeg-debug", "enable ffmpeg debug output (true/false)", func(c *Config, v bool) { c.FFMPEG_DEBUG = v })
	fv.boolean(fs, "record-debug", "enable record debug output (true/false)", func(c *Config, v bool) { c.RECORD_DEBUG = v })
	fv.boolean(fs, "hotkey-debug", "enable hotkey debug output (true/false)", func(c *Config, v bool) { c.HOTKEY_DEBUG = v })
	fv.boolean(fs, "upload-debug", "enable upload debug output (true/false)", func(c *Config, v bool) { c.UPLOAD_DEBUG = v })

	fs.Var(&outputFlag{fv: fv}, "output", "output txt path for -file mode")

	return fv
}

// ApplyFlags applies present flags to the config in the order they were given.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	for _, o := range fv.overrides {
		o.apply(cfg)
	}
}

// AnySet reports whether any flag was explicitly set by the user.
func (fv *FlagValues) AnySet() bool {
	return len(fv.overrides) > 0 || fv.OutputPathSet
}

// SetNames lists the flags that were explicitly set, in order.
func (fv *FlagValues) SetNames() []string {
	names := make([]string, 0, len(fv.overrides))
	for _, o := range fv.overrides {
		names = append(names, o.name)
	}
	return names
}
