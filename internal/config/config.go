package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/hotkey"
)

const (
	ProviderOpenAI    = "openai"
	ProviderDeepInfra = "deepinfra"

	DefaultOpenAIEndpoint    = "https://api.openai.com/v1"
	DefaultDeepInfraEndpoint = "https://api.deepinfra.com/v1/inference/openai/whisper-large-v3-turbo"
)

// Config holds configurable parameters.
type Config struct {
	Provider          string  `json:"PROVIDER" yaml:"PROVIDER"`
	OpenAIKey         string  `json:"OPENAI_KEY" yaml:"OPENAI_KEY"`
	OpenAIEndpoint    string  `json:"OPENAI_ENDPOINT" yaml:"OPENAI_ENDPOINT"`
	OpenAIModel       string  `json:"OPENAI_MODEL" yaml:"OPENAI_MODEL"`
	DeepInfraKey      string  `json:"DEEPINFRA_KEY" yaml:"DEEPINFRA_KEY"`
	DeepInfraEndpoint string  `json:"DEEPINFRA_ENDPOINT" yaml:"DEEPINFRA_ENDPOINT"`
	Language          string  `json:"LANGUAGE" yaml:"LANGUAGE"`
	Prompt            string  `json:"PROMPT" yaml:"PROMPT"`
	TEXTPath          string  `json:"TEXT_PATH" yaml:"TEXT_PATH"`
	ExtraConfig       string  `json:"EXTRA_CONFIG" yaml:"EXTRA_CONFIG"`
	Hotkey            string  `json:"HOTKEY" yaml:"HOTKEY"`
	Microphone        string  `json:"MICROPHONE" yaml:"MICROPHONE"`
	Channels          int     `json:"CHANNELS" yaml:"CHANNELS"`
	SAMPLING_RATE     int     `json:"SAMPLING_RATE" yaml:"SAMPLING_RATE"`
	FramesPerBuffer   int     `json:"FRAMES_PER_BUFFER" yaml:"FRAMES_PER_BUFFER"`
	BIT_RATE          int     `json:"BIT_RATE" yaml:"BIT_RATE"`
	CODECS            string  `json:"CODECS" yaml:"CODECS"`
	CONTAINER         string  `json:"CONTAINER" yaml:"CONTAINER"`
	RequestTimeout    int     `json:"REQUEST_TIMEOUT" yaml:"REQUEST_TIMEOUT"`
	MaxRetry          int     `json:"MAX_RETRY" yaml:"MAX_RETRY"`
	RetryBaseDelay    float64 `json:"RETRY_BASE_DELAY" yaml:"RETRY_BASE_DELAY"`
	EnableHTTP2       bool    `json:"ENABLE_HTTP2" yaml:"ENABLE_HTTP2"`
	VerifySSL         bool    `json:"VERIFY_SSL" yaml:"VERIFY_SSL"`
	AutoPaste         bool    `json:"AUTO_PASTE" yaml:"AUTO_PASTE"`
	RestoreClipboard  bool    `json:"RESTORE_CLIPBOARD" yaml:"RESTORE_CLIPBOARD"`
	Notification      bool    `json:"NOTIFICATION" yaml:"NOTIFICATION"`
	SoundNotification bool    `json:"SOUND_NOTIFICATION" yaml:"SOUND_NOTIFICATION"`
	Tray              bool    `json:"TRAY" yaml:"TRAY"`
	CacheDir          string  `json:"CACHE_DIR" yaml:"CACHE_DIR"`
	KeepCache         bool    `json:"KEEP_CACHE" yaml:"KEEP_CACHE"`
	HistoryPath       string  `json:"HISTORY_PATH" yaml:"HISTORY_PATH"`
	FFMPEG_DEBUG      bool    `json:"FFMPEG_DEBUG" yaml:"FFMPEG_DEBUG"`
	RECORD_DEBUG      bool    `json:"RECORD_DEBUG" yaml:"RECORD_DEBUG"`
	HOTKEY_DEBUG      bool    `json:"HOTKEY_DEBUG" yaml:"HOTKEY_DEBUG"`
	UPLOAD_DEBUG      bool    `json:"UPLOAD_DEBUG" yaml:"UPLOAD_DEBUG"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Provider:          ProviderOpenAI,
		OpenAIKey:         "",
		OpenAIEndpoint:    DefaultOpenAIEndpoint,
		OpenAIModel:       "whisper-1",
		DeepInfraKey:      "",
		DeepInfraEndpoint: DefaultDeepInfraEndpoint,
		Language:          "",
		Prompt:            "",
		TEXTPath:          "text",
		ExtraConfig:       "",
		Hotkey:            "ctrl+shift",
		Microphone:        "",
		Channels:          1,
		SAMPLING_RATE:     16000,
		FramesPerBuffer:   4096,
		BIT_RATE:          64,
		CODECS:            "pcm_s16le",
		CONTAINER:         "wav",
		RequestTimeout:    60,
		MaxRetry:          3,
		RetryBaseDelay:    0.5,
		EnableHTTP2:       true,
		VerifySSL:         true,
		AutoPaste:         true,
		RestoreClipboard:  false,
		Notification:      true,
		SoundNotification: false,
		Tray:              false,
		CacheDir:          "",
		KeepCache:         false,
		HistoryPath:       "whisper_stats.db",
		FFMPEG_DEBUG:      false,
		RECORD_DEBUG:      false,
		HOTKEY_DEBUG:      false,
		UPLOAD_DEBUG:      false,
	}
}

// Load loads config from a JSON or YAML file if provided.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// SaveDefault writes a default config to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(cfg)
	default:
		b, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ApplyEnv fills empty API keys from the conventional environment variables.
func ApplyEnv(cfg *Config) {
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if cfg.DeepInfraKey == "" {
		cfg.DeepInfraKey = strings.TrimSpace(os.Getenv("DEEPINFRA_API_KEY"))
	}
}

// APIKey returns the key of the selected provider.
func (c Config) APIKey() string {
	switch strings.ToLower(c.Provider) {
	case ProviderOpenAI:
		return c.OpenAIKey
	case ProviderDeepInfra:
		return c.DeepInfraKey
	}
	return ""
}

var allowedCodecs = map[string]bool{
	"pcm_s16le": true,
	"opus":      true,
	"libopus":   true,
	"vorbis":    true,
	"libvorbis": true,
	"mp3":       true,
	"aac":       true,
	"flac":      true,
}

// Whisper endpoints accept only these containers.
var allowedContainers = map[string]bool{
	"wav":  true,
	"ogg":  true,
	"oga":  true,
	"mp3":  true,
	"flac": true,
	"m4a":  true,
	"mp4":  true,
	"webm": true,
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch cfg.Provider {
	case ProviderOpenAI, ProviderDeepInfra:
	default:
		return fmt.Errorf("invalid PROVIDER: %q (allowed: openai, deepinfra)", cfg.Provider)
	}
	if _, err := hotkey.ParseCombination(cfg.Hotkey); err != nil {
		return fmt.Errorf("invalid HOTKEY: %w", err)
	}
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid CHANNELS: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.SAMPLING_RATE <= 0 {
		return fmt.Errorf("invalid SAMPLING_RATE: %d (must be > 0)", cfg.SAMPLING_RATE)
	}
	if cfg.FramesPerBuffer < 64 {
		return fmt.Errorf("invalid FRAMES_PER_BUFFER: %d (must be >= 64)", cfg.FramesPerBuffer)
	}
	if cfg.BIT_RATE <= 0 {
		return fmt.Errorf("invalid BIT_RATE: %d (must be > 0)", cfg.BIT_RATE)
	}
	if cfg.MaxRetry < 1 {
		return fmt.Errorf("invalid MAX_RETRY: %d (must be >= 1)", cfg.MaxRetry)
	}
	if cfg.RetryBaseDelay < 0 {
		return fmt.Errorf("invalid RETRY_BASE_DELAY: %v (must be >= 0)", cfg.RetryBaseDelay)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %d (must be > 0)", cfg.RequestTimeout)
	}
	if !allowedCodecs[strings.ToLower(cfg.CODECS)] {
		return fmt.Errorf("invalid CODECS: %s (allowed: PCM_S16LE, OPUS, LIBOPUS, VORBIS, LIBVORBIS, MP3, AAC, FLAC)", cfg.CODECS)
	}
	if !allowedContainers[strings.ToLower(cfg.CONTAINER)] {
		return fmt.Errorf("invalid CONTAINER: %s (allowed: WAV, OGG, OGA, MP3, FLAC, M4A, MP4, WEBM)", cfg.CONTAINER)
	}
	if cfg.ExtraConfig != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &m); err != nil {
			return fmt.Errorf("invalid EXTRA_CONFIG: %w", err)
		}
	}
	return nil
}

// InitCacheDir validates/creates the configured cache directory.
// It mutates cfg.CacheDir to an absolute path or clears it on failure.
func InitCacheDir(cfg *Config) {
	if cfg.CacheDir == "" {
		return
	}
	abs, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		fmt.Printf("[main] cache-dir path invalid '%s': %v. Falling back to cwd.\n", cfg.CacheDir, err)
		cfg.CacheDir = ""
		return
	}
	info, err := os.Stat(abs)
	if err == nil {
		if !info.IsDir() {
			fmt.Printf("[main] cache-dir '%s' exists but is not a directory. Falling back to cwd.\n", abs)
			cfg.CacheDir = ""
			return
		}
		cfg.CacheDir = abs
		return
	}
	if os.IsNotExist(err) {
		if err := os.MkdirAll(abs, 0755); err != nil {
			fmt.Printf("[main] cannot create cache-dir '%s': %v. Falling back to cwd.\n", abs, err)
			cfg.CacheDir = ""
			return
		}
		cfg.CacheDir = abs
		fmt.Printf("[main] created cache-dir: %s\n", cfg.CacheDir)
		return
	}
	fmt.Printf("[main] cannot access cache-dir '%s': %v. Falling back to cwd.\n", abs, err)
	cfg.CacheDir = ""
}

// TempDir returns the directory to use for temporary files.
func TempDir(cfg *Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	cwd, _ := os.Getwd()
	return cwd
}

// ContainerExt maps container names to file extensions (lowercase).
func ContainerExt(container string) string {
	c := strings.ToLower(container)
	if c == "" {
		return "wav"
	}
	return c
}

// NeedsTranscode reports whether recorded WAV clips must go through ffmpeg before upload.
func NeedsTranscode(cfg Config) bool {
	return ContainerExt(cfg.CONTAINER) != "wav"
}
