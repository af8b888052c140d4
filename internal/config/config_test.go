package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadJSONOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"PROVIDER":"deepinfra","DEEPINFRA_KEY":"k","HOTKEY":"ctrl+alt","SAMPLING_RATE":8000}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Provider != ProviderDeepInfra || cfg.DeepInfraKey != "k" {
		t.Fatalf("unexpected provider config: %+v", cfg)
	}
	if cfg.Hotkey != "ctrl+alt" || cfg.SAMPLING_RATE != 8000 {
		t.Fatalf("unexpected hotkey/rate: %q %d", cfg.Hotkey, cfg.SAMPLING_RATE)
	}
	if cfg.FramesPerBuffer != 4096 || !cfg.AutoPaste {
		t.Fatalf("defaults lost: frames=%d autoPaste=%v", cfg.FramesPerBuffer, cfg.AutoPaste)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "PROVIDER: openai\nOPENAI_MODEL: whisper-large\nAUTO_PASTE: false\nMAX_RETRY: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.OpenAIModel != "whisper-large" || cfg.AutoPaste || cfg.MaxRetry != 5 {
		t.Fatalf("unexpected yaml config: %+v", cfg)
	}
}

func TestSaveDefaultRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := SaveDefault(path); err != nil {
			t.Fatalf("%s: save failed: %v", name, err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load failed: %v", name, err)
		}
		if cfg != DefaultConfig() {
			t.Fatalf("%s: round trip mismatch:\n got %+v\nwant %+v", name, cfg, DefaultConfig())
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"provider", func(c *Config) { c.Provider = "azure" }, "PROVIDER"},
		{"hotkey", func(c *Config) { c.Hotkey = "" }, "HOTKEY"},
		{"channels", func(c *Config) { c.Channels = 0 }, "CHANNELS"},
		{"frames", func(c *Config) { c.FramesPerBuffer = 10 }, "FRAMES_PER_BUFFER"},
		{"retry", func(c *Config) { c.MaxRetry = 0 }, "MAX_RETRY"},
		{"codec", func(c *Config) { c.CODECS = "amr" }, "CODECS"},
		{"container", func(c *Config) { c.CONTAINER = "ac3" }, "CONTAINER"},
		{"extra", func(c *Config) { c.ExtraConfig = "{bad" }, "EXTRA_CONFIG"},
		{"ogg opus", func(c *Config) { c.CONTAINER = "OGG"; c.CODECS = "OPUS" }, ""},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		err := Validate(&cfg)
		if tc.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: expected error mentioning %s, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestApplyEnvFillsOnlyEmptyKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", " env-openai ")
	t.Setenv("DEEPINFRA_API_KEY", "env-deepinfra")

	cfg := DefaultConfig()
	cfg.DeepInfraKey = "from-file"
	ApplyEnv(&cfg)

	if cfg.OpenAIKey != "env-openai" {
		t.Fatalf("expected env openai key, got %q", cfg.OpenAIKey)
	}
	if cfg.DeepInfraKey != "from-file" {
		t.Fatalf("file key must win, got %q", cfg.DeepInfraKey)
	}

	cfg.Provider = ProviderDeepInfra
	if cfg.APIKey() != "from-file" {
		t.Fatalf("unexpected APIKey: %q", cfg.APIKey())
	}
}

func TestFlagsOnlyApplyExplicitValues(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fv := BindFlags(fs)
	if err := fs.Parse([]string{"-provider", "DeepInfra", "-auto-paste=false", "-sampling-rate", "22050", "-retry-base-delay", "0.25", "-tray", "-output", "out.txt"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !fv.AnySet() {
		t.Fatalf("expected AnySet")
	}

	cfg := DefaultConfig()
	cfg.Language = "pl"
	ApplyFlags(&cfg, fv)

	if cfg.Provider != ProviderDeepInfra || cfg.AutoPaste || cfg.SAMPLING_RATE != 22050 || cfg.RetryBaseDelay != 0.25 || !cfg.Tray {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Language != "pl" {
		t.Fatalf("unset flag overwrote value: %q", cfg.Language)
	}
	if fv.OutputPath != "out.txt" {
		t.Fatalf("unexpected output path %q", fv.OutputPath)
	}
	want := []string{"provider", "auto-paste", "sampling-rate", "retry-base-delay", "tray"}
	got := fv.SetNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected set names: %v", got)
	}
}

func TestFlagsRejectBadValues(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	BindFlags(fs)
	if err := fs.Parse([]string{"-channels", "two"}); err == nil {
		t.Fatalf("expected int parse error")
	}
	fs2 := flag.NewFlagSet("test", flag.ContinueOnError)
	fs2.SetOutput(new(strings.Builder))
	BindFlags(fs2)
	if err := fs2.Parse([]string{"-keep-cache=maybe"}); err == nil {
		t.Fatalf("expected bool parse error")
	}
}

func TestInitCacheDirCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache", "nested")
	cfg := DefaultConfig()
	cfg.CacheDir = dir
	InitCacheDir(&cfg)
	if cfg.CacheDir != dir {
		t.Fatalf("expected %s, got %s", dir, cfg.CacheDir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("cache dir not created: %v", err)
	}
	if TempDir(&cfg) != dir {
		t.Fatalf("TempDir should prefer cache dir")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg.CacheDir = file
	InitCacheDir(&cfg)
	if cfg.CacheDir != "" {
		t.Fatalf("expected fallback for non-directory, got %q", cfg.CacheDir)
	}
}

func TestNeedsTranscode(t *testing.T) {
	cfg := DefaultConfig()
	if NeedsTranscode(cfg) {
		t.Fatalf("wav must not need transcoding")
	}
	cfg.CONTAINER = "OGG"
	if !NeedsTranscode(cfg) || ContainerExt(cfg.CONTAINER) != "ogg" {
		t.Fatalf("ogg must need transcoding")
	}
}
