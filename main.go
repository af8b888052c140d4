package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/app"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
)

const defaultConfigPath = "config.json"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Hold-To-Speak: hold a key combination, speak, release to paste the transcript.

Usage:
  hold-to-speak [flags]                 record mode (listens for the hotkey)
  hold-to-speak -file memo.ogg          transcribe an existing file into memo.txt
  hold-to-speak -stats | -clear-stats   show or reset usage statistics
  hold-to-speak -list-devices           list microphones

Config is read from -config, else ./config.json. Without either and without
flags a default config.json is written and the program exits.
API keys fall back to OPENAI_API_KEY and DEEPINFRA_API_KEY.

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	configPath := flag.String("config", "", "path to config file (JSON or YAML)")
	filePath := flag.String("file", "", "existing audio file to transcribe (skips recording)")
	listDevices := flag.Bool("list-devices", false, "list input devices and exit")
	showStats := flag.Bool("stats", false, "print usage statistics and exit")
	clearStats := flag.Bool("clear-stats", false, "delete usage statistics and exit")
	help := flag.Bool("h", false, "show help")
	help2 := flag.Bool("help", false, "show help")
	fv := config.BindFlags(flag.CommandLine)

	flag.Parse()
	if *help || *help2 {
		usage()
		return
	}

	if *listDevices {
		if err := app.PrintDevices(os.Stdout); err != nil {
			fmt.Printf("[main] list devices failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, created, err := loadConfig(*configPath, fv.AnySet() || *filePath != "" || *showStats || *clearStats)
	if err != nil {
		fmt.Printf("[main] %v\n", err)
		os.Exit(app.ExitConfig)
	}
	if created {
		fmt.Printf("[main] default config created at %s. Please edit it and re-run.\n", defaultConfigPath)
		return
	}

	config.ApplyFlags(&cfg, fv)
	config.ApplyEnv(&cfg)
	if err := config.Validate(&cfg); err != nil {
		fmt.Printf("[main] invalid config: %v\n", err)
		os.Exit(app.ExitConfig)
	}
	config.InitCacheDir(&cfg)
	if cfg.UPLOAD_DEBUG && len(fv.SetNames()) > 0 {
		fmt.Printf("[main] flags applied: %v\n", fv.SetNames())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *showStats:
		err = app.PrintStats(ctx, cfg, os.Stdout)
	case *clearStats:
		err = app.ClearStats(ctx, cfg, os.Stdout)
	case *filePath != "":
		err = app.RunFileMode(ctx, cfg, *filePath, fv.OutputPath)
	default:
		err = app.RunRecordMode(ctx, cfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("[main] %v\n", err)
		stop()
		os.Exit(app.ExitCode(err))
	}
}

// loadConfig resolves the config file. When neither -config nor
// ./config.json exists and nothing else was requested, a default file is
// written and created is true.
func loadConfig(path string, flagsGiven bool) (cfg config.Config, created bool, err error) {
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, false, fmt.Errorf("failed to load config '%s': %w", path, err)
		}
		return cfg, false, nil
	}

	_, statErr := os.Stat(defaultConfigPath)
	switch {
	case statErr == nil:
		cfg, err = config.Load(defaultConfigPath)
		if err != nil {
			return cfg, false, fmt.Errorf("failed to load existing %s: %w", defaultConfigPath, err)
		}
		return cfg, false, nil
	case !os.IsNotExist(statErr):
		return cfg, false, fmt.Errorf("failed to stat %s: %w", defaultConfigPath, statErr)
	case flagsGiven:
		return config.DefaultConfig(), false, nil
	}

	if err := config.SaveDefault(defaultConfigPath); err != nil {
		return cfg, false, fmt.Errorf("failed to write default config: %w", err)
	}
	return cfg, true, nil
}
