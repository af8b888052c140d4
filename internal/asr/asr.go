// Package asr uploads recorded clips to a speech-to-text provider.
package asr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
)

var (
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Transcript is the text of one clip plus the provider's raw response.
type Transcript struct {
	Text string
	Raw  []byte
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Transcript, error)
}

// New returns the provider named by cfg.Provider. A nil httpClient gets a
// plain client bounded by cfg.RequestTimeout.
func New(cfg config.Config, httpClient *http.Client) (Transcriber, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg, httpClient)
	case config.ProviderDeepInfra:
		return NewDeepInfra(cfg, httpClient)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func requireKey(provider, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w for %s", ErrMissingAPIKey, provider)
	}
	return key, nil
}
