package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/jsonpath"
)

// OpenAI transcribes through the OpenAI audio transcription endpoint.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
	prompt   string
	endpoint string
	retry    retryPolicy
	debug    bool
}

func NewOpenAI(cfg config.Config, httpClient *http.Client) (*OpenAI, error) {
	key, err := requireKey(config.ProviderOpenAI, cfg.OpenAIKey)
	if err != nil {
		return nil, err
	}

	oc := openai.DefaultConfig(key)
	if cfg.OpenAIEndpoint != "" {
		oc.BaseURL = strings.TrimRight(cfg.OpenAIEndpoint, "/")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}
	}
	oc.HTTPClient = httpClient

	model := cfg.OpenAIModel
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(oc),
		model:    model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
		endpoint: oc.BaseURL,
		retry:    newRetryPolicy(cfg.MaxRetry, cfg.RetryBaseDelay, cfg.UPLOAD_DEBUG),
		debug:    cfg.UPLOAD_DEBUG,
	}, nil
}

func (o *OpenAI) Transcribe(ctx context.Context, path string) (Transcript, error) {
	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: path,
		Language: o.language,
		Prompt:   o.prompt,
		Format:   openai.AudioResponseFormatJSON,
	}
	if o.debug {
		fmt.Printf("[upload] uploading %s -> %s (model %s)\n", path, o.endpoint, o.model)
	}

	raw, err := o.retry.do(ctx, func(ctx context.Context) ([]byte, error) {
		start := time.Now()
		resp, err := o.client.CreateTranscription(ctx, req)
		if o.debug {
			fmt.Printf("[upload] request duration: %v\n", time.Since(start))
		}
		if err != nil {
			return nil, openAIError(err)
		}
		return json.Marshal(resp)
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("openai transcription: %w", err)
	}
	return Transcript{Text: jsonpath.Text(raw, "text"), Raw: raw}, nil
}

// openAIError turns client errors that carry an HTTP status into StatusError
// so the retry policy can classify them.
func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Code: apiErr.HTTPStatusCode, Body: []byte(apiErr.Message)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Code: reqErr.HTTPStatusCode, Body: []byte(reqErr.Error())}
	}
	return err
}
