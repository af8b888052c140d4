package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bialobrzeskid/Hold-To-Speak/internal/config"
	"github.com/bialobrzeskid/Hold-To-Speak/internal/jsonpath"
)

// DeepInfra posts clips to a DeepInfra Whisper inference endpoint.
type DeepInfra struct {
	endpoint   string
	key        string
	textPath   string
	fields     map[string]interface{}
	httpClient *http.Client
	retry      retryPolicy
	debug      bool
}

// NewDeepInfra parses EXTRA_CONFIG and prepares the form fields sent with
// every upload.
func NewDeepInfra(cfg config.Config, httpClient *http.Client) (*DeepInfra, error) {
	key, err := requireKey(config.ProviderDeepInfra, cfg.DeepInfraKey)
	if err != nil {
		return nil, err
	}
	endpoint := cfg.DeepInfraEndpoint
	if endpoint == "" {
		endpoint = config.DefaultDeepInfraEndpoint
	}

	fields := make(map[string]interface{})
	if cfg.Language != "" {
		fields["language"] = cfg.Language
	}
	if cfg.Prompt != "" {
		fields["initial_prompt"] = cfg.Prompt
	}
	if cfg.ExtraConfig != "" {
		extra := make(map[string]interface{})
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &extra); err != nil {
			return nil, fmt.Errorf("invalid extra-config JSON: %w", err)
		}
		for k, v := range extra {
			fields[k] = v
		}
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}
	}
	textPath := cfg.TEXTPath
	if textPath == "" {
		textPath = "text"
	}
	return &DeepInfra{
		endpoint:   endpoint,
		key:        key,
		textPath:   textPath,
		fields:     fields,
		httpClient: httpClient,
		retry:      newRetryPolicy(cfg.MaxRetry, cfg.RetryBaseDelay, cfg.UPLOAD_DEBUG),
		debug:      cfg.UPLOAD_DEBUG,
	}, nil
}

func (d *DeepInfra) Transcribe(ctx context.Context, path string) (Transcript, error) {
	if _, err := os.Stat(path); err != nil {
		return Transcript{}, fmt.Errorf("deepinfra transcription: %w", err)
	}
	raw, err := d.retry.do(ctx, func(ctx context.Context) ([]byte, error) {
		return d.upload(ctx, path)
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("deepinfra transcription: %w", err)
	}
	return Transcript{Text: jsonpath.Text(raw, d.textPath), Raw: raw}, nil
}

func (d *DeepInfra) upload(ctx context.Context, path string) ([]byte, error) {
	if d.debug {
		fmt.Printf("[upload] uploading %s -> %s\n", path, d.endpoint)
	}
	body, contentType, err := d.form(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request error: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "bearer "+d.key)
	req.Header.Set("User-Agent", "hold-to-speak/1.0")

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if d.debug {
		fmt.Printf("[upload] request duration: %v\n", time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: respBody}
	}
	if d.debug {
		fmt.Printf("[upload] response: %s\n", formatResponse(respBody))
	}
	return respBody, nil
}

func (d *DeepInfra) form(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open file error: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("audio", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file error: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy file error: %w", err)
	}

	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writer.WriteField(k, fieldValue(d.fields[k])); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func fieldValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool, float64, int:
		return fmt.Sprintf("%v", val)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
