// Package sidecar is an embedding backend that calls a pretrained
// speaker-embedding model served over HTTP.
//
// The service exposes GET /health and POST /embed, which accepts a
// multipart field "audio" holding 16-bit mono WAV and answers
// {"embedding": [...], "error": ""}.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/embedding"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/provider"
)

const (
	// ProviderName is the registered name for the sidecar backend.
	ProviderName = embedding.BackendSidecar

	defaultBaseURL   = "http://localhost:8390"
	defaultTimeout   = 60 * time.Second
	defaultHealthTTL = 5 * time.Second
	maxErrorBody     = 4 << 10
)

// Config holds configuration for the sidecar backend.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	SampleRate int
	// HealthTTL caches IsAvailable results so provider selection does not
	// call the sidecar's health route on every extraction.
	HealthTTL time.Duration
}

var (
	_ embedding.Extractor    = (*Provider)(nil)
	_ provider.Initializable = (*Provider)(nil)
	_ provider.Closeable     = (*Provider)(nil)
)

// Provider implements embedding.Extractor against the HTTP sidecar.
type Provider struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger

	mu        sync.Mutex
	checkedAt time.Time
	healthy   bool
}

// NewProvider creates a sidecar provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.HealthTTL == 0 {
		cfg.HealthTTL = defaultHealthTTL
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.Get("embedding.sidecar"),
	}
}

// Factory returns a provider.Factory reading "base_url", "timeout",
// "sample_rate", and "health_ttl".
func Factory() provider.Factory[embedding.Extractor] {
	return func(opts map[string]any) (embedding.Extractor, error) {
		return NewProvider(Config{
			BaseURL:    embedding.OptString(opts, "base_url", ""),
			Timeout:    embedding.OptDuration(opts, "timeout", 0),
			SampleRate: embedding.OptInt(opts, "sample_rate", 0),
			HealthTTL:  embedding.OptDuration(opts, "health_ttl", 0),
		}), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// Init verifies the sidecar is serving before any extraction.
func (p *Provider) Init(ctx context.Context) error {
	if err := p.health(ctx); err != nil {
		return apperrors.ModelUnavailable(ProviderName, err)
	}
	p.log.Info("sidecar reachable", logger.Fields("base_url", p.cfg.BaseURL))
	return nil
}

// Close releases idle connections.
func (p *Provider) Close(_ context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}

// IsAvailable reports the cached result of GET /health.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	p.mu.Lock()
	if time.Since(p.checkedAt) < p.cfg.HealthTTL {
		ok := p.healthy
		p.mu.Unlock()
		return ok
	}
	p.mu.Unlock()

	ok := p.health(ctx) == nil
	p.mu.Lock()
	p.healthy = ok
	p.checkedAt = time.Now()
	p.mu.Unlock()
	return ok
}

func (p *Provider) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

// Execute uploads the clip and returns the embedding computed by the model.
func (p *Provider) Execute(ctx context.Context, clip audio.Clip) (embedding.Vector, error) {
	if clip.SampleRate != p.cfg.SampleRate || clip.Channels > 1 {
		return nil, apperrors.InvalidInput("clip", fmt.Sprintf("expected mono %d Hz audio", p.cfg.SampleRate))
	}
	wavData, err := audio.EncodeWAVBytes(clip)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", "clip.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/embed", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.ExternalServiceError(ProviderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		appErr := apperrors.ExternalServiceError(ProviderName,
			fmt.Errorf("embed status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		// Client errors will fail the same way on retry.
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			appErr.Retryable = false
		}
		return nil, appErr.WithDetail("status", resp.StatusCode)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.ExternalServiceError(ProviderName, fmt.Errorf("decode embed response: %w", err))
	}
	if result.Error != "" {
		return nil, apperrors.ExternalServiceError(ProviderName, fmt.Errorf("embed: %s", result.Error))
	}
	if len(result.Embedding) == 0 {
		return nil, apperrors.ExternalServiceError(ProviderName, fmt.Errorf("embed: empty embedding"))
	}
	return embedding.Vector(result.Embedding), nil
}

// --- internal sidecar API types ---

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}
