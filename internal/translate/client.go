// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     translate
// Description: Chat completion client for audio transcription+translation
// Author:      Mike Stoffels
// Created:     2026-10-13
// License:     MIT
// ============================================================================

package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/msto63/dolmetscher/pkg/core/logging"
	"github.com/msto63/dolmetscher/pkg/core/version"
)

// Config holds client configuration
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, overrides Timeout
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-audio-preview",
		Timeout: 120 * time.Second,
	}
}

// Client sends translation requests to an OpenAI compatible endpoint
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a new client
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: httpClient,
		logger:     logging.New("translate"),
	}
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.model
}

// Translate sends the request with a strict schema. If the endpoint rejects
// the schema mode it is resent once in plain JSON object mode.
func (c *Client) Translate(ctx context.Context, apiKey string, req *Request) (*Result, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, configError(ErrMissingAPIKey)
	}
	if req == nil || len(req.TargetCodes) == 0 {
		return nil, configError(ErrNoTargetLanguages)
	}

	start := time.Now()
	body, err := c.send(ctx, apiKey, buildPayload(req, c.model, ModeStrictSchema))
	if err != nil {
		var te *Error
		if !errors.As(err, &te) || !isSchemaRejection(te.Status, te.Body) {
			return nil, err
		}
		c.logger.Warn("schema mode rejected, retrying with json_object", "status", te.Status)

		body, err = c.send(ctx, apiKey, buildPayload(req, c.model, ModeJSONObject))
		if err != nil {
			return nil, err
		}
	}

	result, err := ParseResponse(body, req.TargetCodes)
	if err != nil {
		c.logger.Debug("response rejected", "error", err)
		return nil, err
	}

	c.logger.Info("translation complete",
		"targets", len(req.TargetCodes),
		"source", result.SourceLanguageCode,
		"duration", time.Since(start).String())
	return result, nil
}

// send posts one payload and returns the raw body of a 2xx response
func (c *Client) send(ctx context.Context, apiKey string, payload *chatRequest) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	c.logger.Debug("sending request",
		"mode", payload.ResponseFormat.Type,
		"model", payload.Model,
		"bytes", len(data))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:   KindTransport,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	return body, nil
}

// isSchemaRejection decides whether an error response means the endpoint
// does not accept the strict schema mode for this request. Anything it does
// not recognize is treated as a terminal error.
func isSchemaRejection(status int, body string) bool {
	if status < 400 || status > 499 {
		return false
	}
	lower := strings.ToLower(body)
	for _, marker := range []string{"response_format", "json_schema", "schema"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
