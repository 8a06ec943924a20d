// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     translate
// Description: Schema-constrained translation request builder
// Author:      Mike Stoffels
// Created:     2026-10-13
// License:     MIT
// ============================================================================

package translate

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// MaxTargets is the maximum number of target languages per request
const MaxTargets = 10

// Request is built once per call and discarded after sending
type Request struct {
	AudioBase64        string
	SourceLanguageHint string // empty = auto-detect
	TargetCodes        []string
	TargetNames        map[string]string
}

// NewRequest validates the targets and builds a request. Duplicate codes
// are dropped, keeping the first occurrence.
func NewRequest(audioBase64 string, targetCodes []string, targetNames map[string]string) (*Request, error) {
	codes := uniqueCodes(targetCodes)
	if len(codes) == 0 {
		return nil, configError(ErrNoTargetLanguages)
	}
	if len(codes) > MaxTargets {
		return nil, configError(ErrTooManyTargets)
	}
	if audioBase64 == "" {
		return nil, configError(ErrEmptyAudio)
	}

	names := make(map[string]string, len(codes))
	for _, c := range codes {
		name := targetNames[c]
		if name == "" {
			name = c
		}
		names[c] = name
	}

	return &Request{
		AudioBase64: audioBase64,
		TargetCodes: codes,
		TargetNames: names,
	}, nil
}

func uniqueCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ResponseMode selects how strictly the output format is constrained
type ResponseMode int

const (
	// ModeStrictSchema sends a closed JSON schema
	ModeStrictSchema ResponseMode = iota
	// ModeJSONObject only asks for any valid JSON object
	ModeJSONObject
)

// String returns the string representation of the mode
func (m ResponseMode) String() string {
	if m == ModeJSONObject {
		return "json_object"
	}
	return "json_schema"
}

// Chat completion wire types
type chatRequest struct {
	Model          string          `json:"model"`
	Modalities     []string        `json:"modalities,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Messages       []chatMessage   `json:"messages"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

// BuildRequest returns the encoded request body for the given mode
func BuildRequest(req *Request, model string, mode ResponseMode) ([]byte, error) {
	if req == nil {
		return nil, configError(ErrNoTargetLanguages)
	}
	data, err := json.Marshal(buildPayload(req, model, mode))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return data, nil
}

// buildPayload turns a request into the chat completion body
func buildPayload(req *Request, model string, mode ResponseMode) *chatRequest {
	return &chatRequest{
		Model:          model,
		Modalities:     []string{"text"},
		ResponseFormat: responseFormatFor(req.TargetCodes, mode),
		Messages: []chatMessage{
			{Role: "system", Content: instructions(req)},
			{Role: "user", Content: []contentPart{
				{Type: "input_audio", InputAudio: &inputAudio{Data: req.AudioBase64, Format: "wav"}},
				{Type: "text", Text: "Target languages: " + targetList(req) + "."},
			}},
		},
	}
}

func responseFormatFor(codes []string, mode ResponseMode) *responseFormat {
	if mode == ModeJSONObject {
		return &responseFormat{Type: "json_object"}
	}
	return &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchemaSpec{
			Name:   "transcription_translation",
			Strict: true,
			Schema: resultSchema(codes),
		},
	}
}

// resultSchema describes the closed result object. Every target code is a
// required string property of "translations".
func resultSchema(codes []string) map[string]interface{} {
	props := make(map[string]interface{}, len(codes))
	required := make([]string, len(codes))
	for i, c := range codes {
		props[c] = map[string]interface{}{"type": "string"}
		required[i] = c
	}

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sourceText":     map[string]interface{}{"type": "string"},
			"sourceLanguage": map[string]interface{}{"type": "string"},
			"translations": map[string]interface{}{
				"type":                 "object",
				"properties":           props,
				"required":             required,
				"additionalProperties": false,
			},
		},
		"required":             []string{"sourceText", "sourceLanguage", "translations"},
		"additionalProperties": false,
	}
}

func targetList(req *Request) string {
	parts := make([]string, len(req.TargetCodes))
	for i, c := range req.TargetCodes {
		parts[i] = fmt.Sprintf("%s (%s)", req.TargetNames[c], c)
	}
	return strings.Join(parts, ", ")
}

// instructions builds the system message
func instructions(req *Request) string {
	var b strings.Builder

	b.WriteString("You are a professional interpreter. You receive one audio recording.\n")
	b.WriteString("1. Transcribe the speech verbatim in the language it was spoken.\n")
	b.WriteString("2. Detect the spoken language and report it as a short ISO 639-1 code such as \"en\" or \"de\".\n")
	if req.SourceLanguageHint != "" {
		fmt.Fprintf(&b, "   The speaker usually speaks %q; report the language actually spoken.\n", req.SourceLanguageHint)
	}
	b.WriteString("3. Translate the transcript into each target language below. Use exactly the given code as the key in \"translations\":\n")
	for _, c := range req.TargetCodes {
		fmt.Fprintf(&b, "   - %s: %s\n", c, req.TargetNames[c])
	}
	b.WriteString("If a target language is the same as the detected source language, return the original transcript unchanged for that key.\n")
	b.WriteString("Answer with one JSON object with the keys \"sourceText\", \"sourceLanguage\" and \"translations\". Do not add commentary.")

	return b.String()
}
