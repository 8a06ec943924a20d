// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     translate
// Description: Defensive response parsing and validation
// Author:      Mike Stoffels
// Created:     2026-10-13
// License:     MIT
// ============================================================================

package translate

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/msto63/dolmetscher/internal/languages"
)

// Usage holds best-effort telemetry from the response envelope
type Usage struct {
	AudioSeconds     float64 `json:"audioSeconds"`
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalTokens      int     `json:"totalTokens"`
}

// Result is a validated translation outcome. Translations holds exactly
// the requested target codes.
type Result struct {
	SourceText         string
	SourceLanguageCode string
	SourceResolved     bool // false when the detected code is not in the language table
	TargetCodes        []string
	Translations       map[string]string
	Usage              *Usage
}

// First returns the translation for the first requested target
func (r *Result) First() string {
	if r == nil || len(r.TargetCodes) == 0 {
		return ""
	}
	return r.Translations[r.TargetCodes[0]]
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")

// ExtractJSON finds a JSON object in model output. It tries the whole
// text, then a fenced code block, then the span from the first "{" to the
// last "}".
func ExtractJSON(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)

	if obj, ok := parseObject(text); ok {
		return obj, nil
	}

	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(strings.TrimSpace(m[1])); ok {
			return obj, nil
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if obj, ok := parseObject(text[start : end+1]); ok {
			return obj, nil
		}
	}

	return nil, schemaError(ErrUnparseable)
}

func parseObject(s string) (map[string]interface{}, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

var (
	translationKeys    = []string{"translations", "translation"}
	sourceTextKeys     = []string{"sourceText", "source_text", "transcript", "transcription"}
	sourceLanguageKeys = []string{"sourceLanguage", "source_language", "sourceLanguageCode", "detectedLanguage", "language"}
)

// Validate turns a parsed object into a Result for the given targets. A
// missing or non-object translations container is an error; missing or
// non-string entries inside it are not.
func Validate(obj map[string]interface{}, targetCodes []string) (*Result, error) {
	container, found := firstKey(obj, translationKeys)
	if !found || container == nil {
		return nil, schemaError(ErrMissingTranslations)
	}
	translations, ok := container.(map[string]interface{})
	if !ok {
		return nil, schemaError(fmt.Errorf("%w: got %T", ErrMissingTranslations, container))
	}

	result := &Result{
		TargetCodes:  append([]string(nil), targetCodes...),
		Translations: make(map[string]string, len(targetCodes)),
	}
	for _, code := range targetCodes {
		result.Translations[code] = stringify(translations[code])
	}

	if v, ok := firstKey(obj, sourceTextKeys); ok {
		result.SourceText = stringify(v)
	}

	var detected string
	if v, ok := firstKey(obj, sourceLanguageKeys); ok {
		detected = stringify(v)
	}
	if lang, ok := languages.Resolve(detected); ok {
		result.SourceLanguageCode = lang.Code
		result.SourceResolved = true
	} else {
		result.SourceLanguageCode = strings.TrimSpace(detected)
	}

	return result, nil
}

func firstKey(obj map[string]interface{}, keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// stringify keeps strings as they are and renders other JSON values as
// text. null and absent values become "".
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// Response envelope
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage json.RawMessage `json:"usage"`
}

// contentText returns the answer text of the first choice. The content may
// be a string, an already parsed object, or an array of text parts.
func contentText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return "", false
		}
		return s, true
	case '{':
		return string(raw), true
	case '[':
		var parts []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &parts); err != nil {
			return "", false
		}
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(p.Text)
		}
		if strings.TrimSpace(b.String()) == "" {
			return "", false
		}
		return b.String(), true
	default:
		return "", false
	}
}

// parseUsage reads token and audio counters. Unknown shapes yield nil.
func parseUsage(raw json.RawMessage) *Usage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var u struct {
		PromptTokens      *int     `json:"prompt_tokens"`
		CompletionTokens  *int     `json:"completion_tokens"`
		TotalTokens       *int     `json:"total_tokens"`
		AudioSeconds      *float64 `json:"audio_seconds"`
		InputAudioSeconds *float64 `json:"input_audio_seconds"`
		Seconds           *float64 `json:"seconds"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil
	}

	usage := &Usage{}
	found := false
	if u.PromptTokens != nil {
		usage.PromptTokens, found = *u.PromptTokens, true
	}
	if u.CompletionTokens != nil {
		usage.CompletionTokens, found = *u.CompletionTokens, true
	}
	if u.TotalTokens != nil {
		usage.TotalTokens, found = *u.TotalTokens, true
	}
	for _, s := range []*float64{u.AudioSeconds, u.InputAudioSeconds, u.Seconds} {
		if s != nil {
			usage.AudioSeconds, found = *s, true
			break
		}
	}
	if !found {
		return nil
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

// ParseResponse turns a raw chat completion body into a Result
func ParseResponse(body []byte, targetCodes []string) (*Result, error) {
	var envelope chatResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, schemaError(fmt.Errorf("%w: invalid envelope: %v", ErrUnparseable, err))
	}
	if len(envelope.Choices) == 0 {
		return nil, schemaError(ErrNoContent)
	}

	text, ok := contentText(envelope.Choices[0].Message.Content)
	if !ok {
		return nil, schemaError(ErrNoContent)
	}

	obj, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	result, err := Validate(obj, targetCodes)
	if err != nil {
		return nil, err
	}
	result.Usage = parseUsage(envelope.Usage)
	return result, nil
}
