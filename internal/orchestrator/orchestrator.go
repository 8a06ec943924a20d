// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     orchestrator
// Description: Record-to-translation pipeline and its observable state
// Author:      Mike Stoffels
// Created:     2026-10-15
// License:     MIT
// ============================================================================

package orchestrator

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/languages"
	"github.com/msto63/dolmetscher/internal/settings"
	"github.com/msto63/dolmetscher/internal/store"
	"github.com/msto63/dolmetscher/internal/translate"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Translator sends a built request to the remote API
type Translator interface {
	Translate(ctx context.Context, apiKey string, req *translate.Request) (*translate.Result, error)
}

// Normalizer turns a recording into base64 WAV
type Normalizer interface {
	Normalize(ctx context.Context, rec audio.Recording) (string, error)
}

// SettingsSource provides the current settings
type SettingsSource interface {
	Current() settings.AppSettings
}

// TranscriptStore persists saved transcripts
type TranscriptStore interface {
	AddNew(ctx context.Context, fields store.NewTranscript, opts store.VariantOptions) (*store.Transcript, error)
	Get(ctx context.Context, id int64) (*store.Transcript, error)
}

// ErrNothingToSave is returned by SaveCurrent without a completed result
var ErrNothingToSave = errors.New("no translation to save")

// ErrNoTranscripts is returned when no transcript store is configured
var ErrNoTranscripts = errors.New("transcript store not configured")

// State is a snapshot of the observable pipeline state
type State struct {
	InFlight           bool
	SourceText         string
	SourceLanguageCode string
	SourceResolved     bool
	TargetCodes        []string
	Translations       map[string]string
	Usage              *translate.Usage
	LastError          string
	CompletedAt        time.Time
}

// HasResult reports whether the last call produced a translation
func (s State) HasResult() bool {
	return len(s.Translations) > 0
}

// SourceLanguageName returns the display name of the detected language
func (s State) SourceLanguageName() string {
	if s.SourceLanguageCode == "" {
		return ""
	}
	return languages.DisplayName(s.SourceLanguageCode)
}

func (s State) clone() State {
	out := s
	out.TargetCodes = append([]string(nil), s.TargetCodes...)
	if s.Translations != nil {
		out.Translations = make(map[string]string, len(s.Translations))
		for k, v := range s.Translations {
			out.Translations[k] = v
		}
	}
	if s.Usage != nil {
		u := *s.Usage
		out.Usage = &u
	}
	return out
}

// Orchestrator runs normalize, build, send and parse in sequence and holds
// the result. One instance is created at startup and handed to the UI.
type Orchestrator struct {
	translator  Translator
	normalizer  Normalizer
	settings    SettingsSource
	transcripts TranscriptStore
	fallbackEnv string
	logger      *logging.Logger
	now         func() time.Time

	mu        sync.RWMutex
	state     State
	recording *audio.Recording
	listeners map[int]func(State)
	nextID    int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithEnvFallback lets the API key come from the named environment
// variable when none is stored. Only enabled outside production.
func WithEnvFallback(name string) Option {
	return func(o *Orchestrator) { o.fallbackEnv = name }
}

// WithTranscripts enables SaveCurrent and RetranslateAndSave
func WithTranscripts(ts TranscriptStore) Option {
	return func(o *Orchestrator) { o.transcripts = ts }
}

// New creates an orchestrator
func New(tr Translator, norm Normalizer, src SettingsSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		translator: tr,
		normalizer: norm,
		settings:   src,
		logger:     logging.New("orchestrator"),
		now:        time.Now,
		listeners:  make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TranscribeAndTranslate runs the full pipeline for one recording. The
// in-flight flag is cleared on every return path. Failures are recorded in
// the state and returned.
func (o *Orchestrator) TranscribeAndTranslate(ctx context.Context, rec audio.Recording) (*translate.Result, error) {
	o.begin()
	defer o.finish()

	current := o.settings.Current()

	apiKey, err := o.apiKey(current)
	if err != nil {
		return nil, o.fail(err)
	}
	codes := current.TargetCodes()
	if len(codes) == 0 {
		return nil, o.fail(&translate.Error{Kind: translate.KindConfig, Err: translate.ErrNoTargetLanguages})
	}

	encoded, err := o.normalizer.Normalize(ctx, rec)
	if err != nil {
		return nil, o.fail(err)
	}

	req, err := translate.NewRequest(encoded, codes, languages.DisplayNames(codes))
	if err != nil {
		return nil, o.fail(err)
	}
	req.SourceLanguageHint = current.SourceHint()

	result, err := o.translator.Translate(ctx, apiKey, req)
	if err != nil {
		return nil, o.fail(err)
	}

	o.succeed(result, rec)
	return result, nil
}

func (o *Orchestrator) apiKey(s settings.AppSettings) (string, error) {
	if key := strings.TrimSpace(s.APIKey); key != "" {
		return key, nil
	}
	if o.fallbackEnv != "" {
		if key := strings.TrimSpace(os.Getenv(o.fallbackEnv)); key != "" {
			o.logger.Debug("Using API key from environment", "var", o.fallbackEnv)
			return key, nil
		}
	}
	return "", &translate.Error{Kind: translate.KindConfig, Err: translate.ErrMissingAPIKey}
}

func (o *Orchestrator) begin() {
	o.mu.Lock()
	o.state = State{InFlight: true}
	o.recording = nil
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.state.InFlight = false
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) fail(err error) error {
	o.logger.Warn("Translation failed", "error", err)
	o.mu.Lock()
	o.state.LastError = err.Error()
	o.mu.Unlock()
	return err
}

func (o *Orchestrator) succeed(r *translate.Result, rec audio.Recording) {
	o.mu.Lock()
	o.state.SourceText = r.SourceText
	o.state.SourceLanguageCode = r.SourceLanguageCode
	o.state.SourceResolved = r.SourceResolved
	o.state.TargetCodes = append([]string(nil), r.TargetCodes...)
	o.state.Translations = r.Translations
	o.state.Usage = r.Usage
	o.state.CompletedAt = o.now()
	o.recording = &rec
	o.mu.Unlock()
}

// Snapshot returns a copy of the current state
func (o *Orchestrator) Snapshot() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.clone()
}

// InFlight reports whether a call is running. Callers check it before
// starting another one.
func (o *Orchestrator) InFlight() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.InFlight
}

// FirstTranslation returns the translation of the first target, or ""
func (o *Orchestrator) FirstTranslation() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.state.TargetCodes) == 0 {
		return ""
	}
	return o.state.Translations[o.state.TargetCodes[0]]
}

// Subscribe registers fn for every state change and returns a function
// that removes it
func (o *Orchestrator) Subscribe(fn func(State)) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

func (o *Orchestrator) notify() {
	o.mu.RLock()
	snap := o.state.clone()
	fns := make([]func(State), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}
