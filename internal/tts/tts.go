// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     tts
// Description: Text-to-speech playback of translations
// Author:      Mike Stoffels
// Created:     2026-10-16
// License:     MIT
// ============================================================================

package tts

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/msto63/dolmetscher/internal/languages"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Engine names
const (
	EngineSay    = "say"
	EngineESpeak = "espeak-ng"
	EngineNone   = "none"
)

// ErrDisabled is returned by Speak when no engine is configured
var ErrDisabled = errors.New("text-to-speech is disabled")

// ErrUnavailable is returned when the engine binary is not installed
var ErrUnavailable = errors.New("text-to-speech engine not available")

// Engine speaks text with a given voice
type Engine interface {
	Name() string
	IsAvailable() bool
	Command(ctx context.Context, text, voice, lang string) *exec.Cmd
}

// VoiceSource returns the configured voice for a language
type VoiceSource interface {
	Voice(lang string) string
}

// Config holds TTS configuration
type Config struct {
	Engine string
	Rate   int // words per minute
}

// DefaultConfig returns the platform default
func DefaultConfig() Config {
	engine := EngineESpeak
	if runtime.GOOS == "darwin" {
		engine = EngineSay
	}
	return Config{Engine: engine, Rate: 180}
}

// NewEngine returns the engine for a name, or nil for "none"
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Engine {
	case EngineSay:
		return &Say{rate: cfg.Rate}, nil
	case EngineESpeak:
		return &ESpeak{rate: cfg.Rate}, nil
	case EngineNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown tts engine: %s", cfg.Engine)
	}
}

// Speaker plays one utterance at a time. A new Speak call stops the
// previous one.
type Speaker struct {
	engine Engine
	voices VoiceSource
	logger *logging.Logger

	speaking atomic.Bool
	mu       sync.Mutex
	cancel   context.CancelFunc
}

// NewSpeaker creates a speaker. engine may be nil to disable playback.
func NewSpeaker(engine Engine, voices VoiceSource) *Speaker {
	return &Speaker{
		engine: engine,
		voices: voices,
		logger: logging.New("tts"),
	}
}

// Speaking reports whether an utterance is playing
func (s *Speaker) Speaking() bool {
	return s.speaking.Load()
}

// VoiceFor returns the configured voice for lang, falling back to the
// language default
func (s *Speaker) VoiceFor(lang string) string {
	if s.voices != nil {
		if v := s.voices.Voice(lang); v != "" {
			return v
		}
	}
	if l, ok := languages.Resolve(lang); ok && s.engine != nil && s.engine.Name() == EngineSay {
		return l.DefaultVoice
	}
	return ""
}

// Speak plays text and blocks until playback ends or ctx is cancelled
func (s *Speaker) Speak(ctx context.Context, text, lang string) error {
	if s.engine == nil {
		return ErrDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !s.engine.IsAvailable() {
		return fmt.Errorf("%w: %s", ErrUnavailable, s.engine.Name())
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	voice := s.VoiceFor(lang)
	s.logger.Debug("Speaking", "engine", s.engine.Name(), "lang", lang, "voice", voice)

	s.speaking.Store(true)
	defer s.speaking.Store(false)

	if err := s.engine.Command(ctx, text, voice, lang).Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech playback failed: %w", err)
	}
	return nil
}

// Stop interrupts the current utterance
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
