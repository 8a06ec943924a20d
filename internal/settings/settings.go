// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     settings
// Description: Persisted application settings singleton
// Author:      Mike Stoffels
// Created:     2026-10-14
// License:     MIT
// ============================================================================

package settings

import (
	"strings"
	"time"
)

// CurrentSchemaVersion is the settings document version written by this build.
//
//	1: single target language only
//	2: multi target mode with extendedTargetLangs
const CurrentSchemaVersion = 2

// MaxExtendedTargets caps extendedTargetLangs
const MaxExtendedTargets = 10

// AppSettings is the single persisted settings record
type AppSettings struct {
	SchemaVersion             int               `json:"schemaVersion"`
	APIKey                    string            `json:"apiKey,omitempty"`
	SourceLangPreference      string            `json:"sourceLangPreference,omitempty"` // empty = auto-detect
	TargetLangSingle          string            `json:"targetLangSingle"`
	ExtendedTargetLangs       []string          `json:"extendedTargetLangs"`
	MultiTarget               bool              `json:"multiTarget"`
	InfoLanguage              string            `json:"infoLanguage,omitempty"`
	TTSVoicePerLanguage       map[string]string `json:"ttsVoicePerLanguage"`
	HasCompletedLanguageSetup bool              `json:"hasCompletedLanguageSetup"`
	UpdatedAt                 time.Time         `json:"updatedAt"`
}

// Defaults returns the settings used before anything was configured
func Defaults() AppSettings {
	return AppSettings{
		SchemaVersion:       CurrentSchemaVersion,
		TargetLangSingle:    "en",
		ExtendedTargetLangs: []string{"en"},
		MultiTarget:         true,
		InfoLanguage:        "de",
		TTSVoicePerLanguage: map[string]string{},
	}
}

// TargetCodes returns the languages a translation request should target
func (s AppSettings) TargetCodes() []string {
	if s.MultiTarget && len(s.ExtendedTargetLangs) > 0 {
		return append([]string(nil), s.ExtendedTargetLangs...)
	}
	if s.TargetLangSingle != "" {
		return []string{s.TargetLangSingle}
	}
	return nil
}

// SourceHint returns the preferred source language, or "" for auto-detect
func (s AppSettings) SourceHint() string {
	if s.SourceLangPreference == "auto" {
		return ""
	}
	return s.SourceLangPreference
}

// Voice returns the TTS voice chosen for a language
func (s AppSettings) Voice(lang string) string {
	return s.TTSVoicePerLanguage[lang]
}

// HasAPIKey reports whether a credential is stored
func (s AppSettings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// clone returns a deep copy
func (s AppSettings) clone() AppSettings {
	out := s
	out.ExtendedTargetLangs = append([]string(nil), s.ExtendedTargetLangs...)
	out.TTSVoicePerLanguage = make(map[string]string, len(s.TTSVoicePerLanguage))
	for k, v := range s.TTSVoicePerLanguage {
		out.TTSVoicePerLanguage[k] = v
	}
	return out
}

// Patch describes a partial update. nil fields are left unchanged.
type Patch struct {
	APIKey                    *string
	SourceLangPreference      *string
	TargetLangSingle          *string
	ExtendedTargetLangs       []string // nil = unchanged
	MultiTarget               *bool
	InfoLanguage              *string
	TTSVoices                 map[string]string // merged per language, "" removes
	HasCompletedLanguageSetup *bool
}

// apply merges the patch onto s
func (p Patch) apply(s *AppSettings) {
	if p.APIKey != nil {
		s.APIKey = strings.TrimSpace(*p.APIKey)
	}
	if p.SourceLangPreference != nil {
		s.SourceLangPreference = strings.TrimSpace(*p.SourceLangPreference)
	}
	if p.TargetLangSingle != nil {
		s.TargetLangSingle = strings.TrimSpace(*p.TargetLangSingle)
	}
	if p.ExtendedTargetLangs != nil {
		s.ExtendedTargetLangs = CapTargets(p.ExtendedTargetLangs)
	}
	if p.MultiTarget != nil {
		s.MultiTarget = *p.MultiTarget
	}
	if p.InfoLanguage != nil {
		s.InfoLanguage = strings.TrimSpace(*p.InfoLanguage)
	}
	for lang, voice := range p.TTSVoices {
		if s.TTSVoicePerLanguage == nil {
			s.TTSVoicePerLanguage = map[string]string{}
		}
		if voice == "" {
			delete(s.TTSVoicePerLanguage, lang)
			continue
		}
		s.TTSVoicePerLanguage[lang] = voice
	}
	if p.HasCompletedLanguageSetup != nil {
		s.HasCompletedLanguageSetup = *p.HasCompletedLanguageSetup
	}
}

// CapTargets removes blanks and duplicates, keeping first-seen order, and
// truncates to MaxExtendedTargets
func CapTargets(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == MaxExtendedTargets {
			break
		}
	}
	return out
}

// upgrade brings an older document to CurrentSchemaVersion. It reports
// whether anything changed.
func upgrade(s *AppSettings) bool {
	if s.SchemaVersion >= CurrentSchemaVersion {
		return false
	}
	if s.SchemaVersion < 2 {
		// multi target became the default mode
		s.MultiTarget = true
		if len(s.ExtendedTargetLangs) == 0 && s.TargetLangSingle != "" {
			s.ExtendedTargetLangs = []string{s.TargetLangSingle}
		}
	}
	if s.TTSVoicePerLanguage == nil {
		s.TTSVoicePerLanguage = map[string]string{}
	}
	s.ExtendedTargetLangs = CapTargets(s.ExtendedTargetLangs)
	s.SchemaVersion = CurrentSchemaVersion
	return true
}
