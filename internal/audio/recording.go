// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     audio
// Description: Recorded audio blobs and capture permission state
// Author:      Mike Stoffels
// Created:     2026-10-12
// License:     MIT
// ============================================================================

package audio

import (
	"context"
	"path/filepath"
	"strings"
)

// MimeTypeWAV is the canonical encoding accepted by the translation API
const MimeTypeWAV = "audio/wav"

// Recording is a finished, immutable audio blob plus its MIME type
type Recording struct {
	Data     []byte
	MimeType string
}

var extMimeTypes = map[string]string{
	".wav":  MimeTypeWAV,
	".wave": MimeTypeWAV,
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg; codecs=opus",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

// MimeTypeForPath guesses the MIME type from a file extension. Unknown
// extensions yield "application/octet-stream".
func MimeTypeForPath(path string) string {
	if m, ok := extMimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}
	return "application/octet-stream"
}

// IsCanonicalWAV reports whether the declared MIME type already names
// PCM WAV. Parameters such as "; codecs=1" are ignored.
func IsCanonicalWAV(mimeType string) bool {
	base := strings.TrimSpace(strings.ToLower(mimeType))
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return true
	default:
		return false
	}
}

// Capturer is the audio capture collaborator used by the UI layer
type Capturer interface {
	Start(ctx context.Context) error
	Stop() (Recording, error)
	Level() float64
	Permission() Permission
	Done() <-chan struct{}
}

// Permission is the coarse microphone permission state
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionPrompt
	PermissionGranted
	PermissionDenied
)

// String returns the string representation of the permission
func (p Permission) String() string {
	switch p {
	case PermissionPrompt:
		return "prompt"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}
