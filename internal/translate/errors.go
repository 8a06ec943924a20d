// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     translate
// Description: Error kinds for configuration, transport and schema failures
// Author:      Mike Stoffels
// Created:     2026-10-13
// License:     MIT
// ============================================================================

package translate

import (
	"errors"
	"fmt"
)

// Kind classifies translation failures
type Kind int

const (
	// KindConfig covers problems detected before any network activity
	KindConfig Kind = iota
	// KindTransport covers non-2xx responses and network failures
	KindTransport
	// KindSchema covers responses that arrived but could not be turned
	// into a valid result
	KindSchema
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Configuration errors
var (
	ErrMissingAPIKey     = errors.New("no API key configured, add one in the settings")
	ErrNoTargetLanguages = errors.New("no target languages selected")
	ErrTooManyTargets    = fmt.Errorf("at most %d target languages can be selected", MaxTargets)
	ErrEmptyAudio        = errors.New("audio payload is empty")
)

// Schema errors
var (
	ErrNoContent           = errors.New("no content returned")
	ErrUnparseable         = errors.New("failed to parse response")
	ErrMissingTranslations = errors.New("response is missing the translations object")
)

// Error is the failure side of a translation call
type Error struct {
	Kind   Kind
	Status int    // HTTP status for transport errors, 0 otherwise
	Body   string // upstream error body for transport errors
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindTransport && e.Status != 0:
		return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func configError(err error) *Error {
	return &Error{Kind: KindConfig, Err: err}
}

func schemaError(err error) *Error {
	return &Error{Kind: KindSchema, Err: err}
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
