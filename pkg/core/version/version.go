// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     version
// Description: Central version management
// Author:      Mike Stoffels
// Created:     2026-10-12
// License:     MIT
// ============================================================================

package version

// Version constants
const (
	// Application version
	App = "1.2.0"

	// Component versions
	Recorder     = "1.0.0"
	Translator   = "1.2.0"
	Store        = "1.1.0"
	Settings     = "1.1.0"
	Orchestrator = "1.0.0"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "recorder":
		return Recorder
	case "translator":
		return Translator
	case "store":
		return Store
	case "settings":
		return Settings
	case "orchestrator":
		return Orchestrator
	default:
		return App
	}
}

// UserAgent returns the HTTP User-Agent sent to the translation API
func UserAgent() string {
	return "dolmetscher/" + App
}
