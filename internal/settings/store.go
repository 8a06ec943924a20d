package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// State is the load state of the settings store
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
)

// String returns the display name of the state
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Nicht geladen"
	case StateLoading:
		return "Lade..."
	case StateLoaded:
		return "Geladen"
	default:
		return "Unbekannt"
	}
}

// ErrNotLoaded is returned by mutators called before EnsureLoaded
var ErrNotLoaded = errors.New("settings not loaded")

// Backend persists the serialized settings record
type Backend interface {
	LoadSettings(ctx context.Context) ([]byte, bool, error)
	SaveSettings(ctx context.Context, data []byte, updatedAt time.Time) error
}

// Legacy is the flat key/value file of earlier releases
type Legacy interface {
	ReadAll() (map[string]string, error)
	Delete(keys ...string) error
}

// Legacy key names
const (
	legacyTargetLanguage = "targetLanguage"
	legacySourceLanguage = "sourceLanguage"
	legacyInfoLanguage   = "infoLanguage"
	legacySetupComplete  = "languageSetupComplete"
	legacyAPIKey         = "apiKey"
	legacyVoicePrefix    = "ttsVoice:"
)

// Store holds the process-wide settings record
type Store struct {
	backend Backend
	legacy  Legacy
	logger  *logging.Logger
	now     func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	state     State
	current   AppSettings
	listeners map[int]func(AppSettings)
	nextID    int
}

// Option configures a Store
type Option func(*Store)

// WithLegacy enables one-way migration from a legacy flat file
func WithLegacy(l Legacy) Option {
	return func(s *Store) { s.legacy = l }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an unloaded store over backend
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		logger:    logging.New("settings"),
		now:       time.Now,
		current:   Defaults(),
		listeners: make(map[int]func(AppSettings)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current load state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns a copy of the settings
func (s *Store) Current() AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// TargetCodes returns the effective target languages
func (s *Store) TargetCodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.TargetCodes()
}

// EnsureLoaded loads the record once. Concurrent callers share one load;
// a failed load leaves the store unloaded so the next call retries.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateLoaded {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	_, err, _ := s.group.Do("load", func() (interface{}, error) {
		s.mu.RLock()
		loaded := s.state == StateLoaded
		s.mu.RUnlock()
		if loaded {
			return nil, nil
		}
		return nil, s.load(ctx)
	})
	if err != nil {
		s.mu.Lock()
		if s.state != StateLoaded {
			s.state = StateUnloaded
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	if _, err := s.Migrate(ctx); err != nil {
		return err
	}

	data, found, err := s.backend.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := Defaults()
	if found {
		loaded = AppSettings{}
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("failed to decode settings: %w", err)
		}
		if upgrade(&loaded) {
			s.logger.Info("Upgraded settings schema", "version", loaded.SchemaVersion)
			if err := s.persist(ctx, loaded); err != nil {
				return err
			}
		}
	} else {
		loaded.UpdatedAt = s.now()
		if err := s.persist(ctx, loaded); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.state = StateLoaded
	s.mu.Unlock()

	s.logger.Debug("Settings loaded", "targets", strings.Join(loaded.TargetCodes(), ","))
	s.notify(loaded)
	return nil
}

// Migrate copies legacy values into a fresh record. It does nothing when a
// record already exists or no legacy source is configured, and reports
// whether a migration happened. Legacy keys are removed afterwards.
func (s *Store) Migrate(ctx context.Context) (bool, error) {
	if s.legacy == nil {
		return false, nil
	}

	_, found, err := s.backend.LoadSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check settings: %w", err)
	}
	if found {
		return false, nil
	}

	values, err := s.legacy.ReadAll()
	if err != nil {
		return false, err
	}
	if len(values) == 0 {
		return false, nil
	}

	migrated, keys := fromLegacy(values)
	migrated.UpdatedAt = s.now()
	if err := s.persist(ctx, migrated); err != nil {
		return false, err
	}

	if err := s.legacy.Delete(keys...); err != nil {
		// the record exists now, so a rerun will not migrate again
		s.logger.Warn("Failed to remove legacy settings", "error", err)
	}

	s.logger.Info("Migrated legacy settings", "keys", len(keys))
	return true, nil
}

// fromLegacy builds a record from flat legacy values and returns the keys
// that were consumed
func fromLegacy(values map[string]string) (AppSettings, []string) {
	out := Defaults()
	var keys []string

	if v, ok := values[legacyTargetLanguage]; ok {
		keys = append(keys, legacyTargetLanguage)
		if v = strings.TrimSpace(v); v != "" {
			out.TargetLangSingle = v
			out.ExtendedTargetLangs = []string{v}
		}
	}
	if v, ok := values[legacySourceLanguage]; ok {
		keys = append(keys, legacySourceLanguage)
		v = strings.TrimSpace(v)
		if v == "auto" {
			v = ""
		}
		out.SourceLangPreference = v
	}
	if v, ok := values[legacyInfoLanguage]; ok {
		keys = append(keys, legacyInfoLanguage)
		if v = strings.TrimSpace(v); v != "" {
			out.InfoLanguage = v
		}
	}
	if v, ok := values[legacySetupComplete]; ok {
		keys = append(keys, legacySetupComplete)
		out.HasCompletedLanguageSetup = v == "true" || v == "1"
	}
	if v, ok := values[legacyAPIKey]; ok {
		keys = append(keys, legacyAPIKey)
		out.APIKey = strings.TrimSpace(v)
	}
	for k, v := range values {
		if !strings.HasPrefix(k, legacyVoicePrefix) {
			continue
		}
		keys = append(keys, k)
		lang := strings.TrimPrefix(k, legacyVoicePrefix)
		if lang != "" && v != "" {
			out.TTSVoicePerLanguage[lang] = v
		}
	}
	return out, keys
}

// Update applies p, stamps UpdatedAt and persists the whole record
func (s *Store) Update(ctx context.Context, p Patch) (AppSettings, error) {
	s.mu.Lock()
	if s.state != StateLoaded {
		s.mu.Unlock()
		return AppSettings{}, ErrNotLoaded
	}
	next := s.current.clone()
	p.apply(&next)
	next.SchemaVersion = CurrentSchemaVersion
	next.UpdatedAt = s.now()

	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return AppSettings{}, err
	}
	s.current = next
	s.mu.Unlock()

	s.notify(next)
	return next.clone(), nil
}

func (s *Store) persist(ctx context.Context, v AppSettings) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.backend.SaveSettings(ctx, data, v.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Subscribe registers fn for every change and returns a function that
// removes it
func (s *Store) Subscribe(fn func(AppSettings)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(v AppSettings) {
	s.mu.RLock()
	fns := make([]func(AppSettings), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(v.clone())
	}
}

// SetAPIKey stores the credential, trimmed
func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	_, err := s.Update(ctx, Patch{APIKey: &key})
	return err
}

// SetSourceLang sets the source preference; "" or "auto" means auto-detect
func (s *Store) SetSourceLang(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "auto" {
		code = ""
	}
	_, err := s.Update(ctx, Patch{SourceLangPreference: &code})
	return err
}

// SetTargetLang sets the single target language
func (s *Store) SetTargetLang(ctx context.Context, code string) error {
	_, err := s.Update(ctx, Patch{TargetLangSingle: &code})
	return err
}

// SetExtendedTargetLangs replaces the extended list. Duplicates are dropped
// and the list is truncated to MaxExtendedTargets.
func (s *Store) SetExtendedTargetLangs(ctx context.Context, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	_, err := s.Update(ctx, Patch{ExtendedTargetLangs: codes})
	return err
}

// SetMultiTarget switches between single and extended target mode
func (s *Store) SetMultiTarget(ctx context.Context, on bool) error {
	_, err := s.Update(ctx, Patch{MultiTarget: &on})
	return err
}

// SetTTSVoice sets the voice for one language. An empty voice removes it.
func (s *Store) SetTTSVoice(ctx context.Context, lang, voice string) error {
	_, err := s.Update(ctx, Patch{TTSVoices: map[string]string{lang: voice}})
	return err
}

// SetInfoLanguage sets the language of informational UI text
func (s *Store) SetInfoLanguage(ctx context.Context, code string) error {
	_, err := s.Update(ctx, Patch{InfoLanguage: &code})
	return err
}

// CompleteLanguageSetup marks the first-run language setup as done
func (s *Store) CompleteLanguageSetup(ctx context.Context) error {
	done := true
	_, err := s.Update(ctx, Patch{HasCompletedLanguageSetup: &done})
	return err
}
