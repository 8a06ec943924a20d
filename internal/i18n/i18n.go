// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     i18n
// Description: Message catalog for user-facing CLI and TUI text
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

// Package i18n loads message catalogs from TOML and YAML files and renders
// them for the configured information language. The German and English
// catalogs are embedded; a locales directory can override single keys or
// add further languages.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when no catalog matches the requested language
const DefaultLocale = "de"

//go:embed locales/*.toml
var embedded embed.FS

// Format is the encoding of a catalog file
type Format int

const (
	// FormatTOML is the default catalog format
	FormatTOML Format = iota
	// FormatYAML accepts .yaml and .yml files
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatForPath derives the format from the file extension
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return 0, false
	}
}

// Catalog holds the messages of all loaded locales
type Catalog struct {
	mu            sync.RWMutex
	defaultLocale string
	messages      map[string]map[string]interface{} // locale -> nested messages
}

// New creates an empty catalog
func New(defaultLocale string) *Catalog {
	return &Catalog{
		defaultLocale: defaultLocale,
		messages:      make(map[string]map[string]interface{}),
	}
}

// Embedded returns a fresh catalog holding the built-in locales
func Embedded() (*Catalog, error) {
	c := New(DefaultLocale)
	entries, err := embedded.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		data, err := embedded.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := c.Load(localeFromFile(e.Name()), data, FormatTOML); err != nil {
			return nil, err
		}
	}
	if !c.Has(DefaultLocale) {
		return nil, fmt.Errorf("default locale %q not embedded", DefaultLocale)
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the shared catalog of built-in locales. It is read only
// by convention; load overrides into a catalog from Embedded instead.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Embedded()
		if err != nil {
			panic(fmt.Sprintf("i18n: embedded catalogs are broken: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load parses one catalog and merges it into the locale. Keys already
// present are replaced, all others are kept.
func (c *Catalog) Load(locale string, content []byte, format Format) error {
	var data map[string]interface{}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse TOML catalog %s: %w", locale, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse YAML catalog %s: %w", locale, err)
		}
	default:
		return fmt.Errorf("unsupported catalog format %s", format)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.messages[locale]
	if !ok {
		existing = make(map[string]interface{})
		c.messages[locale] = existing
	}
	merge(existing, data)
	return nil
}

// LoadFile loads a catalog file named after its locale, e.g. "en.yaml"
func (c *Catalog) LoadFile(path string) error {
	format, ok := FormatForPath(path)
	if !ok {
		return fmt.Errorf("unsupported catalog file %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return c.Load(localeFromFile(filepath.Base(path)), content, format)
}

// LoadDir loads every catalog file in dir. Files with other extensions
// are ignored.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read locales directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatForPath(e.Name()); !ok {
			continue
		}
		if err := c.LoadFile(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether the locale is loaded
func (c *Catalog) Has(locale string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.messages[locale]
	return ok
}

// Locales lists the loaded locales, default locale first
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		if l != c.defaultLocale {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	if _, ok := c.messages[c.defaultLocale]; ok {
		out = append([]string{c.defaultLocale}, out...)
	}
	return out
}

// Match returns the loaded locale that best serves the requested language
// tag. "de-AT" is served by "de", "en_GB" by "en". Unknown or malformed
// tags get the default locale.
func (c *Catalog) Match(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return c.defaultLocale
	}
	locales := c.Locales()
	if len(locales) == 0 {
		return c.defaultLocale
	}
	for _, l := range locales {
		if strings.EqualFold(l, requested) {
			return l
		}
	}

	want, err := language.Parse(requested)
	if err != nil {
		return c.defaultLocale
	}
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = language.Make(l)
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return c.defaultLocale
	}
	return locales[idx]
}

// For returns a localizer for the best match of the requested language
func (c *Catalog) For(requested string) *Localizer {
	return &Localizer{
		catalog:   c,
		locale:    c.Match(requested),
		templates: make(map[string]*template.Template),
	}
}

// lookup finds key in locale, then in the default locale
func (c *Catalog) lookup(locale, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := nestedValue(c.messages[locale], key); ok {
		return v, true
	}
	if locale != c.defaultLocale {
		return nestedValue(c.messages[c.defaultLocale], key)
	}
	return "", false
}

// Localizer renders messages for one locale
type Localizer struct {
	catalog *Catalog
	locale  string

	mu        sync.Mutex
	templates map[string]*template.Template
}

// Locale returns the locale the localizer renders
func (l *Localizer) Locale() string {
	if l == nil {
		return DefaultLocale
	}
	return l.locale
}

// T returns the message for key. With data the message is rendered as a
// text/template. Missing keys come back as the key itself. A nil
// localizer uses the default catalog.
func (l *Localizer) T(key string, data ...map[string]interface{}) string {
	if l == nil {
		return Default().For(DefaultLocale).T(key, data...)
	}
	msg, ok := l.catalog.lookup(l.locale, key)
	if !ok {
		return key
	}
	if len(data) == 0 || data[0] == nil {
		return msg
	}
	rendered, err := l.render(key, msg, data[0])
	if err != nil {
		return msg
	}
	return rendered
}

// Tf is T with alternating key/value template data
func (l *Localizer) Tf(key string, kv ...interface{}) string {
	data := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			data[k] = kv[i+1]
		}
	}
	return l.T(key, data)
}

func (l *Localizer) render(key, msg string, data map[string]interface{}) (string, error) {
	l.mu.Lock()
	tmpl, ok := l.templates[key]
	if !ok {
		var err error
		tmpl, err = template.New(key).Option("missingkey=zero").Parse(msg)
		if err != nil {
			l.mu.Unlock()
			return "", err
		}
		l.templates[key] = tmpl
	}
	l.mu.Unlock()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// nestedValue resolves a dotted key like "settings.title"
func nestedValue(data map[string]interface{}, key string) (string, bool) {
	if data == nil {
		return "", false
	}
	parts := strings.Split(key, ".")
	current := data
	for i, k := range parts {
		v, ok := current[k]
		if !ok {
			return "", false
		}
		if i == len(parts)-1 {
			switch v := v.(type) {
			case string:
				return v, true
			case map[string]interface{}:
				return "", false
			default:
				return fmt.Sprintf("%v", v), true
			}
		}
		next, ok := asMap(v)
		if !ok {
			return "", false
		}
		current = next
	}
	return "", false
}

// merge copies src into dst, descending into nested tables
func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		if sm, ok := asMap(v); ok {
			if dm, ok := asMap(dst[k]); ok {
				merge(dm, sm)
				dst[k] = dm
				continue
			}
			fresh := make(map[string]interface{}, len(sm))
			merge(fresh, sm)
			dst[k] = fresh
			continue
		}
		dst[k] = v
	}
}

// asMap accepts both decoded table shapes
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func localeFromFile(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
