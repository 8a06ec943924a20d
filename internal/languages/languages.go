// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     languages
// Description: Language table and resolution of detected language codes
// Author:      Mike Stoffels
// Created:     2026-10-12
// License:     MIT
// ============================================================================

// Package languages holds the local language table used for display names,
// target selection and resolution of detected source languages.
package languages

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Language describes one selectable language
type Language struct {
	Code         string // BCP 47 style code, e.g. "de" or "pt-BR"
	Name         string // English display name
	NativeName   string
	DefaultVoice string // TTS voice hint, may be empty
}

var table = []Language{
	{"ar", "Arabic", "العربية", "Majed"},
	{"bg", "Bulgarian", "Български", ""},
	{"cs", "Czech", "Čeština", "Zuzana"},
	{"da", "Danish", "Dansk", "Sara"},
	{"de", "German", "Deutsch", "Anna"},
	{"el", "Greek", "Ελληνικά", "Melina"},
	{"en", "English", "English", "Samantha"},
	{"en-GB", "English (UK)", "English (UK)", "Daniel"},
	{"es", "Spanish", "Español", "Monica"},
	{"es-MX", "Spanish (Mexico)", "Español (México)", "Paulina"},
	{"fa", "Persian", "فارسی", ""},
	{"fi", "Finnish", "Suomi", "Satu"},
	{"fr", "French", "Français", "Thomas"},
	{"fr-CA", "French (Canada)", "Français (Canada)", "Amelie"},
	{"he", "Hebrew", "עברית", "Carmit"},
	{"hi", "Hindi", "हिन्दी", "Lekha"},
	{"hr", "Croatian", "Hrvatski", ""},
	{"hu", "Hungarian", "Magyar", "Mariska"},
	{"id", "Indonesian", "Bahasa Indonesia", "Damayanti"},
	{"it", "Italian", "Italiano", "Alice"},
	{"ja", "Japanese", "日本語", "Kyoko"},
	{"ko", "Korean", "한국어", "Yuna"},
	{"nl", "Dutch", "Nederlands", "Xander"},
	{"no", "Norwegian", "Norsk", "Nora"},
	{"pl", "Polish", "Polski", "Zosia"},
	{"pt", "Portuguese", "Português", "Joana"},
	{"pt-BR", "Portuguese (Brazil)", "Português (Brasil)", "Luciana"},
	{"ro", "Romanian", "Română", "Ioana"},
	{"ru", "Russian", "Русский", "Milena"},
	{"sk", "Slovak", "Slovenčina", "Laura"},
	{"sr", "Serbian", "Српски", ""},
	{"sv", "Swedish", "Svenska", "Alva"},
	{"sw", "Swahili", "Kiswahili", ""},
	{"th", "Thai", "ไทย", "Kanya"},
	{"tl", "Filipino", "Filipino", ""},
	{"tr", "Turkish", "Türkçe", "Yelda"},
	{"uk", "Ukrainian", "Українська", ""},
	{"ur", "Urdu", "اردو", ""},
	{"vi", "Vietnamese", "Tiếng Việt", "Linh"},
	{"zh", "Chinese", "中文", "Tingting"},
	{"zh-TW", "Chinese (Traditional)", "繁體中文", "Meijia"},
}

var byCode map[string]Language

func init() {
	byCode = make(map[string]Language, len(table))
	for _, l := range table {
		byCode[l.Code] = l
	}
}

// All returns the language table sorted by display name
func All() []Language {
	out := make([]Language, len(table))
	copy(out, table)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the language with exactly this code
func Lookup(code string) (Language, bool) {
	l, ok := byCode[code]
	return l, ok
}

// DisplayName returns the display name for a code, or the code itself
// when it is not in the table
func DisplayName(code string) string {
	if l, ok := byCode[code]; ok {
		return l.Name
	}
	if l, ok := Resolve(code); ok {
		return l.Name
	}
	return code
}

// DisplayNames maps every code to its display name
func DisplayNames(codes []string) map[string]string {
	names := make(map[string]string, len(codes))
	for _, c := range codes {
		names[c] = DisplayName(c)
	}
	return names
}

// Resolve matches a detected language code against the table. Strategies
// in order: exact match, case-insensitive match, then the first locale
// whose code starts with the detected code plus "-". When none of them
// hit, the code is canonicalized as a BCP 47 tag ("pt_br" becomes
// "pt-BR", "iw" becomes "he") and the strategies run again. The boolean
// is false when nothing matched.
func Resolve(detected string) (Language, bool) {
	detected = strings.TrimSpace(detected)
	if detected == "" {
		return Language{}, false
	}

	if l, ok := match(detected); ok {
		return l, true
	}

	tag, err := language.Parse(detected)
	if err != nil {
		return Language{}, false
	}
	if canonical := tag.String(); canonical != detected {
		return match(canonical)
	}
	return Language{}, false
}

func match(code string) (Language, bool) {
	if l, ok := byCode[code]; ok {
		return l, true
	}

	for _, l := range table {
		if strings.EqualFold(l.Code, code) {
			return l, true
		}
	}

	prefix := strings.ToLower(code) + "-"
	for _, l := range table {
		if strings.HasPrefix(strings.ToLower(l.Code), prefix) {
			return l, true
		}
	}

	return Language{}, false
}

// ResolveCode returns the resolved table code, or the raw detected code
// when it cannot be resolved
func ResolveCode(detected string) string {
	if l, ok := Resolve(detected); ok {
		return l.Code
	}
	return strings.TrimSpace(detected)
}

// IsKnown reports whether the code is in the table
func IsKnown(code string) bool {
	_, ok := byCode[code]
	return ok
}
