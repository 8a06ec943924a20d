package translate

import (
	"errors"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"
)

func envelope(t *testing.T, content interface{}, usage interface{}) []byte {
	t.Helper()
	msg := map[string]interface{}{"role": "assistant", "content": content}
	env := map[string]interface{}{"choices": []interface{}{map[string]interface{}{"message": msg}}}
	if usage != nil {
		env["usage"] = usage
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return data
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"direct", `{"a":1}`, false},
		{"fenced json", "```json\n{\"a\":1}\n```", false},
		{"fenced bare", "Here you go:\n```\n{\"a\":1}\n```\nThanks", false},
		{"braces in prose", `Sure! The answer is {"a":1} as requested.`, false},
		{"prose only", "I could not understand the audio.", true},
		{"array", `[1,2,3]`, true},
		{"broken", `{"a":`, true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ExtractJSON(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparseable) {
					t.Errorf("ExtractJSON() error = %v, want ErrUnparseable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if obj["a"] != float64(1) {
				t.Errorf("obj = %v", obj)
			}
		})
	}
}

func TestParseResponse_MissingTargetFilledWithEmpty(t *testing.T) {
	body := envelope(t, `{"sourceText":"Good morning","sourceLanguage":"en","translations":{"fr":"Bonjour"}}`, nil)

	result, err := ParseResponse(body, []string{"fr", "de"})
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}

	want := map[string]string{"fr": "Bonjour", "de": ""}
	if !reflect.DeepEqual(result.Translations, want) {
		t.Errorf("Translations = %v, want %v", result.Translations, want)
	}
	if result.SourceText != "Good morning" || result.SourceLanguageCode != "en" || !result.SourceResolved {
		t.Errorf("source = %q/%q/%v", result.SourceText, result.SourceLanguageCode, result.SourceResolved)
	}
	if result.First() != "Bonjour" {
		t.Errorf("First() = %q", result.First())
	}
}

func TestParseResponse_KeysExactlyRequested(t *testing.T) {
	all := []string{"fr", "de", "es", "it", "ja", "ko", "zh", "pt", "nl", "pl"}
	populated := map[string]string{"de": "x", "ja": "y", "extra": "z"}

	for n := 1; n <= len(all); n++ {
		codes := all[:n]
		content, _ := json.Marshal(map[string]interface{}{
			"sourceText": "t", "sourceLanguage": "en", "translations": populated,
		})
		result, err := ParseResponse(envelope(t, string(content), nil), codes)
		if err != nil {
			t.Fatalf("n=%d: ParseResponse() error = %v", n, err)
		}
		if len(result.Translations) != n {
			t.Errorf("n=%d: got %d keys", n, len(result.Translations))
		}
		for _, c := range codes {
			if _, ok := result.Translations[c]; !ok {
				t.Errorf("n=%d: missing key %q", n, c)
			}
		}
		if _, ok := result.Translations["extra"]; ok {
			t.Errorf("n=%d: unrequested key leaked", n)
		}
	}
}

func TestParseResponse_FencedEqualsUnwrapped(t *testing.T) {
	raw := `{"sourceText":"Hi","sourceLanguage":"en","translations":{"fr":"Salut"}}`

	plain, err := ParseResponse(envelope(t, raw, nil), []string{"fr"})
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	fenced, err := ParseResponse(envelope(t, "```json\n"+raw+"\n```", nil), []string{"fr"})
	if err != nil {
		t.Fatalf("fenced: %v", err)
	}

	if !reflect.DeepEqual(plain, fenced) {
		t.Errorf("fenced result %+v differs from plain %+v", fenced, plain)
	}
	if fenced.SourceText != "Hi" || fenced.SourceLanguageCode != "en" || fenced.Translations["fr"] != "Salut" {
		t.Errorf("fenced result = %+v", fenced)
	}
}

func TestParseResponse_ObjectContent(t *testing.T) {
	content := map[string]interface{}{
		"sourceText":     "Hola",
		"sourceLanguage": "ES",
		"translations":   map[string]interface{}{"en": "Hello"},
	}
	result, err := ParseResponse(envelope(t, content, nil), []string{"en"})
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if result.SourceLanguageCode != "es" {
		t.Errorf("SourceLanguageCode = %q, want es", result.SourceLanguageCode)
	}
}

func TestParseResponse_PartArrayContent(t *testing.T) {
	parts := []interface{}{
		map[string]interface{}{"type": "text", "text": `{"sourceText":"a","sourceLanguage":"en",`},
		map[string]interface{}{"type": "text", "text": `"translations":{"de":"b"}}`},
	}
	result, err := ParseResponse(envelope(t, parts, nil), []string{"de"})
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if result.Translations["de"] != "b" {
		t.Errorf("Translations = %v", result.Translations)
	}
}

func TestParseResponse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		wantErr error
	}{
		{"no choices", []byte(`{"choices":[]}`), ErrNoContent},
		{"null content", envelope(t, nil, nil), ErrNoContent},
		{"empty content", envelope(t, "  ", nil), ErrNoContent},
		{"prose", envelope(t, "Sorry, I can't help with that.", nil), ErrUnparseable},
		{"no container", envelope(t, `{"sourceText":"x","sourceLanguage":"en"}`, nil), ErrMissingTranslations},
		{"container not object", envelope(t, `{"sourceText":"x","translations":"Bonjour"}`, nil), ErrMissingTranslations},
		{"container null", envelope(t, `{"translations":null}`, nil), ErrMissingTranslations},
		{"not json", []byte(`<html>`), ErrUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.body, []string{"fr"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseResponse() error = %v, want %v", err, tt.wantErr)
			}
			if !IsKind(err, KindSchema) {
				t.Errorf("error kind should be schema, got %v", err)
			}
		})
	}
}

func TestParseResponse_ProseMessage(t *testing.T) {
	_, err := ParseResponse(envelope(t, "no json here", nil), []string{"fr"})
	if err == nil || err.Error() != "failed to parse response" {
		t.Errorf("error = %v, want \"failed to parse response\"", err)
	}
}

func TestValidate_Stringifies(t *testing.T) {
	obj := map[string]interface{}{
		"transcript": "42",
		"language":   "xx",
		"translations": map[string]interface{}{
			"a": float64(42),
			"b": true,
			"c": map[string]interface{}{"k": "v"},
			"d": nil,
			"e": "plain",
		},
	}
	result, err := Validate(obj, []string{"a", "b", "c", "d", "e", "f"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	want := map[string]string{"a": "42", "b": "true", "c": `{"k":"v"}`, "d": "", "e": "plain", "f": ""}
	if !reflect.DeepEqual(result.Translations, want) {
		t.Errorf("Translations = %v, want %v", result.Translations, want)
	}
	if result.SourceText != "42" {
		t.Errorf("SourceText = %q", result.SourceText)
	}
	if result.SourceLanguageCode != "xx" || result.SourceResolved {
		t.Errorf("unresolved code should be kept raw, got %q resolved=%v", result.SourceLanguageCode, result.SourceResolved)
	}
}

func TestValidate_EmptyTranscriptIsNotAnError(t *testing.T) {
	obj := map[string]interface{}{"sourceText": "", "sourceLanguage": "", "translations": map[string]interface{}{}}
	result, err := Validate(obj, []string{"fr"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.SourceText != "" || result.Translations["fr"] != "" {
		t.Errorf("result = %+v", result)
	}
}

func TestParseUsage(t *testing.T) {
	tests := []struct {
		name  string
		usage string
		want  *Usage
	}{
		{"absent", ``, nil},
		{"null", `null`, nil},
		{"tokens", `{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}`, &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
		{"derived total", `{"prompt_tokens":10,"completion_tokens":5}`, &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
		{"audio seconds", `{"audio_seconds":3.5}`, &Usage{AudioSeconds: 3.5}},
		{"unknown shape", `{"foo":"bar"}`, nil},
		{"wrong type", `"lots"`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseUsage(json.RawMessage(tt.usage))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseUsage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
