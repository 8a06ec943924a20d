package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/i18n"
	"github.com/msto63/dolmetscher/internal/orchestrator"
	"github.com/msto63/dolmetscher/internal/settings"
	"github.com/msto63/dolmetscher/internal/store"
	"github.com/msto63/dolmetscher/internal/translate"
)

// setupCLI points the commands at a throwaway config and data directory
func setupCLI(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")

	cfg := fmt.Sprintf(`[general]
data_dir = %q
log_level = "error"

[api]
base_url = %q
model = "test-model"
timeout = "5s"

[tts]
engine = "none"
`, filepath.Join(dir, "data"), baseURL)

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSettingsCommands(t *testing.T) {
	setupCLI(t, "https://api.example.com/v1")

	out, err := run(t, "settings")
	if err != nil {
		t.Fatalf("settings error = %v", err)
	}
	if !strings.Contains(out, "nicht gesetzt") {
		t.Errorf("fresh settings should show no key:\n%s", out)
	}

	if _, err := run(t, "settings", "set-key", "sk-abcdefghijkl"); err != nil {
		t.Fatalf("set-key error = %v", err)
	}
	out, err = run(t, "settings", "set-targets", "fr,es,fr")
	if err != nil {
		t.Fatalf("set-targets error = %v", err)
	}
	if !strings.Contains(out, "French (fr), Spanish (es)") {
		t.Errorf("targets not shown:\n%s", out)
	}
	if strings.Contains(out, "sk-abcdefghijkl") {
		t.Error("API key must be masked")
	}

	if _, err := run(t, "settings", "set-multi", "vielleicht"); err == nil {
		t.Error("set-multi with an invalid value should fail")
	}
}

func TestSettingsMigrateCommand(t *testing.T) {
	home := setupCLI(t, "https://api.example.com/v1")

	legacyDir := filepath.Join(home, ".config", "dolmetscher")
	if err := os.MkdirAll(legacyDir, 0755); err != nil {
		t.Fatal(err)
	}
	legacy := `{"targetLanguage":"ja","ttsVoice:ja":"Kyoko"}`
	if err := os.WriteFile(filepath.Join(legacyDir, "settings.json"), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "settings", "migrate")
	if err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if !strings.Contains(out, "übernommen") {
		t.Errorf("first migrate output = %q", out)
	}

	out, err = run(t, "settings", "migrate")
	if err != nil {
		t.Fatalf("second migrate error = %v", err)
	}
	if !strings.Contains(out, "Nichts zu übernehmen") {
		t.Errorf("second migrate output = %q", out)
	}

	out, _ = run(t, "settings", "show")
	if !strings.Contains(out, "Japanese (ja)") || !strings.Contains(out, "Kyoko") {
		t.Errorf("migrated values missing:\n%s", out)
	}
}

func TestTranslateAndTranscriptCommands(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"sourceText":"Guten Morgen","sourceLanguage":"de","translations":{"fr":"Bonjour"}}`
		body, _ := json.Marshal(map[string]interface{}{
			"choices": []interface{}{map[string]interface{}{
				"message": map[string]interface{}{"role": "assistant", "content": content},
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer server.Close()

	home := setupCLI(t, server.URL)

	wav := filepath.Join(home, "memo.wav")
	if err := os.WriteFile(wav, audio.EncodeWAV(make([]float32, 1600), 16000, 1), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "settings", "set-key", "sk-test"); err != nil {
		t.Fatalf("set-key error = %v", err)
	}
	if _, err := run(t, "settings", "set-targets", "fr"); err != nil {
		t.Fatalf("set-targets error = %v", err)
	}

	out, err := run(t, "translate", wav, "--json", "--save")
	if err != nil {
		t.Fatalf("translate error = %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result["sourceText"] != "Guten Morgen" {
		t.Errorf("sourceText = %v", result["sourceText"])
	}
	translateJSON, translateSave = false, false

	out, err = run(t, "transcripts", "list")
	if err != nil {
		t.Fatalf("transcripts list error = %v", err)
	}
	if !strings.Contains(out, "#1") || !strings.Contains(out, "Guten Morgen") {
		t.Errorf("list output:\n%s", out)
	}

	if _, err := run(t, "transcripts", "retranslate", "1"); err != nil {
		t.Fatalf("retranslate error = %v", err)
	}
	out, err = run(t, "transcripts", "group", "2")
	if err != nil {
		t.Fatalf("group error = %v", err)
	}
	if !strings.Contains(out, "2 Varianten") || !strings.Contains(out, "└ #2") {
		t.Errorf("group output:\n%s", out)
	}

	exported := filepath.Join(home, "out.wav")
	if _, err := run(t, "transcripts", "export-audio", "1", exported); err != nil {
		t.Fatalf("export-audio error = %v", err)
	}
	if data, err := os.ReadFile(exported); err != nil || !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Errorf("exported audio invalid: %v", err)
	}

	if _, err := run(t, "transcripts", "delete", "1"); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if _, err := run(t, "transcripts", "show", "1"); err == nil {
		t.Error("show of a deleted transcript should fail")
	}
	if _, err := run(t, "transcripts", "show", "2"); err != nil {
		t.Errorf("variant should survive parent removal: %v", err)
	}
}

func TestTranslate_MissingKeyFailsBeforeNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	home := setupCLI(t, server.URL)
	wav := filepath.Join(home, "memo.wav")
	os.WriteFile(wav, audio.EncodeWAV(make([]float32, 160), 16000, 1), 0644)

	_, err := run(t, "translate", wav)
	if err == nil || !strings.Contains(err.Error(), translate.ErrMissingAPIKey.Error()) {
		t.Errorf("error = %v, want missing key", err)
	}
	if calls != 0 {
		t.Errorf("server called %d times", calls)
	}
}

func TestPrintState(t *testing.T) {
	var buf bytes.Buffer
	printState(&buf, nil, orchestrator.State{
		SourceText:         "hola",
		SourceLanguageCode: "xx",
		TargetCodes:        []string{"de"},
		Translations:       map[string]string{"de": "hallo\nwelt"},
		Usage:              &translate.Usage{TotalTokens: 9, PromptTokens: 7, CompletionTokens: 2},
	})
	out := buf.String()
	for _, want := range []string{"nicht in der Sprachtabelle", "German (de)", "  hallo\n  welt", "Tokens: 9"} {
		if !strings.Contains(out, want) {
			t.Errorf("printState() missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSettings_Voices(t *testing.T) {
	s := settings.Defaults()
	s.TTSVoicePerLanguage = map[string]string{"fr": "Thomas", "de": "Anna"}
	s.UpdatedAt = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	printSettings(&buf, nil, s)
	out := buf.String()
	if strings.Index(out, "de     Anna") > strings.Index(out, "fr     Thomas") {
		t.Errorf("voices not sorted:\n%s", out)
	}
	if !strings.Contains(out, "automatisch") {
		t.Error("auto source not shown")
	}
}

func TestSettings_InfoLanguageSwitchesOutput(t *testing.T) {
	setupCLI(t, "https://api.example.com/v1")

	tests := []struct {
		lang    string
		want    []string
		wantNot string
	}{
		{"de", []string{"Einstellungen", "API-Schlüssel:", "nicht gesetzt", "automatisch"}, "Settings"},
		{"en", []string{"Settings\n========", "API key:", "not set", "automatic", "English (en)"}, "Einstellungen"},
		{"en-GB", []string{"Settings", "Target language:"}, "Zielsprache"},
		{"fr", []string{"Einstellungen"}, "Settings"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			out, err := run(t, "settings", "set-info-language", tt.lang)
			if err != nil {
				t.Fatalf("set-info-language error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			if strings.Contains(out, tt.wantNot) {
				t.Errorf("output should not contain %q:\n%s", tt.wantNot, out)
			}
		})
	}
}

func TestPrintTranscript(t *testing.T) {
	tr := &store.Transcript{
		ID:                 3,
		CreatedAt:          time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
		VariantGroupID:     "g-1",
		SourceText:         "Guten Morgen",
		SourceLanguageCode: "de",
		TargetCodes:        []string{"fr"},
		Translations:       map[string]string{"fr": "Bonjour"},
		Usage:              &store.Usage{AudioSeconds: 2.5, TotalTokens: 12, PromptTokens: 10, CompletionTokens: 2},
	}

	tests := []struct {
		locale string
		want   []string
	}{
		{"de", []string{"Transkript #3", "Verbrauch:", "2.5s Audio", "12 Tokens (10 ein, 2 aus)", "Original (German (de))"}},
		{"en", []string{"Transcript #3", "Usage:", "2.5s audio", "12 tokens (10 in, 2 out)", "French (fr)"}},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			var buf bytes.Buffer
			printTranscript(&buf, i18n.Default().For(tt.locale), tr)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("printTranscript() missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestPrintState_English(t *testing.T) {
	var buf bytes.Buffer
	printState(&buf, i18n.Default().For("en"), orchestrator.State{SourceText: "x", SourceLanguageCode: "xx"})
	if !strings.Contains(buf.String(), "not in the language table") {
		t.Errorf("printState() = %q", buf.String())
	}
}

func TestHelpers(t *testing.T) {
	if got := maskKey("sk-abcdefghijkl"); got != "sk-******ijkl" {
		t.Errorf("maskKey() = %q", got)
	}
	if got := maskKey("short"); got != "*****" {
		t.Errorf("maskKey(short) = %q", got)
	}
	if got := truncate("äöüäöü", 4); got != "äöü…" {
		t.Errorf("truncate() = %q", got)
	}
	if _, err := parseID("0"); err == nil {
		t.Error("parseID(0) should fail")
	}
	if on, err := parseOnOff("Ja"); err != nil || !on {
		t.Errorf("parseOnOff(Ja) = %v, %v", on, err)
	}
}
