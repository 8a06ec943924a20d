package translate

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestNewRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		audio   string
		codes   []string
		wantErr error
	}{
		{"no targets", "UklGRg==", nil, ErrNoTargetLanguages},
		{"blank targets", "UklGRg==", []string{"", " "}, ErrNoTargetLanguages},
		{"too many", "UklGRg==", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}, ErrTooManyTargets},
		{"empty audio", "", []string{"fr"}, ErrEmptyAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(tt.audio, tt.codes, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewRequest() error = %v, want %v", err, tt.wantErr)
			}
			if !IsKind(err, KindConfig) {
				t.Errorf("error kind should be config, got %v", err)
			}
		})
	}
}

func TestNewRequest_DedupesAndNames(t *testing.T) {
	req, err := NewRequest("UklGRg==", []string{"fr", "de", "fr", "xx"}, map[string]string{"fr": "French", "de": "German"})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if strings.Join(req.TargetCodes, ",") != "fr,de,xx" {
		t.Errorf("TargetCodes = %v, want [fr de xx]", req.TargetCodes)
	}
	if req.TargetNames["xx"] != "xx" {
		t.Errorf("unknown code should use code as name, got %q", req.TargetNames["xx"])
	}
}

func TestBuildPayload_StrictSchema(t *testing.T) {
	req, _ := NewRequest("QUJD", []string{"fr", "de"}, map[string]string{"fr": "French", "de": "German"})
	payload := buildPayload(req, "test-model", ModeStrictSchema)

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Strict bool `json:"strict"`
				Schema struct {
					Required             []string `json:"required"`
					AdditionalProperties bool     `json:"additionalProperties"`
					Properties           struct {
						Translations struct {
							Required             []string                   `json:"required"`
							AdditionalProperties bool                       `json:"additionalProperties"`
							Properties           map[string]json.RawMessage `json:"properties"`
						} `json:"translations"`
					} `json:"properties"`
				} `json:"schema"`
			} `json:"json_schema"`
		} `json:"response_format"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.Model != "test-model" {
		t.Errorf("model = %q", decoded.Model)
	}
	rf := decoded.ResponseFormat
	if rf.Type != "json_schema" || !rf.JSONSchema.Strict {
		t.Errorf("response_format = %+v, want strict json_schema", rf)
	}
	if strings.Join(rf.JSONSchema.Schema.Required, ",") != "sourceText,sourceLanguage,translations" {
		t.Errorf("required = %v", rf.JSONSchema.Schema.Required)
	}
	if rf.JSONSchema.Schema.AdditionalProperties {
		t.Error("top level schema must be closed")
	}
	tr := rf.JSONSchema.Schema.Properties.Translations
	if strings.Join(tr.Required, ",") != "fr,de" || tr.AdditionalProperties || len(tr.Properties) != 2 {
		t.Errorf("translations schema = %+v", tr)
	}

	if len(decoded.Messages) != 2 || decoded.Messages[0].Role != "system" || decoded.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", decoded.Messages)
	}

	var parts []contentPart
	if err := json.Unmarshal(decoded.Messages[1].Content, &parts); err != nil {
		t.Fatalf("user content is not a part array: %v", err)
	}
	if len(parts) != 2 || parts[0].Type != "input_audio" || parts[0].InputAudio.Data != "QUJD" || parts[0].InputAudio.Format != "wav" {
		t.Errorf("audio part = %+v", parts[0])
	}
	if parts[1].Type != "text" || !strings.Contains(parts[1].Text, "French (fr)") || !strings.Contains(parts[1].Text, "German (de)") {
		t.Errorf("text part = %+v", parts[1])
	}
}

func TestBuildPayload_JSONObjectMode(t *testing.T) {
	req, _ := NewRequest("QUJD", []string{"fr"}, nil)
	payload := buildPayload(req, "m", ModeJSONObject)

	if payload.ResponseFormat.Type != "json_object" || payload.ResponseFormat.JSONSchema != nil {
		t.Errorf("response_format = %+v, want bare json_object", payload.ResponseFormat)
	}
	if ModeJSONObject.String() != "json_object" || ModeStrictSchema.String() != "json_schema" {
		t.Error("ResponseMode.String() mismatch")
	}
}

func TestInstructions(t *testing.T) {
	req, _ := NewRequest("QUJD", []string{"fr", "ja"}, map[string]string{"fr": "French", "ja": "Japanese"})
	req.SourceLanguageHint = "de"

	text := instructions(req)
	for _, want := range []string{"- fr: French", "- ja: Japanese", "verbatim", "unchanged", `"de"`} {
		if !strings.Contains(text, want) {
			t.Errorf("instructions missing %q:\n%s", want, text)
		}
	}

	req.SourceLanguageHint = ""
	if strings.Contains(instructions(req), "usually speaks") {
		t.Error("hint line should be omitted without a hint")
	}
}

func TestBuildRequest_EncodesMode(t *testing.T) {
	req, err := NewRequest("UklGRg==", []string{"fr"}, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	data, err := BuildRequest(req, "test-model", ModeJSONObject)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded["model"] != "test-model" {
		t.Errorf("model = %v, want test-model", decoded["model"])
	}
	rf, _ := decoded["response_format"].(map[string]interface{})
	if rf["type"] != "json_object" {
		t.Errorf("response_format.type = %v, want json_object", rf["type"])
	}

	if _, err := BuildRequest(nil, "m", ModeStrictSchema); err == nil {
		t.Error("BuildRequest(nil) should fail")
	}
}
