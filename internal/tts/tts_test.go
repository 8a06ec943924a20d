package tts

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"testing"
)

type voiceMap map[string]string

func (m voiceMap) Voice(lang string) string { return m[lang] }

// trueEngine runs a command that exits immediately
type trueEngine struct {
	available bool
	gotVoice  string
}

func (e *trueEngine) Name() string      { return "true" }
func (e *trueEngine) IsAvailable() bool { return e.available }
func (e *trueEngine) Command(ctx context.Context, text, voice, lang string) *exec.Cmd {
	e.gotVoice = voice
	return exec.CommandContext(ctx, "true")
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		engine   string
		wantName string
		wantErr  bool
	}{
		{EngineSay, EngineSay, false},
		{EngineESpeak, EngineESpeak, false},
		{EngineNone, "", false},
		{"", "", false},
		{"festival", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			e, err := NewEngine(Config{Engine: tt.engine, Rate: 150})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEngine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantName == "" {
				if e != nil {
					t.Errorf("NewEngine() = %v, want nil", e)
				}
				return
			}
			if e.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", e.Name(), tt.wantName)
			}
		})
	}
}

func TestSayArgs(t *testing.T) {
	e := &Say{rate: 180}
	got := e.args("Bonjour", "Thomas")
	want := []string{"-v", "Thomas", "-r", "180", "Bonjour"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args() = %v, want %v", got, want)
	}

	got = (&Say{}).args("Hi", "")
	if !reflect.DeepEqual(got, []string{"Hi"}) {
		t.Errorf("args() without voice = %v", got)
	}
}

func TestESpeakArgs(t *testing.T) {
	e := &ESpeak{rate: 160}

	got := e.args("-5 Grad", "", "pt-BR")
	want := []string{"-v", "pt-br", "-s", "160", "--", "-5 Grad"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args() = %v, want %v", got, want)
	}

	got = e.args("Hallo", "de+f3", "de")
	if got[1] != "de+f3" {
		t.Errorf("explicit voice not used: %v", got)
	}
}

func TestSpeaker_Disabled(t *testing.T) {
	s := NewSpeaker(nil, nil)
	if err := s.Speak(context.Background(), "Hallo", "de"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Speak() error = %v, want ErrDisabled", err)
	}
}

func TestSpeaker_Unavailable(t *testing.T) {
	s := NewSpeaker(&trueEngine{available: false}, nil)
	if err := s.Speak(context.Background(), "Hallo", "de"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Speak() error = %v, want ErrUnavailable", err)
	}
}

func TestSpeaker_EmptyTextIsNoop(t *testing.T) {
	e := &trueEngine{available: false}
	s := NewSpeaker(e, nil)
	if err := s.Speak(context.Background(), "   ", "de"); err != nil {
		t.Errorf("Speak() error = %v, want nil", err)
	}
}

func TestSpeaker_UsesConfiguredVoice(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	e := &trueEngine{available: true}
	s := NewSpeaker(e, voiceMap{"fr": "Amelie"})

	if err := s.Speak(context.Background(), "Bonjour", "fr"); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if e.gotVoice != "Amelie" {
		t.Errorf("voice = %q, want Amelie", e.gotVoice)
	}
	if s.Speaking() {
		t.Error("Speaking() should be false after playback")
	}
}

func TestVoiceFor_FallsBackToLanguageDefault(t *testing.T) {
	s := NewSpeaker(&Say{}, voiceMap{})
	if got := s.VoiceFor("de"); got != "Anna" {
		t.Errorf("VoiceFor(de) = %q, want Anna", got)
	}

	// espeak-ng picks its own voice from the language code
	s = NewSpeaker(&ESpeak{}, voiceMap{})
	if got := s.VoiceFor("de"); got != "" {
		t.Errorf("VoiceFor(de) with espeak = %q, want empty", got)
	}
}
