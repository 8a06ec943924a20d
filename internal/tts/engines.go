package tts

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Say speaks through the macOS say command
type Say struct {
	rate int
}

func (e *Say) Name() string { return EngineSay }

// IsAvailable checks if say is installed
func (e *Say) IsAvailable() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	_, err := exec.LookPath("say")
	return err == nil
}

// Command builds the say invocation
func (e *Say) Command(ctx context.Context, text, voice, _ string) *exec.Cmd {
	return exec.CommandContext(ctx, "say", e.args(text, voice)...)
}

func (e *Say) args(text, voice string) []string {
	var args []string
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if e.rate > 0 {
		args = append(args, "-r", strconv.Itoa(e.rate))
	}
	return append(args, text)
}

// ESpeak speaks through espeak-ng
type ESpeak struct {
	rate int
}

func (e *ESpeak) Name() string { return EngineESpeak }

// IsAvailable checks if espeak-ng is installed
func (e *ESpeak) IsAvailable() bool {
	_, err := exec.LookPath("espeak-ng")
	return err == nil
}

// Command builds the espeak-ng invocation. Without an explicit voice the
// language code selects one.
func (e *ESpeak) Command(ctx context.Context, text, voice, lang string) *exec.Cmd {
	return exec.CommandContext(ctx, "espeak-ng", e.args(text, voice, lang)...)
}

func (e *ESpeak) args(text, voice, lang string) []string {
	var args []string
	switch {
	case voice != "":
		args = append(args, "-v", voice)
	case lang != "":
		args = append(args, "-v", strings.ToLower(lang))
	}
	if e.rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.rate))
	}
	// "--" keeps text starting with a dash from being read as a flag
	return append(args, "--", text)
}
