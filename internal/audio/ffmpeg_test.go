package audio

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestFloat32FromLE(t *testing.T) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-1))

	got, err := float32FromLE(raw)
	if err != nil {
		t.Fatalf("float32FromLE() error = %v", err)
	}
	if len(got) != 2 || got[0] != 0.25 || got[1] != -1 {
		t.Errorf("float32FromLE() = %v", got)
	}

	if _, err := float32FromLE(raw[:5]); err == nil {
		t.Error("float32FromLE() expected error for truncated input")
	}
}

func TestFFmpegDecoder_Args(t *testing.T) {
	d := NewFFmpegDecoder("", 16000, 1)
	if d.BinaryPath != "ffmpeg" {
		t.Errorf("BinaryPath = %q, want ffmpeg", d.BinaryPath)
	}

	args := strings.Join(d.args(), " ")
	for _, want := range []string{"-i pipe:0", "-f f32le", "-ac 1", "-ar 16000", "pipe:1"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestFFmpegDecoder_MissingBinary(t *testing.T) {
	d := NewFFmpegDecoder("/nonexistent/ffmpeg-binary", 16000, 1)
	if d.IsAvailable() {
		t.Fatal("IsAvailable() = true for missing binary")
	}
	if _, err := d.Decode(context.Background(), []byte("x"), "audio/webm"); err == nil {
		t.Error("Decode() expected error for missing binary")
	}
}

func TestPermission_String(t *testing.T) {
	tests := []struct {
		p    Permission
		want string
	}{
		{PermissionUnknown, "unknown"},
		{PermissionPrompt, "prompt"},
		{PermissionGranted, "granted"},
		{PermissionDenied, "denied"},
		{Permission(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Permission(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
