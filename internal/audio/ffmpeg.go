package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder decodes container formats (webm, ogg, mp3, m4a, ...) by
// piping them through the ffmpeg binary
type FFmpegDecoder struct {
	BinaryPath string
	SampleRate int
	Channels   int
}

// NewFFmpegDecoder creates a decoder resampling to the given rate and
// channel count
func NewFFmpegDecoder(binary string, sampleRate, channels int) *FFmpegDecoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegDecoder{BinaryPath: binary, SampleRate: sampleRate, Channels: channels}
}

// IsAvailable checks if the ffmpeg binary can be found
func (d *FFmpegDecoder) IsAvailable() bool {
	_, err := exec.LookPath(d.BinaryPath)
	return err == nil
}

// args returns the ffmpeg arguments for decoding stdin into raw f32le
func (d *FFmpegDecoder) args() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(d.Channels),
		"-ar", strconv.Itoa(d.SampleRate),
		"pipe:1",
	}
}

// Decode implements Decoder
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte, mimeType string) (*PCM, error) {
	cmd := exec.CommandContext(ctx, d.BinaryPath, d.args()...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed for %s: %w: %s", mimeType, err, strings.TrimSpace(stderr.String()))
	}

	samples, err := float32FromLE(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no samples for %s", mimeType)
	}

	return &PCM{Samples: samples, SampleRate: d.SampleRate, Channels: d.Channels}, nil
}

// float32FromLE converts raw little-endian float32 bytes into samples
func float32FromLE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("truncated f32le stream: %d bytes", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}
