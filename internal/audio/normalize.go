package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// ErrEmptyRecording is returned when the recording carries no bytes
var ErrEmptyRecording = errors.New("recording is empty")

// Decoder turns a compressed or containerized blob into PCM samples
type Decoder interface {
	Decode(ctx context.Context, data []byte, mimeType string) (*PCM, error)
}

// Normalizer converts recordings into base64 encoded PCM WAV
type Normalizer struct {
	decoder Decoder
	logger  *logging.Logger
}

// NewNormalizer creates a normalizer using the given decoder for
// non-WAV input
func NewNormalizer(decoder Decoder) *Normalizer {
	return &Normalizer{
		decoder: decoder,
		logger:  logging.New("audio-normalize"),
	}
}

// Normalize returns the canonical base64 payload for a recording. Input
// that is already PCM WAV is passed through without transcoding. Decoding
// failures are returned; raw bytes are never sent instead.
func (n *Normalizer) Normalize(ctx context.Context, rec Recording) (string, error) {
	if len(rec.Data) == 0 {
		return "", ErrEmptyRecording
	}

	if IsCanonicalWAV(rec.MimeType) {
		n.logger.Debug("recording already WAV, skipping transcode", "bytes", len(rec.Data))
		return EncodeBase64(rec.Data), nil
	}

	if n.decoder == nil {
		return "", fmt.Errorf("no decoder available for %s", rec.MimeType)
	}

	pcm, err := n.decoder.Decode(ctx, rec.Data, rec.MimeType)
	if err != nil {
		return "", fmt.Errorf("failed to decode audio (%s): %w", rec.MimeType, err)
	}

	wav := EncodeWAV(pcm.Samples, pcm.SampleRate, pcm.Channels)
	n.logger.Debug("transcoded recording to WAV",
		"mime", rec.MimeType,
		"seconds", pcm.Duration(),
		"bytes", len(wav))

	return EncodeBase64(wav), nil
}

// EncodeBase64 encodes bytes as unwrapped standard base64 without a data
// URL prefix
func EncodeBase64(data []byte) string {
	return StripDataURLPrefix(base64.StdEncoding.EncodeToString(data))
}

// StripDataURLPrefix removes a leading "data:<mime>;base64," if present
func StripDataURLPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

// WAVDecoder decodes PCM WAV input. It serves recordings whose MIME type is
// missing or generic but whose bytes are WAV.
type WAVDecoder struct{}

// Decode implements Decoder
func (WAVDecoder) Decode(_ context.Context, data []byte, _ string) (*PCM, error) {
	return DecodeWAV(data)
}

// ChainDecoder tries WAV parsing first and falls back to the next decoder
type ChainDecoder struct {
	Fallback Decoder
}

// Decode implements Decoder
func (c ChainDecoder) Decode(ctx context.Context, data []byte, mimeType string) (*PCM, error) {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		if pcm, err := DecodeWAV(data); err == nil {
			return pcm, nil
		}
	}
	if c.Fallback == nil {
		return nil, fmt.Errorf("unsupported audio format: %s", mimeType)
	}
	return c.Fallback.Decode(ctx, data, mimeType)
}
