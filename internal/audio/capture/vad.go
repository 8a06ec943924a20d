// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     capture
// Description: Voice activity detection for automatic recording stop
// Author:      Mike Stoffels
// Created:     2026-10-12
// License:     MIT
// ============================================================================

package capture

import (
	"fmt"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/msto63/dolmetscher/internal/audio"
)

// SpeechDetector classifies a single 10ms frame
type SpeechDetector interface {
	IsSpeech(frame []int16) (bool, error)
}

// WebRTCDetector implements SpeechDetector using WebRTC's VAD
type WebRTCDetector struct {
	vad        *webrtcvad.VAD
	sampleRate int
}

// NewWebRTCDetector creates a detector with aggressiveness mode 0-3
func NewWebRTCDetector(sampleRate, mode int) (*WebRTCDetector, error) {
	if !validVADRate(sampleRate) {
		return nil, fmt.Errorf("invalid sample rate %d, must be one of 8000, 16000, 32000, 48000", sampleRate)
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC VAD: %w", err)
	}

	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	return &WebRTCDetector{vad: vad, sampleRate: sampleRate}, nil
}

// IsSpeech implements SpeechDetector
func (w *WebRTCDetector) IsSpeech(frame []int16) (bool, error) {
	active, err := w.vad.Process(w.sampleRate, int16ToBytes(frame))
	if err != nil {
		return false, fmt.Errorf("VAD processing failed: %w", err)
	}
	return active, nil
}

func validVADRate(rate int) bool {
	switch rate {
	case 8000, 16000, 32000, 48000:
		return true
	}
	return false
}

// int16ToBytes converts int16 slice to bytes (little-endian)
func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// SilenceTracker decides when a recording should end. Time is measured
// in audio frames, not wall clock.
type SilenceTracker struct {
	detector  SpeechDetector
	frameSize int
	frameDur  time.Duration
	silence   time.Duration
	minSpeech time.Duration

	pending       []int16
	speechStarted bool
	speechDur     time.Duration
	silenceDur    time.Duration
}

// NewSilenceTracker creates a tracker for mono audio at sampleRate
func NewSilenceTracker(detector SpeechDetector, sampleRate int, silence, minSpeech time.Duration) *SilenceTracker {
	return &SilenceTracker{
		detector:  detector,
		frameSize: sampleRate / 100,
		frameDur:  10 * time.Millisecond,
		silence:   silence,
		minSpeech: minSpeech,
	}
}

// Feed processes samples and reports whether trailing silence after
// speech has reached the configured threshold
func (t *SilenceTracker) Feed(samples []float32) (bool, error) {
	for _, s := range samples {
		t.pending = append(t.pending, audio.SampleToInt16(s))
	}

	for len(t.pending) >= t.frameSize {
		frame := t.pending[:t.frameSize]
		speech, err := t.detector.IsSpeech(frame)
		t.pending = t.pending[t.frameSize:]
		if err != nil {
			return false, err
		}

		if speech {
			t.speechStarted = true
			t.speechDur += t.frameDur
			t.silenceDur = 0
		} else if t.speechStarted {
			t.silenceDur += t.frameDur
		}
	}

	return t.ShouldStop(), nil
}

// ShouldStop reports whether enough speech was followed by enough silence
func (t *SilenceTracker) ShouldStop() bool {
	return t.speechStarted && t.silenceDur >= t.silence && t.speechDur >= t.minSpeech
}

// SpeechDuration returns the accumulated speech time
func (t *SilenceTracker) SpeechDuration() time.Duration {
	return t.speechDur
}

// Reset clears the tracker state
func (t *SilenceTracker) Reset() {
	t.pending = t.pending[:0]
	t.speechStarted = false
	t.speechDur = 0
	t.silenceDur = 0
}
