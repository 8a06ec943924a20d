// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     capture
// Description: Microphone recorder using PortAudio
// Author:      Mike Stoffels
// Created:     2026-10-12
// License:     MIT
// ============================================================================

// Package capture records microphone input with PortAudio.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

const (
	// DefaultSampleRate is the default capture rate
	DefaultSampleRate = 16000

	// DefaultFramesPerBuffer is the default buffer size
	DefaultFramesPerBuffer = 480

	// DefaultChannels is mono audio
	DefaultChannels = 1

	// maxReadFailures ends a recording after this many consecutive failed reads
	maxReadFailures = 20
)

// ErrNotRecording is returned by Stop when no recording is active
var ErrNotRecording = errors.New("recorder is not running")

var _ audio.Capturer = (*Recorder)(nil)

// RecorderConfig holds configuration for microphone capture
type RecorderConfig struct {
	SampleRate  int
	Channels    int
	BufferSize  int
	DeviceName  string // empty = default input device
	AutoStop    bool
	VADMode     int
	Silence     time.Duration
	MinSpeech   time.Duration
	MaxDuration time.Duration
}

// DefaultRecorderConfig returns default capture configuration
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		SampleRate:  DefaultSampleRate,
		Channels:    DefaultChannels,
		BufferSize:  DefaultFramesPerBuffer,
		VADMode:     2,
		Silence:     1500 * time.Millisecond,
		MinSpeech:   300 * time.Millisecond,
		MaxDuration: 2 * time.Minute,
	}
}

// Recorder captures microphone input into a WAV recording
type Recorder struct {
	cfg    RecorderConfig
	logger *logging.Logger

	mu         sync.Mutex
	stream     *portaudio.Stream
	running    bool
	samples    []float32
	stopCh     chan struct{}
	doneCh     chan struct{}
	doneOnce   *sync.Once
	wg         sync.WaitGroup
	permission atomic.Int32
	level      atomic.Uint64
	readErr    error
}

// NewRecorder creates a recorder. PortAudio is initialized per recording.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = DefaultChannels
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultFramesPerBuffer
	}
	r := &Recorder{
		cfg:    cfg,
		logger: logging.New("recorder"),
		doneCh: make(chan struct{}),
	}
	r.permission.Store(int32(audio.PermissionPrompt))
	return r
}

// Start begins capturing audio
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("recorder already running")
	}

	if err := portaudio.Initialize(); err != nil {
		r.permission.Store(int32(audio.PermissionUnknown))
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	buffer := make([]float32, r.cfg.BufferSize*r.cfg.Channels)
	stream, err := r.openStream(buffer)
	if err != nil {
		portaudio.Terminate()
		r.permission.Store(int32(audio.PermissionDenied))
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		r.permission.Store(int32(audio.PermissionDenied))
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	r.permission.Store(int32(audio.PermissionGranted))

	var tracker *SilenceTracker
	if r.cfg.AutoStop && r.cfg.Channels == 1 {
		detector, err := NewWebRTCDetector(r.cfg.SampleRate, r.cfg.VADMode)
		if err != nil {
			r.logger.Warn("auto-stop disabled", "error", err)
		} else {
			tracker = NewSilenceTracker(detector, r.cfg.SampleRate, r.cfg.Silence, r.cfg.MinSpeech)
		}
	}

	r.stream = stream
	r.running = true
	r.samples = r.samples[:0]
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.doneOnce = &sync.Once{}
	r.readErr = nil
	r.level.Store(0)

	r.wg.Add(1)
	go r.captureLoop(ctx, stream, buffer, tracker, r.stopCh, r.doneCh, r.doneOnce)

	r.logger.Info("recording started", "rate", r.cfg.SampleRate, "channels", r.cfg.Channels, "auto_stop", tracker != nil)
	return nil
}

func (r *Recorder) openStream(buffer []float32) (*portaudio.Stream, error) {
	if r.cfg.DeviceName != "" && r.cfg.DeviceName != "default" {
		device, err := findInputDevice(r.cfg.DeviceName)
		if err == nil {
			params := portaudio.StreamParameters{
				Input: portaudio.StreamDeviceParameters{
					Device:   device,
					Channels: r.cfg.Channels,
					Latency:  device.DefaultLowInputLatency,
				},
				SampleRate:      float64(r.cfg.SampleRate),
				FramesPerBuffer: r.cfg.BufferSize,
			}
			return portaudio.OpenStream(params, buffer)
		}
		r.logger.Warn("input device not found, using default", "device", r.cfg.DeviceName)
	}

	return portaudio.OpenDefaultStream(r.cfg.Channels, 0, float64(r.cfg.SampleRate), r.cfg.BufferSize, buffer)
}

// captureLoop reads from the stream until stopped, appending samples and
// updating the live level
func (r *Recorder) captureLoop(ctx context.Context, stream *portaudio.Stream, buffer []float32,
	tracker *SilenceTracker, stopCh <-chan struct{}, doneCh chan struct{}, once *sync.Once) {
	defer r.wg.Done()

	signalDone := func(reason string) {
		once.Do(func() {
			r.logger.Debug("recording finished", "reason", reason)
			close(doneCh)
		})
	}

	maxSamples := int(r.cfg.MaxDuration.Seconds() * float64(r.cfg.SampleRate*r.cfg.Channels))
	var failures readFailures

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			signalDone("context")
			return
		default:
		}

		if err := stream.Read(); err != nil && !isOverflow(err) {
			wait, fatal := failures.record(err)
			if fatal != nil {
				r.logger.Error("capture aborted", "error", fatal)
				r.mu.Lock()
				r.readErr = fatal
				r.mu.Unlock()
				signalDone("read error")
				return
			}
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				signalDone("context")
				return
			case <-time.After(wait):
			}
			continue
		}
		failures.reset()

		chunk := make([]float32, len(buffer))
		copy(chunk, buffer)

		r.mu.Lock()
		r.samples = append(r.samples, chunk...)
		total := len(r.samples)
		r.mu.Unlock()

		r.level.Store(math.Float64bits(RMS(chunk)))

		if tracker != nil {
			stop, err := tracker.Feed(chunk)
			if err != nil {
				r.logger.Warn("VAD error", "error", err)
			} else if stop {
				signalDone("silence")
			}
		}
		if maxSamples > 0 && total >= maxSamples {
			signalDone("max duration")
		}
	}
}

// Stop ends capture and returns the recording as PCM WAV
func (r *Recorder) Stop() (audio.Recording, error) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return audio.Recording{}, ErrNotRecording
	}
	r.running = false
	close(r.stopCh)
	stream := r.stream
	r.stream = nil
	r.mu.Unlock()

	if err := stream.Stop(); err != nil {
		r.logger.Debug("stream stop failed", "error", err)
	}
	r.wg.Wait()

	var closeErr error
	if err := stream.Close(); err != nil {
		closeErr = fmt.Errorf("failed to close audio stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("failed to terminate PortAudio: %w", err)
	}

	r.mu.Lock()
	samples := make([]float32, len(r.samples))
	copy(samples, r.samples)
	if r.readErr != nil && closeErr == nil {
		closeErr = r.readErr
	}
	r.mu.Unlock()
	r.level.Store(0)

	r.logger.Info("recording stopped", "seconds", float64(len(samples))/float64(r.cfg.SampleRate*r.cfg.Channels))

	return audio.Recording{
		Data:     audio.EncodeWAV(samples, r.cfg.SampleRate, r.cfg.Channels),
		MimeType: audio.MimeTypeWAV,
	}, closeErr
}

// Level returns the RMS level of the most recent buffer (0..1)
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

// Permission returns the last observed microphone permission state
func (r *Recorder) Permission() audio.Permission {
	return audio.Permission(r.permission.Load())
}

// Done is closed when the current recording stops on its own: silence, max
// duration, repeated read errors or context cancellation. Stop must still be
// called.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doneCh
}

// IsRunning returns whether capture is currently running
func (r *Recorder) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// readFailures counts consecutive stream read errors
type readFailures struct {
	n int
}

// record returns how long to wait before the next read, or a non-nil error
// once the limit is reached
func (f *readFailures) record(err error) (time.Duration, error) {
	f.n++
	if f.n >= maxReadFailures {
		return 0, fmt.Errorf("%d consecutive read errors: %w", f.n, err)
	}
	wait := time.Duration(f.n) * 10 * time.Millisecond
	if wait > 200*time.Millisecond {
		wait = 200 * time.Millisecond
	}
	return wait, nil
}

func (f *readFailures) reset() { f.n = 0 }

// isOverflow reports a dropped input buffer; the samples read are still valid
func isOverflow(err error) bool {
	return errors.Is(err, portaudio.InputOverflowed)
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

// DeviceInfo holds information about an input device
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListInputDevices returns a list of available input devices
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	var inputs []DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			inputs = append(inputs, DeviceInfo{
				Name:              dev.Name,
				MaxInputChannels:  dev.MaxInputChannels,
				DefaultSampleRate: dev.DefaultSampleRate,
				IsDefault:         dev.Name == defaultName,
			})
		}
	}
	return inputs, nil
}
