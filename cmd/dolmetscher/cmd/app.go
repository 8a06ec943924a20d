package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/audio/capture"
	"github.com/msto63/dolmetscher/internal/i18n"
	"github.com/msto63/dolmetscher/internal/orchestrator"
	"github.com/msto63/dolmetscher/internal/settings"
	"github.com/msto63/dolmetscher/internal/store"
	"github.com/msto63/dolmetscher/internal/translate"
	"github.com/msto63/dolmetscher/internal/tts"
	"github.com/msto63/dolmetscher/pkg/core/config"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// app holds the components shared by all commands
type app struct {
	cfg          *config.Config
	db           *store.DB
	settings     *settings.Store
	client       *translate.Client
	normalizer   *audio.Normalizer
	orchestrator *orchestrator.Orchestrator
	catalog      *i18n.Catalog
	logger       *logging.Logger
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}

// openStoreOnly opens the store and builds an unloaded settings store
func openStoreOnly(cfg *config.Config) (*app, error) {
	level := cfg.General.LogLevel
	if verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: cfg.General.LogFormat, Output: os.Stderr})

	db, err := store.Open(store.Config{Path: cfg.Storage.DatabasePath})
	if err != nil {
		return nil, err
	}

	var opts []settings.Option
	if cfg.Storage.LegacySettingsPath != "" {
		opts = append(opts, settings.WithLegacy(store.NewFlatFile(cfg.Storage.LegacySettingsPath)))
	}

	logger := logging.New("cli")
	return &app{
		cfg:      cfg,
		db:       db,
		settings: settings.NewStore(db, opts...),
		catalog:  loadCatalog(cfg.General.LocalesDir, logger),
		logger:   logger,
	}, nil
}

// loadCatalog returns the built-in messages merged with the files in dir.
// A broken override directory is logged and skipped.
func loadCatalog(dir string, logger *logging.Logger) *i18n.Catalog {
	if dir == "" {
		return i18n.Default()
	}
	c, err := i18n.Embedded()
	if err != nil {
		logger.Error("Built-in messages unavailable", "error", err)
		return i18n.Default()
	}
	if err := c.LoadDir(dir); err != nil {
		logger.Warn("Failed to load message overrides", "dir", dir, "error", err)
	}
	return c
}

// messages returns the localizer for the current info language
func (a *app) messages() *i18n.Localizer {
	return a.catalog.For(a.settings.Current().InfoLanguage)
}

// newApp loads the configuration, opens the store and loads the settings
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("Konfiguration ungültig: %w", err)
	}

	a, err := openStoreOnly(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.settings.EnsureLoaded(ctx); err != nil {
		a.Close()
		return nil, err
	}

	client := translate.NewClient(translate.Config{
		BaseURL: cfg.API.BaseURL,
		Model:   cfg.API.Model,
		Timeout: cfg.API.Timeout.Duration,
	})

	decoder := audio.ChainDecoder{
		Fallback: audio.NewFFmpegDecoder(cfg.Audio.FFmpegBinary, cfg.Audio.SampleRate, cfg.Audio.Channels),
	}
	normalizer := audio.NewNormalizer(decoder)

	orchOpts := []orchestrator.Option{orchestrator.WithTranscripts(a.db)}
	if !cfg.IsProduction() && cfg.API.FallbackKeyEnv != "" {
		orchOpts = append(orchOpts, orchestrator.WithEnvFallback(cfg.API.FallbackKeyEnv))
	}

	a.client = client
	a.normalizer = normalizer
	a.orchestrator = orchestrator.New(client, normalizer, a.settings, orchOpts...)
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close store", "error", err)
	}
}

func (a *app) recorder() *capture.Recorder {
	rc := capture.DefaultRecorderConfig()
	rc.SampleRate = a.cfg.Audio.SampleRate
	rc.Channels = a.cfg.Audio.Channels
	rc.DeviceName = a.cfg.Audio.InputDevice
	rc.AutoStop = a.cfg.Audio.AutoStop
	rc.VADMode = a.cfg.Audio.VAD()
	rc.Silence = a.cfg.Audio.Silence.Duration
	rc.MaxDuration = a.cfg.Audio.MaxDuration.Duration
	return capture.NewRecorder(rc)
}

// speaker builds the configured speech output. With engine "none" Speak
// returns tts.ErrDisabled.
func (a *app) speaker() (*tts.Speaker, error) {
	engine, err := tts.NewEngine(tts.Config{Engine: a.cfg.TTS.Engine, Rate: a.cfg.TTS.Rate})
	if err != nil {
		return nil, err
	}
	return tts.NewSpeaker(engine, settingsVoices{a.settings}), nil
}

// settingsVoices reads voices from the live settings
type settingsVoices struct {
	st *settings.Store
}

func (v settingsVoices) Voice(lang string) string {
	return v.st.Current().Voice(lang)
}
