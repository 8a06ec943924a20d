package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gookit/validate"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path
const EnvConfigPath = "DOLMETSCHER_CONFIG"

// DefaultVADMode is the VAD aggressiveness used when vad_mode is not set
const DefaultVADMode = 2

// Config holds the complete application configuration
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	API     APIConfig     `toml:"api" yaml:"api"`
	Audio   AudioConfig   `toml:"audio" yaml:"audio"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	TTS     TTSConfig     `toml:"tts" yaml:"tts"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name        string `toml:"name" yaml:"name"`
	Environment string `toml:"environment" yaml:"environment" validate:"required|in:development,production"`
	DataDir     string `toml:"data_dir" yaml:"data_dir" validate:"required"`
	LogLevel    string `toml:"log_level" yaml:"log_level" validate:"required|in:debug,info,warn,error"`
	LogFormat   string `toml:"log_format" yaml:"log_format" validate:"required|in:json,console"`
	LocalesDir  string `toml:"locales_dir" yaml:"locales_dir"` // optional message overrides
}

// APIConfig holds the remote translation API settings
type APIConfig struct {
	BaseURL        string   `toml:"base_url" yaml:"base_url" validate:"required|fullUrl"`
	Model          string   `toml:"model" yaml:"model" validate:"required"`
	Timeout        Duration `toml:"timeout" yaml:"timeout"`
	FallbackKeyEnv string   `toml:"fallback_key_env" yaml:"fallback_key_env"`
}

// AudioConfig holds microphone capture and decoding settings
type AudioConfig struct {
	SampleRate   int      `toml:"sample_rate" yaml:"sample_rate" validate:"required|in:8000,16000,32000,48000"`
	Channels     int      `toml:"channels" yaml:"channels" validate:"required|min:1|max:2"`
	FFmpegBinary string   `toml:"ffmpeg_binary" yaml:"ffmpeg_binary" validate:"required"`
	InputDevice  string   `toml:"input_device" yaml:"input_device"`
	AutoStop     bool     `toml:"auto_stop" yaml:"auto_stop"`
	VADMode      *int     `toml:"vad_mode" yaml:"vad_mode"` // nil until set, 0 is a valid mode
	Silence      Duration `toml:"silence" yaml:"silence"`
	MaxDuration  Duration `toml:"max_duration" yaml:"max_duration"`
}

// StorageConfig holds local persistence settings
type StorageConfig struct {
	DatabasePath       string `toml:"database_path" yaml:"database_path" validate:"required"`
	LegacySettingsPath string `toml:"legacy_settings_path" yaml:"legacy_settings_path"`
}

// TTSConfig holds text-to-speech settings
type TTSConfig struct {
	Engine string `toml:"engine" yaml:"engine" validate:"required|in:say,espeak-ng,none"`
	Rate   int    `toml:"rate" yaml:"rate" validate:"min:80|max:400"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	return cfg
}

// Load loads configuration from a TOML or YAML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Apply defaults
	cfg.applyDefaults()

	// Expand environment variables in paths
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from DOLMETSCHER_CONFIG or the default
// locations. Without any config file the defaults are returned.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		// Try default locations
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/dolmetscher/config.toml"),
			filepath.Join(os.Getenv("HOME"), ".config/dolmetscher/config.yaml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}

	return Load(path)
}

// Validate checks the configuration against its validation rules
func (c *Config) Validate() error {
	sections := []struct {
		name string
		data interface{}
	}{
		{"general", &c.General},
		{"api", &c.API},
		{"audio", &c.Audio},
		{"storage", &c.Storage},
		{"tts", &c.TTS},
	}

	for _, s := range sections {
		v := validate.Struct(s.data)
		if !v.Validate() {
			return fmt.Errorf("invalid config section [%s]: %s", s.name, v.Errors.One())
		}
	}

	if c.API.Timeout.Duration <= 0 {
		return fmt.Errorf("invalid config section [api]: timeout must be positive")
	}
	if m := c.Audio.VAD(); m < 0 || m > 3 {
		return fmt.Errorf("invalid config section [audio]: vad_mode must be between 0 and 3")
	}
	return nil
}

// VAD returns the configured VAD aggressiveness, or DefaultVADMode when unset
func (a AudioConfig) VAD() int {
	if a.VADMode == nil {
		return DefaultVADMode
	}
	return *a.VADMode
}

// IsProduction reports whether the client runs as a production build
func (c *Config) IsProduction() bool {
	return c.General.Environment == "production"
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	home := os.Getenv("HOME")

	// General
	if c.General.Name == "" {
		c.General.Name = "Dolmetscher"
	}
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = filepath.Join(home, ".local/share/dolmetscher")
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "console"
	}

	// API
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.openai.com/v1"
	}
	if c.API.Model == "" {
		c.API.Model = "gpt-4o-audio-preview"
	}
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout.Duration = 120 * time.Second
	}
	if c.API.FallbackKeyEnv == "" {
		c.API.FallbackKeyEnv = "OPENAI_API_KEY"
	}

	// Audio
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = "ffmpeg"
	}
	if c.Audio.VADMode == nil {
		mode := DefaultVADMode
		c.Audio.VADMode = &mode
	}
	if c.Audio.Silence.Duration == 0 {
		c.Audio.Silence.Duration = 1500 * time.Millisecond
	}
	if c.Audio.MaxDuration.Duration == 0 {
		c.Audio.MaxDuration.Duration = 2 * time.Minute
	}

	// Storage
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = filepath.Join(c.General.DataDir, "dolmetscher.db")
	}
	if c.Storage.LegacySettingsPath == "" {
		c.Storage.LegacySettingsPath = filepath.Join(home, ".config/dolmetscher/settings.json")
	}

	// TTS
	if c.TTS.Engine == "" {
		c.TTS.Engine = "espeak-ng"
		if runtime.GOOS == "darwin" {
			c.TTS.Engine = "say"
		}
	}
	if c.TTS.Rate == 0 {
		c.TTS.Rate = 180
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Storage.DatabasePath = os.ExpandEnv(c.Storage.DatabasePath)
	c.Storage.LegacySettingsPath = os.ExpandEnv(c.Storage.LegacySettingsPath)
	c.Audio.FFmpegBinary = os.ExpandEnv(c.Audio.FFmpegBinary)
	c.General.LocalesDir = os.ExpandEnv(c.General.LocalesDir)
}
