// Package config loads drivewatch settings from a YAML file, environment
// variables and built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/drivewatch/internal/cooldown"
	"github.com/ppiankov/drivewatch/internal/gate"
	"github.com/ppiankov/drivewatch/internal/vehicle"
)

// EnvPrefix prefixes every environment override, e.g. DRIVEWATCH_MODEL_BACKEND.
const EnvPrefix = "DRIVEWATCH"

// DefaultPath is read when no --config flag is given.
const DefaultPath = "drivewatch.yaml"

// Backend names accepted in model.backend. BackendStub is the rule-based
// selector that needs no model.
const (
	BackendStub     = "stub"
	BackendStatic   = "static"
	BackendHTTP     = "http"
	BackendBedrock  = "bedrock"
	BackendGenAI    = "genai"
	BackendLlamaCLI = "llama-cli"
)

// DefaultLlamaBinary is the llama.cpp CLI looked up on PATH.
const DefaultLlamaBinary = "llama-cli"

// LoggerConfig controls structured logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
}

// ModelConfig selects the inference backend.
type ModelConfig struct {
	Backend         string        `mapstructure:"backend" yaml:"backend"`
	PreferredPath   string        `mapstructure:"preferred_path" yaml:"preferred_path"`
	FallbackPath    string        `mapstructure:"fallback_path" yaml:"fallback_path"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	Model           string        `mapstructure:"model" yaml:"model"`
	Temperature     float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Region          string        `mapstructure:"region" yaml:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	Binary          string        `mapstructure:"binary" yaml:"binary"`

	// RequestsPerMinute throttles the http backend client-side; 0 disables.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// VehicleConfig configures the mock vehicle.
type VehicleConfig struct {
	MaxEvents int `mapstructure:"max_events" yaml:"max_events"`
}

// AuditConfig locates the hash-chained audit log. Empty disables it.
type AuditConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// JournalConfig locates the SQLite run journal. Empty disables it.
type JournalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig configures `drivewatch serve`.
type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr" yaml:"grpc_addr"`
}

// Config is the full drivewatch configuration.
type Config struct {
	Logger  LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Model   ModelConfig     `mapstructure:"model" yaml:"model"`
	Gate    gate.Thresholds `mapstructure:"gate" yaml:"gate"`
	Safety  cooldown.Config `mapstructure:"safety" yaml:"safety"`
	Vehicle VehicleConfig   `mapstructure:"vehicle" yaml:"vehicle"`
	Audit   AuditConfig     `mapstructure:"audit" yaml:"audit"`
	Journal JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Server  ServerConfig    `mapstructure:"server" yaml:"server"`
}

// SetDefaults registers every key with its default so env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	th := gate.DefaultThresholds()
	safety := cooldown.DefaultConfig()

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "drivewatch")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.add_source", false)

	v.SetDefault("model.backend", BackendStub)
	v.SetDefault("model.preferred_path", "")
	v.SetDefault("model.fallback_path", "")
	v.SetDefault("model.endpoint", "http://localhost:11434/v1/chat/completions")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.model", "")
	v.SetDefault("model.temperature", 0.2)
	v.SetDefault("model.max_tokens", 512)
	v.SetDefault("model.timeout", 60*time.Second)
	v.SetDefault("model.requests_per_minute", 0)
	v.SetDefault("model.region", "")
	v.SetDefault("model.access_key_id", "")
	v.SetDefault("model.secret_access_key", "")
	v.SetDefault("model.binary", DefaultLlamaBinary)

	v.SetDefault("gate.drowsy_no_hands", th.DrowsyNoHands)
	v.SetDefault("gate.drowsy_confident", th.DrowsyConfident)
	v.SetDefault("gate.lane_departure", th.LaneDeparture)
	v.SetDefault("gate.lane_min_speed_kph", th.LaneMinSpeedKph)
	v.SetDefault("gate.forward_collision", th.ForwardCollision)

	v.SetDefault("safety.cooldown", safety.Window)
	v.SetDefault("safety.exempt", safety.Exempt)

	v.SetDefault("vehicle.max_events", vehicle.DefaultMaxEvents)

	v.SetDefault("audit.path", "")
	v.SetDefault("journal.path", "")
	v.SetDefault("server.grpc_addr", "127.0.0.1:7443")
}

// NewDefaultConfig returns the defaults without reading files or env.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads path (or DefaultPath when empty) and applies DRIVEWATCH_*
// env overrides. A missing default file is not an error; a missing
// explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot run.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendStub, BackendStatic, BackendHTTP, BackendBedrock, BackendGenAI, BackendLlamaCLI:
	default:
		return fmt.Errorf("config: model.backend %q: must be one of stub, static, http, bedrock, genai, llama-cli", c.Model.Backend)
	}
	for name, v := range map[string]float64{
		"gate.drowsy_no_hands":   c.Gate.DrowsyNoHands,
		"gate.drowsy_confident":  c.Gate.DrowsyConfident,
		"gate.lane_departure":    c.Gate.LaneDeparture,
		"gate.forward_collision": c.Gate.ForwardCollision,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: %s = %v: must be within [0,1]", name, v)
		}
	}
	if c.Model.RequestsPerMinute < 0 {
		return fmt.Errorf("config: model.requests_per_minute must not be negative")
	}
	if c.Safety.Window < 0 {
		return fmt.Errorf("config: safety.cooldown must not be negative")
	}
	return nil
}

// ValidateYAML strictly decodes data as a Config, rejecting unknown keys.
func ValidateYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return fmt.Errorf("config: invalid yaml: %w", err)
	}
	return nil
}
