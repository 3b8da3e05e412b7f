// Package config loads the webflow server configuration file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Store types.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

var validate = validator.New()

// Config is the configuration of "webflow serve".
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Flows     FlowsConfig     `yaml:"flows"`
	Store     StoreConfig     `yaml:"store"`
	Execution ExecutionConfig `yaml:"execution"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr" default:":8080" validate:"required,hostname_port"`
	BasePath string `yaml:"base_path" validate:"omitempty,startswith=/"`
	Metrics  bool   `yaml:"metrics" default:"true"`
}

type FlowsConfig struct {
	Dir string `yaml:"dir" default:"flows" validate:"required"`
}

type StoreConfig struct {
	Type             string            `yaml:"type" default:"memory" validate:"oneof=memory file redis"`
	Path             string            `yaml:"path" default:".webflow/conversations" validate:"required_if=Type file"`
	MaxConversations int               `yaml:"max_conversations" validate:"gte=0"`
	Redis            RedisConfig       `yaml:"redis"`
	Encryption       *EncryptionConfig `yaml:"encryption"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" default:"localhost:6379" validate:"required,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0,lte=15"`
	Prefix   string        `yaml:"prefix" default:"webflow:"`
	TTL      time.Duration `yaml:"ttl" default:"24h" validate:"gte=0"`
}

// EncryptionConfig holds base64 encoded AES-256 keys.
type EncryptionConfig struct {
	Key          string   `yaml:"key" validate:"required,base64"`
	FallbackKeys []string `yaml:"fallback_keys" validate:"dive,base64"`
}

type ExecutionConfig struct {
	MaxSnapshots             int           `yaml:"max_snapshots" default:"30" validate:"gte=-1"`
	RedirectOnPause          bool          `yaml:"redirect_on_pause" default:"true"`
	AlwaysGenerateNewNextKey bool          `yaml:"always_generate_new_next_key" default:"true"`
	Compression              bool          `yaml:"compression"`
	LockTimeout              time.Duration `yaml:"lock_timeout" default:"30s" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads the file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, listing every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return c.validateKeys()
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation (rule: %s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (c *Config) validateKeys() error {
	if c.Store.Encryption == nil {
		return nil
	}
	_, _, err := c.Store.Encryption.Keys()
	return err
}

// Keys decodes the active and fallback keys. Each must be 32 bytes.
func (e *EncryptionConfig) Keys() ([]byte, [][]byte, error) {
	active, err := decodeKey(e.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption key: %w", err)
	}
	fallback := make([][]byte, 0, len(e.FallbackKeys))
	for i, k := range e.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// SlogLevel returns the configured log level.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
