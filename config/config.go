package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Operational logger output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	// Source is the file the config was loaded from, empty for defaults.
	Source string `toml:"-"`
	Log    Log    `toml:"log"`
}

type Log struct {
	Batch BatchLogger `toml:"batch"`
	Ops   OpsLogger   `toml:"ops"`
}

// BatchLogger configures the store the log records are persisted to.
type BatchLogger struct {
	// Dir is the directory that holds log.sqlite.
	Dir    string `toml:"dir"`
	Driver string `toml:"driver"`
	// Threshold is the number of rows that triggers a commit.
	// It is read once when the logger is built.
	Threshold int `toml:"threshold"`
	// Level is the minimum level accepted by the handler.
	Level LogLevel `toml:"level"`
	// FlushInterval commits pending rows periodically. Zero disables it.
	FlushInterval Duration `toml:"flush_interval"`
	// MaxConsecutiveFailures escalates write errors once reached. Zero never escalates.
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
}

// OpsLogger configures the logger the module reports its own operation on.
type OpsLogger struct {
	Format string   `toml:"format"`
	Level  LogLevel `toml:"level"`
}

// Duration wraps time.Duration to read and write strings like "5s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// LogLevel wraps slog.Level to read and write names like "INFO" or "WARN+2" in TOML.
type LogLevel struct {
	Level slog.Level
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return l.Level.MarshalText()
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	return l.Level.UnmarshalText(text)
}

// Provider hands out the current configuration. Safe for concurrent use.
type Provider struct {
	value atomic.Pointer[Config]
}

// NewProvider panics if cfg is nil.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		panic("config: NewProvider called with nil config")
	}
	p := &Provider{}
	p.value.Store(cfg)
	return p
}

func (p *Provider) Get() *Config {
	return p.value.Load()
}

func (p *Provider) Update(cfg *Config) {
	if cfg == nil {
		return
	}
	p.value.Store(cfg)
}

// BatchLevel returns a slog.Leveler that reads Log.Batch.Level from the
// current configuration each time it is asked.
func (p *Provider) BatchLevel() slog.Leveler {
	return batchLevel{p}
}

type batchLevel struct {
	p *Provider
}

func (b batchLevel) Level() slog.Level {
	return b.p.Get().Log.Batch.Level.Level
}
