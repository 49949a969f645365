package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cwrk-planet/call-service/internal/ratelimit"

	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr        string `yaml:"addr"`
	CallTimeout string `yaml:"callTimeout"` // 10s
}

type HTTP struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"readTimeout"`     // 10s
	IdleTimeout     string `yaml:"idleTimeout"`     // 60s
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 10s
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // call-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type RateLimit struct {
	Max    int    `yaml:"max"`
	Window string `yaml:"window"`
}

type Signaling struct {
	MaxChatLength     int                  `yaml:"maxChatLength"`     // 1000
	PingInterval      string               `yaml:"pingInterval"`      // 25s
	SendBuffer        int                  `yaml:"sendBuffer"`        // 64
	MaxMessageBytes   int64                `yaml:"maxMessageBytes"`   // 65536
	RateLimits        map[string]RateLimit `yaml:"rateLimits"`        // переопределения по событиям
	RateSweepInterval string               `yaml:"rateSweepInterval"` // 5m
}

type Rooms struct {
	GracePeriod   string `yaml:"gracePeriod"`   // 2h
	SweepInterval string `yaml:"sweepInterval"` // 1m
}

type TURN struct {
	Secret         string   `yaml:"secret"` // лучше через TURN_SECRET
	TTL            string   `yaml:"ttl"`    // 24h
	UsernamePrefix string   `yaml:"usernamePrefix"`
	URLs           []string `yaml:"urls"`
	STUNURLs       []string `yaml:"stunUrls"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	GRPC      GRPC      `yaml:"grpc"`
	Logging   Logging   `yaml:"logging"`
	Signaling Signaling `yaml:"signaling"`
	Rooms     Rooms     `yaml:"rooms"`
	TURN      TURN      `yaml:"turn"`
	CORS      CORS      `yaml:"cors"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s := os.Getenv("TURN_SECRET"); s != "" {
		cfg.TURN.Secret = s
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}
	if c.Signaling.MaxChatLength < 0 || c.Signaling.SendBuffer < 0 || c.Signaling.MaxMessageBytes < 0 {
		return errors.New("signaling: sizes must not be negative")
	}
	if len(c.TURN.URLs) > 0 && c.TURN.Secret == "" {
		return errors.New("turn.secret is required when turn.urls are set")
	}

	durations := map[string]string{
		"http.readTimeout":            c.HTTP.ReadTimeout,
		"http.idleTimeout":            c.HTTP.IdleTimeout,
		"http.shutdownTimeout":        c.HTTP.ShutdownTimeout,
		"grpc.callTimeout":            c.GRPC.CallTimeout,
		"signaling.pingInterval":      c.Signaling.PingInterval,
		"signaling.rateSweepInterval": c.Signaling.RateSweepInterval,
		"rooms.gracePeriod":           c.Rooms.GracePeriod,
		"rooms.sweepInterval":         c.Rooms.SweepInterval,
		"turn.ttl":                    c.TURN.TTL,
	}
	for key, v := range durations {
		if err := checkDuration(key, v); err != nil {
			return err
		}
	}

	known := ratelimit.DefaultRules()
	for event, rl := range c.Signaling.RateLimits {
		if _, ok := known[event]; !ok {
			return fmt.Errorf("signaling.rateLimits: unknown event %q", event)
		}
		if rl.Max < 0 {
			return fmt.Errorf("signaling.rateLimits.%s.max must not be negative", event)
		}
		if err := checkDuration("signaling.rateLimits."+event+".window", rl.Window); err != nil {
			return err
		}
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "call-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Signaling.MaxChatLength == 0 {
		c.Signaling.MaxChatLength = 1000
	}
	if c.Signaling.SendBuffer == 0 {
		c.Signaling.SendBuffer = 64
	}
	if c.Signaling.MaxMessageBytes == 0 {
		c.Signaling.MaxMessageBytes = 64 * 1024
	}
	return nil
}

func checkDuration(key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	return nil
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func (h HTTP) ReadTimeoutOr(def time.Duration) time.Duration { return parseDurationOr(def, h.ReadTimeout) }
func (h HTTP) IdleTimeoutOr(def time.Duration) time.Duration { return parseDurationOr(def, h.IdleTimeout) }
func (h HTTP) ShutdownTimeoutOr(def time.Duration) time.Duration {
	return parseDurationOr(def, h.ShutdownTimeout)
}

func (g GRPC) CallTimeoutOr(def time.Duration) time.Duration { return parseDurationOr(def, g.CallTimeout) }

func (s Signaling) PingIntervalOr(def time.Duration) time.Duration {
	return parseDurationOr(def, s.PingInterval)
}

func (s Signaling) RateSweepIntervalOr(def time.Duration) time.Duration {
	return parseDurationOr(def, s.RateSweepInterval)
}

// RateRules: лимиты по умолчанию с наложенными переопределениями из конфига.
func (s Signaling) RateRules() map[string]ratelimit.Rule {
	rules := ratelimit.DefaultRules()
	for event, rl := range s.RateLimits {
		base := rules[event]
		rules[event] = ratelimit.Rule{
			Max:    rl.Max,
			Window: parseDurationOr(base.Window, rl.Window),
		}
	}
	return rules
}

func (r Rooms) GracePeriodOr(def time.Duration) time.Duration { return parseDurationOr(def, r.GracePeriod) }
func (r Rooms) SweepIntervalOr(def time.Duration) time.Duration {
	return parseDurationOr(def, r.SweepInterval)
}

func (t TURN) TTLOr(def time.Duration) time.Duration { return parseDurationOr(def, t.TTL) }
