package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

type Backend string

const (
	BackendStd Backend = "std" // text в dev, JSON в stage/prod
	BackendZap Backend = "zap" // slog-zap
)

type Config struct {
	// Метаданные, попадают в каждую запись
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // default: zap для stage/prod, std для dev
	Debug   bool

	// Zap sampling: первые SampleInitial записей за SampleTick, далее каждая SampleThereafter
	SampleInitial    int
	SampleThereafter int
	SampleTick       time.Duration

	AddSource bool

	// Output: куда писать, по умолчанию os.Stdout
	Output io.Writer
}

// ParseLevel понимает debug/info/warn/error (и смещения вида "warn+2").
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("logger: bad level %q: %w", s, err)
	}
	return lvl, nil
}

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return "", nil
	case BackendStd, BackendZap:
		return b, nil
	default:
		return "", fmt.Errorf("logger: unknown backend %q", s)
	}
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}
