package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"vpn-subscription/internal/config"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger configured from config.
// Supports "trace" | "debug" | "info" | "warn" | "error" levels
// and "json" | "console" formats. Sampling can be enabled to reduce noise in prod.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	return NewWithWriter(cfg, dev, os.Stdout)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(cfg config.LogConfig, dev bool, w io.Writer) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var base zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" || dev {
		out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		base = zerolog.New(out).With().Timestamp().Logger()
	} else {
		base = zerolog.New(w).With().Timestamp().Logger()
	}

	if cfg.Sampling && !dev {
		// keep first 100, then 1 every 100 thereafter
		sampled := base.Sample(&zerolog.BasicSampler{N: 100})
		return &sampled
	}
	return &base
}

// Nop returns a disabled logger; components fall back to it when given nil.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// Component derives a child logger tagged with the component name.
func Component(base *zerolog.Logger, name string) *zerolog.Logger {
	if base == nil {
		base = Nop()
	}
	l := base.With().Str("component", name).Logger()
	return &l
}

type ctxKey string

const (
	ctxTraceID      ctxKey = "trace_id"
	ctxSubscriberID ctxKey = "subscriber_id"
	ctxOperator     ctxKey = "operator"
)

// With attaches common context fields such as trace_id and subscriber_id.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	if base == nil {
		base = Nop()
	}
	l := base.With()
	if v, ok := ctx.Value(ctxTraceID).(string); ok {
		l = l.Str("trace_id", v)
	}
	if v, ok := ctx.Value(ctxSubscriberID).(string); ok {
		l = l.Str("subscriber_id", v)
	}
	if v, ok := ctx.Value(ctxOperator).(string); ok {
		l = l.Str("operator", v)
	}
	logger := l.Logger()
	return &logger
}

// TraceDuration logs start and end with elapsed duration at TRACE level.
// Usage: defer logging.TraceDuration(logger, "Provisioner.AddClient")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	if logger == nil {
		return func() {}
	}
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		logger.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}

// Redact hides tokens and other secrets when not in dev; keeps a short preview.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}
func WithSubscriberID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSubscriberID, id)
}
func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxOperator, name)
}
