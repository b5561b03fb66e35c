// Package logging provides a zerolog wrapper with opinionated defaults and
// pipeline-scoped logging support.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger.
type Options struct {
	Level        string
	Format       string
	Service      string
	Writer       io.Writer
	WithCaller   bool
	StaticFields map[string]string
}

// FromEnv builds Options from LOG_* environment variables.
func FromEnv() Options {
	return Options{
		Level:      strings.ToLower(envOr("LOG_LEVEL", "info")),
		Format:     strings.ToLower(envOr("LOG_FORMAT", "console")),
		Service:    envOr("LOG_SERVICE", "aidetect"),
		WithCaller: envOr("LOG_CALLER", "") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Logger is the project-wide logging type. Today it's just a zerolog.Logger,
// but it can be swapped later.
type Logger = zerolog.Logger

// Get returns the process-wide root logger as a pointer.
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init configures zerolog and builds the root logger, safe to call once.
func Init(opt Options) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		lvl := parseLevel(opt.Level)

		var w io.Writer = os.Stdout
		if opt.Writer != nil {
			w = opt.Writer
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		ctx := zerolog.New(w).Level(lvl).With().Timestamp()

		if opt.Service != "" {
			ctx = ctx.Str("service", opt.Service)
		}
		for k, v := range opt.StaticFields {
			ctx = ctx.Str(k, v)
		}

		log := ctx.Logger()
		if opt.WithCaller {
			log = log.With().Caller().Logger()
		}

		root.Store(&log)
		inited.Store(true)
	})
}

// parseLevel supports string-only levels.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

type ctxKey struct{ name string }

var (
	keyRecordID = ctxKey{"record_id"}
	keyJobID    = ctxKey{"job_id"}
)

// WithRecord annotates ctx with the change record being processed.
func WithRecord(ctx context.Context, recordID string) context.Context {
	if recordID != "" {
		ctx = context.WithValue(ctx, keyRecordID, recordID)
	}
	return ctx
}

// WithJob annotates ctx with the batch job being processed.
func WithJob(ctx context.Context, jobID string) context.Context {
	if jobID != "" {
		ctx = context.WithValue(ctx, keyJobID, jobID)
	}
	return ctx
}

// C returns a child logger enriched from ctx (record_id, job_id).
func C(ctx context.Context) *Logger {
	l := Get()
	builder := l.With()
	if v := ctx.Value(keyRecordID); v != nil {
		if s, ok := v.(string); ok && s != "" {
			builder = builder.Str("record_id", s)
		}
	}
	if v := ctx.Value(keyJobID); v != nil {
		if s, ok := v.(string); ok && s != "" {
			builder = builder.Str("job_id", s)
		}
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
