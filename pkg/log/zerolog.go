package log

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a JSON logger writing to w at the given level.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

func (z *ZerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.zl.Debug(), msg, fields)
}

func (z *ZerologLogger) Info(msg string, fields ...any) {
	z.emit(z.zl.Info(), msg, fields)
}

func (z *ZerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.zl.Warn(), msg, fields)
}

func (z *ZerologLogger) Error(msg string, fields ...any) {
	ev := z.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if m, ok := err.(zerolog.LogObjectMarshaler); ok {
				ev = ev.Object("error_detail", m)
			}
			fields = fields[1:]
		}
	}
	z.emit(ev, msg, fields)
}

func (z *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{zl: z.zl.With().Fields(pairs(fields)).Logger()}
}

func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return z.zl.GetLevel() <= toZerologLevel(level)
}

func (z *ZerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	ev.Fields(pairs(fields)).Msg(msg)
}

// pairs drops a trailing key without a value.
func pairs(fields []any) []any {
	if len(fields)%2 == 1 {
		return fields[:len(fields)-1]
	}
	return fields
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zerologProvider is the process-wide LoggerProvider.
type zerologProvider struct {
	mu    sync.RWMutex
	out   io.Writer
	level Level
	root  Logger
}

func (p *zerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.root
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.root = NewZerologLogger(p.out, level)
}

var provider = &zerologProvider{
	out:   os.Stderr,
	level: LevelInfo,
	root:  NewZerologLogger(os.Stderr, LevelInfo),
}

func init() {
	scierrors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error())
	})
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger { return provider.GetLogger() }

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger { return provider.GetLoggerWithName(name) }

// SetLevel changes the level of the process-wide logger.
func SetLevel(level Level) { provider.SetLevel(level) }

// SetLogger replaces the process-wide logger, mainly for tests.
func SetLogger(l Logger) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.root = l
}
