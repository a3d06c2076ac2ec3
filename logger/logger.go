package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zlog *zerolog.Logger
}

var _ Logger = (*ZeroLogger)(nil)

// New creates a ZeroLogger with the given level. If pretty is true the
// output is formatted for human readability instead of JSON.
func New(level string, pretty bool) *ZeroLogger {
	var l zerolog.Logger

	if pretty {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l}
}

// NewNop returns a logger that discards everything. Useful as a default in
// constructors and tests.
func NewNop() *ZeroLogger {
	l := zerolog.Nop()
	return &ZeroLogger{zlog: &l}
}

// WithFields returns a logger with additional fields attached to all entries.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log}
}

func (l *ZeroLogger) Debug() LogEvent { return &zerologEvent{event: l.zlog.Debug()} }
func (l *ZeroLogger) Info() LogEvent  { return &zerologEvent{event: l.zlog.Info()} }
func (l *ZeroLogger) Warn() LogEvent  { return &zerologEvent{event: l.zlog.Warn()} }
func (l *ZeroLogger) Error() LogEvent { return &zerologEvent{event: l.zlog.Error()} }

// zerologEvent adapts zerolog.Event to the LogEvent interface.
type zerologEvent struct {
	event *zerolog.Event
}

func (e *zerologEvent) Msg(msg string)                { e.event.Msg(msg) }
func (e *zerologEvent) Msgf(format string, args ...any) { e.event.Msgf(format, args...) }

func (e *zerologEvent) Err(err error) LogEvent {
	e.event = e.event.Err(err)
	return e
}

func (e *zerologEvent) Str(key, value string) LogEvent {
	e.event = e.event.Str(key, value)
	return e
}

func (e *zerologEvent) Int(key string, value int) LogEvent {
	e.event = e.event.Int(key, value)
	return e
}

func (e *zerologEvent) Int64(key string, value int64) LogEvent {
	e.event = e.event.Int64(key, value)
	return e
}

func (e *zerologEvent) Dur(key string, d time.Duration) LogEvent {
	e.event = e.event.Dur(key, d)
	return e
}

func (e *zerologEvent) Bool(key string, value bool) LogEvent {
	e.event = e.event.Bool(key, value)
	return e
}
