package logging

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Level is an enum of log levels. Its value can be `DEBUG`, `INFO`, `WARN` or `ERROR`.
type Level int

const (
	// DEBUG represents the debug log level.
	DEBUG Level = iota - 1
	// INFO represents the info log level.
	INFO
	// WARN represents the warn log level.
	WARN
	// ERROR represents the error log level.
	ERROR
)

func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	}

	return fmt.Sprintf("unknown %d", int(level))
}

// AsZap converts the Level to the zap equivalent.
func (level Level) AsZap() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	}

	return zapcore.InfoLevel
}

// LevelFromString parses an input string to a log level. The string must be one of `debug`, `info`,
// `warn` or `error`. The parsing is case-insensitive.
func LevelFromString(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn":
		return WARN, nil
	case "error":
		return ERROR, nil
	}

	return DEBUG, fmt.Errorf("unknown log level: %q", level)
}

// MarshalJSON converts a log level to a json string.
func (level Level) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", level.String())), nil
}

// UnmarshalJSON converts a json string of a log level to a Level.
func (level *Level) UnmarshalJSON(data []byte) error {
	levelStr := strings.Trim(string(data), "\"")
	levelVal, err := LevelFromString(levelStr)
	if err != nil {
		return err
	}

	*level = levelVal
	return nil
}

// AtomicLevel is a level that can be concurrently accessed. The zero value must not be used;
// construct with NewAtomicLevelAt.
type AtomicLevel struct {
	level *atomic.Int32
}

// NewAtomicLevelAt creates a new AtomicLevel initialized to the input `level`.
func NewAtomicLevelAt(level Level) AtomicLevel {
	ret := AtomicLevel{new(atomic.Int32)}
	ret.Set(level)
	return ret
}

// Get returns the level.
func (level AtomicLevel) Get() Level {
	return Level(level.level.Load())
}

// Set changes the level.
func (level AtomicLevel) Set(newLevel Level) {
	level.level.Store(int32(newLevel))
}
