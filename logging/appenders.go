package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// consoleWriterMu guards writes so that concurrent loggers sharing a writer do not
// interleave within a line.
var consoleWriterMu sync.Mutex

// ConsoleAppender will create human readable lines from log events and write them to the
// desired output.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender creates a new appender that prints to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender creates a new appender that prints to the input writer.
func NewWriterAppender(writer io.Writer) ConsoleAppender {
	return ConsoleAppender{writer}
}

// Return example: "logging/impl_test.go:36".
func callerToString(caller *zapcore.EntryCaller) string {
	// The file returned by `runtime.Caller` is a full path and always contains '/' to separate
	// directories. Including on windows. We only want to keep the `<package>/<file>` part of the
	// path.
	paths := strings.Split(caller.File, "/")
	idx := int(math.Max(0, float64(len(paths)-2)))
	return fmt.Sprintf("%s:%d", strings.Join(paths[idx:], "/"), caller.Line)
}

// ZapcoreFieldsToJSON will serialize the Field objects into a JSON map of key/value pairs.
func ZapcoreFieldsToJSON(fields []zapcore.Field) (string, error) {
	// Use zap's `MapObjectEncoder` to follow zap's rules for formatting the field values.
	mapEncoder := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(mapEncoder)
	}

	jsonBytes, err := json.Marshal(mapEncoder.Fields)
	if err != nil {
		return "", err
	}

	return string(jsonBytes), nil
}

// Write outputs the log entry to the underlying stream.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	const maxLength = 10
	toPrint := make([]string, 0, maxLength)
	toPrint = append(toPrint, entry.Time.Format(DefaultTimeFormatStr))
	toPrint = append(toPrint, strings.ToUpper(entry.Level.String()))
	if entry.LoggerName != "" {
		toPrint = append(toPrint, entry.LoggerName)
	}
	if entry.Caller.Defined {
		toPrint = append(toPrint, callerToString(&entry.Caller))
	}
	toPrint = append(toPrint, entry.Message)

	if len(fields) > 0 {
		fieldsJSON, err := ZapcoreFieldsToJSON(fields)
		if err != nil {
			toPrint = append(toPrint, fmt.Sprintf("unable to serialize fields: %v", err))
		} else {
			toPrint = append(toPrint, fieldsJSON)
		}
	}

	consoleWriterMu.Lock()
	defer consoleWriterMu.Unlock()
	//nolint:errcheck
	fmt.Fprintln(appender.Writer, strings.Join(toPrint, "\t"))

	return nil
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// NewFileAppender creates an appender that writes human readable lines to a log file at
// the input path. The file is size-rotated and old backups are compressed.
func NewFileAppender(filePath string) Appender {
	writer := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		Compress:   true,
	}
	return ConsoleAppender{writer}
}
