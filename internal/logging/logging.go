// Package logging provides the tubeshelf program logger.
//
// The logger keeps the familiar I/S/W/E/D call style on top of zerolog, so
// every line lands on the console and, when configured, in a log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"tubeshelf/internal/domain/consts"

	"github.com/rs/zerolog"
)

// LoggingConfig holds the options for SetupLogging.
type LoggingConfig struct {
	LogFilePath string
	Console     io.Writer
	Program     string
	DebugLevel  int
}

// ProgramLogger is the program-wide logger.
//
// The zero value discards everything.
type ProgramLogger struct {
	zl    zerolog.Logger
	level atomic.Int32
	file  *os.File
}

// SetupLogging builds a ProgramLogger writing to the console and the optional log file.
func SetupLogging(cfg LoggingConfig) (*ProgramLogger, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}}

	var file *os.File
	if cfg.LogFilePath != "" {
		f, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.PermsLogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %q: %w", cfg.LogFilePath, err)
		}
		file = f
		writers = append(writers, f)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.DebugLevel).
		With().
		Timestamp()
	if cfg.Program != "" {
		ctx = ctx.Str("program", cfg.Program)
	}

	p := &ProgramLogger{zl: ctx.Logger(), file: file}
	p.SetLevel(cfg.DebugLevel)
	return p, nil
}

// NewWithWriter returns a logger writing raw JSON lines to w (used in tests).
func NewWithWriter(w io.Writer, debugLevel int) *ProgramLogger {
	p := &ProgramLogger{zl: zerolog.New(w).Level(zerolog.DebugLevel)}
	p.SetLevel(debugLevel)
	return p
}

// SetLevel sets the debug level (0-5). D messages below it are printed.
func (p *ProgramLogger) SetLevel(l int) {
	p.level.Store(int32(l))
}

// Level returns the current debug level.
func (p *ProgramLogger) Level() int {
	return int(p.level.Load())
}

// Zerolog exposes the underlying logger for structured events.
func (p *ProgramLogger) Zerolog() *zerolog.Logger {
	return &p.zl
}

// I logs an info message.
func (p *ProgramLogger) I(format string, args ...any) {
	p.zl.Info().Msgf(format, args...)
}

// S logs a success message.
func (p *ProgramLogger) S(format string, args ...any) {
	p.zl.Info().Bool("success", true).Msgf(format, args...)
}

// W logs a warning.
func (p *ProgramLogger) W(format string, args ...any) {
	p.zl.Warn().Msgf(format, args...)
}

// E logs an error along with the calling function's location.
func (p *ProgramLogger) E(format string, args ...any) {
	p.zl.Error().Caller(1).Msgf(format, args...)
}

// D logs a debug message if l is below the configured debug level.
func (p *ProgramLogger) D(l int, format string, args ...any) {
	if l >= p.Level() {
		return
	}
	p.zl.Debug().Int("debug_level", l).Caller(1).Msgf(format, args...)
}

// Close closes the log file, if any.
func (p *ProgramLogger) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}
