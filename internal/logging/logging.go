package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log level and an optional rotated log file
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup configures zerolog for the process.
func Setup(opts Options) zerolog.Logger {
	return SetupWithWriter(opts, os.Stdout)
}

// SetupWithWriter configures zerolog with console output to out. When a log
// file is configured its JSON lines go to a lumberjack rotator as well.
func SetupWithWriter(opts Options, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	var writer io.Writer = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		writer = zerolog.MultiLevelWriter(writer, rotator)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(ParseLevel(opts.Level))
	log.Logger = logger
	return logger
}

// Level names accepted in the log.level setting
var levels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// ValidLevel reports whether ParseLevel knows level. Empty means the default.
func ValidLevel(level string) bool {
	if level == "" {
		return true
	}
	_, ok := levels[strings.ToLower(level)]
	return ok
}
