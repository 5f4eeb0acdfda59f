// Package logging configures the log streams shared by ccvote's packages.
//
// Two streams exist: info (always on) and debug (verbose runs only). Both
// go to stderr and, when a log file is configured, to a rotating file.
package logging

import (
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"
)

var (
	infoLogger  = newLogger(" INFO ", os.Stderr)
	debugLogger *log.Logger
)

// Options controls where log lines go
type Options struct {
	// Verbose enables the debug stream
	Verbose bool

	// LogFile, when set, receives a copy of every line. The file is rotated
	// once it reaches MaxSizeMB megabytes.
	LogFile   string
	MaxSizeMB int

	// Console receives log lines; nil means os.Stderr
	Console io.Writer
}

// Setup configures both streams. The returned closer must be closed once
// logging is finished; it is a no-op when no log file is configured.
func Setup(opts Options) io.Closer {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var w io.Writer = console
	var closer io.Closer = nopCloser{}
	if opts.LogFile != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		l := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    maxSize, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = io.MultiWriter(console, l)
		closer = l
	}

	infoLogger = newLogger(" INFO ", w)
	debugLogger = nil
	if opts.Verbose {
		debugLogger = newLogger(" DEBUG ", w)
	}
	return closer
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "ccvote"+prefix, log.LstdFlags|log.Lmsgprefix|log.Lmicroseconds)
}

// Infof logs to the info stream
func Infof(format string, args ...interface{}) {
	if infoLogger != nil {
		infoLogger.Printf(format, args...)
	}
}

// Debugf logs to the debug stream, which is only enabled in verbose mode
func Debugf(format string, args ...interface{}) {
	if debugLogger != nil {
		debugLogger.Printf(format, args...)
	}
}

// Warningf logs a warning to the info stream
func Warningf(format string, args ...interface{}) {
	if infoLogger != nil {
		infoLogger.Printf("WARNING "+format, args...)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
