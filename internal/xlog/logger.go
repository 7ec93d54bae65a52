// Package xlog is a small leveled logger used throughout this module in
// place of the bare standard library logger.
package xlog

import (
	"fmt"
	"os"
)

// LogLevel is the set of all log levels.
type LogLevel int8

const (
	// CRITICAL is the lowest log level. Will exit the program.
	CRITICAL LogLevel = iota - 1

	// ERROR is for errors, but does not fatal. Only indicates potential troubles.
	ERROR

	// WARN warns about potential errors or problems.
	WARN

	// INFO just indicates information.
	INFO

	// DEBUG is debug-level logging, hidden by default.
	DEBUG
)

// String returns a single-character representation of LogLevel.
func (l LogLevel) String() string {
	switch l {
	case CRITICAL:
		return "C"
	case ERROR:
		return "E"
	case WARN:
		return "W"
	case INFO:
		return "I"
	case DEBUG:
		return "D"
	default:
		panic("unknown LogLevel")
	}
}

// Logger carries a package prefix and writes through the global formatter.
type Logger struct {
	pkg string
}

// NewLogger returns a Logger scoped to pkg, reusing any existing instance.
func NewLogger(pkg string) *Logger {
	xlogger.mu.Lock()
	defer xlogger.mu.Unlock()

	lg, ok := xlogger.loggers[pkg]
	if !ok {
		lg = &Logger{pkg: pkg}
		xlogger.loggers[pkg] = lg
	}
	return lg
}

// With returns a Logger that prefixes every line with an additional context
// string (e.g. "node=3"), on top of l's own package prefix. The derived
// Logger is not registered in the package lookup table — callers that want
// one value's lines tagged for its lifetime (a Node carrying its node id)
// should call this once and keep the result rather than calling NewLogger
// again.
func (l *Logger) With(ctx string) *Logger {
	return &Logger{pkg: l.pkg + " " + ctx}
}

func (l *Logger) log(lvl LogLevel, txt string) {
	xlogger.mu.Lock()
	defer xlogger.mu.Unlock()

	if lvl < CRITICAL || lvl > DEBUG {
		return
	}
	xlogger.formatter.WriteFlush(l.pkg, lvl, txt)
}

func (l *Logger) Panic(args ...interface{})                 { l.log(CRITICAL, fmt.Sprint(args...)); panic(fmt.Sprint(args...)) }
func (l *Logger) Panicf(format string, args ...interface{}) { txt := fmt.Sprintf(format, args...); l.log(CRITICAL, txt); panic(txt) }

func (l *Logger) Fatal(args ...interface{})                 { l.log(CRITICAL, fmt.Sprint(args...)); os.Exit(1) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.log(CRITICAL, fmt.Sprintf(format, args...)); os.Exit(1) }

func (l *Logger) Error(args ...interface{})                 { l.log(ERROR, fmt.Sprint(args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(ERROR, fmt.Sprintf(format, args...)) }

func (l *Logger) Warning(args ...interface{})                 { l.log(WARN, fmt.Sprint(args...)) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.log(WARN, fmt.Sprintf(format, args...)) }

func (l *Logger) Print(args ...interface{})                 { l.log(INFO, fmt.Sprint(args...)) }
func (l *Logger) Printf(format string, args ...interface{}) { l.log(INFO, fmt.Sprintf(format, args...)) }
func (l *Logger) Info(args ...interface{})                  { l.log(INFO, fmt.Sprint(args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(INFO, fmt.Sprintf(format, args...)) }

func (l *Logger) Debug(args ...interface{})                 { l.log(DEBUG, fmt.Sprint(args...)) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(DEBUG, fmt.Sprintf(format, args...)) }
