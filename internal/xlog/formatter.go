package xlog

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

func defaultWriter() io.Writer { return os.Stderr }

// Formatter defines the log-format (printer) interface.
type Formatter interface {
	WriteFlush(pkg string, lvl LogLevel, txt string)
	SetDebug(debug bool)
	Flush()
}

type globalLogger struct {
	mu        sync.Mutex
	loggers   map[string]*Logger
	formatter Formatter
}

var xlogger = &globalLogger{
	loggers: make(map[string]*Logger),
}

// SetFormatter sets the formatting function used by all loggers.
func SetFormatter(f Formatter) {
	xlogger.mu.Lock()
	xlogger.formatter = f
	xlogger.mu.Unlock()
}

// SetGlobalMaxLogLevel sets the debug flag on the current formatter based on lvl.
func SetGlobalMaxLogLevel(lvl LogLevel) {
	xlogger.mu.Lock()
	xlogger.formatter.SetDebug(lvl >= DEBUG)
	xlogger.mu.Unlock()
}

func init() {
	SetFormatter(NewDefaultFormatter(defaultWriter(), false))
}

type formatter struct {
	w     *bufio.Writer
	debug bool
}

// NewDefaultFormatter returns a Formatter writing "time level | pkg: text" lines.
func NewDefaultFormatter(w io.Writer, debug bool) Formatter {
	return &formatter{w: bufio.NewWriter(w), debug: debug}
}

func (ft *formatter) WriteFlush(pkg string, lvl LogLevel, txt string) {
	if !ft.debug && lvl == DEBUG {
		return
	}

	ft.w.WriteString(time.Now().String()[:26])
	ft.w.WriteString(" " + lvl.String() + " | ")
	if pkg != "" {
		ft.w.WriteString(pkg + ": ")
	}
	ft.w.WriteString(txt)
	if !strings.HasSuffix(txt, "\n") {
		ft.w.WriteString("\n")
	}
	ft.w.Flush()
}

func (ft *formatter) SetDebug(debug bool) { ft.debug = debug }
func (ft *formatter) Flush()              { ft.w.Flush() }
