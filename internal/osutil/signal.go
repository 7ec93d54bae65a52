// Package osutil adapts the teacher's pkg/osutil interrupt handling for the
// board CLI: register shutdown callbacks, then block until SIGINT/SIGTERM/
// SIGQUIT arrives and run them in registration order.
package osutil

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/taskboard/replicore/internal/xlog"
)

var logger = xlog.NewLogger("osutil")

// InterruptHandler is called once, in registration order, when a tracked
// signal arrives.
type InterruptHandler func()

var (
	mu                sync.Mutex
	interruptHandlers []InterruptHandler
)

// RegisterInterruptHandler adds a handler to be run on shutdown.
func RegisterInterruptHandler(h InterruptHandler) {
	mu.Lock()
	interruptHandlers = append(interruptHandlers, h)
	mu.Unlock()
}

// WaitForInterruptSignals blocks the calling goroutine until one of sigs is
// received, then runs every registered handler and returns.
func WaitForInterruptSignals(sigs ...os.Signal) {
	notifier := make(chan os.Signal, 1)
	signal.Notify(notifier, sigs...)
	defer signal.Stop(notifier)

	sig := <-notifier
	logger.Warningf("received %v signal, shutting down...", sig)

	mu.Lock()
	copied := make([]InterruptHandler, len(interruptHandlers))
	copy(copied, interruptHandlers)
	mu.Unlock()

	for _, h := range copied {
		h()
	}
}

// Re-exports of syscall's signal set, mirroring the teacher's, for callers
// that don't want to import syscall themselves (cmd/board uses them).
var (
	SIGINT  = syscall.SIGINT
	SIGTERM = syscall.SIGTERM
	SIGQUIT = syscall.SIGQUIT
)
