// Package wslog provides the small leveled-logger interface used throughout
// wsclient, mirroring the Noticef/Warnf/Errorf/Debugf shape call sites use
// in the core.
package wslog

import (
	"io"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// Logger is the leveled logging interface the core calls at every
// handshake, protocol, and lifecycle decision point. Implementations are
// not required to be safe for concurrent use from multiple goroutines
// unless they are handed to a Conn that is itself used concurrently.
type Logger interface {
	Noticef(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
	Tracef(format string, v ...any)

	// TraceFrame dumps a structural view of v (typically a frame header or
	// accumulator) at trace level. Implementations that don't support
	// tracing may no-op.
	TraceFrame(label string, v any)
}

// stdLogger is the default Logger, backed by the standard library's
// *log.Logger. Trace output uses go-spew so frame/accumulator structs are
// legible without each caller hand-writing a %+v format string.
type stdLogger struct {
	l       *log.Logger
	trace   bool
	debug   bool
	spewCfg *spew.ConfigState
}

// New returns the default Logger, writing to w with the standard flags
// plus microsecond timestamps.
// debug and trace gate the Debugf/Tracef/TraceFrame methods; Noticef,
// Warnf, and Errorf are always emitted.
func New(w io.Writer, debug, trace bool) Logger {
	return &stdLogger{
		l:     log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		debug: debug,
		trace: trace,
		spewCfg: &spew.ConfigState{
			Indent:                  "  ",
			DisableMethods:          true,
			DisablePointerAddresses: true,
		},
	}
}

// Default returns a Logger writing to stderr with debug and trace disabled.
func Default() Logger {
	return New(os.Stderr, false, false)
}

func (s *stdLogger) Noticef(format string, v ...any) { s.l.Printf("[NOTICE] "+format, v...) }
func (s *stdLogger) Warnf(format string, v ...any)   { s.l.Printf("[WARN] "+format, v...) }
func (s *stdLogger) Errorf(format string, v ...any)  { s.l.Printf("[ERROR] "+format, v...) }

func (s *stdLogger) Debugf(format string, v ...any) {
	if s.debug {
		s.l.Printf("[DEBUG] "+format, v...)
	}
}

func (s *stdLogger) Tracef(format string, v ...any) {
	if s.trace {
		s.l.Printf("[TRACE] "+format, v...)
	}
}

func (s *stdLogger) TraceFrame(label string, v any) {
	if !s.trace {
		return
	}
	s.l.Printf("[TRACE] %s:\n%s", label, s.spewCfg.Sdump(v))
}

// Noop is a Logger that discards everything; useful in tests and for
// callers that want silence without a nil-check at every call site.
var Noop Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) Noticef(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)    {}
func (noopLogger) Errorf(string, ...any)   {}
func (noopLogger) Debugf(string, ...any)   {}
func (noopLogger) Tracef(string, ...any)   {}
func (noopLogger) TraceFrame(string, any)  {}
