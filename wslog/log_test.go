package wslog

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugfSuppressedUnlessEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, false)
	l.Debugf("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestDebugfEmittedWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true, false)
	l.Debugf("hello %d", 42)
	if !strings.Contains(buf.String(), "hello 42") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestNoticefAlwaysEmitted(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, false)
	l.Noticef("connected")
	if !strings.Contains(buf.String(), "connected") {
		t.Fatalf("expected notice line, got %q", buf.String())
	}
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	// Exists purely to document the contract; Noop must never panic.
	Noop.Noticef("x")
	Noop.Debugf("x")
	Noop.Tracef("x")
	Noop.TraceFrame("x", struct{}{})
}
