// Package schedtest provides test-only helpers for exercising the
// scheduler package: a collectable-log helper that redirects the root
// logger into (*testing.T) during a test and restores it afterward.
package schedtest

import (
	"io"
	"testing"
)

// CollectableLog is the interface a collectable logger must satisfy. The
// package's CollectableLogger (see log.go) implements it.
type CollectableLog interface {
	GetLevel() any
	SetLevel(level any)
	GetOutput() io.Writer
	SetOutput(out io.Writer)
}

// TestLogCollect redirects a CollectableLog's output into t.Log for the
// duration of a test, unless the test is run with -v, in which case the
// log is left alone so it streams live.
type TestLogCollect struct {
	log        CollectableLog
	savedOut   io.Writer
	savedLevel any
	t          *testing.T
}

// NewTestLogCollect wraps log (typically scheduler.GetRootLogger()) for the
// duration of the test. If level is non-nil, the log level is also
// temporarily overridden. Call RestoreLog when done, typically via defer.
func NewTestLogCollect(t *testing.T, log any, level any) *TestLogCollect {
	tlc := &TestLogCollect{t: t}
	cl, ok := log.(CollectableLog)
	if !ok || cl == nil {
		return tlc
	}
	tlc.log = cl
	if !testing.Verbose() {
		tlc.savedOut = cl.GetOutput()
		cl.SetOutput(tlc)
	}
	if level != nil {
		tlc.savedLevel = cl.GetLevel()
		cl.SetLevel(level)
	}
	return tlc
}

// Write implements io.Writer, forwarding each line to t.Log.
func (tlc *TestLogCollect) Write(buf []byte) (int, error) {
	n := len(buf)
	if n > 0 && buf[n-1] == '\n' {
		buf = buf[:n-1]
	}
	tlc.t.Log(string(buf))
	return n, nil
}

// RestoreLog undoes whatever NewTestLogCollect changed.
func (tlc *TestLogCollect) RestoreLog() {
	if tlc.log == nil {
		return
	}
	if tlc.savedOut != nil {
		tlc.log.SetOutput(tlc.savedOut)
	}
	if tlc.savedLevel != nil {
		tlc.log.SetLevel(tlc.savedLevel)
	}
}
