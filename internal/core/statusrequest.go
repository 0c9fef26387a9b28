package core

import "github.com/sirupsen/logrus"

var statusRequestLog = NewCompLogger("statusrequest")

// StatusRequest is the event primitive tasks wait on: a countdown of
// pending signals plus a status code, with an optional timeout. It is
// shared between a producer (whoever calls Signal/SignalComplete) and one
// or more waiting tasks; all of that sharing happens from the single
// controlling thread driving the scheduler, so no internal locking is
// needed.
type StatusRequest struct {
	count  int
	status int32

	timeout   uint32
	startTime uint32
	hasClock  bool
	clock     Clock
}

// NewStatusRequest returns a StatusRequest with no pending signals
// (completed). Call SetWaiting to arm it.
func NewStatusRequest() *StatusRequest {
	return &StatusRequest{}
}

// SetTimeout arms the optional timeout feature for this request; clock is
// the host tick source used to stamp StartTime and to evaluate
// UntilTimeout. A zero timeout disables the timeout gate.
func (sr *StatusRequest) SetTimeout(clock Clock, timeout uint32) {
	sr.clock = clock
	sr.hasClock = clock != nil
	sr.timeout = timeout
}

// SetWaiting (re)arms the request with count pending signals (default 1 if
// count is 0) and clears the status. It never fails.
func (sr *StatusRequest) SetWaiting(count int) {
	if count == 0 {
		count = 1
	}
	sr.count = count
	sr.status = 0
	if sr.hasClock {
		sr.startTime = sr.clock()
	}
}

// Signal decrements the pending count by one (saturating at zero) and
// records status, unless the request is already completed, in which case it
// is a no-op. A negative status forces the count to zero immediately,
// short-circuiting the request. Returns whether the request is now
// completed.
func (sr *StatusRequest) Signal(status int32) bool {
	if sr.count != 0 {
		if sr.count > 0 {
			sr.count--
		}
		sr.status = status
		if status < 0 {
			sr.count = 0
		}
		statusRequestLog.WithFields(sr.fields()).Debug("signaled")
	}
	return sr.count == 0
}

// SignalComplete immediately completes the request with the given status,
// unless it was already completed — completing a completed request is a
// no-op, status included.
func (sr *StatusRequest) SignalComplete(status int32) {
	if sr.count != 0 {
		sr.count = 0
		sr.status = status
		statusRequestLog.WithFields(sr.fields()).Debug("completed")
	}
}

// Pending reports whether the request still has outstanding signals.
func (sr *StatusRequest) Pending() bool { return sr.count != 0 }

// Completed reports whether the request has no outstanding signals.
func (sr *StatusRequest) Completed() bool { return sr.count == 0 }

// GetStatus returns the current status code.
func (sr *StatusRequest) GetStatus() int32 { return sr.status }

// GetCount returns the number of pending signals.
func (sr *StatusRequest) GetCount() int { return sr.count }

// ResetTimeout restamps the start time to now, when the timeout feature is
// armed (SetTimeout was called with a non-nil clock).
func (sr *StatusRequest) ResetTimeout() {
	if sr.hasClock {
		sr.startTime = sr.clock()
	}
}

// UntilTimeout returns the signed number of ticks remaining until the
// request's own timeout elapses, or -1 if no timeout is set.
func (sr *StatusRequest) UntilTimeout() int32 {
	if sr.timeout == 0 || !sr.hasClock {
		return -1
	}
	return int32(sr.startTime+sr.timeout) - int32(sr.clock())
}

// timedOut reports whether this request's own timeout has elapsed, used
// internally by the engine's wait gate.
func (sr *StatusRequest) timedOut(now uint32) bool {
	return sr.hasClock && sr.timeout != 0 && now-sr.startTime > sr.timeout
}

func (sr *StatusRequest) fields() logrus.Fields {
	return logrus.Fields{"count": sr.count, "status": sr.status}
}
