package core

import (
	"fmt"
	"time"

	units "github.com/docker/go-units"
)

func msToDuration(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ticksToDuration renders a tick count (milliseconds, the common case) as a
// human-readable duration for log lines and String() methods.
func ticksToDuration(ticks int32) string {
	neg := ticks < 0
	if neg {
		ticks = -ticks
	}
	s := units.HumanDuration(msToDuration(ticks))
	if neg {
		return "-" + s
	}
	return s
}

// String renders the task's identity and last-fire diagnostics, e.g.
// "task#3 overrun=-2 seconds startDelay=Less than a second".
func (t *Task) String() string {
	return fmt.Sprintf(
		"task#%d overrun=%s startDelay=%s",
		t.id, ticksToDuration(t.overrun), ticksToDuration(t.startDelay),
	)
}

// CPULoadString renders cumulative CPU-load diagnostics in human-readable form.
func (s *Scheduler) CPULoadString() string {
	return fmt.Sprintf(
		"cycle=%s idle=%s",
		ticksToDuration(int32(s.cpuCycle)), ticksToDuration(int32(s.cpuIdle)),
	)
}
