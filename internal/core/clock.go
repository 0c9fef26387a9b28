package core

// Clock is the host collaborator: a zero-argument function returning a
// monotonic, unsigned 32-bit tick count. It must be non-decreasing except
// for word-width wraparound; all arithmetic in this package is
// unsigned-modular so wraparound is transparent.
type Clock func() uint32

// SleepFunc is the host sleep collaborator, invoked only on idle passes by
// the sleep-owning scheduler with the elapsed-pass duration (in ticks) as
// advisory. It must return promptly.
type SleepFunc func(elapsed uint32)

// noopSleep is the default SleepFunc installed by NewScheduler, mirroring
// the original engine's default (inert) sleep method.
func noopSleep(uint32) {}
