package core

import "github.com/sirupsen/logrus"

var schedulerLog = NewCompLogger("scheduler")

// FeatureConfig selects which engine capabilities are active at runtime, a
// flexible stand-in for compile-time feature gating in resource-constrained
// builds. Each field only ever adds fields or behavior on top of the
// baseline semantics; none of them change the baseline when left at its
// zero value except MicrosecondResolution, which forces SleepOnIdleRun
// off. Priority, LocalTaskStorage and WatchdogIDs are not read by the
// engine: higher-priority linking, local task storage, task IDs and control
// points are available whatever their value.
type FeatureConfig struct {
	TimeCritical          bool `yaml:"time_critical"`
	SleepOnIdleRun        bool `yaml:"sleep_on_idle_run"`
	StatusRequest         bool `yaml:"status_request"`
	Priority              bool `yaml:"priority"`
	LocalTaskStorage      bool `yaml:"local_task_storage"`
	WatchdogIDs           bool `yaml:"watchdog_ids"`
	Timeout               bool `yaml:"timeout"`
	SchedulingOptions     bool `yaml:"scheduling_options"`
	MicrosecondResolution bool `yaml:"microsecond_resolution"`
	ObjectOrientedTasks   bool `yaml:"object_oriented_tasks"`
}

// NewFeatureConfig returns the engine's default feature set: everything on
// except microsecond resolution (and therefore idle sleep stays available)
// and object-oriented tasks, which most embedders never need.
func NewFeatureConfig() *FeatureConfig {
	fc := &FeatureConfig{
		TimeCritical:      true,
		SleepOnIdleRun:    true,
		StatusRequest:     true,
		Priority:          true,
		LocalTaskStorage:  true,
		WatchdogIDs:       true,
		Timeout:           true,
		SchedulingOptions: true,
	}
	return fc
}

// applyMicrosecondGate enforces the "microsecond resolution disables idle
// sleep" rule: a host measuring ticks in microseconds would otherwise see
// its idle-run detector fire on nearly every pass.
func (fc *FeatureConfig) applyMicrosecondGate() {
	if fc.MicrosecondResolution {
		fc.SleepOnIdleRun = false
	}
}

// Scheduler owns an ordered chain of tasks and executes one pass over the
// chain per Execute call. It is driven by exactly one caller and performs
// no internal locking.
type Scheduler struct {
	first, last *Task
	currentTask *Task

	paused  bool
	enabled bool

	highPriority *Scheduler
	allowSleep   bool
	sleepMethod  SleepFunc
	isSleepOwner bool

	clock    Clock
	features *FeatureConfig

	cpuCycle uint64
	cpuIdle  uint64
}

// NewScheduler constructs a ready-to-use Scheduler. clock is the host tick
// source (required); features may be nil for the engine's default feature
// set.
func NewScheduler(clock Clock, features *FeatureConfig) *Scheduler {
	if features == nil {
		features = NewFeatureConfig()
	}
	features.applyMicrosecondGate()

	s := &Scheduler{
		clock:    clock,
		features: features,
	}
	s.init()
	return s
}

func (s *Scheduler) now() uint32 {
	if s.clock == nil {
		return 0
	}
	return s.clock()
}

// init resets the scheduler to an empty, enabled, unpaused, sleep-allowed
// state with no higher-priority link.
func (s *Scheduler) init() {
	s.first, s.last, s.currentTask = nil, nil, nil
	s.paused = false
	s.enabled = true
	s.highPriority = nil
	s.allowSleep = true
	s.isSleepOwner = true
	s.sleepMethod = noopSleep
}

// AddTask appends t to the tail of the chain, claiming ownership. No-op if
// t already belongs to a scheduler: a task can only ever be linked into one
// chain at a time.
func (s *Scheduler) AddTask(t *Task) {
	if t.scheduler != nil {
		schedulerLog.Debugf("task %d: AddTask no-op, already attached", t.id)
		return
	}
	t.scheduler = s
	if s.first == nil {
		s.first = t
		t.prev = nil
	} else {
		t.prev = s.last
		s.last.next = t
	}
	t.next = nil
	s.last = t
	schedulerLog.Debugf("task %d: added", t.id)
}

// DeleteTask unlinks t from the chain. No-op if t does not belong to this
// scheduler.
func (s *Scheduler) DeleteTask(t *Task) {
	if t.scheduler != s {
		return
	}
	t.scheduler = nil
	schedulerLog.Debugf("task %d: deleted", t.id)

	if t.prev == nil {
		if t.next == nil {
			s.first, s.last = nil, nil
			return
		}
		t.next.prev = nil
		s.first = t.next
		t.next = nil
		return
	}

	if t.next == nil {
		t.prev.next = nil
		s.last = t.prev
		t.prev = nil
		return
	}

	t.prev.next = t.next
	t.next.prev = t.prev
	t.prev, t.next = nil, nil
}

// DisableAll disables every task in the chain; if recursive, also disables
// the higher-priority chain, if any.
func (s *Scheduler) DisableAll(recursive bool) {
	for cur := s.first; cur != nil; cur = cur.next {
		cur.Disable()
	}
	if recursive && s.highPriority != nil {
		s.highPriority.DisableAll(true)
	}
}

// EnableAll enables every task in the chain; if recursive, also enables the
// higher-priority chain, if any.
func (s *Scheduler) EnableAll(recursive bool) {
	for cur := s.first; cur != nil; cur = cur.next {
		cur.Enable()
	}
	if recursive && s.highPriority != nil {
		s.highPriority.EnableAll(true)
	}
}

// StartNow reschedules every enabled task's next fire to occur at its next
// scheduled point measured from now, without otherwise altering the task.
// If recursive, does the same for the higher-priority chain.
func (s *Scheduler) StartNow(recursive bool) {
	t := s.now()
	for cur := s.first; cur != nil; cur = cur.next {
		if cur.status.enabled {
			cur.previousTick = t - cur.delay
		}
	}
	if recursive && s.highPriority != nil {
		s.highPriority.StartNow(true)
	}
}

// SetHighPriorityScheduler links hp as this scheduler's higher-priority
// chain (composition, not inheritance): hp's entire Execute runs once per
// visit of this scheduler's pass. Setting a scheduler as its own
// higher-priority link is a no-op (would recurse forever). The linked
// scheduler has its own sleep delegation disabled: only the lowest-priority
// scheduler in a stack should put the host to sleep.
func (s *Scheduler) SetHighPriorityScheduler(hp *Scheduler) {
	if hp == s {
		return
	}
	s.highPriority = hp
	if hp != nil {
		hp.AllowSleep(false)
		hp.isSleepOwner = false
	}
}

// AllowSleep toggles whether an idle pass invokes the sleep callback.
func (s *Scheduler) AllowSleep(allow bool) { s.allowSleep = allow }

// SetSleepMethod installs the callback invoked on an idle pass by the
// sleep-owning scheduler.
func (s *Scheduler) SetSleepMethod(fn SleepFunc) {
	if fn == nil {
		fn = noopSleep
	}
	s.sleepMethod = fn
}

// Pause halts the per-pass loop entirely (Execute still returns, reporting
// idle) without disabling the scheduler.
func (s *Scheduler) Pause() { s.paused = true }

// Resume clears Pause.
func (s *Scheduler) Resume() { s.paused = false }

// Enable/Disable gate the scheduler as a whole: a disabled scheduler's
// Execute returns immediately, reporting idle.
func (s *Scheduler) Enable()  { s.enabled = true }
func (s *Scheduler) Disable() { s.enabled = false }

// GetCurrentTask returns the task whose callback is presently executing (or
// whose on-enable/on-disable hook is presently executing), or nil.
func (s *Scheduler) GetCurrentTask() *Task { return s.currentTask }

// TimeUntilNextIteration returns the signed number of ticks until t would
// next fire, clamped to 0 if already due, or -1 if unknowable (disabled, or
// waiting on a still-pending StatusRequest).
func (s *Scheduler) TimeUntilNextIteration(t *Task) int32 {
	if t.statusRequestRef != nil && t.statusRequestRef.Pending() {
		return -1
	}
	if !t.status.enabled {
		return -1
	}
	d := int32(t.delay) - int32(s.now()-t.previousTick)
	if d < 0 {
		return 0
	}
	return d
}

// IsOverrun reports whether the currently executing task's last fire was
// late (time-critical diagnostics).
func (s *Scheduler) IsOverrun() bool {
	return s.currentTask != nil && s.currentTask.overrun < 0
}

// CPULoadReset zeroes the cumulative CPU-cycle/idle diagnostics.
func (s *Scheduler) CPULoadReset() { s.cpuCycle, s.cpuIdle = 0, 0 }

// CPULoadCycle returns the cumulative ticks spent in scheduling overhead
// (visiting tasks, gate checks, rescheduling arithmetic) since the last
// CPULoadReset, excluding time spent inside task callbacks themselves.
func (s *Scheduler) CPULoadCycle() uint64 { return s.cpuCycle }

// CPULoadIdle returns the cumulative ticks spent inside the sleep callback
// since the last CPULoadReset.
func (s *Scheduler) CPULoadIdle() uint64 { return s.cpuIdle }

// CPULoadTotal returns CPULoadCycle plus CPULoadIdle: the full accounted
// time since the last CPULoadReset.
func (s *Scheduler) CPULoadTotal() uint64 { return s.cpuCycle + s.cpuIdle }

// Execute runs exactly one pass over the chain. It returns idleRun: true
// iff no callback fired in this pass nor in the higher-priority chain, if
// any.
func (s *Scheduler) Execute() bool {
	idleRun := true
	passStart := s.now()

	// An empty low-priority chain still triggers one high-priority pass, so
	// a stacked high-priority scheduler keeps running even while its
	// low-priority host has nothing of its own to do.
	if s.first == nil && s.highPriority != nil {
		idleRun = s.highPriority.Execute() && idleRun
	}

	if !s.enabled {
		return true
	}

	s.currentTask = s.first
	for !s.paused && s.currentTask != nil {
		if s.highPriority != nil {
			idleRun = s.highPriority.Execute() && idleRun
		}

		cur := s.currentTask
		nextTask := cur.next // support deleting cur from its own callback

		visitStart := s.now()
		fired, callbackTicks := s.visit(cur)
		if fired {
			idleRun = false
		}
		if s.features.TimeCritical {
			s.cpuCycle += uint64(s.now()-visitStart) - callbackTicks
		}

		s.currentTask = nextTask
	}
	s.currentTask = nil

	if idleRun && s.allowSleep && s.isSleepOwner && s.features.SleepOnIdleRun {
		elapsed := s.now() - passStart
		schedulerLog.WithFields(s.logFields()).Debugf("idle pass, invoking sleep method with elapsed=%d", elapsed)
		idleStart := s.now()
		s.sleepMethod(elapsed)
		if s.features.TimeCritical {
			s.cpuIdle += uint64(s.now() - idleStart)
		}
	}

	return idleRun
}

// visit evaluates and, if due, fires a single task. Every early return
// corresponds to one reason the task is skipped for this pass. callbackTicks
// is the time spent inside the task's own callback (zero if the task did
// not reach its fire step), subtracted by the caller from the surrounding
// per-visit overhead so CPULoadCycle reflects scheduling cost alone.
func (s *Scheduler) visit(t *Task) (fired bool, callbackTicks uint64) {
	if !t.status.enabled {
		return false, 0
	}

	t.controlPoint = 0

	if t.iterationsLeft == 0 {
		t.Disable()
		return false, 0
	}

	now := s.now()
	interval := t.interval

	if s.features.Timeout && t.timeout != 0 && now-t.startTime > t.timeout {
		t.status.timedOut = true
		t.Disable()
		return false, 0
	}

	if s.features.StatusRequest && t.status.waiting != waitNone {
		sr := t.statusRequestRef
		if sr != nil {
			if s.features.Timeout && sr.timedOut(now) {
				sr.SignalComplete(ErrStatusRequestTimeout)
			}
			if sr.Pending() {
				return false, 0
			}
			if t.status.waiting == waitNoDelay {
				t.delay = interval
				t.previousTick = now - interval
			} else {
				t.previousTick = now
			}
		}
		t.status.waiting = waitNone
	}

	if now-t.previousTick < t.delay {
		return false, 0
	}

	if t.iterationsLeft > 0 {
		t.iterationsLeft--
	}
	t.runCounter++

	option := Schedule
	if s.features.SchedulingOptions {
		option = t.option
	}
	switch option {
	case Interval:
		t.previousTick = now
	case ScheduleNoCatchup:
		t.previousTick += t.delay
		if int32(t.previousTick+interval-now) < 0 {
			ii := interval
			if ii == 0 {
				ii = 1
			}
			t.previousTick += ((now - t.previousTick) / ii) * ii
		}
	default:
		t.previousTick += t.delay
	}

	if s.features.TimeCritical {
		p := t.previousTick
		t.overrun = int32(p + interval - now)
		t.startDelay = int32(now - p)
	}

	t.delay = interval

	var tTaskStart uint32
	if s.features.TimeCritical {
		tTaskStart = now
	}

	prevCurrent := s.currentTask
	s.currentTask = t
	switch {
	case s.features.ObjectOrientedTasks && t.behavior != nil:
		fired = t.behavior.Callback()
	case t.callback != nil:
		t.callback()
		fired = true
	}
	s.currentTask = prevCurrent

	if s.features.TimeCritical {
		callbackTicks = uint64(s.now() - tTaskStart)
	}

	if fired {
		schedulerLog.Debugf("task %d: fired (runCounter=%d, overrun=%d)", t.id, t.runCounter, t.overrun)
	}

	return fired, callbackTicks
}

func (s *Scheduler) logFields() logrus.Fields {
	return logrus.Fields{"enabled": s.enabled, "paused": s.paused}
}
