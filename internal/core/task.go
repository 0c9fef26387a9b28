package core

var taskLog = NewCompLogger("task")

// taskIDCounter is the one piece of shared mutable state outside the single
// controlling thread's call stack; it must only ever be touched from that
// thread, same as everything else here.
var taskIDCounter uint32

// Callback is a task's periodic action. OnEnable vetoes (or allows) an
// enable by returning false/true; OnDisable observes a disable/cancel/abort.
type (
	Callback  func()
	OnEnable  func() bool
	OnDisable func()
)

// TaskBehavior is the object-oriented alternative to the three closure
// fields above: a type that owns its own state implements Callback
// (required) and optionally OnEnable/OnDisable as methods instead of
// handing the task separate function values. Its Callback reports whether
// the fire should count as busy (true) or idle (false), taking the place
// of the closure shape's "callback ran at all" rule. A task is either
// closure-driven or behavior-driven, never both; SetBehavior clears any
// closures already set, and Set/SetBehavior each clear the other shape.
type TaskBehavior interface {
	Callback() bool
}

// OOOnEnabler is the optional on-enable hook for a TaskBehavior.
type OOOnEnabler interface {
	OnEnable() bool
}

// OOOnDisabler is the optional on-disable hook for a TaskBehavior.
type OOOnDisabler interface {
	OnDisable()
}

// waitStatus packs a task's transient state bits together.
type waitStatus struct {
	enabled    bool
	inOnEnable bool
	canceled   bool
	timedOut   bool
	waiting    waitMode
}

// Task is an externally owned schedulable descriptor: the embedder
// allocates it (stack, arena, or heap — the scheduler only borrows it via
// intrusive chain links) and links it into at most one Scheduler at a time.
type Task struct {
	// Scheduling parameters.
	interval       uint32
	delay          uint32
	previousTick   uint32
	iterationsLeft int32
	setIterations  int32
	runCounter     uint32

	status waitStatus

	callback  Callback
	onEnable  OnEnable
	onDisable OnDisable

	// behavior, when non-nil, replaces callback/onEnable/onDisable entirely:
	// see TaskBehavior.
	behavior TaskBehavior

	prev, next *Task
	scheduler  *Scheduler

	// Diagnostics (time-critical feature).
	overrun    int32
	startDelay int32

	// Watchdog/identity feature.
	id           uint32
	controlPoint int

	// Local task storage feature.
	localStorage any

	// Timeout feature.
	timeout   uint32
	startTime uint32

	// Event-wait feature.
	statusRequestRef      *StatusRequest
	internalStatusRequest *StatusRequest

	option ScheduleOption
}

// NewTask constructs a detached, disabled task with the given interval and
// iteration budget. Attach it to a scheduler with (*Scheduler).AddTask, then
// Enable it.
func NewTask(interval uint32, iterations int32, callback Callback, onEnable OnEnable, onDisable OnDisable) *Task {
	t := &Task{
		internalStatusRequest: NewStatusRequest(),
		id:                    nextTaskID(),
	}
	t.Set(interval, iterations, callback, onEnable, onDisable)
	return t
}

func nextTaskID() uint32 {
	taskIDCounter++
	return taskIDCounter
}

// NewObjectTask constructs a detached, disabled task driven by behavior
// instead of closures. The scheduler must have FeatureConfig.ObjectOrientedTasks
// enabled for behavior's Callback to actually fire; see TaskBehavior.
func NewObjectTask(interval uint32, iterations int32, behavior TaskBehavior) *Task {
	t := &Task{
		internalStatusRequest: NewStatusRequest(),
		id:                    nextTaskID(),
	}
	t.SetBehavior(interval, iterations, behavior)
	return t
}

// SetBehavior assigns a TaskBehavior, clearing any closure callbacks
// previously set via Set. It calls SetInterval internally, which delays
// the next fire by one interval from now.
func (t *Task) SetBehavior(interval uint32, iterations int32, behavior TaskBehavior) {
	t.callback, t.onEnable, t.onDisable = nil, nil, nil
	t.behavior = behavior
	t.SetInterval(interval)
	t.setIterations = iterations
	t.iterationsLeft = iterations
}

// Set assigns the task's scheduling parameters and callbacks. It calls
// SetInterval internally, which delays the next fire by one interval from
// now.
func (t *Task) Set(interval uint32, iterations int32, callback Callback, onEnable OnEnable, onDisable OnDisable) {
	t.behavior = nil
	t.callback = callback
	t.onEnable = onEnable
	t.onDisable = onDisable
	t.SetInterval(interval)
	t.setIterations = iterations
	t.iterationsLeft = iterations
}

// SetInterval records a new interval and refreshes delay to match,
// stamping previousTick at now so the next fire is one interval away.
func (t *Task) SetInterval(interval uint32) {
	t.interval = interval
	t.Delay(0)
}

// SetIterations replaces the remaining and original iteration budgets.
func (t *Task) SetIterations(iterations int32) {
	t.setIterations = iterations
	t.iterationsLeft = iterations
}

// Delay sets delay to d (or interval, if d is zero) and stamps previousTick
// at now, postponing the next fire by that amount.
func (t *Task) Delay(d uint32) {
	if d == 0 {
		d = t.interval
	}
	t.delay = d
	if t.scheduler != nil {
		t.previousTick = t.scheduler.now()
	}
}

// ForceNextIteration stamps previousTick so the task fires on the very next
// visit regardless of remaining delay.
func (t *Task) ForceNextIteration() {
	if t.scheduler == nil {
		return
	}
	t.delay = t.interval
	t.previousTick = t.scheduler.now() - t.interval
}

// Enable arms the task for execution. Returns false (and does nothing else)
// if the task is not attached to a scheduler. If an OnEnable hook is set and
// the task is not already re-entering its own hook, the hook's return value
// becomes the enabled state (veto); otherwise the task is simply enabled. A
// behavior-driven task always runs its OnEnable hook if it implements one
// (defaulting to enabled when it doesn't), since the hook there is a method
// on the task's own object rather than an optional function value.
func (t *Task) Enable() bool {
	if t.scheduler == nil {
		return false
	}

	t.runCounter = 0
	t.status.canceled = false

	if t.scheduler.features.ObjectOrientedTasks && t.behavior != nil {
		if onEnabler, ok := t.behavior.(OOOnEnabler); ok && !t.status.inOnEnable {
			prevCurrent := t.scheduler.currentTask
			t.scheduler.currentTask = t
			t.status.inOnEnable = true
			t.status.enabled = onEnabler.OnEnable()
			t.status.inOnEnable = false
			t.scheduler.currentTask = prevCurrent
		} else if !ok {
			t.status.enabled = true
		}
	} else if t.onEnable != nil && !t.status.inOnEnable {
		prevCurrent := t.scheduler.currentTask
		t.scheduler.currentTask = t
		t.status.inOnEnable = true
		t.status.enabled = t.onEnable()
		t.status.inOnEnable = false
		t.scheduler.currentTask = prevCurrent
	} else if t.onEnable == nil {
		t.status.enabled = true
	}
	// else: re-entrant call from within our own OnEnable hook — the latch
	// short-circuits to "already enabled", leaving status.enabled untouched.

	now := t.scheduler.now()
	t.delay = t.interval
	t.previousTick = now - t.interval

	t.startTime = now
	t.status.timedOut = false

	if t.status.enabled {
		t.internalStatusRequest.SetWaiting(1)
	}

	taskLog.Debugf("task %d: enable -> %v", t.id, t.status.enabled)
	return t.status.enabled
}

// EnableIfNot enables the task only if it is currently disabled, returning
// the prior enabled state.
func (t *Task) EnableIfNot() bool {
	wasEnabled := t.status.enabled
	if !wasEnabled {
		t.Enable()
	}
	return wasEnabled
}

// EnableDelayed enables the task, then delays its first fire by d.
func (t *Task) EnableDelayed(d uint32) bool {
	t.Enable()
	t.Delay(d)
	return t.status.enabled
}

// Disable clears the enabled flag, invokes the on-disable hook (if the task
// was enabled), and signals the internal status request complete. Returns
// the prior enabled state.
func (t *Task) Disable() bool {
	wasEnabled := t.status.enabled
	t.status.enabled = false
	t.status.inOnEnable = false

	if wasEnabled {
		var onDisabler OOOnDisabler
		ok := false
		if t.behavior != nil && t.scheduler != nil && t.scheduler.features.ObjectOrientedTasks {
			onDisabler, ok = t.behavior.(OOOnDisabler)
		}
		if ok || t.onDisable != nil {
			var prevCurrent *Task
			if t.scheduler != nil {
				prevCurrent = t.scheduler.currentTask
				t.scheduler.currentTask = t
			}
			if ok {
				onDisabler.OnDisable()
			} else {
				t.onDisable()
			}
			if t.scheduler != nil {
				t.scheduler.currentTask = prevCurrent
			}
		}
	}
	t.internalStatusRequest.SignalComplete(0)

	taskLog.Debugf("task %d: disable (was enabled=%v)", t.id, wasEnabled)
	return wasEnabled
}

// Abort disables the task without invoking the on-disable hook, marking it
// canceled.
func (t *Task) Abort() {
	t.status.enabled = false
	t.status.inOnEnable = false
	t.status.canceled = true
}

// Cancel marks the task canceled, observable to the on-disable hook, then
// disables it (invoking that hook).
func (t *Task) Cancel() {
	t.status.canceled = true
	t.Disable()
}

// Restart resets the iteration budget to its original value and enables
// the task.
func (t *Task) Restart() bool {
	t.iterationsLeft = t.setIterations
	return t.Enable()
}

// RestartDelayed resets the iteration budget and enables the task delayed
// by d.
func (t *Task) RestartDelayed(d uint32) bool {
	t.iterationsLeft = t.setIterations
	return t.EnableDelayed(d)
}

// WaitFor attaches sr as the task's wait target with no initial delay: once
// sr completes, the task fires on its very next visit. Returns false (doing
// nothing else) if sr is nil.
func (t *Task) WaitFor(sr *StatusRequest, interval uint32, iterations int32) bool {
	t.statusRequestRef = sr
	if sr == nil {
		return false
	}
	t.SetIterations(iterations)
	t.SetInterval(interval)
	t.status.waiting = waitNoDelay
	return t.Enable()
}

// WaitForDelayed attaches sr as the task's wait target; once sr completes,
// the task fires after one full delay. If interval is zero the task's
// current interval is kept. Returns false if sr is nil.
func (t *Task) WaitForDelayed(sr *StatusRequest, interval uint32, iterations int32) bool {
	t.statusRequestRef = sr
	if sr == nil {
		return false
	}
	t.SetIterations(iterations)
	if interval != 0 {
		t.SetInterval(interval)
	}
	t.status.waiting = waitDelayed
	return t.Enable()
}

// Yield replaces the current iteration's callback with cb for the next
// pass, without consuming an iteration or a run-counter tick (callback mode
// only).
func (t *Task) Yield(cb Callback) {
	t.callback = cb
	t.ForceNextIteration()
	t.runCounter--
	if t.iterationsLeft >= 0 {
		t.iterationsLeft++
	}
}

// YieldOnce behaves like Yield but forces the next visit to be the task's
// single remaining (and last) iteration.
func (t *Task) YieldOnce(cb Callback) {
	t.Yield(cb)
	t.iterationsLeft = 1
}

// SetTimeout arms the per-task timeout feature: the task is disabled (with
// TimedOut() reporting true) on the first visit at which more than timeout
// ticks have elapsed since it was enabled or since the timeout was last
// reset. A zero timeout disables the feature.
func (t *Task) SetTimeout(timeout uint32, reset bool) {
	t.timeout = timeout
	if reset && t.scheduler != nil {
		t.startTime = t.scheduler.now()
		t.status.timedOut = false
	}
}

// SetLocalStorage attaches an opaque, embedder-owned value to the task,
// retrievable via LocalStorage — typically from within the task's own
// callback via the scheduler's GetCurrentTask.
func (t *Task) SetLocalStorage(v any) { t.localStorage = v }

// LocalStorage returns the value set via SetLocalStorage, or nil.
func (t *Task) LocalStorage() any { return t.localStorage }

// SetControlPoint records a callback-chosen checkpoint value, readable by
// an external watchdog between passes. Reset to 0 at the top of every visit
// regardless of whether the task fires.
func (t *Task) SetControlPoint(cp int) { t.controlPoint = cp }

// GetControlPoint returns the last value set via SetControlPoint.
func (t *Task) GetControlPoint() int { return t.controlPoint }

// Observers.

func (t *Task) IsEnabled() bool        { return t.status.enabled }
func (t *Task) GetInterval() uint32    { return t.interval }
func (t *Task) GetIterations() int32   { return t.iterationsLeft }
func (t *Task) GetRunCounter() uint32  { return t.runCounter }
func (t *Task) IsFirstIteration() bool { return t.runCounter <= 1 }
func (t *Task) IsLastIteration() bool  { return t.iterationsLeft == 0 }
func (t *Task) GetOverrun() int32      { return t.overrun }
func (t *Task) GetStartDelay() int32   { return t.startDelay }
func (t *Task) TimedOut() bool         { return t.status.timedOut }
func (t *Task) Canceled() bool         { return t.status.canceled }
func (t *Task) GetID() uint32          { return t.id }

func (t *Task) GetStatusRequest() *StatusRequest         { return t.statusRequestRef }
func (t *Task) GetInternalStatusRequest() *StatusRequest { return t.internalStatusRequest }

// SetSchedulingOption selects how the task reschedules itself once it
// fires. The default is Schedule.
func (t *Task) SetSchedulingOption(opt ScheduleOption) { t.option = opt }

// GetSchedulingOption returns the task's current scheduling option.
func (t *Task) GetSchedulingOption() ScheduleOption { return t.option }
