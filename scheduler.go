package scheduler

import "github.com/cooptask/scheduler/internal/core"

// Re-exported engine types. Keeping the core engine in an internal package
// lets its shape evolve without breaking embedders who only import this
// facade.
type (
	Task           = core.Task
	Scheduler      = core.Scheduler
	StatusRequest  = core.StatusRequest
	Callback       = core.Callback
	OnEnable       = core.OnEnable
	OnDisable      = core.OnDisable
	TaskBehavior   = core.TaskBehavior
	OOOnEnabler    = core.OOOnEnabler
	OOOnDisabler   = core.OOOnDisabler
	Clock          = core.Clock
	SleepFunc      = core.SleepFunc
	FeatureConfig  = core.FeatureConfig
	ScheduleOption = core.ScheduleOption
)

// Scheduling-option values, selecting how a fired task reschedules itself.
const (
	Schedule          = core.Schedule
	ScheduleNoCatchup = core.ScheduleNoCatchup
	Interval          = core.Interval
)

// Recognized constants.
const (
	IMMEDIATE = core.IMMEDIATE
	FOREVER   = core.FOREVER
	ONCE      = core.ONCE
	SECOND    = core.Second
	MINUTE    = core.Minute
	HOUR      = core.Hour

	ErrStatusRequestTimeout = core.ErrStatusRequestTimeout
)

// NewTask constructs a detached, disabled task. Attach it to a scheduler
// with (*Scheduler).AddTask, then Enable it.
func NewTask(interval uint32, iterations int32, callback Callback, onEnable OnEnable, onDisable OnDisable) *Task {
	return core.NewTask(interval, iterations, callback, onEnable, onDisable)
}

// NewObjectTask constructs a detached, disabled task driven by behavior
// instead of closures. FeatureConfig.ObjectOrientedTasks must be enabled on
// the owning scheduler for behavior's Callback to actually fire.
func NewObjectTask(interval uint32, iterations int32, behavior TaskBehavior) *Task {
	return core.NewObjectTask(interval, iterations, behavior)
}

// NewStatusRequest returns a completed StatusRequest; call SetWaiting to
// arm it.
func NewStatusRequest() *StatusRequest {
	return core.NewStatusRequest()
}

// NewScheduler constructs a ready-to-use Scheduler driven by clock. features
// may be nil for the engine's default feature set.
func NewScheduler(clock Clock, features *FeatureConfig) *Scheduler {
	return core.NewScheduler(clock, features)
}

// NewFeatureConfig returns the engine's default feature set.
func NewFeatureConfig() *FeatureConfig {
	return core.NewFeatureConfig()
}
