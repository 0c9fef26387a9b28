// Tests for scheduler.go, including end-to-end scenarios covering the
// per-pass execution loop, priority layering and diagnostics.

package core

import (
	"strings"
	"testing"
)

// fakeClock is the mocked host clock collaborator used throughout these
// tests: a tick counter the test advances explicitly between Execute calls,
// mirroring the original engine's test harness style of mocking millis().
type fakeClock struct{ now uint32 }

func (c *fakeClock) clock() uint32 { return c.now }
func (c *fakeClock) advance(d uint32) { c.now += d }

// autoAdvanceClock increments by one tick on every read, standing in for a
// real wall clock when a test needs the scheduler's own bookkeeping (not
// just task callbacks) to consume measurable time.
type autoAdvanceClock struct{ now uint32 }

func (c *autoAdvanceClock) clock() uint32 {
	c.now++
	return c.now
}

func TestExecuteFiniteIterationTask(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	var fires int
	task := NewTask(100, 3, func() { fires++ }, nil, nil)
	s.AddTask(task)
	task.Enable()

	for i := 0; i < 31; i++ {
		s.Execute()
		fc.advance(10)
	}

	if fires != 3 {
		t.Fatalf("fires = %d, want 3", fires)
	}
	if task.GetRunCounter() != 3 {
		t.Fatalf("RunCounter = %d, want 3", task.GetRunCounter())
	}
	if task.IsEnabled() {
		t.Fatal("task should have been auto-disabled after its last iteration")
	}
}

func TestExecuteStatusRequestWait(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	var aFires int
	taskA := NewTask(50, FOREVER, func() { aFires++ }, nil, nil)
	s.AddTask(taskA)
	taskA.Enable()

	sr := NewStatusRequest()
	sr.SetWaiting(2)

	var bFires int
	taskB := NewTask(0, 0, func() { bFires++ }, nil, nil)
	s.AddTask(taskB)
	if !taskB.WaitFor(sr, 0, 1) {
		t.Fatal("WaitFor should succeed")
	}

	for i := 0; i < 5; i++ {
		s.Execute()
		fc.advance(10)
	}
	if bFires != 0 {
		t.Fatalf("task B fired %d times before the wait completed, want 0", bFires)
	}

	sr.Signal(0)
	for i := 0; i < 3; i++ {
		s.Execute()
		fc.advance(10)
	}
	if bFires != 0 {
		t.Fatalf("task B fired %d times after a single signal, want 0 (count still 1)", bFires)
	}

	sr.Signal(0)
	for i := 0; i < 3; i++ {
		s.Execute()
		fc.advance(10)
	}
	if bFires != 1 {
		t.Fatalf("task B fired %d times, want exactly 1", bFires)
	}
}

func TestExecutePriorityLayering(t *testing.T) {
	fc := &fakeClock{}
	low := NewScheduler(fc.clock, nil)
	high := NewScheduler(fc.clock, nil)
	low.SetHighPriorityScheduler(high)

	var highFires int
	highTask := NewTask(50, FOREVER, func() { highFires++ }, nil, nil)
	high.AddTask(highTask)
	highTask.Enable()

	lowTasks := []*Task{
		NewTask(100, FOREVER, func() {}, nil, nil),
		NewTask(200, FOREVER, func() {}, nil, nil),
	}
	for _, lt := range lowTasks {
		low.AddTask(lt)
		lt.Enable()
	}

	// The high-priority chain runs once per low-priority task visited, so it
	// gets multiple chances per low.Execute() call here - but it only
	// actually fires every 50 ticks of wall time, giving 8 fires over 400.
	for tick := uint32(0); tick < 400; tick += 10 {
		low.Execute()
		fc.advance(10)
	}

	if highFires != 8 {
		t.Fatalf("high-priority task fired %d times over 400 ticks at interval 50, want 8", highFires)
	}
}

func TestExecutePriorityEmptyLowChainStillRunsHighPriority(t *testing.T) {
	fc := &fakeClock{}
	low := NewScheduler(fc.clock, nil)
	high := NewScheduler(fc.clock, nil)
	low.SetHighPriorityScheduler(high)

	var highFires int
	highTask := NewTask(10, ONCE, func() { highFires++ }, nil, nil)
	high.AddTask(highTask)
	highTask.Enable()

	low.Execute()
	if highFires != 1 {
		t.Fatalf("high priority chain should run once even with an empty low-priority chain, got %d fires", highFires)
	}
}

func TestExecuteTaskTimeout(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	var disabledObservedTimedOut bool
	task := NewTask(100, FOREVER, func() {}, nil, func() {})
	s.AddTask(task)
	task.SetTimeout(500, true)
	task.Enable()

	for i := 0; i < 60; i++ {
		s.Execute()
		fc.advance(10)
		if task.TimedOut() {
			disabledObservedTimedOut = true
			break
		}
	}

	if !disabledObservedTimedOut {
		t.Fatal("task should have timed out by tick 501")
	}
	if task.IsEnabled() {
		t.Fatal("timed-out task should be disabled")
	}
}

func TestCancelVsAbortObservability(t *testing.T) {
	fc := &fakeClock{}

	s1 := NewScheduler(fc.clock, nil)
	var canceledFlagAtHook bool
	var hookRan bool
	var cancelTask *Task
	cancelTask = NewTask(100, FOREVER, func() {}, nil, func() {
		hookRan = true
		canceledFlagAtHook = cancelTask.Canceled()
	})
	s1.AddTask(cancelTask)
	cancelTask.Enable()
	cancelTask.Cancel()
	if !hookRan || !canceledFlagAtHook {
		t.Fatalf("cancel: hookRan=%v canceledFlagAtHook=%v, want true/true", hookRan, canceledFlagAtHook)
	}

	s2 := NewScheduler(fc.clock, nil)
	var abortHookRan bool
	abortTask := NewTask(100, FOREVER, func() {}, nil, func() { abortHookRan = true })
	s2.AddTask(abortTask)
	abortTask.Enable()
	abortTask.Abort()
	if abortHookRan {
		t.Fatal("abort: on-disable hook must not run")
	}
	if !abortTask.Canceled() {
		t.Fatal("abort: canceled flag should still be set")
	}
}

func TestExecuteClockWraparound(t *testing.T) {
	const wrapStart = ^uint32(0) - 49 // 2^32 - 50
	fc := &fakeClock{now: wrapStart}
	s := NewScheduler(fc.clock, nil)

	var fireTicks []uint32
	task := NewTask(100, 2, func() { fireTicks = append(fireTicks, fc.now) }, nil, nil)
	s.AddTask(task)
	task.Enable()

	for i := 0; i < 21; i++ {
		s.Execute()
		fc.advance(10)
	}

	if len(fireTicks) != 2 {
		t.Fatalf("fires = %d, want exactly 2 across the wraparound boundary", len(fireTicks))
	}
	if fireTicks[0] != wrapStart {
		t.Fatalf("first fire at %d, want %d", fireTicks[0], wrapStart)
	}
	wantSecond := wrapStart + 100 // wraps past 2^32
	if fireTicks[1] != wantSecond {
		t.Fatalf("second fire at %d, want %d", fireTicks[1], wantSecond)
	}
}

func TestAddTaskChainInvariants(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	t1 := NewTask(100, FOREVER, func() {}, nil, nil)
	s.AddTask(t1)
	if s.first != t1 || s.last != t1 {
		t.Fatal("single task should be both first and last")
	}
	if t1.prev != nil || t1.next != nil {
		t.Fatal("single task should have nil prev/next")
	}
	if t1.scheduler != s {
		t.Fatal("task.scheduler should point at s")
	}

	t2 := NewTask(100, FOREVER, func() {}, nil, nil)
	s.AddTask(t2)
	if s.last != t2 || t1.next != t2 || t2.prev != t1 {
		t.Fatal("second task should be appended to the tail")
	}

	// Re-adding an already-attached task is a no-op.
	otherSched := NewScheduler(fc.clock, nil)
	otherSched.AddTask(t1)
	if t1.scheduler != s {
		t.Fatal("AddTask on an already-attached task must be a no-op")
	}
}

func TestDeleteTaskDuringOwnCallbackIsSafe(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	var afterFires int
	var selfTask, afterTask *Task
	selfTask = NewTask(10, FOREVER, func() { s.DeleteTask(selfTask) }, nil, nil)
	afterTask = NewTask(10, FOREVER, func() { afterFires++ }, nil, nil)
	s.AddTask(selfTask)
	s.AddTask(afterTask)
	selfTask.Enable()
	afterTask.Enable()

	s.Execute() // both fire on the first pass (enable primes immediate fire)
	if afterFires != 1 {
		t.Fatalf("afterTask should still fire on the same pass selfTask deleted itself, got %d fires", afterFires)
	}
	if selfTask.scheduler != nil {
		t.Fatal("selfTask should be detached after deleting itself")
	}
	if s.first != afterTask || s.last != afterTask {
		t.Fatal("chain should contain only afterTask after selfTask's self-delete")
	}
}

func TestDisableAllEnableAllRecursive(t *testing.T) {
	fc := &fakeClock{}
	low := NewScheduler(fc.clock, nil)
	high := NewScheduler(fc.clock, nil)
	low.SetHighPriorityScheduler(high)

	lt := NewTask(100, FOREVER, func() {}, nil, nil)
	low.AddTask(lt)
	lt.Enable()
	ht := NewTask(100, FOREVER, func() {}, nil, nil)
	high.AddTask(ht)
	ht.Enable()

	low.DisableAll(true)
	if lt.IsEnabled() || ht.IsEnabled() {
		t.Fatal("DisableAll(true) should disable both chains")
	}

	low.EnableAll(true)
	if !lt.IsEnabled() || !ht.IsEnabled() {
		t.Fatal("EnableAll(true) should enable both chains")
	}
}

func TestTimeUntilNextIteration(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	task := NewTask(100, FOREVER, func() {}, nil, nil)
	if got := s.TimeUntilNextIteration(task); got != -1 {
		t.Fatalf("disabled/detached task: got %d, want -1", got)
	}

	s.AddTask(task)
	task.Enable()
	if got := s.TimeUntilNextIteration(task); got != 0 {
		t.Fatalf("freshly enabled task (fires immediately): got %d, want 0", got)
	}

	s.Execute() // fires on time (previousTick lands exactly on this tick)
	if got := s.TimeUntilNextIteration(task); got != 100 {
		t.Fatalf("just fired task: got %d, want 100", got)
	}
}

func TestSchedulerPauseHaltsIteration(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	var fires int
	task := NewTask(10, FOREVER, func() { fires++ }, nil, nil)
	s.AddTask(task)
	task.Enable()

	s.Pause()
	s.Execute()
	if fires != 0 {
		t.Fatalf("paused scheduler should not fire any task, got %d fires", fires)
	}

	s.Resume()
	s.Execute()
	if fires != 1 {
		t.Fatalf("resumed scheduler should fire the due task, got %d fires", fires)
	}
}

func TestSchedulerDisabledReportsIdleImmediately(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)
	task := NewTask(10, FOREVER, func() {}, nil, nil)
	s.AddTask(task)
	task.Enable()

	s.Disable()
	if idle := s.Execute(); !idle {
		t.Fatal("disabled scheduler's Execute() should report idle")
	}
}

func TestSchedulingOptionInterval(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	var fires int
	task := NewTask(100, FOREVER, func() {
		fires++
		fc.advance(20) // callback runtime; should not affect this visit's previousTick stamp
	}, nil, nil)
	task.SetSchedulingOption(Interval)
	s.AddTask(task)
	task.Enable()

	s.Execute() // fires immediately (enable primes it); previousTick stamped at pre-callback now == 0
	firstPreviousTick := task.previousTick
	if firstPreviousTick != 0 {
		t.Fatalf("previousTick after first fire = %d, want 0 (pre-callback now, unaffected by the callback's own clock advance)", firstPreviousTick)
	}

	fc.advance(100) // fc.now == 120 (0 + 20 from the callback + 100 here)
	s.Execute()
	if fires != 2 {
		t.Fatalf("fires = %d, want 2", fires)
	}
	if task.previousTick != 120 {
		t.Fatalf("previousTick after second fire = %d, want 120 (this visit's pre-callback now)", task.previousTick)
	}
}

func TestGetCurrentTaskDuringCallback(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)

	var sawSelf bool
	task := NewTask(10, ONCE, func() {}, nil, nil)
	task.Set(10, ONCE, func() { sawSelf = s.GetCurrentTask() == task }, nil, nil)
	s.AddTask(task)
	task.Enable()
	s.Execute()

	if !sawSelf {
		t.Fatal("GetCurrentTask() during the callback should return the firing task")
	}
	if s.GetCurrentTask() != nil {
		t.Fatal("GetCurrentTask() after Execute() returns should be nil")
	}
}

func TestCPULoadCycleExcludesCallbackTime(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)
	task := NewTask(10, ONCE, func() { fc.advance(50) }, nil, nil)
	s.AddTask(task)
	task.Enable()
	s.Execute()

	if s.CPULoadCycle() != 0 {
		t.Fatalf("CPULoadCycle = %d, want 0: all elapsed time here was spent inside the callback and must not count as scheduling overhead", s.CPULoadCycle())
	}
	if got := s.CPULoadString(); !strings.HasPrefix(got, "cycle=") {
		t.Fatalf("CPULoadString() = %q, want a string starting with \"cycle=\"", got)
	}
	s.CPULoadReset()
	if s.CPULoadCycle() != 0 || s.CPULoadIdle() != 0 {
		t.Fatal("CPULoadReset should zero both CPULoadCycle and CPULoadIdle")
	}
}

func TestCPULoadCycleAccumulatesForEveryVisitedTask(t *testing.T) {
	ac := &autoAdvanceClock{}
	s := NewScheduler(ac.clock, nil)

	// Left disabled: visited every pass (visit() is called on it), but
	// never fires. Scheduling overhead should still be charged for it.
	neverFires := NewTask(100, FOREVER, func() {}, nil, nil)
	s.AddTask(neverFires)

	s.Execute()
	if s.CPULoadCycle() == 0 {
		t.Fatal("CPULoadCycle should accumulate overhead for a visited-but-not-fired task too")
	}
}

func TestCPULoadTotalIsCycleplusIdle(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil)
	task := NewTask(10, ONCE, func() { fc.advance(50) }, nil, nil)
	s.AddTask(task)
	task.Enable()
	s.Execute()

	s.SetSleepMethod(func(uint32) { fc.advance(7) })
	s.Execute() // nothing left enabled: idle pass, invokes the sleep method

	if got, want := s.CPULoadTotal(), s.CPULoadCycle()+s.CPULoadIdle(); got != want {
		t.Fatalf("CPULoadTotal() = %d, want CPULoadCycle()+CPULoadIdle() = %d", got, want)
	}
	if s.CPULoadIdle() == 0 {
		t.Fatal("CPULoadIdle should account for time spent inside the sleep method")
	}
}

// objectTaskBehavior fires via its Callback return value instead of via a
// non-nil closure, reporting busy/idle directly.
type objectTaskBehavior struct{ busy bool }

func (b *objectTaskBehavior) Callback() bool { return b.busy }

func TestExecuteObjectOrientedTaskDrivesIdleRunFromCallbackReturn(t *testing.T) {
	fc := &fakeClock{}
	features := NewFeatureConfig()
	features.ObjectOrientedTasks = true
	s := NewScheduler(fc.clock, features)

	b := &objectTaskBehavior{busy: false}
	task := NewObjectTask(10, FOREVER, b)
	s.AddTask(task)
	task.Enable()

	if idle := s.Execute(); !idle {
		t.Fatal("a behavior reporting busy=false should leave the pass idle")
	}

	b.busy = true
	fc.advance(10)
	if idle := s.Execute(); idle {
		t.Fatal("a behavior reporting busy=true should make the pass non-idle")
	}
}

func TestExecuteObjectOrientedTasksIgnoredWhenFeatureOff(t *testing.T) {
	fc := &fakeClock{}
	s := NewScheduler(fc.clock, nil) // ObjectOrientedTasks defaults off

	b := &objectTaskBehavior{busy: true}
	task := NewObjectTask(10, FOREVER, b)
	s.AddTask(task)
	task.Enable()

	if idle := s.Execute(); !idle {
		t.Fatal("with the feature off, a behavior task should not fire at all")
	}
}

func TestExecuteInvokesSleepMethodWithElapsedPassDuration(t *testing.T) {
	ac := &autoAdvanceClock{}
	s := NewScheduler(ac.clock, nil)

	var gotElapsed uint32
	var sleepCalls int
	s.SetSleepMethod(func(elapsed uint32) {
		sleepCalls++
		gotElapsed = elapsed
	})

	// Empty chain, no high-priority scheduler: every pass is idle.
	s.Execute()

	if sleepCalls != 1 {
		t.Fatalf("sleep method invoked %d times, want 1", sleepCalls)
	}
	if gotElapsed == 0 {
		t.Fatal("sleep method should receive the real elapsed-pass duration, not a hardcoded 0")
	}
}
