// Package scheduler implements a cooperative, single-threaded task
// scheduler intended for resource-constrained execution environments
// (microcontrollers, embedded runtimes) where preemption and dynamic
// allocation are undesirable.
//
// The scheduler multiplexes many logical activities onto a single thread of
// control by polling an intrusive list of task descriptors and invoking
// each task's callback when its scheduling predicate (time-based and/or
// event-based) is satisfied. The embedder links tasks into a Scheduler,
// enables them, then repeatedly calls Execute from its main loop:
//
//	clock := func() uint32 { return uint32(time.Now().UnixMilli()) }
//	sched := scheduler.NewScheduler(clock, nil)
//
//	blink := scheduler.NewTask(500, scheduler.FOREVER, func() {
//		led.Toggle()
//	}, nil, nil)
//	sched.AddTask(blink)
//	blink.Enable()
//
//	for {
//		sched.Execute()
//	}
//
// This package is the engine only: the host clock and an optional host
// sleep callback are external collaborators supplied by the embedder.
package scheduler
