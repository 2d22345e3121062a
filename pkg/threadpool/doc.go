/*
Package threadpool provides the timer primitive used by the coordinator.

A Pool arms time.AfterFunc timers and runs the resulting tasks on
goroutines, bounded by a semaphore. Two kinds of task exist:

  - Schedule: run once after a delay.
  - ScheduleWithFixedDelay: first run after the interval, then the next run
    is armed only once the previous one returned. Runs of one task never
    overlap, and a slow run pushes the following ones back instead of
    piling them up.

Both return a Cancellable. Cancelling is always safe: cancelling a spent,
already cancelled, or never-fired task is a no-op that returns false. A run
in progress when Cancel is called completes normally; it is only the
following runs that are suppressed.

Panics inside tasks are recovered, logged and counted in
steward_threadpool_tasks_total{result="panic"}. A recurring task keeps
firing after a panic.

Shutdown cancels every armed task and waits, bounded by the context, for
running tasks to return. Tasks scheduled after Shutdown come back already
cancelled.
*/
package threadpool
