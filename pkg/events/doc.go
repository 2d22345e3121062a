/*
Package events provides an in-memory event broker for coordinator
notifications.

Publishing never blocks the publisher for long: events go onto a buffered
channel (100) and a single loop fans them out to subscriber channels
(50 each). A subscriber whose buffer is full misses the event; Dropped
counts those misses.

# Event Types

	coordinator.acquired     this node became the coordinator
	coordinator.lost         this node stopped being the coordinator
	interval.changed         sync_up_job_interval_seconds changed (old, new)
	job.registered           a job descriptor was written to the metadata store
	job.registration_failed  the write failed; it is not retried
	bootstrap.completed      the redeploy bootstrap ran for this term (path)

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe() // or Subscribe(events.EventCoordinatorLost, ...)
	defer broker.Unsubscribe(sub)

	go func() {
		for ev := range sub {
			fmt.Println(ev.Type, ev.Metadata)
		}
	}()

Components that only publish take a Publisher; Discard is used when no
broker is configured.
*/
package events
