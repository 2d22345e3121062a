/*
Package leader supplies the coordinator signal: a boolean "is this node the
coordinator" with edge-triggered callbacks.

RaftSource reads the channel raft writes to on leadership changes
(raft.Config.NotifyCh). Manual is flipped by hand; standalone nodes and
tests use it. Both dedupe repeated values, so a Listener sees strictly
alternating OnAcquired and OnLost calls, delivered one at a time.

Listeners must not call Subscribe from inside a callback.
*/
package leader
