/*
Package syncup holds the coordinator's default maintenance routines.

RoutingSyncer.Sync is the recurring sync up work: it reads the current
membership and rewrites the routing document in .steward-routing.

Redeployer builds the redeploy arrangement in .steward-arrangements. It
takes part in both bootstrap paths: its Bootstrap method is the routine the
coordinator runs once per term, and as a leader listener it waits on a raft
barrier after each acquisition and then calls the start-up listener, which
is the coordinator's StartupListener.
*/
package syncup
