/*
Package cluster runs the raft voter that replicates Steward's metadata
documents and supplies the leadership signal.

A Node owns a bbolt document store (pkg/storage) wrapped by an FSM. Writes
go through raft as JSON commands:

	{"op":"index","data":{"index":".steward-jobs","id":"STATS_COLLECTOR","source":{...},"refresh":"true"}}
	{"op":"delete","data":{"index":".steward-jobs","id":"STATS_COLLECTOR"}}

Only the leader accepts writes; followers get ErrNotLeader. Reads are served
from the local replica. Snapshots serialize the whole store.

The peer set is static: every node lists the same voters in its config and
the first start bootstraps them. Later starts resume from the raft log in
the data directory (raft-log.db, raft-stable.db, snapshots/).

Leadership changes are published on LeaderCh, which pkg/leader turns into
coordinator edges:

	node, _ := cluster.NewNode(cluster.Config{NodeID: "node-1", BindAddr: addr, DataDir: dir})
	_ = node.Start()
	src := leader.NewRaftSource(node.LeaderCh())
	go src.Run(ctx)
*/
package cluster
