/*
Package storage provides the cluster metadata document store for Steward.

Documents are JSON blobs addressed by (index, id). The BoltDB backend keeps
one bucket per index and upserts on write, so indexing a document under an
existing id replaces it. This is what makes job registration idempotent:
the stats collector descriptor is always written under the same id.

# Architecture

	┌──────────────── steward.db (BoltDB) ────────────────┐
	│                                                      │
	│  bucket ".steward-jobs"                              │
	│    STATS_COLLECTOR  → {"name":"STATS_COLLECTOR",...} │
	│                                                      │
	│  bucket ".steward-routing"                           │
	│    routing          → {"coordinator":"node-1",...}   │
	│                                                      │
	│  bucket ".steward-arrangements"                      │
	│    node-1           → {"nodes":[...],...}            │
	└──────────────────────────────────────────────────────┘

In a cluster the store is not written directly. Writes go through the raft
log (see package cluster) and the FSM applies them to every node's
BoltStore, which keeps the documents replicated.

# Refresh Policies

  - RefreshNone: return once the transaction commits.
  - RefreshImmediate: additionally fsync when the store was opened with
    NoSync, so the write is durable when Index returns.
  - RefreshWaitFor: accepted for compatibility, treated like RefreshNone.

# Snapshots

Dump and Load move the whole store in and out of a
map[index]map[id]json.RawMessage. Load drops every existing bucket first,
which is what raft snapshot restore requires.

# Usage

	store, err := storage.NewBoltStore(dataDir, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Index(ctx, &storage.IndexRequest{
		Index:   ".steward-jobs",
		ID:      "STATS_COLLECTOR",
		Source:  data,
		Refresh: storage.RefreshImmediate,
	})
*/
package storage
