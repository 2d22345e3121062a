package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("document not found")

// RefreshPolicy tells the store how durable a write must be on return
type RefreshPolicy string

const (
	// RefreshNone returns once the write is committed
	RefreshNone RefreshPolicy = "false"
	// RefreshImmediate forces the write to stable storage before returning
	RefreshImmediate RefreshPolicy = "true"
	// RefreshWaitFor waits for the next regular sync
	RefreshWaitFor RefreshPolicy = "wait_for"
)

// IndexRequest writes one document, replacing any document with the same id
type IndexRequest struct {
	Index   string          `json:"index"`
	ID      string          `json:"id"`
	Source  json.RawMessage `json:"source"`
	Refresh RefreshPolicy   `json:"refresh,omitempty"`
}

// Result describes what an index request did
type Result string

const (
	ResultCreated Result = "created"
	ResultUpdated Result = "updated"
)

// IndexResponse is returned for a successful IndexRequest
type IndexResponse struct {
	Index  string `json:"index"`
	ID     string `json:"id"`
	Result Result `json:"result"`
}

// Document is a stored document
type Document struct {
	Index  string          `json:"index"`
	ID     string          `json:"id"`
	Source json.RawMessage `json:"source"`
}

// Store defines the interface for the cluster metadata document store
type Store interface {
	Index(ctx context.Context, req *IndexRequest) (*IndexResponse, error)
	Get(ctx context.Context, index, id string) (*Document, error)
	List(ctx context.Context, index string) ([]*Document, error)
	Delete(ctx context.Context, index, id string) error

	// Snapshot and restore the whole store, for raft snapshots
	Dump() (map[string]map[string]json.RawMessage, error)
	Load(dump map[string]map[string]json.RawMessage) error

	Close() error
}
