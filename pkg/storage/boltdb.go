package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore implements Store using BoltDB, one bucket per index
type BoltStore struct {
	db *bolt.DB
}

// BoltOptions tunes the BoltDB file
type BoltOptions struct {
	// NoSync skips fsync on commit. Writes with RefreshImmediate still sync.
	NoSync  bool
	Timeout time.Duration
}

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string, opts *BoltOptions) (*BoltStore, error) {
	if opts == nil {
		opts = &BoltOptions{}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	dbPath := filepath.Join(dataDir, "steward.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: timeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Index upserts a document
func (s *BoltStore) Index(ctx context.Context, req *IndexRequest) (*IndexResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := ResultCreated
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(req.Index))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", req.Index, err)
		}
		if b.Get([]byte(req.ID)) != nil {
			result = ResultUpdated
		}
		return b.Put([]byte(req.ID), req.Source)
	})
	if err != nil {
		return nil, err
	}

	if req.Refresh == RefreshImmediate && s.db.NoSync {
		if err := s.db.Sync(); err != nil {
			return nil, fmt.Errorf("failed to sync database: %w", err)
		}
	}

	return &IndexResponse{Index: req.Index, ID: req.ID, Result: result}, nil
}

func (s *BoltStore) Get(ctx context.Context, index, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc *Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(index))
		if b == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, index, id)
		}
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, index, id)
		}
		doc = &Document{Index: index, ID: id, Source: append(json.RawMessage(nil), data...)}
		return nil
	})
	return doc, err
}

func (s *BoltStore) List(ctx context.Context, index string) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []*Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(index))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			docs = append(docs, &Document{
				Index:  index,
				ID:     string(k),
				Source: append(json.RawMessage(nil), v...),
			})
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) Delete(ctx context.Context, index, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(index))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

// Dump returns every document grouped by index
func (s *BoltStore) Dump() (map[string]map[string]json.RawMessage, error) {
	dump := make(map[string]map[string]json.RawMessage)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			docs := make(map[string]json.RawMessage)
			if err := b.ForEach(func(k, v []byte) error {
				docs[string(k)] = append(json.RawMessage(nil), v...)
				return nil
			}); err != nil {
				return err
			}
			dump[string(name)] = docs
			return nil
		})
	})
	return dump, err
}

// Load replaces the whole store content with dump
func (s *BoltStore) Load(dump map[string]map[string]json.RawMessage) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var existing [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			existing = append(existing, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range existing {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to drop bucket %s: %w", name, err)
			}
		}

		for index, docs := range dump {
			b, err := tx.CreateBucket([]byte(index))
			if err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", index, err)
			}
			for id, source := range docs {
				if err := b.Put([]byte(id), source); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func validateRequest(req *IndexRequest) error {
	if req == nil {
		return fmt.Errorf("index request is nil")
	}
	if req.Index == "" {
		return fmt.Errorf("index request has no index")
	}
	if req.ID == "" {
		return fmt.Errorf("index request has no document id")
	}
	if !json.Valid(req.Source) {
		return fmt.Errorf("index request %s/%s source is not valid JSON", req.Index, req.ID)
	}
	return nil
}
