// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/codegraph/services/codegraph/storage"
)

// Key layout. Full documents live under graph:<id>; a small summary record
// under meta:<id> keeps listing cheap for large graphs.
const (
	graphKeyPrefix = "graph:"
	metaKeyPrefix  = "meta:"
)

// Store is the BadgerDB-backed GraphStore.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions provide
// isolation.
type Store struct {
	db *badger.DB
	gc *gcRunner
}

// Ensure the interface is satisfied.
var _ storage.GraphStore = (*Store)(nil)

// NewStore opens a graph store with the given configuration.
//
// Outputs:
//   - *Store: The opened store. Caller must Close it.
//   - error: Non-nil if the database cannot be opened.
func NewStore(cfg Config) (*Store, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if cfg.GCInterval > 0 {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio)
		s.gc.Start()
	}
	return s, nil
}

// NewStoreAtPath opens a persistent store at path with production defaults.
func NewStoreAtPath(path string) (*Store, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	return NewStore(cfg)
}

// NewInMemoryStore opens an in-memory store for testing.
func NewInMemoryStore() (*Store, error) {
	return NewStore(InMemoryConfig())
}

// StoreGraph writes the document and its summary record.
func (s *Store) StoreGraph(ctx context.Context, doc *storage.GraphDocument) error {
	if doc == nil || doc.GraphID == "" {
		return errors.New("document must have a graph ID")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling graph %s: %w", doc.GraphID, err)
	}
	metaBytes, err := json.Marshal(doc.Summary())
	if err != nil {
		return fmt.Errorf("marshaling graph meta %s: %w", doc.GraphID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(graphKeyPrefix+doc.GraphID), docBytes); err != nil {
			return err
		}
		return txn.Set([]byte(metaKeyPrefix+doc.GraphID), metaBytes)
	})
	if err != nil {
		return fmt.Errorf("storing graph %s: %w", doc.GraphID, err)
	}

	slog.Info("graph stored",
		slog.String("graph_id", doc.GraphID),
		slog.String("project", doc.ProjectName),
		slog.Int("nodes", doc.NodeCount),
		slog.Int("edges", doc.EdgeCount))
	return nil
}

// GetGraph reads one full document.
func (s *Store) GetGraph(ctx context.Context, graphID string) (*storage.GraphDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc storage.GraphDocument
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(graphKeyPrefix + graphID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, graphID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading graph %s: %w", graphID, err)
	}
	return &doc, nil
}

// ListGraphs scans the summary records, newest first.
func (s *Store) ListGraphs(ctx context.Context) ([]storage.GraphSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []storage.GraphSummary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var summary storage.GraphSummary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			})
			if err != nil {
				return err
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing graphs: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// DeleteGraph removes the document and its summary record.
func (s *Store) DeleteGraph(ctx context.Context, graphID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(graphKeyPrefix + graphID)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(graphKeyPrefix + graphID)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaKeyPrefix + graphID))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, graphID)
	}
	if err != nil {
		return fmt.Errorf("deleting graph %s: %w", graphID, err)
	}

	slog.Info("graph deleted", slog.String("graph_id", graphID))
	return nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.Stop()
	}
	return s.db.Close()
}
