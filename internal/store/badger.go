// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const badgerIndexKey = "videos:index"

// maxTxnRetries bounds retries of transactions aborted by badger's
// serializable-snapshot conflict detection under concurrent increments.
const maxTxnRetries = 32

// BadgerStore is an embedded Store backed by Badger for deployments without
// a Redis. Counter mutations run inside serializable transactions and retry
// on conflict, so concurrent increments are never lost.
type BadgerStore struct {
	db  *badger.DB
	log zerolog.Logger
}

// NewBadgerStore opens (or creates) the database at dir.
func NewBadgerStore(dir string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	logger.Info().Str("dir", dir).Msg("opened badger metadata store")
	return &BadgerStore{db: db, log: logger}, nil
}

// newBadgerStoreInMemory is used by tests.
func newBadgerStoreInMemory(logger zerolog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, log: logger}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Create inserts rec and prepends its id to the index in one transaction.
func (s *BadgerStore) Create(ctx context.Context, rec VideoRecord) error {
	key := []byte(recordKeyPrefix + rec.VideoID)

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(key, val); err != nil {
			return err
		}

		ids, err := readIndex(txn)
		if err != nil {
			return err
		}
		ids = append([]string{rec.VideoID}, ids...)
		idxVal, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return txn.Set([]byte(badgerIndexKey), idxVal)
	})
}

// Get returns the record for id.
func (s *BadgerStore) Get(ctx context.Context, id string) (VideoRecord, error) {
	var rec VideoRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readRecord(txn, id)
		return err
	})
	return rec, err
}

// IncrementViewCount increments the view counter inside a serializable
// transaction and returns the new value.
func (s *BadgerStore) IncrementViewCount(ctx context.Context, id string) (uint64, error) {
	var count uint64
	err := s.update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		rec.ViewCount++
		count = rec.ViewCount
		return writeRecord(txn, rec)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AddWatchTime adds seconds to the cumulative total inside a serializable
// transaction.
func (s *BadgerStore) AddWatchTime(ctx context.Context, id string, seconds uint64) error {
	if err := checkWatchSeconds(seconds); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		rec.TotalWatchSeconds += seconds
		return writeRecord(txn, rec)
	})
}

// ListAll walks the newest-first index and loads each record.
func (s *BadgerStore) ListAll(ctx context.Context) ([]VideoRecord, error) {
	var out []VideoRecord
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := readIndex(txn)
		if err != nil {
			return err
		}
		out = make([]VideoRecord, 0, len(ids))
		for _, id := range ids {
			rec, err := readRecord(txn, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// update runs fn in a read-write transaction, retrying on conflict.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	for i := 0; i < maxTxnRetries; i++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction conflict persisted after %d retries", maxTxnRetries)
}

func readRecord(txn *badger.Txn, id string) (VideoRecord, error) {
	item, err := txn.Get([]byte(recordKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return VideoRecord{}, ErrNotFound
	}
	if err != nil {
		return VideoRecord{}, err
	}

	var rec VideoRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

func writeRecord(txn *badger.Txn, rec VideoRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set([]byte(recordKeyPrefix+rec.VideoID), val)
}

func readIndex(txn *badger.Txn) ([]string, error) {
	item, err := txn.Get([]byte(badgerIndexKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &ids)
	})
	return ids, err
}
