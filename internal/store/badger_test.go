// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func setupBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()

	s, err := newBadgerStoreInMemory(zerolog.Nop())
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return setupBadgerStore(t)
	})
}

func TestBadgerStorePersistsAcrossTransactions(t *testing.T) {
	s := setupBadgerStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, testRecord("vid-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.IncrementViewCount(ctx, "vid-1"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := s.AddWatchTime(ctx, "vid-1", 7); err != nil {
		t.Fatalf("watch time: %v", err)
	}

	got, err := s.Get(ctx, "vid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ViewCount != 1 || got.TotalWatchSeconds != 7 {
		t.Errorf("unexpected counters: views=%d watch=%d", got.ViewCount, got.TotalWatchSeconds)
	}
}
