package snapshot

import (
	"context"
	"sync"

	"restockwatch/internal/components/assert"
	"restockwatch/internal/components/telemetry"
	"restockwatch/internal/product"
)

const (
	report_store_restore = "store.restore"
	report_store_persist = "store.persist"
)

// Persister durably keeps the most recently committed snapshot so a restart does
// not reset the baseline.
type Persister interface {
	Load(ctx context.Context) (product.Snapshot, bool, error)
	Save(ctx context.Context, snap product.Snapshot) error
}

// Store holds the single committed snapshot the next cycle diffs against.
//
// The current snapshot is only ever replaced as a whole by Commit, readers never
// observe a partially updated value.
type Store struct {
	mu      sync.RWMutex
	current *product.Snapshot

	persist Persister
	tel     telemetry.API
}

// NewStore creates an empty store, persist may be nil.
func NewStore(tel telemetry.API, persist Persister) *Store {
	assert.NotNil(tel)
	return &Store{
		persist: persist,
		tel:     telemetry.NewScopedAPI("snapshot_store", tel),
	}
}

// Restore loads the persisted snapshot into the store if there is one.
func (s *Store) Restore(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	snap, ok, err := s.persist.Load(ctx)
	if err != nil {
		s.tel.ReportBroken(report_store_restore, err)
		return err
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &snap
	s.tel.ReportDebug("restored snapshot", snap.Time(), snap.Len())
	return nil
}

// Current returns the committed snapshot, ok is false before the first commit.
func (s *Store) Current() (product.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return product.Snapshot{}, false
	}
	return *s.current, true
}

// Commit atomically replaces the committed snapshot. It must only be called once
// the diff against the previous value is complete.
//
// Persistence is best-effort, a failed write is reported but the in-memory
// snapshot is still replaced.
func (s *Store) Commit(ctx context.Context, snap product.Snapshot) {
	s.mu.Lock()
	s.current = &snap
	s.mu.Unlock()

	if s.persist == nil {
		return
	}
	err := s.persist.Save(ctx, snap)
	if err != nil {
		s.tel.ReportBroken(report_store_persist, err)
	}
}
