// Package memory provides an in-memory ledger store for tests and
// local development. It mirrors the SQLite store's behavior, including
// id/createdAt assignment and the optional aggregator port.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"donatrack/internal/core"
	"donatrack/internal/ledger"
)

type Store struct {
	mu    sync.Mutex
	items []core.Donation
	byID  map[string]int
}

func New() *Store {
	return &Store{byID: make(map[string]int)}
}

// Insert stores a copy of the donation, assigning id and createdAt
// when unset. Callers never see later mutations through the pointer.
func (s *Store) Insert(_ context.Context, d *core.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.EmailSent = false

	s.byID[d.ID] = len(s.items)
	s.items = append(s.items, *d)
	return nil
}

func (s *Store) ListDonations(_ context.Context) ([]core.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Donation(nil), s.items...), nil
}

func (s *Store) GetDonation(_ context.Context, id string) (*core.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	d := s.items[idx]
	return &d, nil
}

func (s *Store) MarkEmailSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return ledger.ErrNotFound
	}
	s.items[idx].EmailSent = true
	return nil
}

func (s *Store) ListUnnotified(_ context.Context, limit int) ([]core.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Seeded donations may arrive with out-of-order timestamps, so
	// sort by createdAt before cutting to the limit.
	pending := make([]core.Donation, 0, len(s.items))
	for _, d := range s.items {
		if d.EmailSent {
			continue
		}
		pending = append(pending, d)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// LifetimeStats implements the optional aggregator port by delegating
// to the pure fold.
func (s *Store) LifetimeStats(_ context.Context) (core.PublicStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.LifetimeStats(s.items), nil
}

func (s *Store) MonthlySeries(_ context.Context, windowMonths int) ([]core.MonthlyBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.MonthlySeries(s.items, windowMonths), nil
}
