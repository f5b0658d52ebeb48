// Package memory provides an in-memory store for tests and ephemeral
// deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/reservoir"
)

type balanceKey struct {
	account  string
	category ledger.Category
}

// Store is the in-memory backend. Records are copied on read and write so
// callers can mutate freely before committing.
type Store struct {
	mu sync.RWMutex

	balances   map[balanceKey]*ledger.AccountBalance
	categories map[ledger.Category]*ledger.CategoryConfig

	claims      map[uint64]*reservoir.Claim
	nextClaimID uint64
	reserve     *reservoir.ReserveChamber
	chambers    map[ledger.Category]*reservoir.TokenChamber

	events []*journal.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		balances:   make(map[balanceKey]*ledger.AccountBalance),
		categories: make(map[ledger.Category]*ledger.CategoryConfig),
		claims:     make(map[uint64]*reservoir.Claim),
		chambers:   make(map[ledger.Category]*reservoir.TokenChamber),
	}
}

// Decay ledger methods

func (s *Store) GetBalance(_ context.Context, account string, category ledger.Category) (*ledger.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.balances[balanceKey{account, category}]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, ledger.ErrBalanceNotFound
}

func (s *Store) ListBalances(_ context.Context, account string) ([]*ledger.AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ledger.AccountBalance, 0)
	for _, b := range s.balances {
		if account == "" || b.Account == account {
			cp := *b
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Account != result[j].Account {
			return result[i].Account < result[j].Account
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

func (s *Store) UpsertBalances(_ context.Context, balances ...*ledger.AccountBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range balances {
		cp := *b
		s.balances[balanceKey{b.Account, b.Category}] = &cp
	}
	return nil
}

func (s *Store) GetCategory(_ context.Context, category ledger.Category) (*ledger.CategoryConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.categories[category]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ledger.ErrCategoryNotFound
}

func (s *Store) PutCategory(_ context.Context, cfg *ledger.CategoryConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *cfg
	s.categories[cfg.Category] = &cp
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]*ledger.CategoryConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ledger.CategoryConfig, 0, len(s.categories))
	for _, c := range s.categories {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

// Settlement reservoir methods

func (s *Store) InsertClaim(_ context.Context, c *reservoir.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextClaimID++
	c.ID = s.nextClaimID
	cp := *c
	s.claims[c.ID] = &cp
	return nil
}

func (s *Store) GetClaim(_ context.Context, claimID uint64) (*reservoir.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.claims[claimID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, reservoir.ErrClaimNotFound
}

func (s *Store) UpdateClaim(_ context.Context, c *reservoir.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[c.ID]; !ok {
		return reservoir.ErrClaimNotFound
	}
	cp := *c
	s.claims[c.ID] = &cp
	return nil
}

func (s *Store) ListPendingClaims(_ context.Context) ([]*reservoir.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*reservoir.Claim, 0)
	for _, c := range s.claims {
		if !c.Processed {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) GetReserve(_ context.Context) (*reservoir.ReserveChamber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.reserve == nil {
		return nil, reservoir.ErrReserveNotFound
	}
	cp := *s.reserve
	return &cp, nil
}

func (s *Store) PutReserve(_ context.Context, r *reservoir.ReserveChamber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.reserve = &cp
	return nil
}

func (s *Store) GetChamber(_ context.Context, category ledger.Category) (*reservoir.TokenChamber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ch, ok := s.chambers[category]; ok {
		cp := *ch
		return &cp, nil
	}
	return nil, reservoir.ErrChamberNotFound
}

func (s *Store) PutChamber(_ context.Context, ch *reservoir.TokenChamber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ch
	s.chambers[ch.Category] = &cp
	return nil
}

func (s *Store) ListChambers(_ context.Context) ([]*reservoir.TokenChamber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*reservoir.TokenChamber, 0, len(s.chambers))
	for _, ch := range s.chambers {
		cp := *ch
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

// Journal methods

func (s *Store) AppendEvent(_ context.Context, ev *journal.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ev
	s.events = append(s.events, &cp)
	return nil
}

func (s *Store) ListEvents(_ context.Context, opts journal.ListOpts) ([]*journal.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*journal.Event, 0)
	for _, ev := range s.events {
		if opts.Kind != "" && ev.Kind != opts.Kind {
			continue
		}
		if opts.Account != "" && ev.Account != opts.Account {
			continue
		}
		if !opts.Since.IsZero() && ev.At.Before(opts.Since) {
			continue
		}
		cp := *ev
		result = append(result, &cp)
	}

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
