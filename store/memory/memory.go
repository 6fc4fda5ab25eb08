// Package memory provides an in-memory Store implementation for tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/paystub-audit/paystub"
)

// =============================================================================
// MEMORY STORE - Mirrors the sqlite store's semantics without a database
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	periods map[string]*paystub.PayPeriod // keyed by PeriodEnd.String()
}

func New() *Memory {
	return &Memory{periods: make(map[string]*paystub.PayPeriod)}
}

// Put inserts or totally replaces the record for p.PeriodEnd.
func (m *Memory) Put(_ context.Context, p *paystub.PayPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[p.PeriodEnd.String()] = p.Clone()
	return nil
}

// PutBatch replaces multiple records atomically. The single lock makes the
// whole batch invisible to readers until it completes.
func (m *Memory) PutBatch(_ context.Context, periods []*paystub.PayPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range periods {
		m.periods[p.PeriodEnd.String()] = p.Clone()
	}
	return nil
}

func (m *Memory) Get(_ context.Context, date paystub.Date) (*paystub.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[date.String()]
	if !ok {
		return nil, paystub.ErrPeriodNotFound
	}
	return p.Clone(), nil
}

// Previous returns the greatest period strictly before date, by date
// ordering, regardless of insertion order.
func (m *Memory) Previous(_ context.Context, date paystub.Date) (*paystub.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *paystub.PayPeriod
	for _, p := range m.periods {
		if !p.PeriodEnd.Before(date) {
			continue
		}
		if best == nil || p.PeriodEnd.After(best.PeriodEnd) {
			best = p
		}
	}
	if best == nil {
		return nil, paystub.ErrNoPriorPeriod
	}
	return best.Clone(), nil
}

func (m *Memory) All(_ context.Context) ([]*paystub.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*paystub.PayPeriod, 0, len(m.periods))
	for _, p := range m.periods {
		result = append(result, p.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodEnd.Before(result[j].PeriodEnd)
	})
	return result, nil
}

func (m *Memory) Unreconciled(_ context.Context, upTo paystub.Date) ([]*paystub.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*paystub.PayPeriod
	for _, p := range m.periods {
		if p.Speculative && !p.Reconciled && p.PeriodEnd.BeforeOrEqual(upTo) {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodEnd.Before(result[j].PeriodEnd)
	})
	return result, nil
}
