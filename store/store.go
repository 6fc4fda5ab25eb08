/*
Package store defines the persistence interface for pay periods.

PURPOSE:
  The Period Store is the single owner of the PayPeriod collection. Parser
  and reconciler only produce/consume records passed through it; nothing
  retains an independent copy of stored state.

REPLACEMENT CONTRACT:
  Put is a TOTAL replacement by pay-period-end date. Two different
  documents' data are never merged field-wise: re-ingesting a date wipes
  every line item of the old record and writes the new one in a single
  transaction, so no reader observes a half-replaced record.

ORDERING:
  Previous and All order strictly by pay-period-end date, never by
  insertion order, because documents are routinely ingested out of
  chronological order.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - store/memory: In-memory store mirroring sqlite behavior, for tests

SEE ALSO:
  - paystub/types.go: PayPeriod record
  - shadow: uses Unreconciled + PutBatch for reconciliation
*/
package store

import (
	"context"

	"github.com/warp/paystub-audit/paystub"
)

// Store persists the time series of pay periods keyed by period-end date.
type Store interface {
	// Put inserts or totally replaces the record for p.PeriodEnd.
	Put(ctx context.Context, p *paystub.PayPeriod) error

	// PutBatch replaces multiple records atomically. Either every record
	// is written or none is; reconciliation relies on this to flip several
	// speculative records in one step.
	PutBatch(ctx context.Context, periods []*paystub.PayPeriod) error

	// Get returns the record for a period-end date.
	// Returns paystub.ErrPeriodNotFound when absent.
	Get(ctx context.Context, date paystub.Date) (*paystub.PayPeriod, error)

	// Previous returns the record with the greatest period-end date
	// strictly less than date. Returns paystub.ErrNoPriorPeriod when none.
	Previous(ctx context.Context, date paystub.Date) (*paystub.PayPeriod, error)

	// All returns every record ordered by period-end date ascending.
	All(ctx context.Context) ([]*paystub.PayPeriod, error)

	// Unreconciled returns speculative, unreconciled records with
	// period-end date <= upTo, ascending. Reconciliation input.
	Unreconciled(ctx context.Context, upTo paystub.Date) ([]*paystub.PayPeriod, error)
}
