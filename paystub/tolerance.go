package paystub

import "github.com/shopspring/decimal"

// =============================================================================
// TOLERANCES - Configurable audit comparison thresholds
// =============================================================================

// Tolerances carries the comparison thresholds used by the auditors.
// They exist to absorb representation noise (rounded rates, re-keyed
// balances), not to paper over policy changes; the defaults are tight.
type Tolerances struct {
	// LeaveMinutes is the allowed absolute difference, in minutes, between
	// the computed and reported leave ending balance.
	LeaveMinutes int64

	// Money is the allowed absolute difference for monetary identities
	// (net pay, gross cross-check, lump-sum reconciliation).
	Money decimal.Decimal

	// TaxRateRel is the allowed relative difference between consecutive
	// effective tax rates before a shift is flagged.
	TaxRateRel decimal.Decimal
}

// DefaultTolerances are the documented defaults: exact leave math, one
// cent of rounding slack on money, 0.1% relative slack on tax rates.
func DefaultTolerances() Tolerances {
	return Tolerances{
		LeaveMinutes: 0,
		Money:        decimal.New(1, -2),
		TaxRateRel:   decimal.New(1, -3),
	}
}
