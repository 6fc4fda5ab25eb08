/*
errors.go - Centralized error types for the audit engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure is local to one operation: a parse failure aborts that
  single ingestion, a reconciliation failure aborts that reconciliation,
  and neither touches stored periods.

ERROR CATEGORIES:
  1. Parse errors - A document could not yield a usable record
  2. Store errors - Lookup misses
  3. Reconciliation errors - Shadow ledger preconditions not met

USAGE:
  Callers match with errors.Is:

    if errors.Is(err, paystub.ErrMissingRequiredField) { ... }

  or unwrap the structured type for field-level detail:

    var perr *paystub.ParseError
    if errors.As(err, &perr) { log.Println(perr.Field) }
*/
package paystub

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingRequiredField is returned when gross pay, net pay or the
	// pay-period-end date cannot be located; nothing downstream can audit
	// without them.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrUnrecognizedDocument is returned when the document has no
	// recognizable paystub table structure at all.
	ErrUnrecognizedDocument = errors.New("unrecognized document structure")

	// ErrPeriodNotFound is returned by Get for an unknown period-end date.
	ErrPeriodNotFound = errors.New("pay period not found")

	// ErrNoPriorPeriod is returned by Previous when no earlier period exists.
	ErrNoPriorPeriod = errors.New("no prior pay period")

	// ErrNoRateBasis is returned when a shadow record cannot be projected
	// because no prior period carries a usable pay rate.
	ErrNoRateBasis = errors.New("no rate basis for shadow projection")

	// ErrNoUnreconciledRecords is returned when reconciliation finds no
	// speculative records at or before the actual payout date.
	ErrNoUnreconciledRecords = errors.New("no unreconciled speculative records")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ParseError reports why one document could not be ingested. Fatal to that
// single ingestion only; the store is never touched on a parse failure.
type ParseError struct {
	Field     string // which required field was missing, when applicable
	PeriodEnd Date
	Err       error // ErrMissingRequiredField or ErrUnrecognizedDocument
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse %s: %v: %s", e.PeriodEnd, e.Err, e.Field)
	}
	return fmt.Sprintf("parse %s: %v", e.PeriodEnd, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReconciliationError reports why one shadow-ledger action failed.
type ReconciliationError struct {
	Date Date
	Err  error // ErrNoRateBasis or ErrNoUnreconciledRecords
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s: %v", e.Date, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input rather
// than an internal failure. Used by the API layer for status codes.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrUnrecognizedDocument) ||
		errors.Is(err, ErrNoRateBasis) ||
		errors.Is(err, ErrNoUnreconciledRecords)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPeriodNotFound) || errors.Is(err, ErrNoPriorPeriod)
}
