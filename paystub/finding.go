/*
finding.go - Audit finding taxonomy

PURPOSE:
  A Finding is one reported discrepancy from an audit pass. Findings are
  DATA, never errors: a period that fails every arithmetic identity is
  still stored and still served. The dashboard renders findings as
  highlighted cells; severity decides the highlight, it never hides a row.

SEVERITY POLICY:
  Error is the default. A finding is downgraded to Warning when the
  period's remarks contain an adjustment marker for that finding's
  category (see audit package). Downgrade changes severity, never
  removes the finding.
*/
package paystub

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FindingKind identifies what an audit check detected.
type FindingKind string

const (
	FindingLeaveMismatch    FindingKind = "leave_mismatch"
	FindingNetPayMismatch   FindingKind = "net_pay_mismatch"
	FindingGrossPayMismatch FindingKind = "gross_pay_mismatch"
	FindingNewDeductionCode FindingKind = "new_deduction_code"
	FindingDeductionDropped FindingKind = "deduction_dropped"
	FindingTaxRateShift     FindingKind = "tax_rate_shift"
	FindingLumpSumDelta     FindingKind = "lump_sum_delta"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one reported discrepancy. Category carries the canonical
// leave/deduction/tax ID when the finding concerns a single line item;
// Field names the reported cell the dashboard should highlight.
type Finding struct {
	Kind     FindingKind
	Severity Severity
	Category string
	Field    string
	Expected decimal.Decimal
	Reported decimal.Decimal
	Detail   string
}

func (f Finding) String() string {
	if f.Category != "" {
		return fmt.Sprintf("[%s] %s %s: expected %s, reported %s",
			f.Severity, f.Kind, f.Category, f.Expected, f.Reported)
	}
	return fmt.Sprintf("[%s] %s: expected %s, reported %s",
		f.Severity, f.Kind, f.Expected, f.Reported)
}
