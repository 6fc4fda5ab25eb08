package audit

import (
	"github.com/shopspring/decimal"

	"github.com/warp/paystub-audit/paystub"
)

// =============================================================================
// CONTINUITY AUDIT - Period vs its immediate predecessor
// =============================================================================

// Continuity compares a period against its immediate predecessor and
// flags newly appeared deduction codes, dropped deduction codes and tax
// rate shifts. A nil previous (first period on record) is a no-op.
//
// The comparison is deliberately period-to-predecessor only: a code that
// disappears and later reappears is flagged as new again. Scanning the
// full history would trade that false positive for silent misses on
// genuinely re-added deductions.
func Continuity(p, previous *paystub.PayPeriod, tol paystub.Tolerances) []paystub.Finding {
	if previous == nil {
		return nil
	}

	var findings []paystub.Finding

	prevCodes := make(map[string]bool, len(previous.Deductions))
	for _, d := range previous.Deductions {
		prevCodes[d.Code] = true
	}
	currCodes := make(map[string]bool, len(p.Deductions))
	for _, d := range p.Deductions {
		currCodes[d.Code] = true
	}

	// A new deduction is money leaving the paycheck unannounced: Error.
	for _, d := range p.Deductions {
		if !prevCodes[d.Code] {
			findings = append(findings, paystub.Finding{
				Kind:     paystub.FindingNewDeductionCode,
				Severity: paystub.SeverityError,
				Category: d.Code,
				Field:    "deductions",
				Reported: d.Amount,
				Detail:   "deduction code not present in prior period",
			})
		}
	}

	// A dropped deduction (health insurance falling off) is usually
	// benign but worth a look: Warning.
	for _, d := range previous.Deductions {
		if !currCodes[d.Code] {
			findings = append(findings, paystub.Finding{
				Kind:     paystub.FindingDeductionDropped,
				Severity: paystub.SeverityWarning,
				Category: d.Code,
				Field:    "deductions",
				Expected: d.Amount,
				Detail:   "deduction code present in prior period disappeared",
			})
		}
	}

	prevTaxes := make(map[string]paystub.TaxEntry, len(previous.Taxes))
	for _, t := range previous.Taxes {
		prevTaxes[t.Type] = t
	}
	for _, t := range p.Taxes {
		old, ok := prevTaxes[t.Type]
		if !ok {
			continue // appearance is covered by NewDeductionCode
		}
		if rateShifted(old.Rate, t.Rate, tol) {
			findings = append(findings, paystub.Finding{
				Kind:     paystub.FindingTaxRateShift,
				Severity: paystub.SeverityError,
				Category: t.Type,
				Field:    "tax_rate",
				Expected: old.Rate,
				Reported: t.Rate,
				Detail:   "effective tax rate shifted from prior period",
			})
		}
	}

	return findings
}

// rateShifted applies the relative tolerance. The tolerance absorbs
// rounding noise in effective rates computed from rounded amounts; a
// policy change moves rates far beyond it.
func rateShifted(old, current decimal.Decimal, tol paystub.Tolerances) bool {
	diff := current.Sub(old).Abs()
	if old.IsZero() {
		return diff.GreaterThan(tol.TaxRateRel)
	}
	return diff.Div(old.Abs()).GreaterThan(tol.TaxRateRel)
}
