/*
Package audit implements the per-period audit checks.

PURPOSE:
  Two independent passes over a normalized pay period:

  Arithmetic (this file): intra-period identities. Leave math
  (start + earned - used == ending, computed in minutes because leave is
  hours.minutes encoded) and pay math (gross - deductions == net, plus a
  gross cross-check against the earnings rows when present).

  Continuity (continuity.go): comparison against the immediate
  predecessor period.

  Findings are reporting, never enforcement: a period that fails every
  check is still stored and still served.

SEVERITY DOWNGRADE:
  Legitimate one-off administrative corrections (a leave adjustment keyed
  in by the agency) break the arithmetic identities forever. To avoid a
  permanent false positive, a finding is downgraded from Error to Warning
  when the period's remarks contain an adjustment marker for that
  finding's category. The match is a documented case-insensitive
  substring check - a heuristic, and a known source of false negatives.
  A leave-adjustment remark never suppresses a net-pay mismatch.
*/
package audit

import (
	"strings"

	"github.com/warp/paystub-audit/paystub"
)

// adjustmentMarkers lists the remark phrases that downgrade findings,
// scoped to the finding kind the phrase textually references.
var adjustmentMarkers = map[paystub.FindingKind][]string{
	paystub.FindingLeaveMismatch:    {"LEAVE ADJUSTMENT", "LV ADJ", "LEAVE AUDIT ADJUSTMENT"},
	paystub.FindingNetPayMismatch:   {"PAY ADJUSTMENT", "RETROACTIVE ADJUSTMENT", "RETRO PAY"},
	paystub.FindingGrossPayMismatch: {"PAY ADJUSTMENT", "RETROACTIVE ADJUSTMENT", "RETRO PAY"},
}

// ExemptLeaveTypes lists leave categories excluded from the balance
// identity: administrative one-off grants whose columns never balance in
// the issuing system. Callers may register further categories.
var ExemptLeaveTypes = map[string]bool{
	paystub.LeaveAdmin:            true,
	paystub.LeaveChangeOfStation:  true,
	paystub.LeaveTimeOffAward:     true,
	paystub.LeaveShutdownExcepted: true,
}

// Arithmetic validates the intra-period identities and returns one
// finding per violated identity. Speculative records are projections
// with no document to audit against, so they produce no findings.
func Arithmetic(p *paystub.PayPeriod, tol paystub.Tolerances) []paystub.Finding {
	if p.Speculative {
		return nil
	}

	var findings []paystub.Finding

	for _, l := range p.Leave {
		if ExemptLeaveTypes[l.Type] {
			continue
		}
		start := paystub.ClockToMinutes(l.Start)
		earned := paystub.ClockToMinutes(l.Earned)
		used := paystub.ClockToMinutes(l.Used)
		reported := paystub.ClockToMinutes(l.Ending)

		expected := start + earned - used
		if abs(expected-reported) > tol.LeaveMinutes {
			findings = append(findings, severityByRemarks(p.Remarks, paystub.Finding{
				Kind:     paystub.FindingLeaveMismatch,
				Severity: paystub.SeverityError,
				Category: l.Type,
				Field:    "balance_end",
				Expected: paystub.MinutesToClock(expected),
				Reported: l.Ending,
				Detail:   "start + earned - used does not match ending balance",
			}))
		}
	}

	expectedNet := p.Gross.Sub(p.DeductionTotal())
	if expectedNet.Sub(p.Net).Abs().GreaterThan(tol.Money) {
		findings = append(findings, severityByRemarks(p.Remarks, paystub.Finding{
			Kind:     paystub.FindingNetPayMismatch,
			Severity: paystub.SeverityError,
			Field:    "net_pay",
			Expected: expectedNet,
			Reported: p.Net,
			Detail:   "gross - deductions does not match net pay",
		}))
	}

	// Cross-check gross against the earnings rows when the document
	// itemized them. An absent earnings section is not a finding.
	if len(p.Earnings) > 0 {
		earned := p.EarningsTotal()
		if earned.Sub(p.Gross).Abs().GreaterThan(tol.Money) {
			findings = append(findings, severityByRemarks(p.Remarks, paystub.Finding{
				Kind:     paystub.FindingGrossPayMismatch,
				Severity: paystub.SeverityError,
				Field:    "gross_pay",
				Expected: earned,
				Reported: p.Gross,
				Detail:   "sum of earnings does not match gross pay",
			}))
		}
	}

	return findings
}

// severityByRemarks downgrades a finding to Warning when the remarks
// carry an adjustment marker for that finding's kind. The finding is
// never dropped.
func severityByRemarks(remarks string, f paystub.Finding) paystub.Finding {
	upper := strings.ToUpper(remarks)
	for _, marker := range adjustmentMarkers[f.Kind] {
		if strings.Contains(upper, marker) {
			f.Severity = paystub.SeverityWarning
			return f
		}
	}
	return f
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
