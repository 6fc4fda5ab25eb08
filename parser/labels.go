package parser

import "github.com/warp/paystub-audit/paystub"

// normalize applies the vocabulary's label normalization rules.
func normalize(s string) string { return paystub.NormalizeLabel(s) }

// Label synonym sets for scalar fields and section columns. These are the
// variants observed across paystub document revisions; matching is done on
// normalized text (lowercase, collapsed whitespace, stripped punctuation),
// so "Net  Pay:" and "net pay" compare equal.

// Scalar field labels: the value is read from the cell adjacent to the label.
var (
	grossLabels = []string{"gross pay", "total gross", "gross pay current", "gross"}
	netLabels   = []string{"net pay", "net pay current", "net"}

	totalDeductionsLabels = []string{"total deductions", "deductions current", "total deduction"}
	payDateLabels         = []string{"pay date", "pay period date"}
	periodEndingLabels    = []string{"for pay period ending", "pay period ending", "period ending"}
	agencyLabels          = []string{"agency", "agency name"}
	remarksLabels         = []string{"remarks", "notes"}
)

// Section headers: a table is classified by scoring its header row against
// these column sets.
var (
	typeColumns   = []string{"type", "description", "code"}
	rateColumns   = []string{"rate", "hourly rate"}
	hoursColumns  = []string{"hours", "hours current", "hrs"}
	amountColumns = []string{"amount", "amount current", "current"}

	leaveStartColumns  = []string{"balance forward", "beginning balance", "prior balance", "start"}
	leaveEarnedColumns = []string{"earned", "accrued", "earned current"}
	leaveUsedColumns   = []string{"used", "taken", "used current"}
	leaveEndingColumns = []string{"ending balance", "current balance", "balance", "ending"}
)

// matchesAny reports whether a normalized cell text equals one of the
// normalized label variants.
func matchesAny(norm string, labels []string) bool {
	for _, l := range labels {
		if norm == normalize(l) {
			return true
		}
	}
	return false
}
