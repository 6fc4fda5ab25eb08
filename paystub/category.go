/*
category.go - Open label vocabulary for leave, deduction, tax and earning codes

PURPOSE:
  Paystub documents have no schema: the same deduction appears as
  "Federal Tax", "Fed Tax Withheld" or "FED TAX" depending on the document
  revision. The Vocabulary maps label variants to canonical category IDs,
  and any label it has never seen becomes a NEW canonical category rather
  than being dropped. That openness is what lets the continuity auditor
  detect "new deduction code appeared".

HOW IT WORKS:
  1. Labels are normalized (lowercase, collapsed whitespace, stripped
     punctuation) before lookup.
  2. Known synonyms resolve to their canonical ID.
  3. Unknown labels are slugified into a new canonical ID and remembered,
     so the same unknown label always resolves identically.

TAX CLASSIFICATION:
  Deduction categories are classified as taxes either by explicit
  registration or by substring heuristics ("tax", "oasdi", "medicare"),
  mirroring how the effective tax rate is computed.

SEE ALSO:
  - types.go: PayPeriod line items store canonical IDs
  - parser: resolves document labels through a Vocabulary
*/
package paystub

import (
	"strings"
	"sync"
	"unicode"
)

// CategoryKind separates the independent vocabularies.
type CategoryKind string

const (
	KindLeave     CategoryKind = "leave"
	KindDeduction CategoryKind = "deduction"
	KindEarning   CategoryKind = "earning"
)

// Canonical category IDs referenced elsewhere in the engine.
const (
	LeaveAnnual           = "annual"
	LeaveSick             = "sick"
	LeaveCredit           = "credit"
	LeaveComp             = "comp"
	LeaveLWOP             = "lwop"
	LeaveAdmin            = "admin"
	LeaveChangeOfStation  = "change_of_station"
	LeaveTimeOffAward     = "time_off_award"
	LeaveShutdownExcepted = "shutdown_excepted"

	EarningRegular   = "regular"
	EarningOvertime  = "overtime"
	EarningNightDiff = "night_differential"
	EarningSunday    = "sunday_premium"
	EarningHoliday   = "holiday_worked"
	EarningOJTI      = "ojti"
	EarningCIC       = "cic"
	EarningCIP       = "controller_incentive"

	DeductionFederalTax = "federal_tax"
	DeductionStateTax   = "state_tax"
	DeductionOASDI      = "oasdi"
	DeductionMedicare   = "medicare"
	DeductionHealth     = "health_insurance"
	DeductionDental     = "dental"
	DeductionRetirement = "retirement"
	DeductionTSP        = "tsp"
	DeductionUnionDues  = "union_dues"
	DeductionLifeIns    = "life_insurance"
)

// Vocabulary resolves document labels to canonical category IDs.
// Safe for concurrent use.
type Vocabulary struct {
	mu       sync.RWMutex
	synonyms map[CategoryKind]map[string]string // normalized label -> canonical ID
	display  map[string]string                  // canonical ID -> display label
	taxes    map[string]bool                    // canonical deduction IDs that are taxes
}

// NewVocabulary returns an empty vocabulary with no known synonyms.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		synonyms: map[CategoryKind]map[string]string{
			KindLeave:     {},
			KindDeduction: {},
			KindEarning:   {},
		},
		display: map[string]string{},
		taxes:   map[string]bool{},
	}
}

// DefaultVocabulary returns a vocabulary preloaded with the label variants
// observed across paystub document revisions.
func DefaultVocabulary() *Vocabulary {
	v := NewVocabulary()

	v.Register(KindLeave, LeaveAnnual, "Annual Leave", "Annual Lv", "AL", "Annual")
	v.Register(KindLeave, LeaveSick, "Sick Leave", "Sick Lv", "SL", "Sick")
	v.Register(KindLeave, LeaveCredit, "Credit Hours", "Credit", "Cr Hrs")
	v.Register(KindLeave, LeaveComp, "Comp Time", "Compensatory Time", "Comp")
	v.Register(KindLeave, LeaveLWOP, "LWOP", "Leave Without Pay")
	v.Register(KindLeave, LeaveAdmin, "Admin", "Administrative Leave")
	v.Register(KindLeave, LeaveChangeOfStation, "Change of Station Leave", "COS Leave")
	v.Register(KindLeave, LeaveTimeOffAward, "Time Off Award", "TOA")
	v.Register(KindLeave, LeaveShutdownExcepted, "Gov Shutdown-Excepted", "Shutdown Excepted")

	v.Register(KindEarning, EarningRegular, "Regular Pay", "Regular", "Reg Pay", "Reg")
	v.Register(KindEarning, EarningOvertime, "Overtime", "Overtime Pay", "OT")
	v.Register(KindEarning, EarningNightDiff, "Night Differential", "Night Diff", "ND")
	v.Register(KindEarning, EarningSunday, "Sunday Premium", "Sunday Prem")
	v.Register(KindEarning, EarningHoliday, "Holiday Worked", "Holiday Pay")
	v.Register(KindEarning, EarningOJTI, "OJTI", "OJTI Differential")
	v.Register(KindEarning, EarningCIC, "CIC", "CIC Differential")
	v.Register(KindEarning, EarningCIP, "Controller Incentive Pay", "CIP")

	v.Register(KindDeduction, DeductionFederalTax, "Federal Tax", "Fed Tax Withheld", "Federal Taxes")
	v.Register(KindDeduction, DeductionStateTax, "State Tax", "State Tax Withheld")
	v.Register(KindDeduction, DeductionOASDI, "OASDI", "OASDI Tax", "Social Security")
	v.Register(KindDeduction, DeductionMedicare, "Medicare", "Medicare Tax")
	v.Register(KindDeduction, DeductionHealth, "Health Insurance", "Health Benefits", "FEHB")
	v.Register(KindDeduction, DeductionDental, "Dental", "FEDVIP Dental", "Dental/Vision")
	v.Register(KindDeduction, DeductionRetirement, "Retirement", "Retirement - FRAE", "FERS")
	v.Register(KindDeduction, DeductionTSP, "TSP", "TSP Savings", "Thrift Savings Plan")
	v.Register(KindDeduction, DeductionUnionDues, "Union Dues", "NATCA Dues")
	v.Register(KindDeduction, DeductionLifeIns, "Life Insurance", "FEGLI", "FEGLI Optional")

	v.RegisterTax(DeductionFederalTax, DeductionStateTax, DeductionOASDI, DeductionMedicare)

	return v
}

// Register adds a canonical category with its known label synonyms.
// The first synonym is used as the display label.
func (v *Vocabulary) Register(kind CategoryKind, canonical string, labels ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, label := range labels {
		v.synonyms[kind][NormalizeLabel(label)] = canonical
		if i == 0 {
			v.display[canonical] = label
		}
	}
	v.synonyms[kind][NormalizeLabel(canonical)] = canonical
}

// RegisterTax marks deduction categories as tax-classified.
func (v *Vocabulary) RegisterTax(canonicals ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range canonicals {
		v.taxes[c] = true
	}
}

// Resolve maps a document label to its canonical category ID, creating a
// new canonical category for labels never seen before. Unknown labels are
// captured, not dropped: a deduction the engine has no synonym for must
// still surface so the continuity auditor can flag its appearance.
func (v *Vocabulary) Resolve(kind CategoryKind, label string) string {
	norm := NormalizeLabel(label)
	if norm == "" {
		return ""
	}

	v.mu.RLock()
	canonical, ok := v.synonyms[kind][norm]
	v.mu.RUnlock()
	if ok {
		return canonical
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if canonical, ok := v.synonyms[kind][norm]; ok {
		return canonical
	}
	canonical = slugify(norm)
	v.synonyms[kind][norm] = canonical
	if _, ok := v.display[canonical]; !ok {
		v.display[canonical] = strings.TrimSpace(label)
	}
	return canonical
}

// Display returns the human-readable label for a canonical ID.
func (v *Vocabulary) Display(canonical string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if d, ok := v.display[canonical]; ok {
		return d
	}
	return canonical
}

// IsTax reports whether a canonical deduction ID is tax-classified.
// Falls back to substring heuristics for categories created on the fly.
func (v *Vocabulary) IsTax(canonical string) bool {
	v.mu.RLock()
	explicit := v.taxes[canonical]
	v.mu.RUnlock()
	if explicit {
		return true
	}
	lower := strings.ToLower(canonical)
	return strings.Contains(lower, "tax") ||
		strings.Contains(lower, "oasdi") ||
		strings.Contains(lower, "medicare")
}

// NormalizeLabel lowercases, collapses internal whitespace and strips
// punctuation so "Annual  Lv." and "annual lv" compare equal.
func NormalizeLabel(label string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '/' || r == '_':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// slugify turns a normalized label into a canonical ID.
func slugify(norm string) string {
	return strings.ReplaceAll(norm, " ", "_")
}
