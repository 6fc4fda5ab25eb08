/*
Package paystub provides the core domain model for the paystub audit engine.

PURPOSE:
  This package contains the types shared by every other component: the
  PayPeriod record and its line items, calendar dates keyed to pay periods,
  the hours.minutes duration codec used by leave balances, the open category
  vocabulary, and the Finding taxonomy produced by the auditors.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar day (pay periods are keyed by their end date)
  - PayPeriod: One normalized pay period record
  - Earning/Deduction/LeaveEntry/TaxEntry: Line items within a period
  - Clock codec: leave quantities encoded as hours.minutes (8.50 = 8h50m)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Open sets: Deduction codes and leave types are never a closed enum
  3. Audit not enforce: Arithmetic identities are reported on, not rejected
  4. Total replacement: A PayPeriod is replaced whole, never merged

SEE ALSO:
  - category.go: Label synonym resolution (open vocabulary)
  - finding.go: Audit finding taxonomy
  - errors.go: Error types
*/
package paystub

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE - Calendar day, the key for pay periods
// =============================================================================

// Date is a calendar day with day granularity. Pay periods are identified
// by their end date, so Date ordering defines period ordering.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t.UTC()}, nil
}

// ParseDocumentDate parses the MM/DD/YYYY format used inside paystub
// documents, falling back to ISO.
func ParseDocumentDate(s string) (Date, error) {
	if t, err := time.Parse("01/02/2006", s); err == nil {
		return Date{Time: t.UTC()}, nil
	}
	return ParseDate(s)
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }
func (d Date) AddDays(n int) Date            { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// =============================================================================
// CLOCK CODEC - hours.minutes encoding used by leave balances
// =============================================================================
//
// Paystub leave columns encode durations as hours.minutes: 8.50 means
// 8 hours 50 minutes, NOT 8.5 hours. All leave arithmetic must therefore
// happen in minutes, never directly on the decimal values.

// ClockToMinutes converts an hours.minutes value to total minutes.
func ClockToMinutes(v decimal.Decimal) int64 {
	neg := v.IsNegative()
	if neg {
		v = v.Neg()
	}
	hours := v.IntPart()
	minutes := v.Sub(decimal.NewFromInt(hours)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	total := hours*60 + minutes
	if neg {
		return -total
	}
	return total
}

// MinutesToClock converts total minutes back to the hours.minutes encoding.
func MinutesToClock(minutes int64) decimal.Decimal {
	neg := minutes < 0
	if neg {
		minutes = -minutes
	}
	v := decimal.NewFromInt(minutes / 60).Add(decimal.New(minutes%60, -2))
	if neg {
		return v.Neg()
	}
	return v
}

// =============================================================================
// PAY PERIOD - One record per pay-period-end date
// =============================================================================

// PayPeriod is one normalized pay period. Non-speculative records come from
// a parsed source document; speculative records are user projections entered
// during a payment interruption and later reconciled against a real payout.
type PayPeriod struct {
	PeriodEnd Date // unique key
	PayDate   Date // optional, from the document when present
	Agency    string

	Gross           decimal.Decimal
	Net             decimal.Decimal
	TotalDeductions decimal.Decimal // as reported by the document

	Earnings   []Earning
	Deductions []Deduction
	Leave      []LeaveEntry
	Taxes      []TaxEntry

	Remarks    string
	SourceFile string

	// Shadow ledger state. A speculative record's monetary fields are
	// projections, not document data. Reconciled is terminal.
	Speculative bool
	Reconciled  bool
}

// Earning is one earnings row (e.g. regular pay, overtime, night differential).
type Earning struct {
	Code   string // canonical category ID
	Rate   decimal.Decimal
	Hours  decimal.Decimal
	Amount decimal.Decimal
}

// Deduction is one (code, amount) pair. Order is preserved from the document.
type Deduction struct {
	Code   string // canonical category ID
	Amount decimal.Decimal
}

// LeaveEntry is one leave-balance row in hours.minutes encoding.
// The identity under audit (not enforced) is Start + Earned - Used == Ending.
type LeaveEntry struct {
	Type   string // canonical category ID
	Start  decimal.Decimal
	Earned decimal.Decimal
	Used   decimal.Decimal
	Ending decimal.Decimal
}

// TaxEntry is a tax-classified deduction with its effective rate against
// gross pay. Derived at normalization time, not present in the document.
type TaxEntry struct {
	Type   string // canonical category ID
	Amount decimal.Decimal
	Rate   decimal.Decimal // Amount / Gross, zero when gross is zero
}

// =============================================================================
// PAY PERIOD HELPERS
// =============================================================================

// DeductionTotal sums the deduction line items (which may legitimately
// differ from the reported TotalDeductions; that difference is audited).
func (p *PayPeriod) DeductionTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range p.Deductions {
		total = total.Add(d.Amount)
	}
	return total
}

// EarningsTotal sums the earnings line items.
func (p *PayPeriod) EarningsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range p.Earnings {
		total = total.Add(e.Amount)
	}
	return total
}

// FindEarning returns the earnings row for a canonical code, or nil.
func (p *PayPeriod) FindEarning(code string) *Earning {
	for i := range p.Earnings {
		if p.Earnings[i].Code == code {
			return &p.Earnings[i]
		}
	}
	return nil
}

// DeriveTaxes recomputes the Taxes slice from tax-classified deductions.
// Rate is effective against gross; zero gross yields a zero rate rather
// than dividing by zero (a shutdown period can report zero gross).
func (p *PayPeriod) DeriveTaxes(vocab *Vocabulary) {
	p.Taxes = nil
	for _, d := range p.Deductions {
		if !vocab.IsTax(d.Code) {
			continue
		}
		rate := decimal.Zero
		if p.Gross.IsPositive() {
			rate = d.Amount.Div(p.Gross)
		}
		p.Taxes = append(p.Taxes, TaxEntry{Type: d.Code, Amount: d.Amount, Rate: rate})
	}
}

// EffectiveTaxRate returns the percentage of gross consumed by
// tax-classified deductions.
func (p *PayPeriod) EffectiveTaxRate() decimal.Decimal {
	if !p.Gross.IsPositive() {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, t := range p.Taxes {
		total = total.Add(t.Amount)
	}
	return total.Div(p.Gross).Mul(decimal.NewFromInt(100))
}

// Clone returns a deep copy. The store owns its records; readers always
// receive copies so a caller can never mutate stored state in place.
func (p *PayPeriod) Clone() *PayPeriod {
	cp := *p
	cp.Earnings = append([]Earning(nil), p.Earnings...)
	cp.Deductions = append([]Deduction(nil), p.Deductions...)
	cp.Leave = append([]LeaveEntry(nil), p.Leave...)
	cp.Taxes = append([]TaxEntry(nil), p.Taxes...)
	return &cp
}
