/*
Package shadow manages speculative pay periods during payment interruptions.

PURPOSE:
  When payroll stops (a government shutdown), no documents arrive, but
  hours are still worked. The shadow ledger lets the user record projected
  periods from entered hours and the last known pay rates, then reconcile
  those projections once a real payout finally lands.

STATE MACHINE:
  Speculative -> Reconciled. Nothing else. A reconciled record is
  terminal; it is never re-reconciled and never reverts.

RATE BASIS:
  Projections price entered hours using the most recent period that
  carries a positive regular-pay rate. The walk skips zero-rate periods
  because shutdown paystubs can report a zero-amount regular row; if no
  period in history has a usable rate, recording fails with NoRateBasis.

RECONCILIATION POLICY:
  A real payout may be one lump sum covering several speculative periods.
  Reconcile sums every unreconciled projection dated at or before the
  payout, compares against the payout's gross, and reports a LumpSumDelta
  finding when they differ beyond tolerance. The comparison is
  informational only: the official payout is authoritative, so matched
  records are marked Reconciled regardless of the delta.
*/
package shadow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/store"
)

// differentialFactors prices premium hour categories as a fraction of the
// base rate (night and instruction differentials 10%, Sunday premium 25%).
// Categories not listed are paid at the base rate.
var differentialFactors = map[string]decimal.Decimal{
	paystub.EarningNightDiff: decimal.New(1, -1),
	paystub.EarningOJTI:      decimal.New(1, -1),
	paystub.EarningCIC:       decimal.New(1, -1),
	paystub.EarningSunday:    decimal.New(25, -2),
}

// Reconciler manages speculative records against a period store.
type Reconciler struct {
	store store.Store
	tol   paystub.Tolerances
}

func New(st store.Store, tol paystub.Tolerances) *Reconciler {
	return &Reconciler{store: st, tol: tol}
}

// =============================================================================
// RECORD - Create a speculative projection
// =============================================================================

// Record creates and stores a speculative pay period for the given
// period-end date from hours entered per earning category. Rates and
// deductions come from the most recent period with a usable rate basis.
func (r *Reconciler) Record(ctx context.Context, date paystub.Date, hoursByCategory map[string]decimal.Decimal) (*paystub.PayPeriod, error) {
	ref, err := r.rateBasis(ctx, date)
	if err != nil {
		return nil, err
	}
	baseRate := ref.FindEarning(paystub.EarningRegular).Rate

	p := &paystub.PayPeriod{
		PeriodEnd:   date,
		Agency:      ref.Agency,
		Speculative: true,
		Remarks: fmt.Sprintf("SHADOW PROJECTION\nRate basis: %s period (regular rate %s)",
			ref.PeriodEnd, baseRate),
	}

	for category, hours := range hoursByCategory {
		if hours.IsZero() {
			continue
		}
		rate := baseRate
		if factor, ok := differentialFactors[category]; ok {
			rate = baseRate.Mul(factor).Round(2)
		}
		p.Earnings = append(p.Earnings, paystub.Earning{
			Code:   category,
			Rate:   rate,
			Hours:  hours,
			Amount: hours.Mul(rate).Round(2),
		})
	}

	// Deductions carry over from the reference period: withholdings are
	// the best available projection of what the payout will subtract.
	p.Deductions = append(p.Deductions, ref.Deductions...)

	p.Gross = p.EarningsTotal()
	p.TotalDeductions = p.DeductionTotal()
	p.Net = p.Gross.Sub(p.TotalDeductions)

	if err := r.store.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// rateBasis walks backwards through history for the most recent period
// whose regular-earnings row has a positive rate. Shutdown periods can
// carry a zero-rate regular row, so the walk does not stop at the first
// predecessor.
func (r *Reconciler) rateBasis(ctx context.Context, date paystub.Date) (*paystub.PayPeriod, error) {
	cursor := date
	for {
		prev, err := r.store.Previous(ctx, cursor)
		if errors.Is(err, paystub.ErrNoPriorPeriod) {
			return nil, &paystub.ReconciliationError{Date: date, Err: paystub.ErrNoRateBasis}
		}
		if err != nil {
			return nil, err
		}
		if reg := prev.FindEarning(paystub.EarningRegular); reg != nil && reg.Rate.IsPositive() {
			return prev, nil
		}
		cursor = prev.PeriodEnd
	}
}

// =============================================================================
// RECONCILE - Match projections against a real payout
// =============================================================================

// Result reports one reconciliation run.
type Result struct {
	RunID      string
	ActualDate paystub.Date
	Reconciled []paystub.Date
	Expected   decimal.Decimal // summed gross projections
	Actual     decimal.Decimal // real payout gross
	Findings   []paystub.Finding
}

// Reconcile matches every unreconciled speculative record dated at or
// before actualDate against the real payout stored for actualDate.
// All matched records flip to Reconciled in one atomic batch; a delta
// between projected and actual gross is reported, never blocking.
func (r *Reconciler) Reconcile(ctx context.Context, actualDate paystub.Date) (*Result, error) {
	actual, err := r.store.Get(ctx, actualDate)
	if err != nil {
		return nil, err
	}
	if actual.Speculative {
		return nil, fmt.Errorf("period %s is itself speculative, not a real payout", actualDate)
	}

	pending, err := r.store.Unreconciled(ctx, actualDate)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, &paystub.ReconciliationError{Date: actualDate, Err: paystub.ErrNoUnreconciledRecords}
	}

	result := &Result{
		RunID:      uuid.NewString(),
		ActualDate: actualDate,
		Actual:     actual.Gross,
		Expected:   decimal.Zero,
	}

	for _, p := range pending {
		result.Expected = result.Expected.Add(p.Gross)
		result.Reconciled = append(result.Reconciled, p.PeriodEnd)
	}

	if result.Expected.Sub(result.Actual).Abs().GreaterThan(r.tol.Money) {
		result.Findings = append(result.Findings, paystub.Finding{
			Kind:     paystub.FindingLumpSumDelta,
			Severity: paystub.SeverityWarning,
			Field:    "gross_pay",
			Expected: result.Expected,
			Reported: result.Actual,
			Detail:   fmt.Sprintf("projected sum differs from %s lump-sum payout", actualDate),
		})
	}

	// The payout is authoritative: flip everything regardless of delta.
	for _, p := range pending {
		p.Reconciled = true
		p.Remarks = fmt.Sprintf("%s\nReconciled against %s payout (run %s)",
			p.Remarks, actualDate, result.RunID)
	}
	if err := r.store.PutBatch(ctx, pending); err != nil {
		return nil, err
	}

	return result, nil
}
