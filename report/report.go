/*
Package report assembles audit reports and trend series over stored periods.

PURPOSE:
  The audit packages are pure functions over one or two periods; this
  package binds them to the store. A report for one date runs both
  auditors (fetching the predecessor itself) and attaches derived
  figures like the effective tax rate. The trend series feeds charts.

SEE ALSO:
  - audit: the arithmetic and continuity checks this package runs
  - store: the period source
*/
package report

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/warp/paystub-audit/audit"
	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/store"
)

// Reporter produces audit reports from stored periods.
type Reporter struct {
	store store.Store
	tol   paystub.Tolerances
}

func New(st store.Store, tol paystub.Tolerances) *Reporter {
	return &Reporter{store: st, tol: tol}
}

// AuditReport is the complete audit result for one pay period.
type AuditReport struct {
	Period             *paystub.PayPeriod
	ArithmeticFindings []paystub.Finding
	ContinuityFindings []paystub.Finding
	EffectiveTaxRate   decimal.Decimal
	PreviousPeriodEnd  paystub.Date // zero when this is the earliest period
}

// Errors returns how many findings across both auditors are errors.
func (r *AuditReport) Errors() int {
	n := 0
	for _, f := range append(r.ArithmeticFindings, r.ContinuityFindings...) {
		if f.Severity == paystub.SeverityError {
			n++
		}
	}
	return n
}

// Clean reports whether the period passed every check.
func (r *AuditReport) Clean() bool {
	return len(r.ArithmeticFindings) == 0 && len(r.ContinuityFindings) == 0
}

// Audit runs both auditors for the period ending at date. The continuity
// audit compares against the immediate predecessor; the earliest period
// in history gets an arithmetic-only report.
func (r *Reporter) Audit(ctx context.Context, date paystub.Date) (*AuditReport, error) {
	p, err := r.store.Get(ctx, date)
	if err != nil {
		return nil, err
	}

	rep := &AuditReport{
		Period:             p,
		ArithmeticFindings: audit.Arithmetic(p, r.tol),
		EffectiveTaxRate:   p.EffectiveTaxRate(),
	}

	prev, err := r.store.Previous(ctx, date)
	switch {
	case errors.Is(err, paystub.ErrNoPriorPeriod):
		// Earliest period: nothing to compare against.
	case err != nil:
		return nil, err
	default:
		rep.PreviousPeriodEnd = prev.PeriodEnd
		rep.ContinuityFindings = audit.Continuity(p, prev, r.tol)
	}

	return rep, nil
}

// AuditAll audits every stored period in chronological order. Used by the
// ingest command after a bulk import and by the full-history endpoint.
func (r *Reporter) AuditAll(ctx context.Context) ([]*AuditReport, error) {
	periods, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*AuditReport, 0, len(periods))
	for _, p := range periods {
		rep, err := r.Audit(ctx, p.PeriodEnd)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// TrendPoint is one period's headline figures for charting.
type TrendPoint struct {
	PeriodEnd        paystub.Date
	Gross            decimal.Decimal
	Net              decimal.Decimal
	TotalDeductions  decimal.Decimal
	EffectiveTaxRate decimal.Decimal
	Speculative      bool
}

// Trends returns headline figures for every stored period, ascending.
func (r *Reporter) Trends(ctx context.Context) ([]TrendPoint, error) {
	periods, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]TrendPoint, 0, len(periods))
	for _, p := range periods {
		points = append(points, TrendPoint{
			PeriodEnd:        p.PeriodEnd,
			Gross:            p.Gross,
			Net:              p.Net,
			TotalDeductions:  p.TotalDeductions,
			EffectiveTaxRate: p.EffectiveTaxRate(),
			Speculative:      p.Speculative,
		})
	}
	return points, nil
}
