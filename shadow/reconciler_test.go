package shadow_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/shadow"
	"github.com/warp/paystub-audit/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestReconciler(t *testing.T) (*shadow.Reconciler, *memory.Memory) {
	store := memory.New()
	return shadow.New(store, paystub.DefaultTolerances()), store
}

// realPeriod is the last paystub received before the interruption. It
// carries the rate basis every projection is priced from.
func realPeriod(day int, rate string) *paystub.PayPeriod {
	return &paystub.PayPeriod{
		PeriodEnd: paystub.NewDate(2025, time.October, day),
		Agency:    "FAA",
		Gross:     d("4160.00"),
		Net:       d("3100.00"),
		Earnings: []paystub.Earning{
			{Code: paystub.EarningRegular, Rate: d(rate), Hours: d("80.00"), Amount: d("4160.00")},
		},
		Deductions: []paystub.Deduction{
			{Code: paystub.DeductionFederalTax, Amount: d("620.00")},
			{Code: paystub.DeductionHealth, Amount: d("188.10")},
		},
	}
}

// =============================================================================
// RECORD
// =============================================================================

func TestRecord_ProjectsFromLastKnownRates(t *testing.T) {
	// GIVEN: A real period with a $52/h regular rate
	// WHEN: Recording 80 regular hours for the next period
	// THEN: The projection prices hours at the known rate and carries
	//       the reference deductions

	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(18, "52.00")))

	p, err := rec.Record(ctx, paystub.NewDate(2025, time.November, 1), map[string]decimal.Decimal{
		paystub.EarningRegular: d("80.00"),
	})
	require.NoError(t, err)

	assert.True(t, p.Speculative)
	assert.False(t, p.Reconciled)
	assert.Equal(t, "FAA", p.Agency)
	require.Len(t, p.Earnings, 1)
	assert.True(t, d("4160.00").Equal(p.Gross), "80h x 52.00, got %s", p.Gross)
	require.Len(t, p.Deductions, 2, "reference deductions carry over")
	assert.True(t, d("808.10").Equal(p.TotalDeductions))
	assert.True(t, d("3351.90").Equal(p.Net))

	// The projection is persisted, not just returned.
	stored, err := store.Get(ctx, p.PeriodEnd)
	require.NoError(t, err)
	assert.True(t, stored.Speculative)
}

func TestRecord_DifferentialCategories(t *testing.T) {
	// Night differential pays 10% of base, Sunday premium 25%.
	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(18, "52.00")))

	p, err := rec.Record(ctx, paystub.NewDate(2025, time.November, 1), map[string]decimal.Decimal{
		paystub.EarningRegular:   d("80.00"),
		paystub.EarningNightDiff: d("40.00"),
		paystub.EarningSunday:    d("16.00"),
	})
	require.NoError(t, err)

	night := p.FindEarning(paystub.EarningNightDiff)
	require.NotNil(t, night)
	assert.True(t, d("5.20").Equal(night.Rate))
	assert.True(t, d("208.00").Equal(night.Amount))

	sunday := p.FindEarning(paystub.EarningSunday)
	require.NotNil(t, sunday)
	assert.True(t, d("13.00").Equal(sunday.Rate))
	assert.True(t, d("208.00").Equal(sunday.Amount))

	// 4160 + 208 + 208
	assert.True(t, d("4576.00").Equal(p.Gross))
}

func TestRecord_SkipsZeroRatePeriods(t *testing.T) {
	// GIVEN: The immediate predecessor is a shutdown period with a
	//        zero-rate regular row
	// WHEN: Recording a projection
	// THEN: The walk continues back to the last usable rate

	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(4, "52.00")))

	shutdown := realPeriod(18, "0.00")
	shutdown.Earnings[0].Amount = d("0.00")
	shutdown.Gross = d("0.00")
	require.NoError(t, store.Put(ctx, shutdown))

	p, err := rec.Record(ctx, paystub.NewDate(2025, time.November, 1), map[string]decimal.Decimal{
		paystub.EarningRegular: d("80.00"),
	})
	require.NoError(t, err)
	assert.True(t, d("4160.00").Equal(p.Gross), "rate must come from Oct 4, not the shutdown period")
}

func TestRecord_NoRateBasis(t *testing.T) {
	// GIVEN: No period in history with a positive regular rate
	// WHEN: Recording a projection
	// THEN: Recording fails with NoRateBasis

	rec, _ := newTestReconciler(t)

	_, err := rec.Record(context.Background(), paystub.NewDate(2025, time.November, 1),
		map[string]decimal.Decimal{paystub.EarningRegular: d("80.00")})

	require.Error(t, err)
	assert.ErrorIs(t, err, paystub.ErrNoRateBasis)
	var rerr *paystub.ReconciliationError
	assert.ErrorAs(t, err, &rerr)
}

// =============================================================================
// RECONCILE
// =============================================================================

func recordTwoProjections(t *testing.T, rec *shadow.Reconciler) {
	t.Helper()
	ctx := context.Background()
	for _, day := range []int{1, 15} {
		_, err := rec.Record(ctx, paystub.NewDate(2025, time.November, day),
			map[string]decimal.Decimal{paystub.EarningRegular: d("80.00")})
		require.NoError(t, err)
	}
}

func lumpSum(gross string) *paystub.PayPeriod {
	return &paystub.PayPeriod{
		PeriodEnd: paystub.NewDate(2025, time.November, 29),
		Gross:     d(gross),
		Net:       d(gross),
	}
}

func TestReconcile_ExactLumpSum_NoFindings(t *testing.T) {
	// GIVEN: Two $4160 projections and an $8320 lump-sum payout
	// WHEN: Reconciling
	// THEN: No findings, both projections flip to Reconciled

	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(18, "52.00")))
	recordTwoProjections(t, rec)
	require.NoError(t, store.Put(ctx, lumpSum("8320.00")))

	res, err := rec.Reconcile(ctx, paystub.NewDate(2025, time.November, 29))
	require.NoError(t, err)

	assert.Empty(t, res.Findings)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Reconciled, 2)
	assert.True(t, d("8320.00").Equal(res.Expected))

	for _, day := range []int{1, 15} {
		got, err := store.Get(ctx, paystub.NewDate(2025, time.November, day))
		require.NoError(t, err)
		assert.True(t, got.Reconciled, "Nov %d must be terminal", day)
	}
}

func TestReconcile_Delta_ReportedButStillReconciles(t *testing.T) {
	// GIVEN: $8320 projected but only $8000 paid out
	// WHEN: Reconciling
	// THEN: A LumpSumDelta finding is emitted AND the records still flip;
	//       the official payout is authoritative

	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(18, "52.00")))
	recordTwoProjections(t, rec)
	require.NoError(t, store.Put(ctx, lumpSum("8000.00")))

	res, err := rec.Reconcile(ctx, paystub.NewDate(2025, time.November, 29))
	require.NoError(t, err)

	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, paystub.FindingLumpSumDelta, f.Kind)
	assert.Equal(t, paystub.SeverityWarning, f.Severity)
	assert.True(t, d("8320.00").Equal(f.Expected))
	assert.True(t, d("8000.00").Equal(f.Reported))

	for _, day := range []int{1, 15} {
		got, err := store.Get(ctx, paystub.NewDate(2025, time.November, day))
		require.NoError(t, err)
		assert.True(t, got.Reconciled, "delta must not block reconciliation")
	}
}

func TestReconcile_NothingPending(t *testing.T) {
	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, lumpSum("8320.00")))

	_, err := rec.Reconcile(ctx, paystub.NewDate(2025, time.November, 29))
	assert.ErrorIs(t, err, paystub.ErrNoUnreconciledRecords)
}

func TestReconcile_PayoutMissing(t *testing.T) {
	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(18, "52.00")))
	recordTwoProjections(t, rec)

	_, err := rec.Reconcile(ctx, paystub.NewDate(2025, time.November, 29))
	assert.ErrorIs(t, err, paystub.ErrPeriodNotFound)
}

func TestReconcile_IsTerminal(t *testing.T) {
	// GIVEN: A completed reconciliation
	// WHEN: Reconciling the same payout again
	// THEN: Nothing is pending; reconciled records never re-enter

	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(18, "52.00")))
	recordTwoProjections(t, rec)
	require.NoError(t, store.Put(ctx, lumpSum("8320.00")))

	_, err := rec.Reconcile(ctx, paystub.NewDate(2025, time.November, 29))
	require.NoError(t, err)

	_, err = rec.Reconcile(ctx, paystub.NewDate(2025, time.November, 29))
	assert.ErrorIs(t, err, paystub.ErrNoUnreconciledRecords)
}

func TestReconcile_LaterProjectionsLeftPending(t *testing.T) {
	// A projection dated after the payout is not part of this lump sum.
	rec, store := newTestReconciler(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, realPeriod(18, "52.00")))
	recordTwoProjections(t, rec)

	_, err := rec.Record(ctx, paystub.NewDate(2025, time.December, 13),
		map[string]decimal.Decimal{paystub.EarningRegular: d("80.00")})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, lumpSum("8320.00")))

	res, err := rec.Reconcile(ctx, paystub.NewDate(2025, time.November, 29))
	require.NoError(t, err)
	assert.Len(t, res.Reconciled, 2)

	later, err := store.Get(ctx, paystub.NewDate(2025, time.December, 13))
	require.NoError(t, err)
	assert.False(t, later.Reconciled)
}
