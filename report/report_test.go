package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/report"
	"github.com/warp/paystub-audit/store/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func storedPeriod(year int, month time.Month, day int) *paystub.PayPeriod {
	p := &paystub.PayPeriod{
		PeriodEnd: paystub.NewDate(year, month, day),
		Gross:     d("4000.00"),
		Net:       d("3200.00"),
		Deductions: []paystub.Deduction{
			{Code: paystub.DeductionFederalTax, Amount: d("600.00")},
			{Code: paystub.DeductionHealth, Amount: d("200.00")},
		},
	}
	p.DeriveTaxes(paystub.DefaultVocabulary())
	return p
}

func newTestReporter(t *testing.T) (*report.Reporter, *memory.Memory) {
	store := memory.New()
	return report.New(store, paystub.DefaultTolerances()), store
}

func TestAudit_EarliestPeriod_ArithmeticOnly(t *testing.T) {
	// GIVEN: Only one period on record
	// WHEN: Auditing it
	// THEN: No continuity findings and no predecessor reference

	reporter, store := newTestReporter(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, storedPeriod(2025, time.November, 15)))

	rep, err := reporter.Audit(ctx, paystub.NewDate(2025, time.November, 15))
	require.NoError(t, err)

	assert.True(t, rep.PreviousPeriodEnd.IsZero())
	assert.Empty(t, rep.ContinuityFindings)
	assert.True(t, rep.Clean())
	assert.Zero(t, rep.Errors())
	// 600/4000 * 100
	assert.True(t, d("15").Equal(rep.EffectiveTaxRate))
}

func TestAudit_RunsBothAuditors(t *testing.T) {
	// GIVEN: A period with a net mismatch and a new deduction code
	// WHEN: Auditing
	// THEN: Both auditors contribute findings

	reporter, store := newTestReporter(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, storedPeriod(2025, time.November, 15)))

	current := storedPeriod(2025, time.November, 29)
	current.Net = d("3000.00")
	current.Deductions = append(current.Deductions,
		paystub.Deduction{Code: paystub.DeductionUnionDues, Amount: d("30.00")})
	require.NoError(t, store.Put(ctx, current))

	rep, err := reporter.Audit(ctx, current.PeriodEnd)
	require.NoError(t, err)

	assert.Equal(t, "2025-11-15", rep.PreviousPeriodEnd.String())
	require.Len(t, rep.ArithmeticFindings, 1)
	assert.Equal(t, paystub.FindingNetPayMismatch, rep.ArithmeticFindings[0].Kind)
	require.Len(t, rep.ContinuityFindings, 1)
	assert.Equal(t, paystub.FindingNewDeductionCode, rep.ContinuityFindings[0].Kind)
	assert.False(t, rep.Clean())
	assert.Equal(t, 2, rep.Errors())
}

func TestAudit_UnknownDate(t *testing.T) {
	reporter, _ := newTestReporter(t)

	_, err := reporter.Audit(context.Background(), paystub.NewDate(2025, time.January, 1))
	assert.ErrorIs(t, err, paystub.ErrPeriodNotFound)
}

func TestAuditAll_Chronological(t *testing.T) {
	reporter, store := newTestReporter(t)
	ctx := context.Background()

	// Out of order on purpose.
	require.NoError(t, store.Put(ctx, storedPeriod(2025, time.December, 13)))
	require.NoError(t, store.Put(ctx, storedPeriod(2025, time.November, 15)))
	require.NoError(t, store.Put(ctx, storedPeriod(2025, time.November, 29)))

	reps, err := reporter.AuditAll(ctx)
	require.NoError(t, err)

	require.Len(t, reps, 3)
	assert.Equal(t, "2025-11-15", reps[0].Period.PeriodEnd.String())
	assert.True(t, reps[0].PreviousPeriodEnd.IsZero())
	assert.Equal(t, "2025-11-15", reps[1].PreviousPeriodEnd.String())
	assert.Equal(t, "2025-11-29", reps[2].PreviousPeriodEnd.String())
}

func TestTrends(t *testing.T) {
	reporter, store := newTestReporter(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, storedPeriod(2025, time.November, 15)))
	projection := storedPeriod(2025, time.November, 29)
	projection.Speculative = true
	require.NoError(t, store.Put(ctx, projection))

	points, err := reporter.Trends(ctx)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, "2025-11-15", points[0].PeriodEnd.String())
	assert.True(t, d("4000.00").Equal(points[0].Gross))
	assert.False(t, points[0].Speculative)
	assert.True(t, points[1].Speculative, "speculative periods stay visible in trends")
}
