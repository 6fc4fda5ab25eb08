/*
handlers_test.go - HTTP-level tests for the API

Tests for:
- Document ingestion including replacement and rejection
- Period retrieval and audit reports
- Shadow recording and lump-sum reconciliation
- Error status mapping
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/paystub-audit/api"
	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, paystub.DefaultTolerances())
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server, store
}

const sampleDocument = `<table>
  <tr><td>Agency</td><td>FAA</td></tr>
  <tr><td>Gross Pay</td><td>$4,600.00</td></tr>
  <tr><td>Net Pay</td><td>$3,465.00</td></tr>
</table>
<table>
  <tr><th>Type</th><th>Rate</th><th>Hours</th><th>Amount</th></tr>
  <tr><td>Regular Pay</td><td>57.50</td><td>80.00</td><td>4600.00</td></tr>
</table>
<table>
  <tr><th>Type</th><th>Amount</th></tr>
  <tr><td>Federal Tax</td><td>690.00</td></tr>
  <tr><td>OASDI</td><td>285.20</td></tr>
  <tr><td>Health Insurance</td><td>159.80</td></tr>
</table>`

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func ingest(t *testing.T, server *httptest.Server, date string) api.IngestResponse {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/ingest", api.IngestRequest{
		PeriodEnd:  date,
		SourceFile: date + ".html",
		HTML:       sampleDocument,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.IngestResponse](t, resp)
}

// =============================================================================
// INGESTION
// =============================================================================

func TestIngest_StoresAndReports(t *testing.T) {
	server, store := newTestServer(t)

	out := ingest(t, server, "2025-11-29")

	assert.Equal(t, "2025-11-29", out.PeriodEnd)
	assert.False(t, out.Replaced)
	require.NotNil(t, out.Report)
	assert.True(t, out.Report.Clean)

	stored, err := store.Get(context.Background(), paystub.NewDate(2025, time.November, 29))
	require.NoError(t, err)
	assert.Equal(t, "FAA", stored.Agency)
}

func TestIngest_SameDateReplaces(t *testing.T) {
	server, store := newTestServer(t)

	ingest(t, server, "2025-11-29")
	out := ingest(t, server, "2025-11-29")

	assert.True(t, out.Replaced)

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIngest_BadDate(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/ingest", api.IngestRequest{
		PeriodEnd: "11/29/2025",
		HTML:      sampleDocument,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngest_UnparseableDocument(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/ingest", api.IngestRequest{
		PeriodEnd: "2025-11-29",
		HTML:      "<p>not a paystub</p>",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	out := decode[api.ErrorResponse](t, resp)
	assert.NotEmpty(t, out.Error)
}

// =============================================================================
// RETRIEVAL
// =============================================================================

func TestGetPeriod(t *testing.T) {
	server, _ := newTestServer(t)
	ingest(t, server, "2025-11-29")

	resp, err := http.Get(server.URL + "/api/periods/2025-11-29")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[api.PeriodDTO](t, resp)
	assert.Equal(t, "4600.00", out.Gross)
	assert.Equal(t, "3465.00", out.Net)
	assert.Len(t, out.Deductions, 3)
	assert.Len(t, out.Taxes, 2, "federal and OASDI classify as taxes")
}

func TestGetPeriod_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/periods/2025-01-01")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetReport_FlagsContinuity(t *testing.T) {
	server, store := newTestServer(t)
	ingest(t, server, "2025-11-15")
	ingest(t, server, "2025-11-29")

	// Sneak a new deduction into the later period.
	ctx := context.Background()
	p, err := store.Get(ctx, paystub.NewDate(2025, time.November, 29))
	require.NoError(t, err)
	p.Deductions = append(p.Deductions, paystub.Deduction{
		Code: "garnishment", Amount: p.Deductions[0].Amount,
	})
	require.NoError(t, store.Put(ctx, p))

	resp, err := http.Get(server.URL + "/api/periods/2025-11-29/report")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[api.AuditReportDTO](t, resp)
	assert.Equal(t, "2025-11-15", out.PreviousPeriodEnd)
	require.NotEmpty(t, out.ContinuityFindings)
	assert.Equal(t, "new_deduction_code", out.ContinuityFindings[0].Kind)
}

func TestGetTrends(t *testing.T) {
	server, _ := newTestServer(t)
	ingest(t, server, "2025-11-15")
	ingest(t, server, "2025-11-29")

	resp, err := http.Get(server.URL + "/api/trends")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[[]api.TrendPointDTO](t, resp)
	require.Len(t, out, 2)
	assert.Equal(t, "2025-11-15", out[0].PeriodEnd)
	assert.Equal(t, "4600.00", out[0].Gross)
}

// =============================================================================
// SHADOW LEDGER
// =============================================================================

func TestShadowAndReconcile_EndToEnd(t *testing.T) {
	// GIVEN: One real period, then a payment interruption
	// WHEN: Recording two projections and reconciling a lump-sum payout
	// THEN: Projections price from the last known rate and flip terminal

	server, store := newTestServer(t)
	ingest(t, server, "2025-11-15")

	for _, date := range []string{"2025-11-29", "2025-12-13"} {
		resp := postJSON(t, server.URL+"/api/shadow", api.ShadowRequest{
			PeriodEnd: date,
			Hours:     map[string]string{"Regular Pay": "80.00"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		out := decode[api.PeriodDTO](t, resp)
		assert.True(t, out.Speculative)
		assert.Equal(t, "4600.00", out.Gross, "80h at the known 57.50 rate")
	}

	// The lump-sum payout arrives as a real document covering both
	// missed periods, so its gross is doubled.
	ingest(t, server, "2025-12-27")
	ctx := context.Background()
	payout, err := store.Get(ctx, paystub.NewDate(2025, time.December, 27))
	require.NoError(t, err)
	payout.Gross = payout.Gross.Add(payout.Gross)
	payout.Net = payout.Gross
	require.NoError(t, store.Put(ctx, payout))

	resp := postJSON(t, server.URL+"/api/reconcile", api.ReconcileRequest{ActualDate: "2025-12-27"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[api.ReconcileResponse](t, resp)
	assert.Equal(t, []string{"2025-11-29", "2025-12-13"}, out.Reconciled)
	assert.Equal(t, "9200.00", out.Expected)
	assert.Equal(t, "9200.00", out.Actual)
	assert.Empty(t, out.Findings)
}

func TestShadow_NoRateBasis(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/shadow", api.ShadowRequest{
		PeriodEnd: "2025-11-29",
		Hours:     map[string]string{"Regular Pay": "80.00"},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReconcile_NothingPending(t *testing.T) {
	server, _ := newTestServer(t)
	ingest(t, server, "2025-11-29")

	resp := postJSON(t, server.URL+"/api/reconcile", api.ReconcileRequest{ActualDate: "2025-11-29"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
