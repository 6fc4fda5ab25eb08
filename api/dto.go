/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model (decimal amounts, Date values) from the
  external API contract: money travels as strings to avoid float
  rounding in clients, dates as ISO 8601.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - paystub/types.go: Domain model these wrap
*/
package api

import (
	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/report"
	"github.com/warp/paystub-audit/shadow"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PeriodDTO represents a stored pay period in API responses.
type PeriodDTO struct {
	PeriodEnd       string         `json:"period_end"`
	PayDate         string         `json:"pay_date,omitempty"`
	Agency          string         `json:"agency,omitempty"`
	Gross           string         `json:"gross_pay"`
	Net             string         `json:"net_pay"`
	TotalDeductions string         `json:"total_deductions"`
	Earnings        []EarningDTO   `json:"earnings"`
	Deductions      []DeductionDTO `json:"deductions"`
	Leave           []LeaveDTO     `json:"leave"`
	Taxes           []TaxDTO       `json:"taxes"`
	Remarks         string         `json:"remarks,omitempty"`
	SourceFile      string         `json:"source_file,omitempty"`
	Speculative     bool           `json:"speculative"`
	Reconciled      bool           `json:"reconciled"`
}

type EarningDTO struct {
	Code   string `json:"code"`
	Rate   string `json:"rate"`
	Hours  string `json:"hours"`
	Amount string `json:"amount"`
}

type DeductionDTO struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

type LeaveDTO struct {
	Type   string `json:"type"`
	Start  string `json:"start"`
	Earned string `json:"earned"`
	Used   string `json:"used"`
	Ending string `json:"ending"`
}

type TaxDTO struct {
	Type   string `json:"type"`
	Amount string `json:"amount"`
	Rate   string `json:"rate"`
}

// FindingDTO represents one audit finding.
type FindingDTO struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Category string `json:"category,omitempty"`
	Field    string `json:"field,omitempty"`
	Expected string `json:"expected"`
	Reported string `json:"reported"`
	Detail   string `json:"detail,omitempty"`
}

// AuditReportDTO is the full audit result for one period.
type AuditReportDTO struct {
	PeriodEnd          string       `json:"period_end"`
	PreviousPeriodEnd  string       `json:"previous_period_end,omitempty"`
	EffectiveTaxRate   string       `json:"effective_tax_rate"`
	Clean              bool         `json:"clean"`
	ArithmeticFindings []FindingDTO `json:"arithmetic_findings"`
	ContinuityFindings []FindingDTO `json:"continuity_findings"`
}

// TrendPointDTO is one period's headline figures for charting.
type TrendPointDTO struct {
	PeriodEnd        string `json:"period_end"`
	Gross            string `json:"gross_pay"`
	Net              string `json:"net_pay"`
	TotalDeductions  string `json:"total_deductions"`
	EffectiveTaxRate string `json:"effective_tax_rate"`
	Speculative      bool   `json:"speculative"`
}

// IngestResponse reports one ingested document.
type IngestResponse struct {
	PeriodEnd string          `json:"period_end"`
	Replaced  bool            `json:"replaced"`
	Report    *AuditReportDTO `json:"report"`
}

// ReconcileResponse reports one reconciliation run.
type ReconcileResponse struct {
	RunID      string       `json:"run_id"`
	ActualDate string       `json:"actual_date"`
	Reconciled []string     `json:"reconciled_periods"`
	Expected   string       `json:"expected_gross"`
	Actual     string       `json:"actual_gross"`
	Findings   []FindingDTO `json:"findings"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// IngestRequest carries one HTML paystub document. The period-end date
// comes from the caller, not from the document body.
type IngestRequest struct {
	PeriodEnd  string `json:"period_end"`
	SourceFile string `json:"source_file,omitempty"`
	HTML       string `json:"html"`
}

// ShadowRequest records a speculative period from entered hours.
// Hours are keyed by earning category label (resolved through the
// vocabulary, so "Night Differential" and "night_diff" both work).
type ShadowRequest struct {
	PeriodEnd string            `json:"period_end"`
	Hours     map[string]string `json:"hours"`
}

// ReconcileRequest names the real payout to reconcile against.
type ReconcileRequest struct {
	ActualDate string `json:"actual_date"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPeriodDTO(p *paystub.PayPeriod) PeriodDTO {
	dto := PeriodDTO{
		PeriodEnd:       p.PeriodEnd.String(),
		Agency:          p.Agency,
		Gross:           p.Gross.StringFixed(2),
		Net:             p.Net.StringFixed(2),
		TotalDeductions: p.TotalDeductions.StringFixed(2),
		Earnings:        []EarningDTO{},
		Deductions:      []DeductionDTO{},
		Leave:           []LeaveDTO{},
		Taxes:           []TaxDTO{},
		Remarks:         p.Remarks,
		SourceFile:      p.SourceFile,
		Speculative:     p.Speculative,
		Reconciled:      p.Reconciled,
	}
	if !p.PayDate.IsZero() {
		dto.PayDate = p.PayDate.String()
	}
	for _, e := range p.Earnings {
		dto.Earnings = append(dto.Earnings, EarningDTO{
			Code:   e.Code,
			Rate:   e.Rate.String(),
			Hours:  e.Hours.String(),
			Amount: e.Amount.StringFixed(2),
		})
	}
	for _, d := range p.Deductions {
		dto.Deductions = append(dto.Deductions, DeductionDTO{
			Code:   d.Code,
			Amount: d.Amount.StringFixed(2),
		})
	}
	for _, l := range p.Leave {
		dto.Leave = append(dto.Leave, LeaveDTO{
			Type:   l.Type,
			Start:  l.Start.String(),
			Earned: l.Earned.String(),
			Used:   l.Used.String(),
			Ending: l.Ending.String(),
		})
	}
	for _, t := range p.Taxes {
		dto.Taxes = append(dto.Taxes, TaxDTO{
			Type:   t.Type,
			Amount: t.Amount.StringFixed(2),
			Rate:   t.Rate.StringFixed(2),
		})
	}
	return dto
}

func toFindingDTOs(findings []paystub.Finding) []FindingDTO {
	dtos := make([]FindingDTO, 0, len(findings))
	for _, f := range findings {
		dtos = append(dtos, FindingDTO{
			Kind:     string(f.Kind),
			Severity: string(f.Severity),
			Category: f.Category,
			Field:    f.Field,
			Expected: f.Expected.String(),
			Reported: f.Reported.String(),
			Detail:   f.Detail,
		})
	}
	return dtos
}

func toReportDTO(rep *report.AuditReport) *AuditReportDTO {
	dto := &AuditReportDTO{
		PeriodEnd:          rep.Period.PeriodEnd.String(),
		EffectiveTaxRate:   rep.EffectiveTaxRate.StringFixed(2),
		Clean:              rep.Clean(),
		ArithmeticFindings: toFindingDTOs(rep.ArithmeticFindings),
		ContinuityFindings: toFindingDTOs(rep.ContinuityFindings),
	}
	if !rep.PreviousPeriodEnd.IsZero() {
		dto.PreviousPeriodEnd = rep.PreviousPeriodEnd.String()
	}
	return dto
}

func toReconcileResponse(res *shadow.Result) ReconcileResponse {
	dates := make([]string, 0, len(res.Reconciled))
	for _, d := range res.Reconciled {
		dates = append(dates, d.String())
	}
	return ReconcileResponse{
		RunID:      res.RunID,
		ActualDate: res.ActualDate.String(),
		Reconciled: dates,
		Expected:   res.Expected.StringFixed(2),
		Actual:     res.Actual.StringFixed(2),
		Findings:   toFindingDTOs(res.Findings),
	}
}
