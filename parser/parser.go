/*
Package parser extracts a structured PayPeriod from one HTML paystub.

PURPOSE:
  Paystub HTML has no formal schema: label text, casing, whitespace and
  table layout all vary between document revisions. The parser therefore
  never relies on positional offsets. The extraction strategy is:

    1. Flatten the document into tables of cell text (golang.org/x/net/html).
    2. Scalar fields (gross, net, pay date, agency, remarks): find a cell
       whose normalized text matches a known label variant and read the
       adjacent cell as the value.
    3. Section tables (earnings, deductions, leave): classify each table by
       scoring its header row against known column labels, then map the
       value columns by header position.
    4. Line-item labels resolve through the open category vocabulary;
       unknown labels become new categories instead of being dropped.

CONTRACT:
  Parse(doc, periodEnd) -> *paystub.PayPeriod | *paystub.ParseError

  The pay-period-end date is supplied by the caller (it comes from the file
  name, not the document). Gross pay and net pay are required; a document
  missing either fails with MissingRequiredField. Everything else is
  optional, and an absent section is recorded as absent, not as zero.

  Parse has no side effects and never writes to the store.
*/
package parser

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/warp/paystub-audit/paystub"
)

// Parser turns raw paystub HTML into PayPeriod records. Safe for reuse
// across documents; the vocabulary accumulates categories as it sees them.
type Parser struct {
	vocab *paystub.Vocabulary
}

// New creates a parser resolving labels through the given vocabulary.
func New(vocab *paystub.Vocabulary) *Parser {
	if vocab == nil {
		vocab = paystub.DefaultVocabulary()
	}
	return &Parser{vocab: vocab}
}

// Vocabulary returns the vocabulary this parser resolves labels through.
func (p *Parser) Vocabulary() *paystub.Vocabulary { return p.vocab }

// Parse extracts one pay period from an HTML document. The period-end date
// comes from the caller; sourceFile is recorded on the period for tracing.
func (p *Parser) Parse(doc []byte, periodEnd paystub.Date, sourceFile string) (*paystub.PayPeriod, error) {
	if periodEnd.IsZero() {
		return nil, &paystub.ParseError{Field: "period_end", Err: paystub.ErrMissingRequiredField}
	}

	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, &paystub.ParseError{PeriodEnd: periodEnd, Err: paystub.ErrUnrecognizedDocument}
	}

	tables := collectTables(root)
	if len(tables) == 0 {
		return nil, &paystub.ParseError{PeriodEnd: periodEnd, Err: paystub.ErrUnrecognizedDocument}
	}

	period := &paystub.PayPeriod{PeriodEnd: periodEnd, SourceFile: sourceFile}

	grossFound := p.scanScalars(tables, period)

	for _, t := range tables {
		switch classifyTable(t) {
		case sectionEarnings:
			p.parseEarnings(t, period)
		case sectionLeave:
			p.parseLeave(t, period)
		case sectionDeductions:
			p.parseDeductions(t, period)
		}
	}

	if !grossFound.gross {
		return nil, &paystub.ParseError{Field: "gross_pay", PeriodEnd: periodEnd, Err: paystub.ErrMissingRequiredField}
	}
	if !grossFound.net {
		return nil, &paystub.ParseError{Field: "net_pay", PeriodEnd: periodEnd, Err: paystub.ErrMissingRequiredField}
	}

	period.DeriveTaxes(p.vocab)
	return period, nil
}

// =============================================================================
// SCALAR FIELDS
// =============================================================================

type scalarFlags struct {
	gross bool
	net   bool
}

// scanScalars walks every row of every table looking for label/value cell
// pairs. The first match wins for each field; later tables repeat labels
// in year-to-date sections which must not overwrite current values.
func (p *Parser) scanScalars(tables []table, period *paystub.PayPeriod) scalarFlags {
	var found scalarFlags
	var agencyFound, payDateFound, totalFound, remarksFound bool

	for _, t := range tables {
		for _, row := range t.rows {
			for i, cell := range row {
				norm := normalize(cell)
				if norm == "" {
					continue
				}
				value, ok := adjacentValue(row, i)

				switch {
				case !found.gross && matchesAny(norm, grossLabels):
					if amount, ok2 := parseMoney(value); ok && ok2 {
						period.Gross = amount
						found.gross = true
					}
				case !found.net && matchesAny(norm, netLabels):
					if amount, ok2 := parseMoney(value); ok && ok2 {
						period.Net = amount
						found.net = true
					}
				case !totalFound && matchesAny(norm, totalDeductionsLabels):
					if amount, ok2 := parseMoney(value); ok && ok2 {
						period.TotalDeductions = amount
						totalFound = true
					}
				case !payDateFound && matchesAny(norm, payDateLabels):
					if d, err := paystub.ParseDocumentDate(value); ok && err == nil {
						period.PayDate = d
						payDateFound = true
					}
				case matchesAny(norm, periodEndingLabels):
					// Informational only: the authoritative date comes from
					// the caller. The document's copy is not trusted.
				case !agencyFound && matchesAny(norm, agencyLabels):
					if ok && value != "" {
						period.Agency = value
						agencyFound = true
					}
				case !remarksFound && matchesAny(norm, remarksLabels):
					if ok && value != "" {
						period.Remarks = value
						remarksFound = true
					}
				}
			}
		}
	}
	return found
}

// adjacentValue returns the next non-empty cell after index i in the row.
func adjacentValue(row []string, i int) (string, bool) {
	for j := i + 1; j < len(row); j++ {
		if v := strings.TrimSpace(row[j]); v != "" {
			return v, true
		}
	}
	return "", false
}

// =============================================================================
// SECTION TABLES
// =============================================================================

type section int

const (
	sectionUnknown section = iota
	sectionEarnings
	sectionDeductions
	sectionLeave
)

// classifyTable scores the first plausible header row. A leave table has
// balance columns; an earnings table has rate and hours; a deductions
// table has just a type and amount column.
func classifyTable(t table) section {
	header, _ := headerRow(t)
	if header == nil {
		return sectionUnknown
	}

	var hasType, hasRate, hasHours, hasAmount, hasStart, hasEnding bool
	for _, cell := range header {
		norm := normalize(cell)
		switch {
		case matchesAny(norm, typeColumns):
			hasType = true
		case matchesAny(norm, rateColumns):
			hasRate = true
		case matchesAny(norm, hoursColumns):
			hasHours = true
		case matchesAny(norm, amountColumns):
			hasAmount = true
		case matchesAny(norm, leaveStartColumns):
			hasStart = true
		case matchesAny(norm, leaveEndingColumns):
			hasEnding = true
		}
	}

	switch {
	case hasType && hasStart && hasEnding:
		return sectionLeave
	case hasType && hasRate && hasHours:
		return sectionEarnings
	case hasType && hasAmount:
		return sectionDeductions
	default:
		return sectionUnknown
	}
}

// headerRow finds the first row with at least two recognized column labels.
func headerRow(t table) ([]string, int) {
	for idx, row := range t.rows {
		hits := 0
		for _, cell := range row {
			norm := normalize(cell)
			if matchesAny(norm, typeColumns) || matchesAny(norm, rateColumns) ||
				matchesAny(norm, hoursColumns) || matchesAny(norm, amountColumns) ||
				matchesAny(norm, leaveStartColumns) || matchesAny(norm, leaveEarnedColumns) ||
				matchesAny(norm, leaveUsedColumns) || matchesAny(norm, leaveEndingColumns) {
				hits++
			}
		}
		if hits >= 2 {
			return row, idx
		}
	}
	return nil, -1
}

// columnIndex returns the index of the first header cell matching labels.
func columnIndex(header []string, labels []string) int {
	for i, cell := range header {
		if matchesAny(normalize(cell), labels) {
			return i
		}
	}
	return -1
}

// skipRow filters out blank and summary rows within a section table.
func skipRow(label string) bool {
	norm := normalize(label)
	return norm == "" || norm == "total" || norm == "totals" || strings.HasPrefix(norm, "total ")
}

func (p *Parser) parseEarnings(t table, period *paystub.PayPeriod) {
	header, start := headerRow(t)
	typeCol := columnIndex(header, typeColumns)
	rateCol := columnIndex(header, rateColumns)
	hoursCol := columnIndex(header, hoursColumns)
	amountCol := columnIndex(header, amountColumns)
	if typeCol < 0 {
		return
	}

	for _, row := range t.rows[start+1:] {
		label := cellAt(row, typeCol)
		if skipRow(label) {
			continue
		}
		e := paystub.Earning{Code: p.vocab.Resolve(paystub.KindEarning, label)}
		e.Rate, _ = parseMoney(cellAt(row, rateCol))
		e.Hours, _ = parseMoney(cellAt(row, hoursCol))
		e.Amount, _ = parseMoney(cellAt(row, amountCol))
		period.Earnings = append(period.Earnings, e)
	}
}

func (p *Parser) parseDeductions(t table, period *paystub.PayPeriod) {
	header, start := headerRow(t)
	typeCol := columnIndex(header, typeColumns)
	amountCol := columnIndex(header, amountColumns)
	if typeCol < 0 || amountCol < 0 {
		return
	}

	for _, row := range t.rows[start+1:] {
		label := cellAt(row, typeCol)
		if skipRow(label) {
			continue
		}
		amount, ok := parseMoney(cellAt(row, amountCol))
		if !ok {
			continue
		}
		period.Deductions = append(period.Deductions, paystub.Deduction{
			Code:   p.vocab.Resolve(paystub.KindDeduction, label),
			Amount: amount,
		})
	}
}

func (p *Parser) parseLeave(t table, period *paystub.PayPeriod) {
	header, start := headerRow(t)
	typeCol := columnIndex(header, typeColumns)
	startCol := columnIndex(header, leaveStartColumns)
	earnedCol := columnIndex(header, leaveEarnedColumns)
	usedCol := columnIndex(header, leaveUsedColumns)
	endingCol := columnIndex(header, leaveEndingColumns)
	if typeCol < 0 || startCol < 0 || endingCol < 0 {
		return
	}

	for _, row := range t.rows[start+1:] {
		label := cellAt(row, typeCol)
		if skipRow(label) {
			continue
		}
		entry := paystub.LeaveEntry{Type: p.vocab.Resolve(paystub.KindLeave, label)}
		entry.Start, _ = parseMoney(cellAt(row, startCol))
		entry.Earned, _ = parseMoney(cellAt(row, earnedCol))
		entry.Used, _ = parseMoney(cellAt(row, usedCol))
		entry.Ending, _ = parseMoney(cellAt(row, endingCol))
		period.Leave = append(period.Leave, entry)
	}
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// =============================================================================
// HTML FLATTENING
// =============================================================================

type table struct {
	rows [][]string
}

// collectTables returns every <table> in the document as rows of cell text.
// Rows belonging to nested tables are attributed to the inner table only.
func collectTables(root *html.Node) []table {
	var tables []table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, table{rows: tableRows(n)})
			// Continue into the subtree: nested tables are collected too.
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return tables
}

// tableRows collects the <tr> rows directly owned by this table, skipping
// rows that belong to a nested table.
func tableRows(tbl *html.Node) [][]string {
	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table":
				if n != tbl {
					return // nested table owns its rows
				}
			case "tr":
				rows = append(rows, rowCells(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tbl)
	return rows
}

// rowCells returns the text of each <td>/<th> in a row.
func rowCells(tr *html.Node) []string {
	var cells []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			cells = append(cells, nodeText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return cells
}

// nodeText concatenates the text content beneath a node, collapsing
// whitespace between fragments.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// =============================================================================
// VALUE CLEANING
// =============================================================================

// parseMoney cleans a document value ("$1,234.56", " 36.50 ") into a
// decimal. Returns ok=false for empty or non-numeric text; absence stays
// distinct from a present zero.
func parseMoney(text string) (decimal.Decimal, bool) {
	clean := strings.TrimSpace(text)
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "$", "")
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = "-" + strings.Trim(clean, "()")
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
