/*
Package sqlite provides the SQLite-backed Store implementation.

PURPOSE:
  Persists the pay-period time series with total-replacement semantics.
  The same patterns apply to PostgreSQL; only minor dialect differences.

REPLACEMENT ENFORCEMENT:
  Put runs as ONE SQL transaction: delete the parent row and every child
  line item, then reinsert from the new record. There is no field-wise
  UPDATE path, so a reader can never observe a record that mixes two
  documents' data.

KEY TABLES:
  paystubs:       One row per pay period, keyed by period_ending
  earnings:       Earnings line items (code, rate, hours, amount)
  deductions:     Ordered deduction line items
  leave_balances: Leave rows in hours.minutes encoding
  tax_entries:    Tax-classified deductions with effective rates

CONCURRENCY:
  sync.RWMutex serializes writers within the process; WAL mode lets a
  concurrently running dashboard read without blocking the ingestion run.
  Numeric values are stored as TEXT to preserve decimal exactness.

USAGE:
  st, err := sqlite.New("./data/paystubs.db")
  if err != nil { log.Fatal(err) }
  defer st.Close()

SEE ALSO:
  - store/store.go: Interface definition and contracts
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/paystub-audit/paystub"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS paystubs (
		period_ending TEXT PRIMARY KEY,
		pay_date TEXT,
		agency TEXT,
		gross_pay TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		remarks TEXT,
		file_source TEXT,
		speculative INTEGER NOT NULL DEFAULT 0,
		reconciled INTEGER NOT NULL DEFAULT 0
	);

	-- Reconciliation scans speculative unreconciled records by date.
	CREATE INDEX IF NOT EXISTS idx_paystubs_speculative
		ON paystubs(speculative, reconciled, period_ending);

	CREATE TABLE IF NOT EXISTS earnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_ending TEXT NOT NULL REFERENCES paystubs(period_ending) ON DELETE CASCADE,
		code TEXT NOT NULL,
		rate TEXT NOT NULL,
		hours TEXT NOT NULL,
		amount TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_earnings_period ON earnings(period_ending);

	CREATE TABLE IF NOT EXISTS deductions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_ending TEXT NOT NULL REFERENCES paystubs(period_ending) ON DELETE CASCADE,
		code TEXT NOT NULL,
		amount TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deductions_period ON deductions(period_ending);

	CREATE TABLE IF NOT EXISTS leave_balances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_ending TEXT NOT NULL REFERENCES paystubs(period_ending) ON DELETE CASCADE,
		leave_type TEXT NOT NULL,
		balance_start TEXT NOT NULL,
		earned TEXT NOT NULL,
		used TEXT NOT NULL,
		balance_end TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leave_period ON leave_balances(period_ending);

	CREATE TABLE IF NOT EXISTS tax_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_ending TEXT NOT NULL REFERENCES paystubs(period_ending) ON DELETE CASCADE,
		tax_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		rate TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_taxes_period ON tax_entries(period_ending);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITES - Total replacement inside one transaction
// =============================================================================

// Put inserts or totally replaces the record for p.PeriodEnd.
func (s *Store) Put(ctx context.Context, p *paystub.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.putTx(ctx, tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// PutBatch replaces multiple records atomically.
func (s *Store) PutBatch(ctx context.Context, periods []*paystub.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range periods {
		if err := s.putTx(ctx, tx, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) putTx(ctx context.Context, tx *sql.Tx, p *paystub.PayPeriod) error {
	key := p.PeriodEnd.String()

	// Delete-then-insert keeps replacement total. Child rows go via CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM paystubs WHERE period_ending = ?`, key); err != nil {
		return fmt.Errorf("failed to clear period %s: %w", key, err)
	}

	payDate := ""
	if !p.PayDate.IsZero() {
		payDate = p.PayDate.String()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO paystubs
		(period_ending, pay_date, agency, gross_pay, net_pay, total_deductions,
		 remarks, file_source, speculative, reconciled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, payDate, p.Agency,
		p.Gross.String(), p.Net.String(), p.TotalDeductions.String(),
		p.Remarks, p.SourceFile, boolToInt(p.Speculative), boolToInt(p.Reconciled),
	)
	if err != nil {
		return fmt.Errorf("failed to insert period %s: %w", key, err)
	}

	for _, e := range p.Earnings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO earnings (period_ending, code, rate, hours, amount)
			VALUES (?, ?, ?, ?, ?)`,
			key, e.Code, e.Rate.String(), e.Hours.String(), e.Amount.String())
		if err != nil {
			return fmt.Errorf("failed to insert earning: %w", err)
		}
	}
	for _, d := range p.Deductions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deductions (period_ending, code, amount)
			VALUES (?, ?, ?)`,
			key, d.Code, d.Amount.String())
		if err != nil {
			return fmt.Errorf("failed to insert deduction: %w", err)
		}
	}
	for _, l := range p.Leave {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leave_balances (period_ending, leave_type, balance_start, earned, used, balance_end)
			VALUES (?, ?, ?, ?, ?, ?)`,
			key, l.Type, l.Start.String(), l.Earned.String(), l.Used.String(), l.Ending.String())
		if err != nil {
			return fmt.Errorf("failed to insert leave balance: %w", err)
		}
	}
	for _, t := range p.Taxes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tax_entries (period_ending, tax_type, amount, rate)
			VALUES (?, ?, ?, ?)`,
			key, t.Type, t.Amount.String(), t.Rate.String())
		if err != nil {
			return fmt.Errorf("failed to insert tax entry: %w", err)
		}
	}

	return nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns the record for a period-end date.
func (s *Store) Get(ctx context.Context, date paystub.Date) (*paystub.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadOne(ctx, `SELECT `+stubColumns+` FROM paystubs WHERE period_ending = ?`, date.String())
}

// Previous returns the record with the greatest period-end date strictly
// less than date. Date strings are ISO, so lexical order is date order.
func (s *Store) Previous(ctx context.Context, date paystub.Date) (*paystub.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.loadOne(ctx, `
		SELECT `+stubColumns+` FROM paystubs
		WHERE period_ending < ?
		ORDER BY period_ending DESC LIMIT 1`, date.String())
	if errors.Is(err, paystub.ErrPeriodNotFound) {
		return nil, paystub.ErrNoPriorPeriod
	}
	return p, err
}

// All returns every record ordered by period-end date ascending.
func (s *Store) All(ctx context.Context) ([]*paystub.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadMany(ctx, `SELECT `+stubColumns+` FROM paystubs ORDER BY period_ending ASC`)
}

// Unreconciled returns speculative unreconciled records up to a date.
func (s *Store) Unreconciled(ctx context.Context, upTo paystub.Date) ([]*paystub.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadMany(ctx, `
		SELECT `+stubColumns+` FROM paystubs
		WHERE speculative = 1 AND reconciled = 0 AND period_ending <= ?
		ORDER BY period_ending ASC`, upTo.String())
}

const stubColumns = `period_ending, pay_date, agency, gross_pay, net_pay,
	total_deductions, remarks, file_source, speculative, reconciled`

func (s *Store) loadOne(ctx context.Context, query string, args ...any) (*paystub.PayPeriod, error) {
	rows, err := s.loadMany(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, paystub.ErrPeriodNotFound
	}
	return rows[0], nil
}

func (s *Store) loadMany(ctx context.Context, query string, args ...any) ([]*paystub.PayPeriod, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query paystubs: %w", err)
	}
	defer rows.Close()

	var periods []*paystub.PayPeriod
	for rows.Next() {
		p, err := scanStub(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range periods {
		if err := s.loadLineItems(ctx, p); err != nil {
			return nil, err
		}
	}
	return periods, nil
}

func scanStub(rows *sql.Rows) (*paystub.PayPeriod, error) {
	var (
		p                       paystub.PayPeriod
		periodEnding, payDate   string
		gross, net, totalDeduct string
		speculative, reconciled int
		agency, remarks, source sql.NullString
	)

	err := rows.Scan(&periodEnding, &payDate, &agency, &gross, &net,
		&totalDeduct, &remarks, &source, &speculative, &reconciled)
	if err != nil {
		return nil, fmt.Errorf("failed to scan paystub: %w", err)
	}

	p.PeriodEnd, err = paystub.ParseDate(periodEnding)
	if err != nil {
		return nil, fmt.Errorf("corrupt period_ending %q: %w", periodEnding, err)
	}
	if payDate != "" {
		p.PayDate, _ = paystub.ParseDate(payDate)
	}
	p.Agency = agency.String
	p.Remarks = remarks.String
	p.SourceFile = source.String
	p.Gross = mustDecimal(gross)
	p.Net = mustDecimal(net)
	p.TotalDeductions = mustDecimal(totalDeduct)
	p.Speculative = speculative != 0
	p.Reconciled = reconciled != 0
	return &p, nil
}

func (s *Store) loadLineItems(ctx context.Context, p *paystub.PayPeriod) error {
	key := p.PeriodEnd.String()

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, rate, hours, amount FROM earnings WHERE period_ending = ? ORDER BY id`, key)
	if err != nil {
		return err
	}
	for rows.Next() {
		var e paystub.Earning
		var rate, hours, amount string
		if err := rows.Scan(&e.Code, &rate, &hours, &amount); err != nil {
			rows.Close()
			return err
		}
		e.Rate, e.Hours, e.Amount = mustDecimal(rate), mustDecimal(hours), mustDecimal(amount)
		p.Earnings = append(p.Earnings, e)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT code, amount FROM deductions WHERE period_ending = ? ORDER BY id`, key)
	if err != nil {
		return err
	}
	for rows.Next() {
		var d paystub.Deduction
		var amount string
		if err := rows.Scan(&d.Code, &amount); err != nil {
			rows.Close()
			return err
		}
		d.Amount = mustDecimal(amount)
		p.Deductions = append(p.Deductions, d)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT leave_type, balance_start, earned, used, balance_end
		 FROM leave_balances WHERE period_ending = ? ORDER BY id`, key)
	if err != nil {
		return err
	}
	for rows.Next() {
		var l paystub.LeaveEntry
		var start, earned, used, ending string
		if err := rows.Scan(&l.Type, &start, &earned, &used, &ending); err != nil {
			rows.Close()
			return err
		}
		l.Start, l.Earned, l.Used, l.Ending =
			mustDecimal(start), mustDecimal(earned), mustDecimal(used), mustDecimal(ending)
		p.Leave = append(p.Leave, l)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		`SELECT tax_type, amount, rate FROM tax_entries WHERE period_ending = ? ORDER BY id`, key)
	if err != nil {
		return err
	}
	for rows.Next() {
		var t paystub.TaxEntry
		var amount, rate string
		if err := rows.Scan(&t.Type, &amount, &rate); err != nil {
			rows.Close()
			return err
		}
		t.Amount, t.Rate = mustDecimal(amount), mustDecimal(rate)
		p.Taxes = append(p.Taxes, t)
	}
	rows.Close()

	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
