/*
Package sqlite provides a SQLite-backed implementation of chit.Store.

PURPOSE:
  Durable persistence for ventures, member monthly records, and venture
  monthly summaries. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

SCHEMA:
  ventures:          one row per venture; membership and exit dues as JSON
  member_records:    one row per (venture, member, month, year)
  venture_summaries: one row per (venture, month, year); loans/exits as JSON

  Monetary values are stored as TEXT (decimal string) - never floats.

MUTATION MODEL:
  Records are history: the engine creates and updates them, never deletes
  them, and no DELETE statement for them exists here. Summaries and ventures
  are upserted whole; the engine's per-venture lock serializes writers.

WAL MODE:
  The database is opened with WAL for better concurrency: readers don't
  block, a single writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/chit.db")   // or ":memory:"
  engine := chit.NewEngine(store, logger)

SEE ALSO:
  - chit/store.go: interface definition
  - chit/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/chit-ledger/chit"
)

// Store implements chit.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ventures (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contribution TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		repayment_rate TEXT NOT NULL,
		max_loan TEXT NOT NULL,
		wallet TEXT NOT NULL,
		status TEXT NOT NULL,
		members_json TEXT NOT NULL,
		exit_dues_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS member_records (
		venture_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		contribution TEXT NOT NULL,
		loan_outstanding TEXT NOT NULL,
		interest_due TEXT NOT NULL,
		emi_due TEXT NOT NULL,
		part_payment TEXT NOT NULL,
		remaining_loan TEXT NOT NULL,
		total_payable TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_at TEXT,
		PRIMARY KEY (venture_id, member_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_records_member
		ON member_records(venture_id, member_id, year, month);
	CREATE INDEX IF NOT EXISTS idx_records_period
		ON member_records(venture_id, year, month);

	CREATE TABLE IF NOT EXISTS venture_summaries (
		venture_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		opening_balance TEXT NOT NULL,
		total_contributions TEXT NOT NULL,
		total_emi TEXT NOT NULL,
		total_interest TEXT NOT NULL,
		total_part_payments TEXT NOT NULL,
		due_recovered TEXT NOT NULL,
		loans_json TEXT NOT NULL,
		exits_json TEXT NOT NULL,
		locked INTEGER NOT NULL DEFAULT 0,
		closing_total TEXT NOT NULL,
		remaining_balance TEXT NOT NULL,
		PRIMARY KEY (venture_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_venture
		ON venture_summaries(venture_id, year, month);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// VENTURES
// =============================================================================

func (s *Store) GetVenture(ctx context.Context, id chit.VentureID) (*chit.VentureAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, contribution, interest_rate, repayment_rate, max_loan,
		       wallet, status, members_json, exit_dues_json, created_at
		FROM ventures WHERE id = ?`, string(id))
	return scanVenture(row)
}

func (s *Store) PutVenture(ctx context.Context, v *chit.VentureAccount) error {
	membersJSON, err := json.Marshal(v.Members)
	if err != nil {
		return err
	}
	duesJSON, err := json.Marshal(v.ExitDues)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ventures (id, name, contribution, interest_rate, repayment_rate,
			max_loan, wallet, status, members_json, exit_dues_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			contribution = excluded.contribution,
			interest_rate = excluded.interest_rate,
			repayment_rate = excluded.repayment_rate,
			max_loan = excluded.max_loan,
			wallet = excluded.wallet,
			status = excluded.status,
			members_json = excluded.members_json,
			exit_dues_json = excluded.exit_dues_json`,
		string(v.ID), v.Name,
		v.Contribution.String(), v.InterestRate.String(), v.RepaymentRate.String(),
		v.MaxLoan.String(), v.Wallet.String(), string(v.Status),
		string(membersJSON), string(duesJSON),
		v.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func scanVenture(row *sql.Row) (*chit.VentureAccount, error) {
	var (
		v                     chit.VentureAccount
		id, status            string
		contribution, rate    string
		repayment, maxLoan    string
		wallet                string
		membersJSON, duesJSON string
		createdAt             string
	)
	err := row.Scan(&id, &v.Name, &contribution, &rate, &repayment, &maxLoan,
		&wallet, &status, &membersJSON, &duesJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, chit.ErrVentureNotFound
	}
	if err != nil {
		return nil, err
	}

	v.ID = chit.VentureID(id)
	v.Status = chit.VentureStatus(status)
	if v.Contribution, err = decimal.NewFromString(contribution); err != nil {
		return nil, err
	}
	if v.InterestRate, err = decimal.NewFromString(rate); err != nil {
		return nil, err
	}
	if v.RepaymentRate, err = decimal.NewFromString(repayment); err != nil {
		return nil, err
	}
	if v.MaxLoan, err = decimal.NewFromString(maxLoan); err != nil {
		return nil, err
	}
	if v.Wallet, err = decimal.NewFromString(wallet); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(membersJSON), &v.Members); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(duesJSON), &v.ExitDues); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// =============================================================================
// MEMBER MONTHLY RECORDS
// =============================================================================

const recordColumns = `venture_id, member_id, month, year, contribution,
	loan_outstanding, interest_due, emi_due, part_payment, remaining_loan,
	total_payable, status, paid_at`

func (s *Store) GetRecord(ctx context.Context, key chit.RecordKey) (*chit.MemberMonthlyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM member_records
		WHERE venture_id = ? AND member_id = ? AND month = ? AND year = ?`,
		string(key.Venture), string(key.Member), int(key.Period.Month), key.Period.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, chit.ErrRecordNotFound
	}
	return scanRecord(rows)
}

func (s *Store) PutRecord(ctx context.Context, rec *chit.MemberMonthlyRecord) error {
	var paidAt sql.NullString
	if rec.PaidAt != nil {
		paidAt = sql.NullString{String: rec.PaidAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(venture_id, member_id, month, year) DO UPDATE SET
			contribution = excluded.contribution,
			loan_outstanding = excluded.loan_outstanding,
			interest_due = excluded.interest_due,
			emi_due = excluded.emi_due,
			part_payment = excluded.part_payment,
			remaining_loan = excluded.remaining_loan,
			total_payable = excluded.total_payable,
			status = excluded.status,
			paid_at = excluded.paid_at`,
		string(rec.Venture), string(rec.Member), int(rec.Period.Month), rec.Period.Year,
		rec.Contribution.String(), rec.LoanOutstanding.String(), rec.InterestDue.String(),
		rec.EMIDue.String(), rec.PartPayment.String(), rec.RemainingLoan.String(),
		rec.TotalPayable.String(), string(rec.Status), paidAt)
	return err
}

func (s *Store) RecordsByMember(ctx context.Context, venture chit.VentureID, member chit.MemberID) ([]*chit.MemberMonthlyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM member_records
		WHERE venture_id = ? AND member_id = ?
		ORDER BY year, month`,
		string(venture), string(member))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Store) RecordsByPeriod(ctx context.Context, venture chit.VentureID, period chit.Period) ([]*chit.MemberMonthlyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM member_records
		WHERE venture_id = ? AND month = ? AND year = ?
		ORDER BY member_id`,
		string(venture), int(period.Month), period.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]*chit.MemberMonthlyRecord, error) {
	var result []*chit.MemberMonthlyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanRecord(rows *sql.Rows) (*chit.MemberMonthlyRecord, error) {
	var (
		rec                       chit.MemberMonthlyRecord
		ventureID, memberID       string
		month, year               int
		contribution, outstanding string
		interest, emi             string
		part, remaining, payable  string
		status                    string
		paidAt                    sql.NullString
	)
	err := rows.Scan(&ventureID, &memberID, &month, &year, &contribution,
		&outstanding, &interest, &emi, &part, &remaining, &payable, &status, &paidAt)
	if err != nil {
		return nil, err
	}

	rec.Venture = chit.VentureID(ventureID)
	rec.Member = chit.MemberID(memberID)
	rec.Period = chit.NewPeriod(time.Month(month), year)
	rec.Status = chit.ApprovalStatus(status)

	if rec.Contribution, err = decimal.NewFromString(contribution); err != nil {
		return nil, err
	}
	if rec.LoanOutstanding, err = decimal.NewFromString(outstanding); err != nil {
		return nil, err
	}
	if rec.InterestDue, err = decimal.NewFromString(interest); err != nil {
		return nil, err
	}
	if rec.EMIDue, err = decimal.NewFromString(emi); err != nil {
		return nil, err
	}
	if rec.PartPayment, err = decimal.NewFromString(part); err != nil {
		return nil, err
	}
	if rec.RemainingLoan, err = decimal.NewFromString(remaining); err != nil {
		return nil, err
	}
	if rec.TotalPayable, err = decimal.NewFromString(payable); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t, err := time.Parse(time.RFC3339, paidAt.String)
		if err != nil {
			return nil, err
		}
		rec.PaidAt = &t
	}
	return &rec, nil
}

// =============================================================================
// VENTURE MONTHLY SUMMARIES
// =============================================================================

const summaryColumns = `venture_id, month, year, opening_balance,
	total_contributions, total_emi, total_interest, total_part_payments,
	due_recovered, loans_json, exits_json, locked, closing_total, remaining_balance`

func (s *Store) GetSummary(ctx context.Context, venture chit.VentureID, period chit.Period) (*chit.VentureMonthlySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+` FROM venture_summaries
		WHERE venture_id = ? AND month = ? AND year = ?`,
		string(venture), int(period.Month), period.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, chit.ErrSummaryNotFound
	}
	return scanSummary(rows)
}

func (s *Store) PutSummary(ctx context.Context, sum *chit.VentureMonthlySummary) error {
	loansJSON, err := json.Marshal(sum.Loans)
	if err != nil {
		return err
	}
	exitsJSON, err := json.Marshal(sum.Exits)
	if err != nil {
		return err
	}

	locked := 0
	if sum.Locked {
		locked = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO venture_summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(venture_id, month, year) DO UPDATE SET
			opening_balance = excluded.opening_balance,
			total_contributions = excluded.total_contributions,
			total_emi = excluded.total_emi,
			total_interest = excluded.total_interest,
			total_part_payments = excluded.total_part_payments,
			due_recovered = excluded.due_recovered,
			loans_json = excluded.loans_json,
			exits_json = excluded.exits_json,
			locked = excluded.locked,
			closing_total = excluded.closing_total,
			remaining_balance = excluded.remaining_balance`,
		string(sum.Venture), int(sum.Period.Month), sum.Period.Year,
		sum.OpeningBalance.String(), sum.TotalContributions.String(),
		sum.TotalEMI.String(), sum.TotalInterest.String(),
		sum.TotalPartPayments.String(), sum.DueRecovered.String(),
		string(loansJSON), string(exitsJSON), locked,
		sum.ClosingTotal.String(), sum.RemainingBalance.String())
	return err
}

func (s *Store) SummariesByVenture(ctx context.Context, venture chit.VentureID) ([]*chit.VentureMonthlySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+` FROM venture_summaries
		WHERE venture_id = ?
		ORDER BY year, month`,
		string(venture))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*chit.VentureMonthlySummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

func scanSummary(rows *sql.Rows) (*chit.VentureMonthlySummary, error) {
	var (
		sum                    chit.VentureMonthlySummary
		ventureID              string
		month, year, locked    int
		opening, contributions string
		emi, interest, part    string
		dueRecovered           string
		loansJSON, exitsJSON   string
		closing, remaining     string
	)
	err := rows.Scan(&ventureID, &month, &year, &opening, &contributions,
		&emi, &interest, &part, &dueRecovered, &loansJSON, &exitsJSON,
		&locked, &closing, &remaining)
	if err != nil {
		return nil, err
	}

	sum.Venture = chit.VentureID(ventureID)
	sum.Period = chit.NewPeriod(time.Month(month), year)
	sum.Locked = locked != 0

	if sum.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return nil, err
	}
	if sum.TotalContributions, err = decimal.NewFromString(contributions); err != nil {
		return nil, err
	}
	if sum.TotalEMI, err = decimal.NewFromString(emi); err != nil {
		return nil, err
	}
	if sum.TotalInterest, err = decimal.NewFromString(interest); err != nil {
		return nil, err
	}
	if sum.TotalPartPayments, err = decimal.NewFromString(part); err != nil {
		return nil, err
	}
	if sum.DueRecovered, err = decimal.NewFromString(dueRecovered); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(loansJSON), &sum.Loans); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(exitsJSON), &sum.Exits); err != nil {
		return nil, err
	}
	if sum.ClosingTotal, err = decimal.NewFromString(closing); err != nil {
		return nil, err
	}
	if sum.RemainingBalance, err = decimal.NewFromString(remaining); err != nil {
		return nil, err
	}
	return &sum, nil
}
