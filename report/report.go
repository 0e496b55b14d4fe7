/*
Package report flattens ledger state into tabular form for export.

PURPOSE:
  The presentation/export collaborator renders summaries and member records
  as tables (on-screen, CSV, or fed into a PDF layer). This package does the
  flattening; it stores only member ids - joining member names is the
  collaborator's job, since the core never sees names.

SHAPES:
  SummaryRow: one venture period - balances, totals, lock state
  RecordRow:  one member's month - dues, payments, loan position

SEE ALSO:
  - chit/summary.go, chit/record.go: the source shapes
*/
package report

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/chit-ledger/chit"
)

// =============================================================================
// ROWS
// =============================================================================

// SummaryRow is one venture period in tabular form.
type SummaryRow struct {
	Period             string
	OpeningBalance     string
	TotalContributions string
	TotalEMI           string
	TotalInterest      string
	TotalPartPayments  string
	LoansDisbursed     string
	ExitsPaid          string
	DueRecovered       string
	ClosingTotal       string
	RemainingBalance   string
	Locked             bool
}

// RecordRow is one member monthly record in tabular form.
type RecordRow struct {
	Period          string
	Member          string
	Contribution    string
	LoanOutstanding string
	InterestDue     string
	EMIDue          string
	PartPayment     string
	RemainingLoan   string
	TotalPayable    string
	Status          string
}

// =============================================================================
// BUILDERS
// =============================================================================

// VentureStatement builds the full period-by-period statement of a venture.
func VentureStatement(ctx context.Context, store chit.Store, venture chit.VentureID) ([]SummaryRow, error) {
	summaries, err := store.SummariesByVenture(ctx, venture)
	if err != nil {
		return nil, err
	}

	rows := make([]SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, summaryRow(s))
	}
	return rows, nil
}

// PeriodStatement builds the member rows of one venture period.
func PeriodStatement(ctx context.Context, store chit.Store, venture chit.VentureID, period chit.Period) ([]RecordRow, error) {
	records, err := store.RecordsByPeriod(ctx, venture, period)
	if err != nil {
		return nil, err
	}

	rows := make([]RecordRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, RecordRow{
			Period:          rec.Period.String(),
			Member:          string(rec.Member),
			Contribution:    rec.Contribution.String(),
			LoanOutstanding: rec.LoanOutstanding.String(),
			InterestDue:     rec.InterestDue.String(),
			EMIDue:          rec.EMIDue.String(),
			PartPayment:     rec.PartPayment.String(),
			RemainingLoan:   rec.RemainingLoan.String(),
			TotalPayable:    rec.TotalPayable.String(),
			Status:          string(rec.Status),
		})
	}
	return rows, nil
}

func summaryRow(s *chit.VentureMonthlySummary) SummaryRow {
	loans := decimal.Zero
	for _, loan := range s.Loans {
		loans = loans.Add(loan.Amount)
	}
	exits := decimal.Zero
	for _, exit := range s.Exits {
		exits = exits.Add(exit.AmountPaid)
	}

	return SummaryRow{
		Period:             s.Period.String(),
		OpeningBalance:     s.OpeningBalance.String(),
		TotalContributions: s.TotalContributions.String(),
		TotalEMI:           s.TotalEMI.String(),
		TotalInterest:      s.TotalInterest.String(),
		TotalPartPayments:  s.TotalPartPayments.String(),
		LoansDisbursed:     loans.String(),
		ExitsPaid:          exits.String(),
		DueRecovered:       s.DueRecovered.String(),
		ClosingTotal:       s.ClosingTotal.String(),
		RemainingBalance:   s.RemainingBalance.String(),
		Locked:             s.Locked,
	}
}

// =============================================================================
// CSV EXPORT
// =============================================================================

// WriteSummaryCSV writes a venture statement as CSV with a header row.
func WriteSummaryCSV(w io.Writer, rows []SummaryRow) error {
	cw := csv.NewWriter(w)
	header := []string{"period", "opening", "contributions", "emi", "interest",
		"part_payments", "loans", "exits_paid", "due_recovered", "closing",
		"remaining", "locked"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Period, r.OpeningBalance, r.TotalContributions,
			r.TotalEMI, r.TotalInterest, r.TotalPartPayments, r.LoansDisbursed,
			r.ExitsPaid, r.DueRecovered, r.ClosingTotal, r.RemainingBalance,
			strconv.FormatBool(r.Locked)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecordCSV writes member rows as CSV with a header row.
func WriteRecordCSV(w io.Writer, rows []RecordRow) error {
	cw := csv.NewWriter(w)
	header := []string{"period", "member", "contribution", "loan_outstanding",
		"interest_due", "emi_due", "part_payment", "remaining_loan",
		"total_payable", "status"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Period, r.Member, r.Contribution, r.LoanOutstanding,
			r.InterestDue, r.EMIDue, r.PartPayment, r.RemainingLoan,
			r.TotalPayable, r.Status}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
