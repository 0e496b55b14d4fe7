/*
summary.go - Venture monthly summary and the recompute-on-write rule

PURPOSE:
  One VentureMonthlySummary exists per (venture, month, year). It aggregates
  the period: opening balance, the four collected totals, loans disbursed,
  exits settled, and the derived closing/remaining balances.

THE RECOMPUTE RULE:
  remaining_balance is DERIVED, never set:

    closing_total     = opening + contributions + emi + interest + part_payments
    remaining_balance = closing_total − Σ loans − Σ exits.amount_paid − due_recovered

  Recompute() is called after every mutation; it is the single source of
  truth for the balance. Ad hoc full re-sums over member records are
  forbidden — incremental adjustment plus recompute-on-write is the one
  strategy this engine uses.

  due_recovered accumulates post-period exit-due repayments taken out of this
  period's balance (see exit.go). Folding it into Recompute keeps the balance
  closure invariant intact instead of poking remaining_balance directly.

LOCKING:
  Once Locked is set the summary is immutable history. There is no unlock:
  financial periods close permanently.

SEE ALSO:
  - rollover.go: sets the lock and seeds the next opening balance
  - approval.go / loan.go / exit.go: the only mutators
*/
package chit

import "github.com/shopspring/decimal"

// =============================================================================
// EMBEDDED ENTRIES
// =============================================================================

// LoanEntry records principal disbursed to one member this period.
type LoanEntry struct {
	Member MemberID
	Amount decimal.Decimal
}

// ExitEntry records one exit settlement processed this period.
// AmountPaid is negative when the member owed the venture (accounting entry
// only; no cash moved).
type ExitEntry struct {
	Member               MemberID
	LifetimeContribution decimal.Decimal
	RemainingLoan        decimal.Decimal
	InterestShare        decimal.Decimal
	NetAmount            decimal.Decimal
	AmountPaid           decimal.Decimal
}

// =============================================================================
// VENTURE MONTHLY SUMMARY
// =============================================================================

type VentureMonthlySummary struct {
	Venture VentureID
	Period  Period

	// OpeningBalance = prior period's remaining balance, 0 for the first.
	OpeningBalance decimal.Decimal

	// Collected this period, incremented by approvals.
	TotalContributions decimal.Decimal
	TotalEMI           decimal.Decimal
	TotalInterest      decimal.Decimal
	TotalPartPayments  decimal.Decimal

	// Disbursed and settled this period.
	Loans []LoanEntry
	Exits []ExitEntry

	// DueRecovered is cash paid out of this period's balance against exit
	// dues after settlement (post-period movement).
	DueRecovered decimal.Decimal

	Locked bool

	// Derived by Recompute; never set directly.
	ClosingTotal     decimal.Decimal
	RemainingBalance decimal.Decimal
}

// NewSummary creates an empty summary with the given opening balance.
func NewSummary(venture VentureID, period Period, opening decimal.Decimal) *VentureMonthlySummary {
	s := &VentureMonthlySummary{
		Venture:        venture,
		Period:         period,
		OpeningBalance: opening,
	}
	s.Recompute()
	return s
}

// Recompute derives the closing and remaining balances. The single source of
// truth for both; call after every mutation.
func (s *VentureMonthlySummary) Recompute() {
	s.ClosingTotal = s.OpeningBalance.
		Add(s.TotalContributions).
		Add(s.TotalEMI).
		Add(s.TotalInterest).
		Add(s.TotalPartPayments)

	remaining := s.ClosingTotal
	for _, loan := range s.Loans {
		remaining = remaining.Sub(loan.Amount)
	}
	for _, exit := range s.Exits {
		remaining = remaining.Sub(exit.AmountPaid)
	}
	s.RemainingBalance = remaining.Sub(s.DueRecovered)
}

// LoanFor returns the loan entry for a member this period, with an explicit
// present/absent result.
func (s *VentureMonthlySummary) LoanFor(member MemberID) (LoanEntry, bool) {
	for _, loan := range s.Loans {
		if loan.Member == member {
			return loan, true
		}
	}
	return LoanEntry{}, false
}

// addLoan accumulates disbursed principal for a member (one entry per member
// per period).
func (s *VentureMonthlySummary) addLoan(member MemberID, amount decimal.Decimal) {
	for i := range s.Loans {
		if s.Loans[i].Member == member {
			s.Loans[i].Amount = s.Loans[i].Amount.Add(amount)
			return
		}
	}
	s.Loans = append(s.Loans, LoanEntry{Member: member, Amount: amount})
}
