/*
record.go - Member monthly records and their materialization

PURPOSE:
  One MemberMonthlyRecord exists per (venture, member, month, year). It is
  the member's side of the ledger for that month: what they owe (contribution,
  EMI, interest), what they paid on top (part payment), and where their loan
  stands afterwards.

INVARIANTS:
  - remaining_loan = loan_outstanding − emi_due − part_payment once approved,
    floored at 0, never negative
  - total_payable = contribution + emi_due + interest_due (part payment is
    additive on top at approval time, never folded into the payable)
  - records are historical: created once, mutated only by approval/redo/
    disbursement, never deleted

MATERIALIZATION:
  - NewMemberRecord: a member with no prior history (venture creation or a
    new join). Contribution due, zero loan fields, status none.
  - carryForwardRecord: rollover path. The carried outstanding becomes the
    new loan principal; interest and EMI are recomputed from it at the
    venture's rates; remaining_loan is seeded to the same outstanding so that
    approve/redo remain exact inverses.

SEE ALSO:
  - approval.go: the only mutator of payment fields
  - rollover.go: the only caller of carryForwardRecord
*/
package chit

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORD KEY
// =============================================================================

// RecordKey is the primary coordinate of a member monthly record.
type RecordKey struct {
	Venture VentureID
	Member  MemberID
	Period  Period
}

// =============================================================================
// MEMBER MONTHLY RECORD
// =============================================================================

type MemberMonthlyRecord struct {
	Venture VentureID
	Member  MemberID
	Period  Period

	// Dues for this period.
	Contribution    decimal.Decimal // fixed venture contribution
	LoanOutstanding decimal.Decimal // principal at start of period
	InterestDue     decimal.Decimal // outstanding × interest rate
	EMIDue          decimal.Decimal // outstanding × repayment rate

	// Payment state.
	PartPayment   decimal.Decimal // extra principal paid at approval
	RemainingLoan decimal.Decimal // principal after this period's payments
	TotalPayable  decimal.Decimal // contribution + emi + interest

	Status ApprovalStatus
	PaidAt *time.Time
}

func (r *MemberMonthlyRecord) Key() RecordKey {
	return RecordKey{Venture: r.Venture, Member: r.Member, Period: r.Period}
}

// recomputePayable restores the canonical payable from the base fields.
func (r *MemberMonthlyRecord) recomputePayable() {
	r.TotalPayable = r.Contribution.Add(r.EMIDue).Add(r.InterestDue)
}

// HasLoan reports whether any principal is outstanding this period.
func (r *MemberMonthlyRecord) HasLoan() bool {
	return r.LoanOutstanding.IsPositive()
}

// =============================================================================
// MATERIALIZATION
// =============================================================================

// NewMemberRecord creates the record for a member with no prior history.
func NewMemberRecord(v *VentureAccount, member MemberID, period Period) *MemberMonthlyRecord {
	rec := &MemberMonthlyRecord{
		Venture:         v.ID,
		Member:          member,
		Period:          period,
		Contribution:    v.Contribution,
		LoanOutstanding: decimal.Zero,
		InterestDue:     decimal.Zero,
		EMIDue:          decimal.Zero,
		PartPayment:     decimal.Zero,
		RemainingLoan:   decimal.Zero,
		Status:          StatusNone,
	}
	rec.recomputePayable()
	return rec
}

// carryForwardRecord creates the next period's record from a carried loan
// principal. Interest and EMI are recomputed from the outstanding at the
// venture's rates; the remaining loan is seeded to the outstanding itself
// (approval then subtracts EMI and part payment from it).
func carryForwardRecord(v *VentureAccount, member MemberID, outstanding decimal.Decimal, period Period) *MemberMonthlyRecord {
	rec := &MemberMonthlyRecord{
		Venture:         v.ID,
		Member:          member,
		Period:          period,
		Contribution:    v.Contribution,
		LoanOutstanding: outstanding,
		InterestDue:     PercentOf(outstanding, v.InterestRate),
		EMIDue:          PercentOf(outstanding, v.RepaymentRate),
		PartPayment:     decimal.Zero,
		RemainingLoan:   outstanding,
		Status:          StatusNone,
	}
	rec.recomputePayable()
	return rec
}

// applyLoanTopUp adds freshly disbursed principal to an existing (not yet
// approved) record and recomputes the derived fields from the new
// outstanding. Used by disbursement when the next-period record already
// exists.
func (r *MemberMonthlyRecord) applyLoanTopUp(v *VentureAccount, amount decimal.Decimal) {
	r.LoanOutstanding = r.LoanOutstanding.Add(amount)
	r.RemainingLoan = r.RemainingLoan.Add(amount)
	r.InterestDue = PercentOf(r.LoanOutstanding, v.InterestRate)
	r.EMIDue = PercentOf(r.LoanOutstanding, v.RepaymentRate)
	r.recomputePayable()
}
