/*
approval.go - The none → pending → approved state machine and its reversal

PURPOSE:
  Approval is the act of reconciling a member's monthly payment: it moves
  cash into the venture wallet, pays down the loan, and folds the four
  collected quantities into the period summary. Redo is the exact algebraic
  inverse, used when an approval was recorded in error.

STATE MACHINE:
  none ──▶ pending ──▶ approved        (RequestPending, Approve)
  approved ──▶ none                    (Redo: compensating reversal)

ATOMICITY:
  Approve and Redo fail whole on any violation — no partial effect. The
  approve/redo pair round-trips record, wallet, and summary bit-for-bit;
  that property is enforced by tests.

LOCKING:
  Both operations reject locked periods. Once a month is locked its records
  are frozen history.

SEE ALSO:
  - summary.go: the recompute rule applied after every mutation here
  - rollover.go: what happens to approved records at month end
*/
package chit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// REQUEST PENDING
// =============================================================================

// RequestPending moves a record from none to pending. Returns the record and
// whether it was already pending (a reported no-op). Fails with
// ErrAlreadyApproved if the record is approved, and rejects locked periods.
func (e *Engine) RequestPending(ctx context.Context, key RecordKey) (*MemberMonthlyRecord, bool, error) {
	unlock := e.lockVenture(key.Venture)
	defer unlock()

	rec, err := e.store.GetRecord(ctx, key)
	if err != nil {
		return nil, false, err
	}

	switch rec.Status {
	case StatusApproved:
		return nil, false, ErrAlreadyApproved
	case StatusPending:
		return rec, true, nil
	}

	if s, err := e.store.GetSummary(ctx, key.Venture, key.Period); err == nil && s.Locked {
		return nil, false, ErrPeriodLocked
	} else if err != nil && !IsNotFound(err) {
		return nil, false, err
	}

	rec.Status = StatusPending
	if err := e.store.PutRecord(ctx, rec); err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// =============================================================================
// APPROVE
// =============================================================================

// ApproveResult reports the state after an approval.
type ApproveResult struct {
	Record  *MemberMonthlyRecord
	Summary *VentureMonthlySummary
	Wallet  decimal.Decimal

	// NoOp is true when the record was already approved: success, nothing
	// mutated, nothing double-counted.
	NoOp bool
}

// Approve reconciles a member's monthly payment, atomically:
//
//  1. partPayment must be ≥ 0 and must not exceed remaining loan − emi due
//     (the principal left once this period's EMI is paid).
//  2. Wallet += contribution + emi + interest + partPayment.
//  3. RemainingLoan −= emi + partPayment, floored at 0.
//  4. Record: part payment stored, status approved, paid-at stamped.
//  5. Summary: the four collected totals incremented, balance recomputed.
//
// Approving an already-approved record is a success no-op. paidAt is
// supplied by the caller; the engine never reads the clock.
func (e *Engine) Approve(ctx context.Context, key RecordKey, partPayment decimal.Decimal, paidAt time.Time) (*ApproveResult, error) {
	unlock := e.lockVenture(key.Venture)
	defer unlock()

	v, err := e.loadVenture(ctx, key.Venture)
	if err != nil {
		return nil, err
	}
	rec, err := e.store.GetRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusApproved {
		return &ApproveResult{Record: rec, Wallet: v.Wallet, NoOp: true}, nil
	}

	if partPayment.IsNegative() {
		return nil, ErrInvalidAmount
	}
	// The EMI already pays down principal this period; the part payment may
	// only cover what is left after it.
	repayable := rec.RemainingLoan.Sub(rec.EMIDue)
	if partPayment.GreaterThan(repayable) {
		return nil, &PartPaymentError{
			Member:        key.Member,
			Period:        key.Period,
			PartPayment:   partPayment,
			RemainingLoan: rec.RemainingLoan,
			EMIDue:        rec.EMIDue,
		}
	}

	summary, err := e.ensureSummaryLocked(ctx, key.Venture, key.Period)
	if err != nil {
		return nil, err
	}
	if summary.Locked {
		return nil, ErrPeriodLocked
	}

	collected := rec.Contribution.Add(rec.EMIDue).Add(rec.InterestDue).Add(partPayment)
	e.adjustWallet(v, "approve", collected)

	rec.RemainingLoan = rec.RemainingLoan.Sub(rec.EMIDue).Sub(partPayment)
	if rec.RemainingLoan.IsNegative() {
		rec.RemainingLoan = decimal.Zero
	}
	rec.PartPayment = partPayment
	rec.Status = StatusApproved
	rec.PaidAt = &paidAt

	summary.TotalContributions = summary.TotalContributions.Add(rec.Contribution)
	summary.TotalEMI = summary.TotalEMI.Add(rec.EMIDue)
	summary.TotalInterest = summary.TotalInterest.Add(rec.InterestDue)
	summary.TotalPartPayments = summary.TotalPartPayments.Add(partPayment)
	summary.Recompute()

	if err := e.persistApproval(ctx, v, rec, summary); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"venture":   key.Venture,
		"member":    key.Member,
		"period":    key.Period.String(),
		"collected": collected.String(),
	}).Info("record approved")

	return &ApproveResult{Record: rec, Summary: summary, Wallet: v.Wallet}, nil
}

// =============================================================================
// REDO - Compensating reversal of an approval
// =============================================================================

// Redo undoes an approval using the record's stored values: the wallet and
// the summary give back exactly the four quantities approve collected, the
// remaining loan regains emi + part payment, and the record returns to none.
// Fails with ErrNotApproved unless the record is approved, and rejects
// locked periods.
func (e *Engine) Redo(ctx context.Context, key RecordKey) (*MemberMonthlyRecord, error) {
	unlock := e.lockVenture(key.Venture)
	defer unlock()

	v, err := e.loadVenture(ctx, key.Venture)
	if err != nil {
		return nil, err
	}
	rec, err := e.store.GetRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusApproved {
		return nil, ErrNotApproved
	}

	summary, err := e.mutableSummary(ctx, key.Venture, key.Period)
	if err != nil {
		return nil, err
	}

	collected := rec.Contribution.Add(rec.EMIDue).Add(rec.InterestDue).Add(rec.PartPayment)
	e.adjustWallet(v, "redo", collected.Neg())

	rec.RemainingLoan = rec.RemainingLoan.Add(rec.EMIDue).Add(rec.PartPayment)
	summary.TotalContributions = summary.TotalContributions.Sub(rec.Contribution)
	summary.TotalEMI = summary.TotalEMI.Sub(rec.EMIDue)
	summary.TotalInterest = summary.TotalInterest.Sub(rec.InterestDue)
	summary.TotalPartPayments = summary.TotalPartPayments.Sub(rec.PartPayment)
	summary.Recompute()

	rec.PartPayment = decimal.Zero
	rec.recomputePayable()
	rec.Status = StatusNone
	rec.PaidAt = nil

	if err := e.persistApproval(ctx, v, rec, summary); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"venture": key.Venture,
		"member":  key.Member,
		"period":  key.Period.String(),
	}).Info("approval reversed")

	return rec, nil
}

func (e *Engine) persistApproval(ctx context.Context, v *VentureAccount, rec *MemberMonthlyRecord, s *VentureMonthlySummary) error {
	if err := e.store.PutRecord(ctx, rec); err != nil {
		return err
	}
	if err := e.store.PutSummary(ctx, s); err != nil {
		return err
	}
	return e.store.PutVenture(ctx, v)
}
