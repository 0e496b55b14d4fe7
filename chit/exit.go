/*
exit.go - Exit settlement and residual due tracking

PURPOSE:
  When a member leaves, the venture owes them their lifetime approved
  contributions plus a share of the interest the pool earned, minus whatever
  loan principal they still owe. The settlement pays what the current balance
  allows; any shortfall (in either direction) becomes an ExitDue tracked on
  the venture until repaid.

INTEREST SHARE:
  Each historical period's collected interest is divided by the CURRENT
  active member count — not that period's count. This is preserved source
  behavior (a long-gone member still shrinks the divisor for old interest);
  it is flagged in exit_test.go rather than silently corrected.

DUE REPAYMENT:
  Repaying a due is a post-period cash movement: it comes out of the current
  summary's remaining balance (tracked via the DueRecovered field so the
  recompute rule stays the single source of truth) and flows back INTO the
  venture wallet, replenishing the pool.

SEE ALSO:
  - venture.go: ExitDue bookkeeping
  - summary.go: where exits land in the balance equation
*/
package chit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// CALCULATION
// =============================================================================

// ExitCalculation is the breakdown of a member's settlement amount.
type ExitCalculation struct {
	Member               MemberID
	LifetimeContribution decimal.Decimal // Σ contribution over approved records
	InterestShare        decimal.Decimal // Σ period interest / current member count
	OutstandingLoan      decimal.Decimal // remaining loan of the newest record
	NetAmount            decimal.Decimal // lifetime + share − outstanding, 2dp
}

// CalculateExit computes what a leaving member is owed (or owes, when
// negative) from their full monthly history.
func (e *Engine) CalculateExit(ctx context.Context, venture VentureID, member MemberID) (*ExitCalculation, error) {
	v, err := e.loadVenture(ctx, venture)
	if err != nil {
		return nil, err
	}
	if !v.HasMember(member) {
		return nil, ErrMemberNotFound
	}

	records, err := e.store.RecordsByMember(ctx, venture, member)
	if err != nil {
		return nil, err
	}

	calc := &ExitCalculation{
		Member:               member,
		LifetimeContribution: decimal.Zero,
		InterestShare:        decimal.Zero,
		OutstandingLoan:      decimal.Zero,
	}

	divisor := decimal.NewFromInt(int64(v.ActiveMemberCount()))
	var newest *MemberMonthlyRecord

	for _, rec := range records {
		if rec.Status == StatusApproved {
			calc.LifetimeContribution = calc.LifetimeContribution.Add(rec.Contribution)
		}

		if divisor.IsPositive() {
			if s, err := e.store.GetSummary(ctx, venture, rec.Period); err == nil {
				calc.InterestShare = calc.InterestShare.Add(s.TotalInterest.Div(divisor))
			} else if !IsNotFound(err) {
				return nil, err
			}
		}

		if newest == nil || newest.Period.Before(rec.Period) {
			newest = rec
		}
	}

	if newest != nil {
		calc.OutstandingLoan = newest.RemainingLoan
	}

	calc.NetAmount = calc.LifetimeContribution.
		Add(calc.InterestShare).
		Sub(calc.OutstandingLoan).
		Round(2)
	return calc, nil
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// ExitSettlement reports a processed exit.
type ExitSettlement struct {
	Calculation *ExitCalculation
	AmountPaid  decimal.Decimal
	DueRecorded decimal.Decimal // shortfall (or debt owed to the venture)
	Status      ExitStatus

	// MemberRemoved signals the membership change for the collaborator that
	// owns the authoritative member list.
	MemberRemoved bool
}

// SettleExit processes a member's exit against the current period:
//
//   - NetAmount < 0: the member owes the venture. No cash moves; the
//     absolute value is recorded as an ExitDue (debt TO the venture) and the
//     exits list carries the negative amount as an accounting entry.
//   - NetAmount ≥ 0: paid = min(current remaining balance, net), floored at
//     0. A shortfall creates or extends an ExitDue. The wallet is debited by
//     what was actually paid.
//
// Either way the member leaves the membership snapshot and the summary is
// recomputed. Status is COMPLETED when nothing is left pending on the
// venture's side (fully paid, or the member's debt fully recorded),
// PARTIALLY_PAID otherwise.
func (e *Engine) SettleExit(ctx context.Context, venture VentureID, member MemberID, period Period) (*ExitSettlement, error) {
	unlock := e.lockVenture(venture)
	defer unlock()

	calc, err := e.CalculateExit(ctx, venture, member)
	if err != nil {
		return nil, err
	}
	v, err := e.loadVenture(ctx, venture)
	if err != nil {
		return nil, err
	}
	summary, err := e.mutableSummary(ctx, venture, period)
	if err != nil {
		return nil, err
	}

	settlement := &ExitSettlement{Calculation: calc, AmountPaid: decimal.Zero, DueRecorded: decimal.Zero}

	if calc.NetAmount.IsNegative() {
		// Debt owed to the venture. Accounting entry only: the negative
		// amount_paid raises the remaining balance on recompute, no cash
		// moves, and the debt is tracked until repaid.
		settlement.AmountPaid = calc.NetAmount
		settlement.DueRecorded = calc.NetAmount.Abs()
		settlement.Status = ExitCompleted
		v.addDue(member, settlement.DueRecorded)
	} else {
		paid := decimal.Min(summary.RemainingBalance, calc.NetAmount)
		if paid.IsNegative() {
			paid = decimal.Zero
		}
		settlement.AmountPaid = paid

		if paid.LessThan(calc.NetAmount) {
			settlement.DueRecorded = calc.NetAmount.Sub(paid)
			settlement.Status = ExitPartiallyPaid
			v.addDue(member, settlement.DueRecorded)
		} else {
			settlement.Status = ExitCompleted
		}

		if paid.IsPositive() {
			e.adjustWallet(v, "exit", paid.Neg())
		}
	}

	summary.Exits = append(summary.Exits, ExitEntry{
		Member:               member,
		LifetimeContribution: calc.LifetimeContribution,
		RemainingLoan:        calc.OutstandingLoan,
		InterestShare:        calc.InterestShare,
		NetAmount:            calc.NetAmount,
		AmountPaid:           settlement.AmountPaid,
	})
	summary.Recompute()

	delete(v.Members, member)
	settlement.MemberRemoved = true

	if err := e.store.PutSummary(ctx, summary); err != nil {
		return nil, err
	}
	if err := e.store.PutVenture(ctx, v); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"venture": venture,
		"member":  member,
		"period":  period.String(),
		"net":     calc.NetAmount.String(),
		"paid":    settlement.AmountPaid.String(),
		"status":  string(settlement.Status),
	}).Info("exit settled")

	return settlement, nil
}

// =============================================================================
// DUE REPAYMENT
// =============================================================================

// DueRepaymentResult reports one repayment against an exit due.
type DueRepaymentResult struct {
	Member      MemberID
	Repaid      decimal.Decimal
	Outstanding decimal.Decimal // what is still owed after this repayment
	Cleared     bool            // the due reached zero and was removed
	Wallet      decimal.Decimal
}

// RepayDue applies a repayment against a member's exit due:
//
//   - amount must be positive, must not exceed the due's outstanding
//     (ErrOverPayment), and must not exceed the current period's remaining
//     balance (ErrInsufficientFunds)
//   - the due shrinks (gaining a repayment history entry) and is removed
//     once it reaches zero
//   - the amount leaves the current summary's remaining balance and flows
//     back into the venture wallet, replenishing the pool
//
// at is the repayment timestamp, supplied by the caller.
func (e *Engine) RepayDue(ctx context.Context, venture VentureID, member MemberID, period Period, amount decimal.Decimal, at time.Time) (*DueRepaymentResult, error) {
	unlock := e.lockVenture(venture)
	defer unlock()

	v, err := e.loadVenture(ctx, venture)
	if err != nil {
		return nil, err
	}
	due, ok := v.DueFor(member)
	if !ok {
		return nil, ErrNoSuchDue
	}

	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.GreaterThan(due.Outstanding) {
		return nil, ErrOverPayment
	}

	summary, err := e.mutableSummary(ctx, venture, period)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(summary.RemainingBalance) {
		return nil, &ShortfallError{Requested: amount, Available: summary.RemainingBalance}
	}

	due.Outstanding = due.Outstanding.Sub(amount)
	due.Repayments = append(due.Repayments, DueRepayment{Amount: amount, At: at})

	result := &DueRepaymentResult{
		Member:      member,
		Repaid:      amount,
		Outstanding: due.Outstanding,
	}
	if due.Outstanding.IsZero() {
		v.removeDue(member)
		result.Cleared = true
	}

	// Post-period cash movement: out of this period's balance, back into
	// the pool's wallet.
	summary.DueRecovered = summary.DueRecovered.Add(amount)
	summary.Recompute()
	e.adjustWallet(v, "due_repayment", amount)
	result.Wallet = v.Wallet

	if err := e.store.PutSummary(ctx, summary); err != nil {
		return nil, err
	}
	if err := e.store.PutVenture(ctx, v); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"venture":     venture,
		"member":      member,
		"repaid":      amount.String(),
		"outstanding": result.Outstanding.String(),
	}).Info("exit due repaid")

	return result, nil
}
