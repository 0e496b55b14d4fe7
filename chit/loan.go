/*
loan.go - Batch loan disbursement

PURPOSE:
  An admin allocates surplus funds across one or more members in a single
  operation. Each entry is validated independently; a bad entry is skipped
  and reported, never aborting the rest of the batch (append-only list
  semantics — unrelated successes are not rolled back).

WHERE THE EFFECT LANDS:
  Disbursed principal is repaid starting NEXT period, so the next period's
  record absorbs it: created with outstanding = current remaining + amount if
  absent, or topped up additively if present, with interest and EMI
  recomputed from the new outstanding. The current period only records the
  loan in its summary list and pays the cash out of the wallet.

OVERDRAFT:
  The wallet may go negative here. That is intentional overdraft capability,
  not a bug.

SEE ALSO:
  - record.go: applyLoanTopUp / carryForwardRecord
  - rollover.go: merges summary loans for members missing a next record
*/
package chit

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// RESULT SHAPES
// =============================================================================

// DisbursementFailure reports one skipped batch entry.
type DisbursementFailure struct {
	Member MemberID
	Amount decimal.Decimal
	Err    error
}

// DisbursementResult reports a batch disbursement: what went out, and which
// entries were skipped.
type DisbursementResult struct {
	TotalDisbursed decimal.Decimal
	Disbursed      []LoanEntry
	Failures       []DisbursementFailure
}

// =============================================================================
// DISBURSE
// =============================================================================

// Disburse issues loans to the given members against the current period.
// Per entry: amount must be > 0 and ≤ the venture's loan ceiling; violations
// are collected in the failure list while the rest of the batch proceeds.
// The wallet is debited by the successfully disbursed total only.
func (e *Engine) Disburse(ctx context.Context, venture VentureID, period Period, targets map[MemberID]decimal.Decimal) (*DisbursementResult, error) {
	unlock := e.lockVenture(venture)
	defer unlock()

	v, err := e.loadVenture(ctx, venture)
	if err != nil {
		return nil, err
	}
	summary, err := e.mutableSummary(ctx, venture, period)
	if err != nil {
		return nil, err
	}

	// Deterministic batch order regardless of map iteration.
	members := make([]MemberID, 0, len(targets))
	for m := range targets {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	result := &DisbursementResult{TotalDisbursed: decimal.Zero}
	next := period.Next()

	for _, member := range members {
		amount := targets[member]

		if fail := e.validateLoan(v, member, amount); fail != nil {
			result.Failures = append(result.Failures, *fail)
			continue
		}

		if err := e.applyLoan(ctx, v, member, amount, period, next); err != nil {
			result.Failures = append(result.Failures, DisbursementFailure{Member: member, Amount: amount, Err: err})
			continue
		}

		summary.addLoan(member, amount)
		result.TotalDisbursed = result.TotalDisbursed.Add(amount)
		result.Disbursed = append(result.Disbursed, LoanEntry{Member: member, Amount: amount})
	}

	if result.TotalDisbursed.IsPositive() {
		e.adjustWallet(v, "disburse", result.TotalDisbursed.Neg())
	}
	summary.Recompute()

	if err := e.store.PutSummary(ctx, summary); err != nil {
		return nil, err
	}
	if err := e.store.PutVenture(ctx, v); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"venture":   venture,
		"period":    period.String(),
		"disbursed": result.TotalDisbursed.String(),
		"failures":  len(result.Failures),
	}).Info("loans disbursed")

	return result, nil
}

func (e *Engine) validateLoan(v *VentureAccount, member MemberID, amount decimal.Decimal) *DisbursementFailure {
	if !v.HasMember(member) {
		return &DisbursementFailure{Member: member, Amount: amount, Err: ErrMemberNotFound}
	}
	if !amount.IsPositive() {
		return &DisbursementFailure{Member: member, Amount: amount, Err: ErrInvalidAmount}
	}
	if amount.GreaterThan(v.MaxLoan) {
		return &DisbursementFailure{Member: member, Amount: amount, Err: &CeilingError{Member: member, Amount: amount, MaxLoan: v.MaxLoan}}
	}
	return nil
}

// applyLoan lands the disbursed principal on the member's next-period record.
func (e *Engine) applyLoan(ctx context.Context, v *VentureAccount, member MemberID, amount decimal.Decimal, period, next Period) error {
	nextKey := RecordKey{Venture: v.ID, Member: member, Period: next}

	nextRec, err := e.store.GetRecord(ctx, nextKey)
	switch {
	case err == nil:
		nextRec.applyLoanTopUp(v, amount)
	case IsNotFound(err):
		// Next record opens with the current remaining loan plus the fresh
		// principal. A member with no current record carries zero.
		remaining := decimal.Zero
		curKey := RecordKey{Venture: v.ID, Member: member, Period: period}
		if cur, err := e.store.GetRecord(ctx, curKey); err == nil {
			remaining = cur.RemainingLoan
		} else if !IsNotFound(err) {
			return err
		}
		nextRec = carryForwardRecord(v, member, remaining.Add(amount), next)
	default:
		return err
	}

	return e.store.PutRecord(ctx, nextRec)
}
