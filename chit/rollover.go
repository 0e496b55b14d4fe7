/*
rollover.go - Month finalization and next-period derivation

PURPOSE:
  Lock freezes a period permanently; Rollover derives the opening state of
  the next period from a locked one: the next summary opens with the locked
  remaining balance, and every active member gets a next-period record with
  their loan carried forward and interest/EMI recomputed.

IRREVERSIBILITY:
  There is no unlock operation. Financial periods close permanently; the
  lock flag is the sole fence between mutable state and frozen history.

RESUMABILITY:
  Rollover is the most failure-sensitive path in the engine: a crash in the
  middle of the member loop must not corrupt already-created records. Each
  per-member creation is independent and guarded by an existence check, so
  re-invoking Rollover is always safe — existing next-period records are
  skipped, nothing is double-counted.

SEE ALSO:
  - record.go: carryForwardRecord
  - loan.go: why a member's next record may already exist
*/
package chit

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// LOCK
// =============================================================================

// Lock finalizes a period. Fails with ErrAlreadyLocked if the period is
// already locked. Irreversible.
func (e *Engine) Lock(ctx context.Context, venture VentureID, period Period) (*VentureMonthlySummary, error) {
	unlock := e.lockVenture(venture)
	defer unlock()

	s, err := e.store.GetSummary(ctx, venture, period)
	if err != nil {
		return nil, err
	}
	if s.Locked {
		return nil, ErrAlreadyLocked
	}

	s.Locked = true
	if err := e.store.PutSummary(ctx, s); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"venture":   venture,
		"period":    period.String(),
		"remaining": s.RemainingBalance.String(),
	}).Info("period locked")

	return s, nil
}

// =============================================================================
// ROLLOVER
// =============================================================================

// RolloverResult reports what a rollover pass did.
type RolloverResult struct {
	Next    Period
	Summary *VentureMonthlySummary
	Created []MemberID // members whose next-period record was created
	Skipped []MemberID // members whose next-period record already existed
}

// Rollover derives the next period from a locked one:
//
//  1. Fails with ErrNotLocked unless the period is locked.
//  2. Ensures the next summary; its opening balance is the locked period's
//     remaining balance.
//  3. For every active member: combines their current remaining loan with
//     any loan disbursed to them this period (from the summary's loan list)
//     as the carried outstanding, and creates the next record from it.
//     Members with no current record carry zero.
//  4. Skips members whose next record already exists, which makes the whole
//     procedure idempotent and resumable.
func (e *Engine) Rollover(ctx context.Context, venture VentureID, period Period) (*RolloverResult, error) {
	unlock := e.lockVenture(venture)
	defer unlock()

	v, err := e.loadVenture(ctx, venture)
	if err != nil {
		return nil, err
	}
	locked, err := e.store.GetSummary(ctx, venture, period)
	if err != nil {
		return nil, err
	}
	if !locked.Locked {
		return nil, ErrNotLocked
	}

	next := period.Next()
	nextSummary, err := e.ensureSummaryLocked(ctx, venture, next)
	if err != nil {
		return nil, err
	}

	// The next summary may predate the lock (the scheduler materializes new
	// months eagerly, before the old month is reconciled). Its opening must
	// follow the locked remaining balance, whatever it held before.
	if !nextSummary.Locked && !nextSummary.OpeningBalance.Equal(locked.RemainingBalance) {
		nextSummary.OpeningBalance = locked.RemainingBalance
		nextSummary.Recompute()
		if err := e.store.PutSummary(ctx, nextSummary); err != nil {
			return nil, err
		}
	}

	result := &RolloverResult{Next: next, Summary: nextSummary}

	for _, member := range v.MemberIDs() {
		nextKey := RecordKey{Venture: venture, Member: member, Period: next}
		if _, err := e.store.GetRecord(ctx, nextKey); err == nil {
			result.Skipped = append(result.Skipped, member)
			continue
		} else if !IsNotFound(err) {
			return result, err
		}

		remaining := decimal.Zero
		curKey := RecordKey{Venture: venture, Member: member, Period: period}
		if cur, err := e.store.GetRecord(ctx, curKey); err == nil {
			remaining = cur.RemainingLoan
		} else if !IsNotFound(err) {
			return result, err
		}

		// A loan recorded this period normally created the next record
		// already (and was skipped above); merging it here covers a resume
		// where the summary lists a loan but the record was never written.
		outstanding := remaining
		if loan, ok := locked.LoanFor(member); ok {
			outstanding = outstanding.Add(loan.Amount)
		}

		rec := carryForwardRecord(v, member, outstanding, next)
		if err := e.store.PutRecord(ctx, rec); err != nil {
			return result, err
		}
		result.Created = append(result.Created, member)
	}

	e.log.WithFields(logrus.Fields{
		"venture": venture,
		"from":    period.String(),
		"to":      next.String(),
		"created": len(result.Created),
		"skipped": len(result.Skipped),
	}).Info("period rolled over")

	return result, nil
}
