package chit_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/chit-ledger/chit"
)

// =============================================================================
// DISBURSEMENT - Batch semantics
// =============================================================================

func TestDisburse_FreshLoan_LandsOnNextPeriod(t *testing.T) {
	// GIVEN: A member with no loan, January summary open
	// WHEN: Disbursing 50000
	// THEN: February's record opens with outstanding 50000, wallet −= 50000,
	//       January's loan list carries {member, 50000}

	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice)
	ctx := context.Background()

	_, err := engine.EnsureSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	_, err = engine.MaterializeMember(ctx, ventureID, alice, jan2025)
	require.NoError(t, err)

	result, err := engine.Disburse(ctx, ventureID, jan2025, map[chit.MemberID]decimal.Decimal{
		alice: dec(50000),
	})
	require.NoError(t, err)
	assertDec(t, 50000, result.TotalDisbursed)
	assert.Empty(t, result.Failures)

	next, err := mem.GetRecord(ctx, chit.RecordKey{Venture: ventureID, Member: alice, Period: feb2025})
	require.NoError(t, err)
	assertDec(t, 50000, next.LoanOutstanding)
	assertDec(t, 1000, next.InterestDue) // 2% of 50000
	assertDec(t, 5000, next.EMIDue)      // 10% of 50000
	assertDec(t, 16000, next.TotalPayable)
	assert.Equal(t, chit.StatusNone, next.Status)

	v, err := mem.GetVenture(ctx, ventureID)
	require.NoError(t, err)
	assertDec(t, -50000, v.Wallet) // overdraft is permitted

	s, err := mem.GetSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	require.Len(t, s.Loans, 1)
	assert.Equal(t, alice, s.Loans[0].Member)
	assertDec(t, 50000, s.Loans[0].Amount)
	assertClosure(t, s)
}

func TestDisburse_TopUp_AddsToExistingNextRecord(t *testing.T) {
	// GIVEN: A member whose February record already exists with a loan
	// WHEN: Disbursing again in January
	// THEN: February's outstanding grows additively, interest/EMI recomputed

	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice)
	ctx := context.Background()

	_, err := engine.EnsureSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	seedRecord(t, mem, loanRecord(alice, feb2025, 30000))

	_, err = engine.Disburse(ctx, ventureID, jan2025, map[chit.MemberID]decimal.Decimal{
		alice: dec(20000),
	})
	require.NoError(t, err)

	next, err := mem.GetRecord(ctx, chit.RecordKey{Venture: ventureID, Member: alice, Period: feb2025})
	require.NoError(t, err)
	assertDec(t, 50000, next.LoanOutstanding)
	assertDec(t, 50000, next.RemainingLoan)
	assertDec(t, 1000, next.InterestDue)
	assertDec(t, 5000, next.EMIDue)
}

func TestDisburse_CurrentRemainingCarriesIntoNewLoan(t *testing.T) {
	// GIVEN: A member still owing 40000 this period, no next record yet
	// WHEN: Disbursing 10000
	// THEN: Next period opens with 40000 + 10000 outstanding

	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice)
	ctx := context.Background()

	_, err := engine.EnsureSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	seedRecord(t, mem, loanRecord(alice, jan2025, 40000))

	_, err = engine.Disburse(ctx, ventureID, jan2025, map[chit.MemberID]decimal.Decimal{
		alice: dec(10000),
	})
	require.NoError(t, err)

	next, err := mem.GetRecord(ctx, chit.RecordKey{Venture: ventureID, Member: alice, Period: feb2025})
	require.NoError(t, err)
	assertDec(t, 50000, next.LoanOutstanding)
}

func TestDisburse_BatchIsolatesFailures(t *testing.T) {
	// GIVEN: A batch with one valid entry, one over-ceiling, one non-positive,
	//        and one stranger
	// WHEN: Disbursing
	// THEN: The valid entry goes through; the rest are reported, not fatal

	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice, bob, carol)
	ctx := context.Background()

	_, err := engine.EnsureSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)

	result, err := engine.Disburse(ctx, ventureID, jan2025, map[chit.MemberID]decimal.Decimal{
		alice:                       dec(30000),
		bob:                         dec(150000), // above the 100000 ceiling
		carol:                       dec(0),      // non-positive
		chit.MemberID("m-stranger"): dec(1000),
	})
	require.NoError(t, err)

	assertDec(t, 30000, result.TotalDisbursed)
	require.Len(t, result.Disbursed, 1)
	assert.Equal(t, alice, result.Disbursed[0].Member)
	require.Len(t, result.Failures, 3)

	kinds := map[chit.MemberID]error{}
	for _, f := range result.Failures {
		kinds[f.Member] = f.Err
	}
	assert.ErrorIs(t, kinds[bob], chit.ErrOverCeiling)
	assert.ErrorIs(t, kinds[carol], chit.ErrInvalidAmount)
	assert.ErrorIs(t, kinds[chit.MemberID("m-stranger")], chit.ErrMemberNotFound)

	v, err := mem.GetVenture(ctx, ventureID)
	require.NoError(t, err)
	assertDec(t, -30000, v.Wallet)
}

func TestDisburse_SameMemberTwice_AccumulatesLoanEntry(t *testing.T) {
	// Two disbursements to one member in one period keep a single summary
	// entry with the accumulated amount.

	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice)
	ctx := context.Background()

	_, err := engine.EnsureSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)

	for _, amount := range []float64{20000, 15000} {
		_, err = engine.Disburse(ctx, ventureID, jan2025, map[chit.MemberID]decimal.Decimal{
			alice: dec(amount),
		})
		require.NoError(t, err)
	}

	s, err := mem.GetSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	require.Len(t, s.Loans, 1)
	assertDec(t, 35000, s.Loans[0].Amount)
	assertClosure(t, s)

	next, err := mem.GetRecord(ctx, chit.RecordKey{Venture: ventureID, Member: alice, Period: feb2025})
	require.NoError(t, err)
	assertDec(t, 35000, next.LoanOutstanding)
}

func TestDisburse_LockedPeriod_Rejected(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice)
	ctx := context.Background()

	_, err := engine.EnsureSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	_, err = engine.Lock(ctx, ventureID, jan2025)
	require.NoError(t, err)

	_, err = engine.Disburse(ctx, ventureID, jan2025, map[chit.MemberID]decimal.Decimal{
		alice: dec(1000),
	})
	assert.ErrorIs(t, err, chit.ErrPeriodLocked)
}
