package chit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/chit-ledger/chit"
	"github.com/warp/chit-ledger/chit/store"
)

// =============================================================================
// SETUP - Six months of history for the exiting member
// =============================================================================

// seedExitHistory gives alice six approved contribution months (Jan-Jun),
// a January summary with 10000 collected interest, and a 20000 loan still
// outstanding in June. With two members, her calculation is:
//
//	lifetime = 6 × 10000 = 60000
//	interest share = 10000 / 2 = 5000
//	outstanding = 20000
//	net = 45000
func seedExitHistory(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()

	for month := time.January; month <= time.June; month++ {
		period := chit.NewPeriod(month, 2025)
		outstanding := 0.0
		if month == time.June {
			outstanding = 20000
		}
		rec := loanRecord(alice, period, outstanding)
		rec.Status = chit.StatusApproved
		at := time.Date(2025, month, 10, 0, 0, 0, 0, time.UTC)
		rec.PaidAt = &at
		require.NoError(t, mem.PutRecord(ctx, rec))
	}

	jan := chit.NewSummary(ventureID, chit.NewPeriod(time.January, 2025), dec(0))
	jan.TotalInterest = dec(10000)
	jan.Recompute()
	require.NoError(t, mem.PutSummary(ctx, jan))
}

// =============================================================================
// CALCULATION
// =============================================================================

func TestCalculateExit_Breakdown(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice, bob)
	seedExitHistory(t, mem)

	calc, err := engine.CalculateExit(context.Background(), ventureID, alice)
	require.NoError(t, err)

	assertDec(t, 60000, calc.LifetimeContribution)
	assertDec(t, 5000, calc.InterestShare)
	assertDec(t, 20000, calc.OutstandingLoan)
	assertDec(t, 45000, calc.NetAmount)
}

func TestCalculateExit_OnlyApprovedContributionsCount(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice, bob)
	ctx := context.Background()

	approved := loanRecord(alice, jan2025, 0)
	approved.Status = chit.StatusApproved
	require.NoError(t, mem.PutRecord(ctx, approved))

	unapproved := loanRecord(alice, feb2025, 0)
	require.NoError(t, mem.PutRecord(ctx, unapproved))

	calc, err := engine.CalculateExit(ctx, ventureID, alice)
	require.NoError(t, err)
	assertDec(t, 10000, calc.LifetimeContribution)
}

func TestCalculateExit_InterestShareUsesCurrentMemberCount(t *testing.T) {
	// The divisor is the CURRENT active member count for every historical
	// period, not that period's count. Inherited source behavior, preserved
	// deliberately; see DESIGN.md D-2 before "fixing" this.

	engine, mem := newTestEngine(t)
	v := seedVenture(t, mem, alice, bob, carol, chit.MemberID("m-dave"))
	require.Equal(t, 4, v.ActiveMemberCount())
	seedExitHistory(t, mem)

	calc, err := engine.CalculateExit(context.Background(), ventureID, alice)
	require.NoError(t, err)
	assertDec(t, 2500, calc.InterestShare) // 10000 / 4, not 10000 / 2
}

func TestCalculateExit_NotAMember_Rejected(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice)

	_, err := engine.CalculateExit(context.Background(), ventureID, bob)
	assert.ErrorIs(t, err, chit.ErrMemberNotFound)
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestSettleExit_PartialPayment_CreatesDue(t *testing.T) {
	// GIVEN: Net 45000 owed, but only 30000 remaining in June
	// WHEN: Settling the exit
	// THEN: Paid 30000, a 15000 due recorded, PARTIALLY_PAID, member removed

	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice, bob)
	seedExitHistory(t, mem)
	ctx := context.Background()

	jun := chit.NewPeriod(time.June, 2025)
	require.NoError(t, mem.PutSummary(ctx, chit.NewSummary(ventureID, jun, dec(30000))))

	settlement, err := engine.SettleExit(ctx, ventureID, alice, jun)
	require.NoError(t, err)

	assertDec(t, 30000, settlement.AmountPaid)
	assertDec(t, 15000, settlement.DueRecorded)
	assert.Equal(t, chit.ExitPartiallyPaid, settlement.Status)
	assert.True(t, settlement.MemberRemoved)

	v, err := mem.GetVenture(ctx, ventureID)
	require.NoError(t, err)
	assert.False(t, v.HasMember(alice))
	due, ok := v.DueFor(alice)
	require.True(t, ok)
	assertDec(t, 15000, due.Outstanding)

	after, err := mem.GetSummary(ctx, ventureID, jun)
	require.NoError(t, err)
	require.Len(t, after.Exits, 1)
	assertDec(t, 30000, after.Exits[0].AmountPaid)
	assertDec(t, 45000, after.Exits[0].NetAmount)
	assert.True(t, after.RemainingBalance.IsZero())
	assertClosure(t, after)
}

func TestSettleExit_FullyFunded_Completed(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice, bob)
	seedExitHistory(t, mem)
	ctx := context.Background()

	jun := chit.NewPeriod(time.June, 2025)
	require.NoError(t, mem.PutSummary(ctx, chit.NewSummary(ventureID, jun, dec(50000))))

	settlement, err := engine.SettleExit(ctx, ventureID, alice, jun)
	require.NoError(t, err)

	assertDec(t, 45000, settlement.AmountPaid)
	assert.True(t, settlement.DueRecorded.IsZero())
	assert.Equal(t, chit.ExitCompleted, settlement.Status)

	v, err := mem.GetVenture(ctx, ventureID)
	require.NoError(t, err)
	_, ok := v.DueFor(alice)
	assert.False(t, ok)
	assertDec(t, -45000, v.Wallet)
}

func TestSettleExit_NegativeNet_RecordsDebtWithoutCash(t *testing.T) {
	// GIVEN: A member whose outstanding loan exceeds what the venture owes
	// WHEN: Settling the exit
	// THEN: No cash moves; the debt becomes a due owed TO the venture and the
	//       exits list carries the negative amount as an accounting entry

	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice, bob)
	ctx := context.Background()

	rec := loanRecord(alice, jan2025, 30000)
	rec.Status = chit.StatusApproved
	require.NoError(t, mem.PutRecord(ctx, rec))
	require.NoError(t, mem.PutSummary(ctx, chit.NewSummary(ventureID, jan2025, dec(0))))

	settlement, err := engine.SettleExit(ctx, ventureID, alice, jan2025)
	require.NoError(t, err)

	// net = 10000 lifetime − 30000 loan = −20000
	assertDec(t, -20000, settlement.Calculation.NetAmount)
	assertDec(t, -20000, settlement.AmountPaid)
	assertDec(t, 20000, settlement.DueRecorded)
	assert.Equal(t, chit.ExitCompleted, settlement.Status)

	v, err := mem.GetVenture(ctx, ventureID)
	require.NoError(t, err)
	assert.True(t, v.Wallet.IsZero(), "no cash may move on a negative net")
	due, ok := v.DueFor(alice)
	require.True(t, ok)
	assertDec(t, 20000, due.Outstanding)

	after, err := mem.GetSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	assertDec(t, 20000, after.RemainingBalance)
	assertClosure(t, after)
}

func TestSettleExit_LockedPeriod_Rejected(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedVenture(t, mem, alice, bob)
	seedExitHistory(t, mem)
	ctx := context.Background()

	jun := chit.NewPeriod(time.June, 2025)
	require.NoError(t, mem.PutSummary(ctx, chit.NewSummary(ventureID, jun, dec(30000))))
	_, err := engine.Lock(ctx, ventureID, jun)
	require.NoError(t, err)

	_, err = engine.SettleExit(ctx, ventureID, alice, jun)
	assert.ErrorIs(t, err, chit.ErrPeriodLocked)
}

// =============================================================================
// DUE REPAYMENT
// =============================================================================

func TestRepayDue_ClearsDueAndReplenishesWallet(t *testing.T) {
	// GIVEN: A 15000 due and 20000 remaining in the current period
	// WHEN: Repaying 15000
	// THEN: Due cleared, wallet += 15000, remaining −= 15000

	engine, mem := newTestEngine(t)
	v := seedVenture(t, mem, alice)
	ctx := context.Background()

	v.ExitDues = append(v.ExitDues, chit.ExitDue{Member: bob, Outstanding: dec(15000)})
	require.NoError(t, mem.PutVenture(ctx, v))
	require.NoError(t, mem.PutSummary(ctx, chit.NewSummary(ventureID, jan2025, dec(20000))))

	at := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	result, err := engine.RepayDue(ctx, ventureID, bob, jan2025, dec(15000), at)
	require.NoError(t, err)

	assert.True(t, result.Cleared)
	assert.True(t, result.Outstanding.IsZero())
	assertDec(t, 15000, result.Wallet)

	after, err := mem.GetSummary(ctx, ventureID, jan2025)
	require.NoError(t, err)
	assertDec(t, 5000, after.RemainingBalance)
	assertDec(t, 15000, after.DueRecovered)
	assertClosure(t, after)

	got, err := mem.GetVenture(ctx, ventureID)
	require.NoError(t, err)
	_, ok := got.DueFor(bob)
	assert.False(t, ok, "cleared due must be removed")
}

func TestRepayDue_PartialRepayment_KeepsHistory(t *testing.T) {
	engine, mem := newTestEngine(t)
	v := seedVenture(t, mem, alice)
	ctx := context.Background()

	v.ExitDues = append(v.ExitDues, chit.ExitDue{Member: bob, Outstanding: dec(15000)})
	require.NoError(t, mem.PutVenture(ctx, v))
	require.NoError(t, mem.PutSummary(ctx, chit.NewSummary(ventureID, jan2025, dec(20000))))

	at := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	result, err := engine.RepayDue(ctx, ventureID, bob, jan2025, dec(6000), at)
	require.NoError(t, err)

	assert.False(t, result.Cleared)
	assertDec(t, 9000, result.Outstanding)

	got, err := mem.GetVenture(ctx, ventureID)
	require.NoError(t, err)
	due, ok := got.DueFor(bob)
	require.True(t, ok)
	require.Len(t, due.Repayments, 1)
	assertDec(t, 6000, due.Repayments[0].Amount)
	assert.Equal(t, at, due.Repayments[0].At)
}

func TestRepayDue_Violations(t *testing.T) {
	engine, mem := newTestEngine(t)
	v := seedVenture(t, mem, alice)
	ctx := context.Background()

	v.ExitDues = append(v.ExitDues, chit.ExitDue{Member: bob, Outstanding: dec(15000)})
	require.NoError(t, mem.PutVenture(ctx, v))
	require.NoError(t, mem.PutSummary(ctx, chit.NewSummary(ventureID, jan2025, dec(10000))))

	at := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)

	// No due for this member.
	_, err := engine.RepayDue(ctx, ventureID, carol, jan2025, dec(1000), at)
	assert.ErrorIs(t, err, chit.ErrNoSuchDue)

	// More than the due's outstanding.
	_, err = engine.RepayDue(ctx, ventureID, bob, jan2025, dec(15001), at)
	assert.ErrorIs(t, err, chit.ErrOverPayment)

	// Within the due, beyond the period's remaining balance.
	_, err = engine.RepayDue(ctx, ventureID, bob, jan2025, dec(12000), at)
	assert.ErrorIs(t, err, chit.ErrInsufficientFunds)
	var shortfall *chit.ShortfallError
	assert.ErrorAs(t, err, &shortfall)
	assertDec(t, 10000, shortfall.Available)

	// Non-positive amount.
	_, err = engine.RepayDue(ctx, ventureID, bob, jan2025, dec(0), at)
	assert.ErrorIs(t, err, chit.ErrInvalidAmount)
}
