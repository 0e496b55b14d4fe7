package report_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/chit-ledger/chit"
	"github.com/warp/chit-ledger/chit/store"
	"github.com/warp/chit-ledger/report"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func seedStatement(t *testing.T) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	jan := chit.NewSummary("v-1", chit.NewPeriod(time.January, 2025), dec(0))
	jan.TotalContributions = dec(30000)
	jan.TotalInterest = dec(2000)
	jan.Loans = []chit.LoanEntry{{Member: "m-alice", Amount: dec(50000)}}
	jan.Locked = true
	jan.Recompute()
	require.NoError(t, mem.PutSummary(ctx, jan))

	feb := chit.NewSummary("v-1", chit.NewPeriod(time.February, 2025), jan.RemainingBalance)
	feb.TotalContributions = dec(30000)
	feb.Recompute()
	require.NoError(t, mem.PutSummary(ctx, feb))

	require.NoError(t, mem.PutRecord(ctx, &chit.MemberMonthlyRecord{
		Venture: "v-1", Member: "m-alice", Period: chit.NewPeriod(time.January, 2025),
		Contribution: dec(10000), LoanOutstanding: dec(50000), InterestDue: dec(1000),
		EMIDue: dec(5000), RemainingLoan: dec(50000), TotalPayable: dec(16000),
		Status: chit.StatusApproved,
	}))
	require.NoError(t, mem.PutRecord(ctx, &chit.MemberMonthlyRecord{
		Venture: "v-1", Member: "m-bob", Period: chit.NewPeriod(time.January, 2025),
		Contribution: dec(10000), TotalPayable: dec(10000), Status: chit.StatusPending,
	}))

	return mem
}

func TestVentureStatement_OneRowPerPeriodInOrder(t *testing.T) {
	mem := seedStatement(t)

	rows, err := report.VentureStatement(context.Background(), mem, "v-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2025-01", rows[0].Period)
	assert.Equal(t, "50000", rows[0].LoansDisbursed)
	assert.True(t, rows[0].Locked)

	assert.Equal(t, "2025-02", rows[1].Period)
	// February opens with January's remaining: 0 + 30000 + 2000 − 50000
	assert.Equal(t, "-18000", rows[1].OpeningBalance)
	assert.False(t, rows[1].Locked)
}

func TestPeriodStatement_OneRowPerMember(t *testing.T) {
	mem := seedStatement(t)

	rows, err := report.PeriodStatement(context.Background(), mem, "v-1", chit.NewPeriod(time.January, 2025))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "m-alice", rows[0].Member)
	assert.Equal(t, "16000", rows[0].TotalPayable)
	assert.Equal(t, "approved", rows[0].Status)

	assert.Equal(t, "m-bob", rows[1].Member)
	assert.Equal(t, "pending", rows[1].Status)
}

func TestWriteSummaryCSV(t *testing.T) {
	mem := seedStatement(t)
	rows, err := report.VentureStatement(context.Background(), mem, "v-1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteSummaryCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3) // header + two periods
	assert.Equal(t,
		"period,opening,contributions,emi,interest,part_payments,loans,exits_paid,due_recovered,closing,remaining,locked",
		lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2025-01,"))
	assert.True(t, strings.HasSuffix(lines[1], ",true"))
}

func TestWriteRecordCSV(t *testing.T) {
	mem := seedStatement(t)
	rows, err := report.PeriodStatement(context.Background(), mem, "v-1", chit.NewPeriod(time.January, 2025))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteRecordCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "m-alice")
	assert.Contains(t, lines[2], "m-bob")
}
