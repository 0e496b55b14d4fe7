// Package store provides chit.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/chit-ledger/chit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps everything in maps. All accessors deep-copy so the engine's
// read-modify-write cycle is the only way state changes.
type Memory struct {
	mu        sync.RWMutex
	ventures  map[chit.VentureID]*chit.VentureAccount
	records   map[chit.RecordKey]*chit.MemberMonthlyRecord
	summaries map[summaryKey]*chit.VentureMonthlySummary
}

type summaryKey struct {
	Venture chit.VentureID
	Period  chit.Period
}

func NewMemory() *Memory {
	return &Memory{
		ventures:  make(map[chit.VentureID]*chit.VentureAccount),
		records:   make(map[chit.RecordKey]*chit.MemberMonthlyRecord),
		summaries: make(map[summaryKey]*chit.VentureMonthlySummary),
	}
}

// =============================================================================
// VENTURES
// =============================================================================

func (m *Memory) GetVenture(_ context.Context, id chit.VentureID) (*chit.VentureAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.ventures[id]
	if !ok {
		return nil, chit.ErrVentureNotFound
	}
	return copyVenture(v), nil
}

func (m *Memory) PutVenture(_ context.Context, v *chit.VentureAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ventures[v.ID] = copyVenture(v)
	return nil
}

// =============================================================================
// MEMBER MONTHLY RECORDS
// =============================================================================

func (m *Memory) GetRecord(_ context.Context, key chit.RecordKey) (*chit.MemberMonthlyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, chit.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) PutRecord(_ context.Context, rec *chit.MemberMonthlyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.Key()] = copyRecord(rec)
	return nil
}

func (m *Memory) RecordsByMember(_ context.Context, venture chit.VentureID, member chit.MemberID) ([]*chit.MemberMonthlyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*chit.MemberMonthlyRecord
	for key, rec := range m.records {
		if key.Venture == venture && key.Member == member {
			result = append(result, copyRecord(rec))
		}
	}
	sortRecords(result)
	return result, nil
}

func (m *Memory) RecordsByPeriod(_ context.Context, venture chit.VentureID, period chit.Period) ([]*chit.MemberMonthlyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*chit.MemberMonthlyRecord
	for key, rec := range m.records {
		if key.Venture == venture && key.Period.Equal(period) {
			result = append(result, copyRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Member < result[j].Member })
	return result, nil
}

// =============================================================================
// VENTURE MONTHLY SUMMARIES
// =============================================================================

func (m *Memory) GetSummary(_ context.Context, venture chit.VentureID, period chit.Period) (*chit.VentureMonthlySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.summaries[summaryKey{Venture: venture, Period: period}]
	if !ok {
		return nil, chit.ErrSummaryNotFound
	}
	return copySummary(s), nil
}

func (m *Memory) PutSummary(_ context.Context, s *chit.VentureMonthlySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summaries[summaryKey{Venture: s.Venture, Period: s.Period}] = copySummary(s)
	return nil
}

func (m *Memory) SummariesByVenture(_ context.Context, venture chit.VentureID) ([]*chit.VentureMonthlySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*chit.VentureMonthlySummary
	for key, s := range m.summaries {
		if key.Venture == venture {
			result = append(result, copySummary(s))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period.Before(result[j].Period) })
	return result, nil
}

// =============================================================================
// DEEP COPIES
// =============================================================================

func copyVenture(v *chit.VentureAccount) *chit.VentureAccount {
	out := *v
	out.Members = make(map[chit.MemberID]chit.Role, len(v.Members))
	for id, role := range v.Members {
		out.Members[id] = role
	}
	out.ExitDues = make([]chit.ExitDue, len(v.ExitDues))
	for i, due := range v.ExitDues {
		out.ExitDues[i] = due
		out.ExitDues[i].Repayments = append([]chit.DueRepayment(nil), due.Repayments...)
	}
	return &out
}

func copyRecord(rec *chit.MemberMonthlyRecord) *chit.MemberMonthlyRecord {
	out := *rec
	if rec.PaidAt != nil {
		t := *rec.PaidAt
		out.PaidAt = &t
	}
	return &out
}

func copySummary(s *chit.VentureMonthlySummary) *chit.VentureMonthlySummary {
	out := *s
	out.Loans = append([]chit.LoanEntry(nil), s.Loans...)
	out.Exits = append([]chit.ExitEntry(nil), s.Exits...)
	return &out
}

func sortRecords(records []*chit.MemberMonthlyRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Period.Before(records[j].Period) })
}
