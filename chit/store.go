/*
store.go - Persistence interface for ventures, records, and summaries

PURPOSE:
  Defines the boundary between the ledger engine and the backing store. Any
  durable keyed store works; implementations exist for in-memory maps
  (chit/store) and SQLite (store/sqlite).

CONTRACT:
  - Get* return the sentinel NotFound errors from errors.go when absent.
  - Put* upsert by key.
  - Implementations return copies (or otherwise guarantee the engine's
    read-modify-write cycle is the only way state changes); the engine never
    mutates shared store memory in place.
  - Records are append-only history from the engine's point of view: the
    engine never deletes a record and no Delete method exists for them.

CONCURRENCY:
  The engine serializes all mutation per venture (see engine.go); stores only
  need to be safe for concurrent reads alongside one writer.

IMPLEMENTATIONS:
  - chit/store/memory.go: in-memory, for tests and development
  - store/sqlite/sqlite.go: durable, WAL, auto-migrated schema
*/
package chit

import "context"

// Store is the persistence boundary for the ledger engine.
type Store interface {
	// Ventures.
	GetVenture(ctx context.Context, id VentureID) (*VentureAccount, error)
	PutVenture(ctx context.Context, v *VentureAccount) error

	// Member monthly records.
	GetRecord(ctx context.Context, key RecordKey) (*MemberMonthlyRecord, error)
	PutRecord(ctx context.Context, rec *MemberMonthlyRecord) error

	// RecordsByMember returns every record of one member in one venture, in
	// chronological period order.
	RecordsByMember(ctx context.Context, venture VentureID, member MemberID) ([]*MemberMonthlyRecord, error)

	// RecordsByPeriod returns every member record of one venture period.
	RecordsByPeriod(ctx context.Context, venture VentureID, period Period) ([]*MemberMonthlyRecord, error)

	// Venture monthly summaries.
	GetSummary(ctx context.Context, venture VentureID, period Period) (*VentureMonthlySummary, error)
	PutSummary(ctx context.Context, s *VentureMonthlySummary) error

	// SummariesByVenture returns all summaries of a venture in chronological
	// period order. Used by exit calculation and reporting.
	SummariesByVenture(ctx context.Context, venture VentureID) ([]*VentureMonthlySummary, error)
}
