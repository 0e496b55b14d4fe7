/*
engine.go - Operation entry points and locking discipline

PURPOSE:
  The Engine ties the stores together and exposes the ledger operations:
  materialization, approval/redo, disbursement, lock/rollover, and exit
  settlement. Each operation lives in its own file; this file holds the
  shared plumbing.

CONCURRENCY DISCIPLINE:
  Single writer per venture. Every mutating operation acquires the venture's
  mutex before its read-modify-write cycle, because summary aggregates are
  not commutative-safe under concurrent writers. Reads need no lock and may
  observe a summary mid-update (acceptable for display, never for mutation).

DETERMINISM:
  The engine never reads the clock. "Current period" and payment timestamps
  are supplied by the caller, which keeps every operation deterministic and
  testable.

AUTHORIZATION:
  Not enforced here. The integrating layer must verify the caller is the
  venture's administrator before invoking admin-only operations (approve,
  disburse, lock, exit-settle).

SEE ALSO:
  - approval.go, loan.go, rollover.go, exit.go: the operations
  - store.go: the persistence boundary
*/
package chit

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store Store
	log   *logrus.Logger

	mu    sync.Mutex
	locks map[VentureID]*sync.Mutex
}

// NewEngine creates an engine over the given store. A nil logger disables
// logging.
func NewEngine(store Store, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Engine{
		store: store,
		log:   log,
		locks: make(map[VentureID]*sync.Mutex),
	}
}

// Store exposes the backing store for read-only collaborators (reporting).
func (e *Engine) Store() Store { return e.store }

// lockVenture serializes mutation per venture. Returns the unlock func.
func (e *Engine) lockVenture(id VentureID) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// adjustWallet applies delta through the venture's single wallet entry point
// and logs the resulting balance.
func (e *Engine) adjustWallet(v *VentureAccount, op string, delta decimal.Decimal) {
	balance := v.AdjustWallet(delta)
	e.log.WithFields(logrus.Fields{
		"venture": v.ID,
		"op":      op,
		"delta":   delta.String(),
		"balance": balance.String(),
	}).Info("wallet adjusted")
}

// =============================================================================
// SHARED LOADERS
// =============================================================================

func (e *Engine) loadVenture(ctx context.Context, id VentureID) (*VentureAccount, error) {
	return e.store.GetVenture(ctx, id)
}

// mutableSummary loads a summary and rejects it if the period is locked.
// Every mutator goes through this; the lock flag is the sole fence between
// a mutable period and frozen history.
func (e *Engine) mutableSummary(ctx context.Context, venture VentureID, period Period) (*VentureMonthlySummary, error) {
	s, err := e.store.GetSummary(ctx, venture, period)
	if err != nil {
		return nil, err
	}
	if s.Locked {
		return nil, ErrPeriodLocked
	}
	return s, nil
}

// =============================================================================
// MATERIALIZATION
// =============================================================================

// MaterializeMember creates the monthly record for a member with no prior
// history (venture creation or a fresh join). Fails with ErrRecordExists on
// a duplicate key so callers can never double-count a member in a summary.
func (e *Engine) MaterializeMember(ctx context.Context, venture VentureID, member MemberID, period Period) (*MemberMonthlyRecord, error) {
	unlock := e.lockVenture(venture)
	defer unlock()

	v, err := e.loadVenture(ctx, venture)
	if err != nil {
		return nil, err
	}
	if !v.HasMember(member) {
		return nil, ErrMemberNotFound
	}

	key := RecordKey{Venture: venture, Member: member, Period: period}
	if _, err := e.store.GetRecord(ctx, key); err == nil {
		return nil, ErrRecordExists
	} else if !IsNotFound(err) {
		return nil, err
	}

	rec := NewMemberRecord(v, member, period)
	if err := e.store.PutRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// EnsureSummary idempotently creates the summary for a period. The opening
// balance is the previous period's remaining balance, 0 if no previous
// period exists.
func (e *Engine) EnsureSummary(ctx context.Context, venture VentureID, period Period) (*VentureMonthlySummary, error) {
	unlock := e.lockVenture(venture)
	defer unlock()

	return e.ensureSummaryLocked(ctx, venture, period)
}

// ensureSummaryLocked is EnsureSummary without the venture lock, for callers
// that already hold it (rollover).
func (e *Engine) ensureSummaryLocked(ctx context.Context, venture VentureID, period Period) (*VentureMonthlySummary, error) {
	if s, err := e.store.GetSummary(ctx, venture, period); err == nil {
		return s, nil
	} else if !IsNotFound(err) {
		return nil, err
	}

	opening := decimal.Zero
	if prev, err := e.store.GetSummary(ctx, venture, period.Previous()); err == nil {
		opening = prev.RemainingBalance
	} else if !IsNotFound(err) {
		return nil, err
	}

	s := NewSummary(venture, period, opening)
	if err := e.store.PutSummary(ctx, s); err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"venture": venture,
		"period":  period.String(),
		"opening": opening.String(),
	}).Info("summary materialized")
	return s, nil
}
