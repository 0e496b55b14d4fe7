/*
Package chit implements the monthly ledger and settlement engine for a
rotating-savings/loan pool ("chit fund").

PURPOSE:
  Members contribute a fixed amount into a shared pool every month; the pool
  issues loans against that balance; loans accrue interest and are repaid via
  fixed-percentage monthly installments; leaving members are settled against
  their lifetime contributions, their share of accrued interest, and their
  outstanding debt. This package is the bookkeeping core only: it materializes
  per-member and per-venture monthly records, reconciles them into a single
  remaining balance, locks months, rolls state into the next month, and
  computes exit settlements.

KEY CONCEPTS IN THIS FILE (types.go):
  - VentureID / MemberID: type-safe identifiers
  - ApprovalStatus: lifecycle of a member's monthly record
  - PercentOf: the one place interest/EMI percentages are derived

DESIGN PRINCIPLES:
  1. Determinism: the engine never reads the clock; callers pass the period
  2. Precision: decimal.Decimal for every monetary field
  3. Single source of truth: summary balances are always recomputed, never set
  4. Resumability: multi-step operations are idempotent, not transactional

OUT OF SCOPE (handled by the integrating layer):
  HTTP, authentication, authorization (admin checks are the caller's job),
  member-name joins, retries on transient storage failures.

SEE ALSO:
  - period.go: the (month, year) coordinate every entity is keyed by
  - record.go / summary.go: the two persisted ledger shapes
  - engine.go: operation entry points and locking discipline
*/
package chit

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type VentureID string
type MemberID string

// Role of a member inside a venture. The engine only reads roles; enforcing
// that admin-only operations are called by the admin is the caller's job.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// =============================================================================
// LIFECYCLE STATES
// =============================================================================

// ApprovalStatus tracks a member monthly record through its lifecycle:
//
//	none ──▶ pending ──▶ approved
//	  ▲                     │
//	  └───────── redo ──────┘
//
// Redo is a compensating reversal, not a fourth state.
type ApprovalStatus string

const (
	StatusNone     ApprovalStatus = "none"
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
)

type VentureStatus string

const (
	VentureActive   VentureStatus = "active"
	VentureInactive VentureStatus = "inactive"
)

// ExitStatus is the outcome of an exit settlement.
type ExitStatus string

const (
	// ExitCompleted: the leaving member was fully paid, or their debt to the
	// venture was recorded in full. Nothing is pending.
	ExitCompleted ExitStatus = "COMPLETED"

	// ExitPartiallyPaid: the venture could not cover the full payout; the
	// shortfall is tracked as an ExitDue until repaid.
	ExitPartiallyPaid ExitStatus = "PARTIALLY_PAID"
)

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

// PercentOf returns base × rate / 100. All interest and EMI derivation goes
// through this so rounding behavior stays uniform.
func PercentOf(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}
