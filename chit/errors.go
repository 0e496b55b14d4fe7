/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All sentinel errors in one place, grouped into the kinds the integrating
  layer renders: NotFound, InvalidState, InvalidAmount, InsufficientFunds,
  AlreadyExists.

PROPAGATION POLICY:
  Single-entity operations (approve, redo, lock) fail the whole call on any
  violation with no partial effect. Batch disbursement isolates failures per
  entry and reports them alongside the success count. Nothing here is
  auto-retried; retries are the integrating layer's responsibility.

USAGE:
  if errors.Is(err, chit.ErrAlreadyLocked) { ... }
  outcome := chit.Describe(err)   // structured {Success, Message, Kind}

SEE ALSO:
  - result.go: Outcome rendering
  - loan.go: DisbursementFailure per-entry errors
*/
package chit

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Not found.
	ErrVentureNotFound = errors.New("venture not found")
	ErrRecordNotFound  = errors.New("member monthly record not found")
	ErrSummaryNotFound = errors.New("venture monthly summary not found")
	ErrMemberNotFound  = errors.New("member not part of venture")
	ErrNoSuchDue       = errors.New("no exit due for member")

	// Invalid lifecycle state.
	ErrAlreadyApproved = errors.New("record already approved")
	ErrNotApproved     = errors.New("record not approved")
	ErrAlreadyLocked   = errors.New("period already locked")
	ErrNotLocked       = errors.New("period not locked")
	ErrPeriodLocked    = errors.New("period is locked against mutation")

	// Invalid amounts.
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidPartPayment = errors.New("part payment exceeds repayable principal")
	ErrOverCeiling        = errors.New("loan amount exceeds venture ceiling")
	ErrOverPayment        = errors.New("repayment exceeds outstanding due")

	// Funds.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Duplicates.
	ErrRecordExists = errors.New("member monthly record already exists")
)

// =============================================================================
// ERROR KINDS - Taxonomy the integrating layer renders
// =============================================================================

type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNotFound          ErrorKind = "not_found"
	KindInvalidState      ErrorKind = "invalid_state"
	KindInvalidAmount     ErrorKind = "invalid_amount"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindAlreadyExists     ErrorKind = "already_exists"
	KindInternal          ErrorKind = "internal"
)

// KindOf classifies an error into the taxonomy. Unknown errors (storage
// failures and the like) classify as KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrVentureNotFound),
		errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrSummaryNotFound),
		errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrNoSuchDue):
		return KindNotFound
	case errors.Is(err, ErrAlreadyApproved),
		errors.Is(err, ErrNotApproved),
		errors.Is(err, ErrAlreadyLocked),
		errors.Is(err, ErrNotLocked),
		errors.Is(err, ErrPeriodLocked):
		return KindInvalidState
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidPartPayment),
		errors.Is(err, ErrOverCeiling),
		errors.Is(err, ErrOverPayment):
		return KindInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrRecordExists):
		return KindAlreadyExists
	default:
		return KindInternal
	}
}

// IsClientError reports whether the error is due to invalid caller input or
// state, as opposed to a storage/internal failure.
func IsClientError(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindInternal
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// =============================================================================
// STRUCTURED ERRORS - Carry amounts for messages
// =============================================================================

// PartPaymentError reports a part payment larger than the principal left
// after this period's EMI (remaining loan − emi due).
type PartPaymentError struct {
	Member        MemberID
	Period        Period
	PartPayment   decimal.Decimal
	RemainingLoan decimal.Decimal
	EMIDue        decimal.Decimal
}

func (e *PartPaymentError) Error() string {
	return fmt.Sprintf("part payment %s exceeds repayable principal (remaining loan %s, emi %s) for %s in %s",
		e.PartPayment, e.RemainingLoan, e.EMIDue, e.Member, e.Period)
}

func (e *PartPaymentError) Unwrap() error { return ErrInvalidPartPayment }

// CeilingError reports a disbursement above the venture's maximum loan.
type CeilingError struct {
	Member  MemberID
	Amount  decimal.Decimal
	MaxLoan decimal.Decimal
}

func (e *CeilingError) Error() string {
	return fmt.Sprintf("loan %s to %s exceeds ceiling %s", e.Amount, e.Member, e.MaxLoan)
}

func (e *CeilingError) Unwrap() error { return ErrOverCeiling }

// ShortfallError reports an operation that would need more cash than the
// venture has available.
type ShortfallError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s", e.Requested, e.Available)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientFunds }
