/*
venture.go - Venture account, wallet, and exit dues

PURPOSE:
  The VentureAccount carries the pool's fixed parameters (contribution,
  interest rate, repayment rate, loan ceiling), the wallet (cash available to
  disburse), the membership snapshot, and any pending exit dues.

WALLET DISCIPLINE:
  Every wallet mutation in the engine goes through AdjustWallet. The wallet
  MAY go negative on disbursement — that is intentional overdraft capability,
  not a bug. AdjustWallet returns the resulting balance so call sites can log
  it.

MEMBERSHIP:
  The membership map is a snapshot supplied and owned by the integrating
  layer. The engine reads it, and mutates it in exactly one place: exit
  settlement removes the leaving member (the settlement result reports the
  removal so the collaborator can mirror it).

SEE ALSO:
  - exit.go: creates and repays ExitDues
  - engine.go: persists venture mutations through the Store
*/
package chit

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VENTURE ACCOUNT
// =============================================================================

type VentureAccount struct {
	ID   VentureID
	Name string

	// Fixed parameters, set at registration.
	Contribution  decimal.Decimal // fixed monthly contribution per member
	InterestRate  decimal.Decimal // % per period on outstanding principal
	RepaymentRate decimal.Decimal // % of principal repaid per period (EMI)
	MaxLoan       decimal.Decimal // per-loan ceiling

	// Wallet is the cash currently available to disburse. Mutated by every
	// approval, disbursement, and exit settlement.
	Wallet decimal.Decimal

	// Membership snapshot: member id → role.
	Members map[MemberID]Role

	Status VentureStatus

	// ExitDues tracks debt still owed after exit settlements that could not
	// be fully paid (either direction).
	ExitDues []ExitDue

	CreatedAt time.Time
}

// NewVentureAccount creates an active venture with the given parameters and
// an empty wallet.
func NewVentureAccount(id VentureID, name string, contribution, interestRate, repaymentRate, maxLoan decimal.Decimal) *VentureAccount {
	return &VentureAccount{
		ID:            id,
		Name:          name,
		Contribution:  contribution,
		InterestRate:  interestRate,
		RepaymentRate: repaymentRate,
		MaxLoan:       maxLoan,
		Wallet:        decimal.Zero,
		Members:       make(map[MemberID]Role),
		Status:        VentureActive,
	}
}

// AdjustWallet applies delta and returns the resulting balance.
// This is the single entry point for wallet mutation. Negative results are
// permitted (overdraft on disbursement).
func (v *VentureAccount) AdjustWallet(delta decimal.Decimal) decimal.Decimal {
	v.Wallet = v.Wallet.Add(delta)
	return v.Wallet
}

// ActiveMemberCount returns the size of the current membership snapshot.
func (v *VentureAccount) ActiveMemberCount() int { return len(v.Members) }

// HasMember reports whether the member is part of the venture.
func (v *VentureAccount) HasMember(member MemberID) bool {
	_, ok := v.Members[member]
	return ok
}

// MemberIDs returns the membership as a slice, in no particular order.
func (v *VentureAccount) MemberIDs() []MemberID {
	ids := make([]MemberID, 0, len(v.Members))
	for id := range v.Members {
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// EXIT DUES - Debt left pending after a settlement
// =============================================================================

// DueRepayment is one installment against an exit due.
type DueRepayment struct {
	Amount decimal.Decimal
	At     time.Time
}

// ExitDue is outstanding debt attached to the venture after an exit
// settlement that could not be fully paid. Removed once outstanding hits 0.
type ExitDue struct {
	Member      MemberID
	Outstanding decimal.Decimal
	Repayments  []DueRepayment
}

// DueFor returns the exit due for a member, with an explicit present/absent
// result instead of a nullable scan.
func (v *VentureAccount) DueFor(member MemberID) (*ExitDue, bool) {
	for i := range v.ExitDues {
		if v.ExitDues[i].Member == member {
			return &v.ExitDues[i], true
		}
	}
	return nil, false
}

// addDue creates or extends the exit due for a member.
func (v *VentureAccount) addDue(member MemberID, amount decimal.Decimal) {
	if due, ok := v.DueFor(member); ok {
		due.Outstanding = due.Outstanding.Add(amount)
		return
	}
	v.ExitDues = append(v.ExitDues, ExitDue{Member: member, Outstanding: amount})
}

// removeDue drops the member's due entirely.
func (v *VentureAccount) removeDue(member MemberID) {
	for i := range v.ExitDues {
		if v.ExitDues[i].Member == member {
			v.ExitDues = append(v.ExitDues[:i], v.ExitDues[i+1:]...)
			return
		}
	}
}
