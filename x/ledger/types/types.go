package types

import (
	"time"

	"cosmossdk.io/math"
)

// User represents a participant's balance sheet. Every CC amount in the
// system lives either in Available or Locked; the two move against each
// other only through the ledger keeper primitives.
type User struct {
	ID        string
	Pseudonym string

	Available   math.LegacyDec // spendable CC
	Locked      math.LegacyDec // CC committed to open positions, stakes and reports
	TotalEarned math.LegacyDec // monotonic
	TotalLost   math.LegacyDec // monotonic

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version is the optimistic-concurrency token checked by Store.UpdateUser.
	Version int64
}

// NewUser creates a user with the standard signup grant.
func NewUser(id, pseudonym string, initialBalance math.LegacyDec) *User {
	now := time.Now().UTC()
	return &User{
		ID:          id,
		Pseudonym:   pseudonym,
		Available:   initialBalance,
		Locked:      math.LegacyZeroDec(),
		TotalEarned: math.LegacyZeroDec(),
		TotalLost:   math.LegacyZeroDec(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// TotalBalance returns available + locked.
func (u *User) TotalBalance() math.LegacyDec {
	return u.Available.Add(u.Locked)
}

// Lock moves amt from available to locked.
func (u *User) Lock(amt math.LegacyDec) error {
	if !amt.IsPositive() {
		return ErrInvalidAmount
	}
	if amt.GT(u.Available) {
		return ErrInsufficientFunds
	}
	u.Available = u.Available.Sub(amt)
	u.Locked = u.Locked.Add(amt)
	return nil
}

// Unlock moves amt from locked back to available.
func (u *User) Unlock(amt math.LegacyDec) error {
	if !amt.IsPositive() {
		return ErrInvalidAmount
	}
	if amt.GT(u.Locked) {
		return ErrInsufficientLocked
	}
	u.Locked = u.Locked.Sub(amt)
	u.Available = u.Available.Add(amt)
	return nil
}

// CreditCategory classifies a credit for bookkeeping purposes.
type CreditCategory string

const (
	CreditEarnings CreditCategory = "earnings"
	CreditRefund   CreditCategory = "refund"
)

// Credit adds amt to available. Earnings additionally accrue TotalEarned.
func (u *User) Credit(amt math.LegacyDec, category CreditCategory) error {
	if amt.IsNegative() {
		return ErrInvalidAmount
	}
	u.Available = u.Available.Add(amt)
	if category == CreditEarnings {
		u.TotalEarned = u.TotalEarned.Add(amt)
	}
	return nil
}

// DebitFromLocked removes amt from locked without crediting available
// (slashing) and accrues TotalLost.
func (u *User) DebitFromLocked(amt math.LegacyDec) error {
	if !amt.IsPositive() {
		return ErrInvalidAmount
	}
	if amt.GT(u.Locked) {
		return ErrInsufficientLocked
	}
	u.Locked = u.Locked.Sub(amt)
	u.TotalLost = u.TotalLost.Add(amt)
	return nil
}
