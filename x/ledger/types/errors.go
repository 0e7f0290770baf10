package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrUserNotFound       = errors.Register("ledger", 1, "user not found")
	ErrInsufficientFunds  = errors.Register("ledger", 2, "insufficient available balance")
	ErrInsufficientLocked = errors.Register("ledger", 3, "insufficient locked balance")
	ErrInvalidAmount      = errors.Register("ledger", 4, "amount must be positive")
	ErrPseudonymTaken     = errors.Register("ledger", 5, "pseudonym already in use")
	ErrInvalidPseudonym   = errors.Register("ledger", 6, "invalid pseudonym")
	ErrConflict           = errors.Register("ledger", 7, "concurrent balance update conflict")
)
