package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInvalidAmount    = errors.Register("trade", 1, "cc_amount must be greater than zero")
	ErrInvalidDirection = errors.Register("trade", 2, "direction must be long or short")
	ErrPositionNotFound = errors.Register("trade", 3, "position not found")
)
