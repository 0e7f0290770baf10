package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrAlreadySettled = errors.Register("settlement", 1, "market already settled")
	ErrInvalidOutcome = errors.Register("settlement", 2, "outcome must be true or false")
)
