package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrMarketNotFound  = errors.Register("market", 1, "market not found")
	ErrMarketNotActive = errors.Register("market", 2, "market is not active")
	ErrStakeTooLow     = errors.Register("market", 3, "stake below minimum")
	ErrNotSubmitter    = errors.Register("market", 4, "only the submitter may delete a market")
	ErrEmptyText       = errors.Register("market", 5, "claim text is required")
	ErrInvalidInput    = errors.Register("market", 6, "invalid pricing input")
	ErrInvalidSide     = errors.Register("market", 7, "side must be true or false")
)
