package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInvalidVerdict = errors.Register("oracle", 1, "verdict must be true or false")
	ErrStakeTooLow    = errors.Register("oracle", 2, "report stake below minimum")
	ErrDuplicateVote  = errors.Register("oracle", 3, "oracle already reported on this market")
	ErrRateLimited    = errors.Register("oracle", 4, "too many reports from this address, try later")
	ErrOracleNotFound = errors.Register("oracle", 5, "oracle not found")
)
