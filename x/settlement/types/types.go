package types

import (
	"cosmossdk.io/math"

	markettypes "github.com/openclaim/claimdex/x/market/types"
)

// Payout records one user's credit from a settlement.
type Payout struct {
	UserID string
	Amount math.LegacyDec
}

// Summary describes a completed settlement.
type Summary struct {
	MarketID string
	Outcome  markettypes.Side

	TotalPool          math.LegacyDec
	TotalWinningShares math.LegacyDec

	Payouts   []Payout
	Winners   []string
	Losers    []string
	TotalPaid math.LegacyDec
}

// Refund records one user's refund from a market deletion.
type Refund struct {
	UserID string
	Amount math.LegacyDec
	// Kind is "position" or "submitter".
	Kind string
}
