package types

import (
	"time"

	"cosmossdk.io/math"

	markettypes "github.com/openclaim/claimdex/x/market/types"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusWon     PositionStatus = "won"
	PositionStatusLost    PositionStatus = "lost"
	PositionStatusClosed  PositionStatus = "closed"
	PositionStatusDeleted PositionStatus = "deleted"
)

// Position aggregates a user's bets on one side of a market. At most one
// open position exists per (user, market, side); further bets on that side
// mutate it.
type Position struct {
	ID       string
	UserID   string
	MarketID string
	Side     markettypes.Side

	Shares     math.LegacyDec // claim on the pool if Side wins
	EntryPrice math.LegacyDec // volume-weighted average, in (0,1)
	CostBasis  math.LegacyDec // total CC committed; equals the CC locked for this position
	Collateral math.LegacyDec // informational, see markettypes.Collateral

	Status PositionStatus

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// NewPosition opens a position from a first bet executed at price.
func NewPosition(id, userID, marketID string, side markettypes.Side, shares, price, cc math.LegacyDec) *Position {
	now := time.Now().UTC()
	return &Position{
		ID:         id,
		UserID:     userID,
		MarketID:   marketID,
		Side:       side,
		Shares:     shares,
		EntryPrice: price,
		CostBasis:  cc,
		Collateral: markettypes.Collateral(side, shares, price),
		Status:     PositionStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
}

// AddBet folds an additional bet into the position. Share counts accumulate
// and the entry price is recomputed from the new cost basis so pro-rata
// payout semantics stay correct:
//
//	long:  entry = cost / shares
//	short: entry = 1 − cost / shares, clamped to [0.01, 0.99]
func (p *Position) AddBet(shares, cc math.LegacyDec) {
	p.Shares = p.Shares.Add(shares)
	p.CostBasis = p.CostBasis.Add(cc)

	if p.Shares.IsPositive() {
		ratio := p.CostBasis.Quo(p.Shares)
		if p.Side == markettypes.SideTrue {
			p.EntryPrice = ratio
		} else {
			p.EntryPrice = markettypes.ClampPrice(math.LegacyOneDec().Sub(ratio))
		}
	}
	p.Collateral = markettypes.Collateral(p.Side, p.Shares, p.EntryPrice)
	p.UpdatedAt = time.Now().UTC()
}

// Trade is an append-only audit entry for a single executed bet. Price is
// the pre-update snapshot the bet executed at.
type Trade struct {
	ID       string
	UserID   string
	MarketID string
	Side     markettypes.Side

	CCAmount         math.LegacyDec
	Shares           math.LegacyDec
	PriceAtExecution math.LegacyDec

	CreatedAt time.Time
}
