package types

import (
	"time"

	"cosmossdk.io/math"
)

// Side is the binary outcome a bet or report is attached to.
type Side string

const (
	SideTrue  Side = "true"
	SideFalse Side = "false"
)

// Valid reports whether the side is one of the two defined outcomes.
func (s Side) Valid() bool {
	return s == SideTrue || s == SideFalse
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideTrue {
		return SideFalse
	}
	return SideTrue
}

// MarketStatus is the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive        MarketStatus = "active"
	MarketStatusResolvedTrue  MarketStatus = "resolved_true"
	MarketStatusResolvedFalse MarketStatus = "resolved_false"
	MarketStatusDeleted       MarketStatus = "deleted"
)

// Terminal reports whether the status is immutable.
func (s MarketStatus) Terminal() bool {
	return s == MarketStatusResolvedTrue || s == MarketStatusResolvedFalse || s == MarketStatusDeleted
}

// ResolvedStatus maps an outcome to the matching terminal status.
func ResolvedStatus(outcome Side) MarketStatus {
	if outcome == SideTrue {
		return MarketStatusResolvedTrue
	}
	return MarketStatusResolvedFalse
}

// MinStake is the floor on a submitter's collateral commitment.
var MinStake = math.LegacyNewDec(10)

// Market holds a binary claim, the pooled collateral on each side, and the
// price derived from the pools. Pool totals are bookkeeping aggregates; the
// CC itself sits in per-user locked balances.
type Market struct {
	ID          string
	Text        string
	Category    string
	SubmitterID string

	Stake         math.LegacyDec // submitter's locked commitment, seeds both pools
	TotalBetTrue  math.LegacyDec
	TotalBetFalse math.LegacyDec
	Price         math.LegacyDec // in [0.01, 0.99]

	Status MarketStatus

	// Advisory only, never authoritative.
	AIPrediction string
	AIConfidence int
	Embedding    []float64

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time

	Version int64
}

// NewMarket seeds both pools with the stake (symmetric prior, price 0.50).
func NewMarket(id, text, category, submitterID string, stake math.LegacyDec) *Market {
	now := time.Now().UTC()
	return &Market{
		ID:            id,
		Text:          text,
		Category:      category,
		SubmitterID:   submitterID,
		Stake:         stake,
		TotalBetTrue:  stake,
		TotalBetFalse: stake,
		Price:         math.LegacyNewDecWithPrec(50, 2),
		Status:        MarketStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
}

// IsActive reports whether the market accepts trades and reports.
func (m *Market) IsActive() bool {
	return m.Status == MarketStatusActive
}

// TotalPool is the redistributable capital at settlement.
func (m *Market) TotalPool() math.LegacyDec {
	return m.TotalBetTrue.Add(m.TotalBetFalse)
}

// ApplyBet adds cc to the chosen side's pool and reprices the market.
func (m *Market) ApplyBet(side Side, cc math.LegacyDec) {
	if side == SideTrue {
		m.TotalBetTrue = m.TotalBetTrue.Add(cc)
	} else {
		m.TotalBetFalse = m.TotalBetFalse.Add(cc)
	}
	m.Price = Price(m.TotalBetTrue, m.TotalBetFalse)
	m.UpdatedAt = time.Now().UTC()
}
