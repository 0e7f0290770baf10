package keeper

import (
	"context"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	marketkeeper "github.com/openclaim/claimdex/x/market/keeper"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	"github.com/openclaim/claimdex/x/settlement/types"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

// Keeper redistributes a market's pool once an outcome is known.
type Keeper struct {
	store  store.Store
	ledger *ledgerkeeper.Keeper
	market *marketkeeper.Keeper
	logger log.Logger
}

func NewKeeper(st store.Store, ledger *ledgerkeeper.Keeper, market *marketkeeper.Keeper, logger log.Logger) *Keeper {
	return &Keeper{
		store:  st,
		ledger: ledger,
		market: market,
		logger: logger.With("module", "x/settlement"),
	}
}

// Settle resolves the market to outcome and pays the pool out pro rata by
// winning shares. The status transition is the final write, and the store's
// conditional transition guarantees at most one settlement per market.
func (k *Keeper) Settle(ctx context.Context, marketID string, outcome markettypes.Side) (*types.Summary, error) {
	if !outcome.Valid() {
		return nil, types.ErrInvalidOutcome
	}

	var summary *types.Summary
	err := k.market.WithMarketLock(marketID, func() error {
		m, err := k.market.Get(ctx, marketID)
		if err != nil {
			return err
		}
		if !m.IsActive() {
			return types.ErrAlreadySettled.Wrap(string(m.Status))
		}

		positions, err := k.store.ListOpenPositionsByMarket(ctx, marketID)
		if err != nil {
			return err
		}

		var winners, losers []*tradetypes.Position
		totalWinningShares := math.LegacyZeroDec()
		for _, p := range positions {
			if p.Side == outcome {
				winners = append(winners, p)
				totalWinningShares = totalWinningShares.Add(p.Shares)
			} else {
				losers = append(losers, p)
			}
		}

		summary = &types.Summary{
			MarketID:           marketID,
			Outcome:            outcome,
			TotalPool:          m.TotalPool(),
			TotalWinningShares: totalWinningShares,
			TotalPaid:          math.LegacyZeroDec(),
		}

		// Losers first: their locked cost basis is slashed, which is the
		// capital the winners' payouts draw on.
		for _, p := range losers {
			if _, err := k.ledger.DebitFromLocked(ctx, p.UserID, p.CostBasis); err != nil {
				k.logger.Error("loser slash failed",
					"market_id", marketID, "position_id", p.ID, "err", err)
				continue
			}
			k.closePosition(ctx, p, tradetypes.PositionStatusLost)
			summary.Losers = append(summary.Losers, p.UserID)
		}

		for _, p := range winners {
			// With winners present totalWinningShares is positive.
			payout := p.Shares.Quo(totalWinningShares).Mul(summary.TotalPool)
			if _, err := k.ledger.UnlockAndCredit(ctx, p.UserID, p.CostBasis, payout); err != nil {
				k.logger.Error("winner payout failed",
					"market_id", marketID, "position_id", p.ID, "err", err)
				continue
			}
			k.closePosition(ctx, p, tradetypes.PositionStatusWon)
			summary.Winners = append(summary.Winners, p.UserID)
			summary.Payouts = append(summary.Payouts, types.Payout{UserID: p.UserID, Amount: payout})
			summary.TotalPaid = summary.TotalPaid.Add(payout)
		}

		if err := k.settleSubmitter(ctx, m, outcome); err != nil {
			k.logger.Error("submitter settlement failed", "market_id", marketID, "err", err)
		}

		// Status flip last: once a reader observes a terminal status, every
		// balance movement has already happened.
		err = k.store.TransitionMarketStatus(ctx, marketID,
			markettypes.MarketStatusActive, markettypes.ResolvedStatus(outcome))
		if store.ErrStatusConflict.Is(err) {
			return types.ErrAlreadySettled.Wrap(marketID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	k.logger.Info("market settled",
		"market_id", marketID, "outcome", string(outcome),
		"pool", summary.TotalPool.String(), "paid", summary.TotalPaid.String(),
		"winners", len(summary.Winners), "losers", len(summary.Losers))
	return summary, nil
}

// settleSubmitter pays double stake on a true resolution and slashes the
// stake on a false one.
func (k *Keeper) settleSubmitter(ctx context.Context, m *markettypes.Market, outcome markettypes.Side) error {
	if outcome == markettypes.SideTrue {
		_, err := k.ledger.UnlockAndCredit(ctx, m.SubmitterID, m.Stake, m.Stake)
		return err
	}
	_, err := k.ledger.DebitFromLocked(ctx, m.SubmitterID, m.Stake)
	return err
}

func (k *Keeper) closePosition(ctx context.Context, p *tradetypes.Position, status tradetypes.PositionStatus) {
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	if err := k.store.UpdatePosition(ctx, p); err != nil {
		k.logger.Error("position close failed", "position_id", p.ID, "err", err)
	}
}
