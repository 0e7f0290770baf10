package keeper

import (
	"context"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	marketkeeper "github.com/openclaim/claimdex/x/market/keeper"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	"github.com/openclaim/claimdex/x/trade/types"
)

// Keeper executes bets against active markets.
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
		logger: logger.With("module", "x/trade"),
	}
}

// BetResult is what a successful bet returns to the caller.
type BetResult struct {
	Trade    *types.Trade
	Position *types.Position
	Market   *markettypes.Market
}

// PlaceBet executes a bet: shares are computed from the price before the bet
// moves the pools, the cc is locked, the market repriced, and the user's
// position on that side aggregated. Runs under the market's write lock.
func (k *Keeper) PlaceBet(ctx context.Context, userID, marketID string, side markettypes.Side, cc math.LegacyDec) (*BetResult, error) {
	if !side.Valid() {
		return nil, types.ErrInvalidDirection.Wrap(string(side))
	}
	if cc.IsNil() || !cc.IsPositive() {
		return nil, types.ErrInvalidAmount
	}

	var res *BetResult
	err := k.market.WithMarketLock(marketID, func() error {
		m, err := k.market.Get(ctx, marketID)
		if err != nil {
			return err
		}
		if !m.IsActive() {
			return markettypes.ErrMarketNotActive.Wrap(string(m.Status))
		}

		// Shares execute at the pre-bet price snapshot.
		executionPrice := m.Price
		var shares math.LegacyDec
		if side == markettypes.SideTrue {
			shares, err = markettypes.SharesLong(cc, executionPrice)
		} else {
			shares, err = markettypes.SharesShort(cc, executionPrice)
		}
		if err != nil {
			return err
		}

		if _, err := k.ledger.Lock(ctx, userID, cc); err != nil {
			return err
		}
		rollbackLock := func() {
			if _, uerr := k.ledger.Unlock(ctx, userID, cc); uerr != nil {
				k.logger.Error("bet rollback failed", "user_id", userID, "err", uerr)
			}
		}

		m.ApplyBet(side, cc)
		if err := k.store.UpdateMarket(ctx, m); err != nil {
			rollbackLock()
			return err
		}

		pos, err := k.upsertPosition(ctx, userID, marketID, side, shares, executionPrice, cc)
		if err != nil {
			rollbackLock()
			return err
		}

		trade := &types.Trade{
			ID:               uuid.NewString(),
			UserID:           userID,
			MarketID:         marketID,
			Side:             side,
			CCAmount:         cc,
			Shares:           shares,
			PriceAtExecution: executionPrice,
			CreatedAt:        time.Now().UTC(),
		}
		if err := k.store.AppendTrade(ctx, trade); err != nil {
			// The bet itself already landed; losing the audit row is
			// log-worthy but not fatal.
			k.logger.Error("trade append failed", "market_id", marketID, "err", err)
		}

		res = &BetResult{Trade: trade, Position: pos, Market: m}
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.logger.Info("bet placed",
		"market_id", marketID, "user_id", userID, "side", string(side),
		"cc", cc.String(), "shares", res.Trade.Shares.String(),
		"price", res.Trade.PriceAtExecution.String())
	return res, nil
}

// upsertPosition folds the bet into the user's open position on that side,
// creating it on first touch.
func (k *Keeper) upsertPosition(ctx context.Context, userID, marketID string, side markettypes.Side, shares, price, cc math.LegacyDec) (*types.Position, error) {
	existing, err := k.store.GetOpenPosition(ctx, userID, marketID, side)
	if err == nil {
		existing.AddBet(shares, cc)
		if err := k.store.UpdatePosition(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !store.ErrNotFound.Is(err) {
		return nil, err
	}

	pos := types.NewPosition(uuid.NewString(), userID, marketID, side, shares, price, cc)
	if err := k.store.CreatePosition(ctx, pos); err != nil {
		return nil, err
	}
	return pos, nil
}

// Positions lists a user's positions, newest first.
func (k *Keeper) Positions(ctx context.Context, userID string) ([]*types.Position, error) {
	if _, err := k.ledger.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return k.store.ListPositionsByUser(ctx, userID)
}

// WinRate returns won/(won+lost) for a user's settled positions, or zero when
// nothing has settled yet.
func WinRate(positions []*types.Position) math.LegacyDec {
	var won, lost int64
	for _, p := range positions {
		switch p.Status {
		case types.PositionStatusWon:
			won++
		case types.PositionStatusLost:
			lost++
		}
	}
	if won+lost == 0 {
		return math.LegacyZeroDec()
	}
	return math.LegacyNewDec(won).Quo(math.LegacyNewDec(won + lost))
}
