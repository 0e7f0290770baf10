package keeper

import (
	"context"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	marketkeeper "github.com/openclaim/claimdex/x/market/keeper"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	"github.com/openclaim/claimdex/x/trade/types"
)

func dec(s string) math.LegacyDec {
	return math.LegacyMustNewDecFromStr(s)
}

type env struct {
	store  store.Store
	ledger *ledgerkeeper.Keeper
	market *marketkeeper.Keeper
	trade  *Keeper
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemory()
	logger := log.NewNopLogger()
	ledger := ledgerkeeper.NewKeeper(st, logger)
	market := marketkeeper.NewKeeper(st, ledger, nil, logger)
	return &env{
		store:  st,
		ledger: ledger,
		market: market,
		trade:  NewKeeper(st, ledger, market, logger),
	}
}

func (e *env) user(t *testing.T, pseudonym string) string {
	t.Helper()
	u, _, err := e.ledger.Initialize(context.Background(), pseudonym)
	require.NoError(t, err)
	return u.ID
}

func (e *env) activeMarket(t *testing.T, submitter string) *markettypes.Market {
	t.Helper()
	m, err := e.market.Submit(context.Background(), submitter,
		"the cafeteria switches to oat milk", "other", dec("10"))
	require.NoError(t, err)
	return m
}

func TestPlaceBetLongAtEvenPrice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	bettor := e.user(t, "bettor_one")
	m := e.activeMarket(t, submitter)

	res, err := e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("20"))
	require.NoError(t, err)

	// 20 CC at price 0.50 buys 40 shares; pools become 30/10, price 0.75.
	require.True(t, res.Trade.Shares.Equal(dec("40")))
	require.True(t, res.Trade.PriceAtExecution.Equal(dec("0.5")))
	require.True(t, res.Market.Price.Equal(dec("0.75")))
	require.True(t, res.Position.Shares.Equal(dec("40")))
	require.True(t, res.Position.CostBasis.Equal(dec("20")))
	require.True(t, res.Position.EntryPrice.Equal(dec("0.5")))

	u, err := e.ledger.GetUser(ctx, bettor)
	require.NoError(t, err)
	require.True(t, u.Available.Equal(dec("80")))
	require.True(t, u.Locked.Equal(dec("20")))
}

func TestPlaceBetShortUsesComplementPrice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	long := e.user(t, "long_side")
	short := e.user(t, "short_side")
	m := e.activeMarket(t, submitter)

	_, err := e.trade.PlaceBet(ctx, long, m.ID, markettypes.SideTrue, dec("20"))
	require.NoError(t, err)

	// Price is now 0.75; a short bet of 15 CC buys 15/0.25 = 60 shares.
	res, err := e.trade.PlaceBet(ctx, short, m.ID, markettypes.SideFalse, dec("15"))
	require.NoError(t, err)
	require.True(t, res.Trade.Shares.Equal(dec("60")))
	require.True(t, res.Trade.PriceAtExecution.Equal(dec("0.75")))

	// Pools 30/25 -> price 30/55.
	require.True(t, res.Market.Price.Equal(dec("30").Quo(dec("55"))))
}

func TestPlaceBetAggregatesPosition(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	bettor := e.user(t, "repeat_bettor")
	m := e.activeMarket(t, submitter)

	first, err := e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("20"))
	require.NoError(t, err)
	second, err := e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("15"))
	require.NoError(t, err)

	// Same position row, accumulated shares and cost.
	require.Equal(t, first.Position.ID, second.Position.ID)
	wantShares := dec("40").Add(dec("15").Quo(dec("0.75")))
	require.True(t, second.Position.Shares.Equal(wantShares))
	require.True(t, second.Position.CostBasis.Equal(dec("35")))
	// Entry price is cost/shares for longs.
	require.True(t, second.Position.EntryPrice.Equal(dec("35").Quo(wantShares)))

	n, err := e.store.CountPositionsByMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	trades, err := e.store.ListTradesByMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, trades, 2)
}

func TestPlaceBetOppositeSidesSeparatePositions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	bettor := e.user(t, "hedger")
	m := e.activeMarket(t, submitter)

	a, err := e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("10"))
	require.NoError(t, err)
	b, err := e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideFalse, dec("10"))
	require.NoError(t, err)
	require.NotEqual(t, a.Position.ID, b.Position.ID)
}

func TestPlaceBetRejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	bettor := e.user(t, "bettor")
	m := e.activeMarket(t, submitter)

	_, err := e.trade.PlaceBet(ctx, bettor, m.ID, "maybe", dec("10"))
	require.ErrorIs(t, err, types.ErrInvalidDirection)

	_, err = e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("0"))
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("101"))
	require.Error(t, err)

	_, err = e.trade.PlaceBet(ctx, bettor, "missing", markettypes.SideTrue, dec("10"))
	require.ErrorIs(t, err, markettypes.ErrMarketNotFound)

	// Nothing locked after a pile of rejections.
	u, err := e.ledger.GetUser(ctx, bettor)
	require.NoError(t, err)
	require.True(t, u.Locked.IsZero())
}

func TestPlaceBetOnInactiveMarket(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	bettor := e.user(t, "bettor")
	m := e.activeMarket(t, submitter)

	_, err := e.market.Delete(ctx, m.ID, submitter)
	require.NoError(t, err)

	_, err = e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("10"))
	require.ErrorIs(t, err, markettypes.ErrMarketNotActive)
}

func TestWinRate(t *testing.T) {
	ps := []*types.Position{
		{Status: types.PositionStatusWon},
		{Status: types.PositionStatusWon},
		{Status: types.PositionStatusLost},
		{Status: types.PositionStatusOpen},
	}
	require.True(t, WinRate(ps).Equal(dec("2").Quo(dec("3"))))
	require.True(t, WinRate(nil).IsZero())
}
