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
	"github.com/openclaim/claimdex/x/settlement/types"
	tradekeeper "github.com/openclaim/claimdex/x/trade/keeper"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

func dec(s string) math.LegacyDec {
	return math.LegacyMustNewDecFromStr(s)
}

type env struct {
	store      store.Store
	ledger     *ledgerkeeper.Keeper
	market     *marketkeeper.Keeper
	trade      *tradekeeper.Keeper
	settlement *Keeper
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemory()
	logger := log.NewNopLogger()
	ledger := ledgerkeeper.NewKeeper(st, logger)
	market := marketkeeper.NewKeeper(st, ledger, nil, logger)
	return &env{
		store:      st,
		ledger:     ledger,
		market:     market,
		trade:      tradekeeper.NewKeeper(st, ledger, market, logger),
		settlement: NewKeeper(st, ledger, market, logger),
	}
}

func (e *env) user(t *testing.T, pseudonym string) string {
	t.Helper()
	u, _, err := e.ledger.Initialize(context.Background(), pseudonym)
	require.NoError(t, err)
	return u.ID
}

func TestSettleProRataDistribution(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	w1 := e.user(t, "winner_one")
	w2 := e.user(t, "winner_two")
	loser := e.user(t, "loser_one")

	m, err := e.market.Submit(ctx, submitter, "pro rata claim", "other", dec("10"))
	require.NoError(t, err)

	// Pools start 10/10 at 0.50. Winner1 buys 20 shares, winner2 10.
	r1, err := e.trade.PlaceBet(ctx, w1, m.ID, markettypes.SideTrue, dec("10"))
	require.NoError(t, err)
	require.True(t, r1.Trade.Shares.Equal(dec("20")))

	// Price is now 20/30; 10 shares cost 10 * 20/30 CC.
	p2 := dec("20").Quo(dec("30"))
	cc2 := dec("10").Mul(p2)
	r2, err := e.trade.PlaceBet(ctx, w2, m.ID, markettypes.SideTrue, cc2)
	require.NoError(t, err)
	require.True(t, r2.Trade.Shares.Equal(dec("10")))

	_, err = e.trade.PlaceBet(ctx, loser, m.ID, markettypes.SideFalse, dec("5"))
	require.NoError(t, err)

	before, err := e.ledger.GetUser(ctx, w1)
	require.NoError(t, err)

	summary, err := e.settlement.Settle(ctx, m.ID, markettypes.SideTrue)
	require.NoError(t, err)

	// total pool = 20 + 10 + cc2 + 5
	wantPool := dec("35").Add(cc2)
	require.True(t, summary.TotalPool.Equal(wantPool))
	require.True(t, summary.TotalWinningShares.Equal(dec("30")))
	require.Len(t, summary.Winners, 2)
	require.Len(t, summary.Losers, 1)

	// Pro-rata fairness: payouts split 20:10.
	payouts := map[string]math.LegacyDec{}
	for _, p := range summary.Payouts {
		payouts[p.UserID] = p.Amount
	}
	require.True(t, payouts[w1].Equal(dec("20").Quo(dec("30")).Mul(wantPool)))
	require.True(t, payouts[w2].Equal(dec("10").Quo(dec("30")).Mul(wantPool)))
	// Payouts drain the pool up to rounding dust.
	require.True(t, summary.TotalPaid.Sub(wantPool).Abs().LTE(dec("0.000000000001")))

	// Winner1's lock released and payout credited as earnings.
	after, err := e.ledger.GetUser(ctx, w1)
	require.NoError(t, err)
	require.True(t, after.Locked.IsZero())
	require.True(t, after.Available.Equal(before.Available.Add(before.Locked).Add(payouts[w1])))
	require.True(t, after.TotalEarned.Equal(payouts[w1]))

	// Loser slashed.
	lu, err := e.ledger.GetUser(ctx, loser)
	require.NoError(t, err)
	require.True(t, lu.Locked.IsZero())
	require.True(t, lu.Available.Equal(dec("95")))
	require.True(t, lu.TotalLost.Equal(dec("5")))

	// Submitter doubled: stake unlocked plus stake credited.
	su, err := e.ledger.GetUser(ctx, submitter)
	require.NoError(t, err)
	require.True(t, su.Available.Equal(dec("110")))
	require.True(t, su.TotalEarned.Equal(dec("10")))

	got, err := e.store.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, markettypes.MarketStatusResolvedTrue, got.Status)
	require.NotNil(t, got.ResolvedAt)
}

func TestSettleFalseSlashesSubmitter(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	bettor := e.user(t, "true_bettor")

	m, err := e.market.Submit(ctx, submitter, "false claim", "other", dec("10"))
	require.NoError(t, err)
	_, err = e.trade.PlaceBet(ctx, bettor, m.ID, markettypes.SideTrue, dec("10"))
	require.NoError(t, err)

	summary, err := e.settlement.Settle(ctx, m.ID, markettypes.SideFalse)
	require.NoError(t, err)
	require.Empty(t, summary.Winners)
	require.Len(t, summary.Losers, 1)
	// No winners: the pool stays undistributed.
	require.True(t, summary.TotalPaid.IsZero())

	su, err := e.ledger.GetUser(ctx, submitter)
	require.NoError(t, err)
	require.True(t, su.Available.Equal(dec("90")))
	require.True(t, su.Locked.IsZero())
	require.True(t, su.TotalLost.Equal(dec("10")))

	bu, err := e.ledger.GetUser(ctx, bettor)
	require.NoError(t, err)
	require.True(t, bu.TotalLost.Equal(dec("10")))

	ps, err := e.store.ListPositionsByUser(ctx, bettor)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	require.Equal(t, tradetypes.PositionStatusLost, ps[0].Status)
}

func TestSettleIsTerminal(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")

	m, err := e.market.Submit(ctx, submitter, "settle once", "other", dec("10"))
	require.NoError(t, err)

	_, err = e.settlement.Settle(ctx, m.ID, markettypes.SideTrue)
	require.NoError(t, err)

	_, err = e.settlement.Settle(ctx, m.ID, markettypes.SideFalse)
	require.ErrorIs(t, err, types.ErrAlreadySettled)
}

func TestSettleRejectsBadOutcome(t *testing.T) {
	e := newEnv(t)
	_, err := e.settlement.Settle(context.Background(), "whatever", "maybe")
	require.ErrorIs(t, err, types.ErrInvalidOutcome)
}
