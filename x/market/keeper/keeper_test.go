package keeper

import (
	"context"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

func newTestEnv(t *testing.T) (*Keeper, *ledgerkeeper.Keeper, store.Store) {
	t.Helper()
	st := store.NewMemory()
	logger := log.NewNopLogger()
	ledger := ledgerkeeper.NewKeeper(st, logger)
	return NewKeeper(st, ledger, nil, logger), ledger, st
}

func newFundedUser(t *testing.T, ledger *ledgerkeeper.Keeper, pseudonym string) string {
	t.Helper()
	u, _, err := ledger.Initialize(context.Background(), pseudonym)
	require.NoError(t, err)
	return u.ID
}

func TestSubmitLocksStakeAndSeedsPools(t *testing.T) {
	ctx := context.Background()
	k, ledger, _ := newTestEnv(t)
	uid := newFundedUser(t, ledger, "submitter")

	m, err := k.Submit(ctx, uid, "the library extends weekend hours", "policies", math.LegacyNewDec(10))
	require.NoError(t, err)
	require.Equal(t, markettypes.MarketStatusActive, m.Status)
	require.True(t, m.TotalBetTrue.Equal(math.LegacyNewDec(10)))
	require.True(t, m.TotalBetFalse.Equal(math.LegacyNewDec(10)))
	require.True(t, m.Price.Equal(math.LegacyMustNewDecFromStr("0.5")))
	require.Equal(t, "UNCERTAIN", m.AIPrediction)

	u, err := ledger.GetUser(ctx, uid)
	require.NoError(t, err)
	require.True(t, u.Available.Equal(math.LegacyNewDec(90)))
	require.True(t, u.Locked.Equal(math.LegacyNewDec(10)))
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	k, ledger, _ := newTestEnv(t)
	uid := newFundedUser(t, ledger, "submitter")

	_, err := k.Submit(ctx, uid, "   ", "other", math.LegacyNewDec(10))
	require.ErrorIs(t, err, markettypes.ErrEmptyText)

	_, err = k.Submit(ctx, uid, "valid claim", "other", math.LegacyNewDec(9))
	require.ErrorIs(t, err, markettypes.ErrStakeTooLow)

	long := make([]byte, MaxTextLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = k.Submit(ctx, uid, string(long), "other", math.LegacyNewDec(10))
	require.ErrorIs(t, err, markettypes.ErrInvalidInput)

	// Validation failures never touch the ledger.
	u, err := ledger.GetUser(ctx, uid)
	require.NoError(t, err)
	require.True(t, u.Locked.IsZero())
}

func TestSubmitNormalizesCategory(t *testing.T) {
	ctx := context.Background()
	k, ledger, _ := newTestEnv(t)
	uid := newFundedUser(t, ledger, "submitter")

	m, err := k.Submit(ctx, uid, "weird category claim", "Conspiracy", math.LegacyNewDec(10))
	require.NoError(t, err)
	require.Equal(t, "other", m.Category)

	m, err = k.Submit(ctx, uid, "tech category claim", "Technology", math.LegacyNewDec(10))
	require.NoError(t, err)
	require.Equal(t, "technology", m.Category)
}

func TestSubmitInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	k, ledger, _ := newTestEnv(t)
	uid := newFundedUser(t, ledger, "submitter")

	_, err := k.Submit(ctx, uid, "oversized stake", "other", math.LegacyNewDec(101))
	require.Error(t, err)

	u, err := ledger.GetUser(ctx, uid)
	require.NoError(t, err)
	require.True(t, u.Available.Equal(math.LegacyNewDec(100)))
}

func TestDeleteRefundsStakeAndGuards(t *testing.T) {
	ctx := context.Background()
	k, ledger, st := newTestEnv(t)
	uid := newFundedUser(t, ledger, "submitter")
	other := newFundedUser(t, ledger, "someone_else")

	m, err := k.Submit(ctx, uid, "deletable claim", "other", math.LegacyNewDec(10))
	require.NoError(t, err)

	_, err = k.Delete(ctx, m.ID, other)
	require.ErrorIs(t, err, markettypes.ErrNotSubmitter)

	refunds, err := k.Delete(ctx, m.ID, uid)
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	require.Equal(t, "submitter", refunds[0].Kind)
	require.True(t, refunds[0].Amount.Equal(math.LegacyNewDec(10)))

	u, err := ledger.GetUser(ctx, uid)
	require.NoError(t, err)
	require.True(t, u.Available.Equal(math.LegacyNewDec(100)))
	require.True(t, u.Locked.IsZero())

	got, err := st.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, markettypes.MarketStatusDeleted, got.Status)

	// A deleted market cannot be deleted again.
	_, err = k.Delete(ctx, m.ID, uid)
	require.ErrorIs(t, err, markettypes.ErrMarketNotActive)
}

func TestDeleteRefundsOpenPositions(t *testing.T) {
	ctx := context.Background()
	k, ledger, st := newTestEnv(t)
	uid := newFundedUser(t, ledger, "submitter")
	longHolder := newFundedUser(t, ledger, "long_holder")
	shortHolder := newFundedUser(t, ledger, "short_holder")

	m, err := k.Submit(ctx, uid, "claim with open interest", "other", math.LegacyNewDec(10))
	require.NoError(t, err)

	price := math.LegacyMustNewDecFromStr("0.5")
	openPosition := func(posID, userID string, side markettypes.Side, cc math.LegacyDec) {
		t.Helper()
		_, err := ledger.Lock(ctx, userID, cc)
		require.NoError(t, err)
		shares := cc.Quo(price)
		require.NoError(t, st.CreatePosition(ctx,
			tradetypes.NewPosition(posID, userID, m.ID, side, shares, price, cc)))
	}
	openPosition("pos-long", longHolder, markettypes.SideTrue, math.LegacyNewDec(10))
	openPosition("pos-short", shortHolder, markettypes.SideFalse, math.LegacyNewDec(15))

	refunds, err := k.Delete(ctx, m.ID, uid)
	require.NoError(t, err)
	require.Len(t, refunds, 3)

	byUser := make(map[string]math.LegacyDec)
	for _, r := range refunds[:2] {
		require.Equal(t, "position", r.Kind)
		byUser[r.UserID] = r.Amount
	}
	require.True(t, byUser[longHolder].Equal(math.LegacyNewDec(10)))
	require.True(t, byUser[shortHolder].Equal(math.LegacyNewDec(15)))
	require.Equal(t, "submitter", refunds[2].Kind)
	require.Equal(t, uid, refunds[2].UserID)
	require.True(t, refunds[2].Amount.Equal(math.LegacyNewDec(10)))

	for _, userID := range []string{uid, longHolder, shortHolder} {
		u, err := ledger.GetUser(ctx, userID)
		require.NoError(t, err)
		require.True(t, u.Available.Equal(math.LegacyNewDec(100)))
		require.True(t, u.Locked.IsZero())
	}

	for _, userID := range []string{longHolder, shortHolder} {
		positions, err := st.ListPositionsByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, positions, 1)
		require.Equal(t, tradetypes.PositionStatusDeleted, positions[0].Status)
	}

	got, err := st.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, markettypes.MarketStatusDeleted, got.Status)
}

func TestGetUnknownMarket(t *testing.T) {
	k, _, _ := newTestEnv(t)
	_, err := k.Get(context.Background(), "missing")
	require.ErrorIs(t, err, markettypes.ErrMarketNotFound)
}
