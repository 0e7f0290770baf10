package store

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	oracletypes "github.com/openclaim/claimdex/x/oracle/types"
)

func TestMemoryUserVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	u := ledgertypes.NewUser("u1", "alpha_tester", math.LegacyNewDec(100))
	require.NoError(t, s.CreateUser(ctx, u))

	// Two readers grab the same version.
	a, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	b, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, a.Lock(math.LegacyNewDec(10)))
	require.NoError(t, s.UpdateUser(ctx, a))

	require.NoError(t, b.Lock(math.LegacyNewDec(20)))
	err = s.UpdateUser(ctx, b)
	require.ErrorIs(t, err, ErrVersionConflict)

	// The first writer's state won.
	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, math.LegacyNewDec(10), got.Locked)
	require.Equal(t, int64(2), got.Version)
}

func TestMemoryDuplicatePseudonym(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.CreateUser(ctx, ledgertypes.NewUser("u1", "same_name", math.LegacyNewDec(100))))
	err := s.CreateUser(ctx, ledgertypes.NewUser("u2", "same_name", math.LegacyNewDec(100)))
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryTopUsersOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.CreateUser(ctx, ledgertypes.NewUser("u1", "poor", math.LegacyNewDec(50))))
	require.NoError(t, s.CreateUser(ctx, ledgertypes.NewUser("u2", "rich", math.LegacyNewDec(500))))
	require.NoError(t, s.CreateUser(ctx, ledgertypes.NewUser("u3", "middle", math.LegacyNewDec(100))))

	// Locked funds still count toward the ranking.
	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, u.Lock(math.LegacyNewDec(30)))
	require.NoError(t, s.UpdateUser(ctx, u))

	top, err := s.TopUsers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "u2", top[0].ID)
	require.Equal(t, "u3", top[1].ID)

	all, err := s.TopUsers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "u1", all[2].ID)
	require.Equal(t, math.LegacyNewDec(50), all[2].TotalBalance())
}

func TestMemoryMarketListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for _, id := range []string{"m1", "m2", "m3"} {
		m := markettypes.NewMarket(id, "claim "+id, "technology", "u1", math.LegacyNewDec(10))
		require.NoError(t, s.CreateMarket(ctx, m))
		time.Sleep(time.Millisecond)
	}

	list, err := s.ListMarkets(ctx, MarketFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "m3", list[0].ID)
	require.Equal(t, "m1", list[2].ID)

	page, err := s.ListMarkets(ctx, MarketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "m2", page[0].ID)
}

func TestMemoryMarketStatusFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	m1 := markettypes.NewMarket("m1", "stays active", "other", "u1", math.LegacyNewDec(10))
	m2 := markettypes.NewMarket("m2", "gets resolved", "other", "u1", math.LegacyNewDec(10))
	require.NoError(t, s.CreateMarket(ctx, m1))
	require.NoError(t, s.CreateMarket(ctx, m2))

	require.NoError(t, s.TransitionMarketStatus(ctx, "m2",
		markettypes.MarketStatusActive, markettypes.MarketStatusResolvedTrue))

	active, err := s.ListMarkets(ctx, MarketFilter{Status: markettypes.MarketStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "m1", active[0].ID)

	n, err := s.CountMarkets(ctx, markettypes.MarketStatusActive)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestMemoryTransitionAtMostOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	m := markettypes.NewMarket("m1", "settles once", "other", "u1", math.LegacyNewDec(10))
	require.NoError(t, s.CreateMarket(ctx, m))

	require.NoError(t, s.TransitionMarketStatus(ctx, "m1",
		markettypes.MarketStatusActive, markettypes.MarketStatusResolvedTrue))

	// A second settlement attempt loses the race.
	err := s.TransitionMarketStatus(ctx, "m1",
		markettypes.MarketStatusActive, markettypes.MarketStatusResolvedFalse)
	require.ErrorIs(t, err, ErrStatusConflict)

	got, err := s.GetMarket(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, markettypes.MarketStatusResolvedTrue, got.Status)
	require.NotNil(t, got.ResolvedAt)
}

func TestMemoryDuplicateReport(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	r1 := oracletypes.NewReport("r1", "o1", "m1", markettypes.SideTrue, nil, math.LegacyNewDec(20))
	require.NoError(t, s.CreateReport(ctx, r1))

	// Same oracle, same market, different verdict.
	r2 := oracletypes.NewReport("r2", "o1", "m1", markettypes.SideFalse, nil, math.LegacyNewDec(20))
	err := s.CreateReport(ctx, r2)
	require.ErrorIs(t, err, ErrDuplicate)

	// Same oracle, different market is fine.
	r3 := oracletypes.NewReport("r3", "o1", "m2", markettypes.SideTrue, nil, math.LegacyNewDec(20))
	require.NoError(t, s.CreateReport(ctx, r3))
}

func TestMemoryVoteRateWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	now := time.Now().UTC()
	for _, age := range []time.Duration{0, 10 * time.Minute, 2 * time.Hour} {
		v := &oracletypes.VoteRecord{
			OracleID:  "o1",
			MarketID:  "m1",
			IPHash:    "hash-a",
			CreatedAt: now.Add(-age),
		}
		require.NoError(t, s.AppendVoteRecord(ctx, v))
	}
	require.NoError(t, s.AppendVoteRecord(ctx, &oracletypes.VoteRecord{
		OracleID: "o2", MarketID: "m1", IPHash: "hash-b", CreatedAt: now,
	}))

	n, err := s.CountVotesByIPHashSince(ctx, "hash-a", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}
