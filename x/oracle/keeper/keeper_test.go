package keeper

import (
	"context"
	"fmt"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	marketkeeper "github.com/openclaim/claimdex/x/market/keeper"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	"github.com/openclaim/claimdex/x/oracle/types"
	settlementkeeper "github.com/openclaim/claimdex/x/settlement/keeper"
)

func dec(s string) math.LegacyDec {
	return math.LegacyMustNewDecFromStr(s)
}

type env struct {
	store  store.Store
	ledger *ledgerkeeper.Keeper
	market *marketkeeper.Keeper
	oracle *Keeper
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemory()
	logger := log.NewNopLogger()
	ledger := ledgerkeeper.NewKeeper(st, logger)
	market := marketkeeper.NewKeeper(st, ledger, nil, logger)
	settlement := settlementkeeper.NewKeeper(st, ledger, market, logger)
	return &env{
		store:  st,
		ledger: ledger,
		market: market,
		oracle: NewKeeper(st, ledger, market, settlement, logger),
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
		"the stadium opens on schedule", "events", dec("10"))
	require.NoError(t, err)
	return m
}

func TestSubmitReportLocksStake(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	oracle := e.user(t, "oracle_one")
	m := e.activeMarket(t, submitter)

	res, err := e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideTrue,
		[]string{"https://example.org/source"}, dec("20"), "")
	require.NoError(t, err)
	require.False(t, res.ConsensusTriggered)
	require.Equal(t, types.ReportStatusPending, res.Report.Status)

	u, err := e.ledger.GetUser(ctx, oracle)
	require.NoError(t, err)
	require.True(t, u.Available.Equal(dec("80")))
	require.True(t, u.Locked.Equal(dec("20")))
}

func TestSubmitReportPreChecks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	oracle := e.user(t, "oracle_one")
	m := e.activeMarket(t, submitter)

	_, err := e.oracle.SubmitReport(ctx, oracle, m.ID, "maybe", nil, dec("20"), "")
	require.ErrorIs(t, err, types.ErrInvalidVerdict)

	_, err = e.oracle.SubmitReport(ctx, oracle, "missing", markettypes.SideTrue, nil, dec("20"), "")
	require.ErrorIs(t, err, markettypes.ErrMarketNotFound)

	_, err = e.oracle.SubmitReport(ctx, "missing", m.ID, markettypes.SideTrue, nil, dec("20"), "")
	require.ErrorIs(t, err, types.ErrOracleNotFound)

	// Boundary: 19.99 rejected, 20 accepted.
	_, err = e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideTrue, nil, dec("19.99"), "")
	require.ErrorIs(t, err, types.ErrStakeTooLow)

	_, err = e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideTrue, nil, dec("101"), "")
	require.ErrorIs(t, err, ledgertypes.ErrInsufficientFunds)

	_, err = e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideTrue, nil, dec("20"), "")
	require.NoError(t, err)

	// One vote per oracle per market, regardless of verdict.
	_, err = e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideFalse, nil, dec("20"), "")
	require.ErrorIs(t, err, types.ErrDuplicateVote)
}

func TestSubmitReportIPRateLimit(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	oracle := e.user(t, "busy_oracle")

	// Give the oracle room for six stakes.
	_, err := e.ledger.Credit(ctx, oracle, dec("100"), ledgertypes.CreditRefund)
	require.NoError(t, err)

	for i := 0; i < types.RateLimitMaxVotes; i++ {
		m := e.activeMarket(t, submitter)
		_, err := e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideTrue, nil, dec("20"), "ip-hash-x")
		require.NoError(t, err, fmt.Sprintf("report %d", i))
	}

	m := e.activeMarket(t, submitter)
	_, err = e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideTrue, nil, dec("20"), "ip-hash-x")
	require.ErrorIs(t, err, types.ErrRateLimited)

	// Without an ip hash the limiter is skipped.
	_, err = e.oracle.SubmitReport(ctx, oracle, m.ID, markettypes.SideTrue, nil, dec("20"), "")
	require.NoError(t, err)
}

func TestConsensusDecisiveMajority(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	m := e.activeMarket(t, submitter)

	o1 := e.user(t, "oracle_a")
	o2 := e.user(t, "oracle_b")
	o3 := e.user(t, "oracle_c")
	o4 := e.user(t, "oracle_d")

	// Two reports: below the minimum count, no consensus.
	_, err := e.oracle.SubmitReport(ctx, o1, m.ID, markettypes.SideTrue, nil, dec("20"), "")
	require.NoError(t, err)
	res, err := e.oracle.SubmitReport(ctx, o2, m.ID, markettypes.SideTrue, nil, dec("30"), "")
	require.NoError(t, err)
	require.False(t, res.ConsensusTriggered)

	// Third report: weighted true 50*0.6=30, false 20*0.6=12,
	// score 30/42 ~ 0.714, still inconclusive.
	res, err = e.oracle.SubmitReport(ctx, o3, m.ID, markettypes.SideFalse, nil, dec("20"), "")
	require.NoError(t, err)
	require.False(t, res.ConsensusTriggered)

	got, err := e.market.Get(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive())

	// Fourth: true 80*0.6=48 of 60 total, score 0.8, settles TRUE.
	res, err = e.oracle.SubmitReport(ctx, o4, m.ID, markettypes.SideTrue, nil, dec("30"), "")
	require.NoError(t, err)
	require.True(t, res.ConsensusTriggered)
	require.Equal(t, markettypes.SideTrue, res.Outcome)

	got, err = e.market.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, markettypes.MarketStatusResolvedTrue, got.Status)

	// Later reports bounce off the terminal market.
	o5 := e.user(t, "oracle_e")
	_, err = e.oracle.SubmitReport(ctx, o5, m.ID, markettypes.SideTrue, nil, dec("20"), "")
	require.ErrorIs(t, err, markettypes.ErrMarketNotActive)
}

func TestOraclePayoutsAfterConsensus(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	submitter := e.user(t, "submitter")
	m := e.activeMarket(t, submitter)

	correct1 := e.user(t, "oracle_a")
	correct2 := e.user(t, "oracle_b")
	wrong := e.user(t, "oracle_c")

	_, err := e.oracle.SubmitReport(ctx, correct1, m.ID, markettypes.SideTrue, nil, dec("30"), "")
	require.NoError(t, err)
	_, err = e.oracle.SubmitReport(ctx, wrong, m.ID, markettypes.SideFalse, nil, dec("20"), "")
	require.NoError(t, err)
	// Third report tips the score to (30+50)*0.6 / 100*0.6 = 0.8.
	res, err := e.oracle.SubmitReport(ctx, correct2, m.ID, markettypes.SideTrue, nil, dec("50"), "")
	require.NoError(t, err)
	require.True(t, res.ConsensusTriggered)

	// Fresh oracles sit in the default tier: factor 1.5 * 1.2 = 1.8.
	u1, err := e.ledger.GetUser(ctx, correct1)
	require.NoError(t, err)
	require.True(t, u1.Locked.IsZero())
	require.True(t, u1.Available.Equal(dec("154"))) // 100 + 30*1.8
	require.True(t, u1.TotalEarned.Equal(dec("54")))

	uw, err := e.ledger.GetUser(ctx, wrong)
	require.NoError(t, err)
	require.True(t, uw.Locked.IsZero())
	require.True(t, uw.Available.Equal(dec("80")))
	require.True(t, uw.TotalLost.Equal(dec("20")))

	reports, err := e.oracle.ReportsByMarket(ctx, m.ID)
	require.NoError(t, err)
	statuses := map[string]types.ReportStatus{}
	for _, r := range reports {
		statuses[r.OracleID] = r.Status
	}
	require.Equal(t, types.ReportStatusCorrect, statuses[correct1])
	require.Equal(t, types.ReportStatusCorrect, statuses[correct2])
	require.Equal(t, types.ReportStatusIncorrect, statuses[wrong])

	// Reputations now reflect the resolved reports.
	rep, err := e.oracle.Reputation(ctx, correct1)
	require.NoError(t, err)
	require.True(t, rep.Equal(dec("1")))
	rep, err = e.oracle.Reputation(ctx, wrong)
	require.NoError(t, err)
	require.True(t, rep.IsZero())
}

func TestReputationDefaultsAndCaches(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	fresh := e.user(t, "fresh_oracle")

	rep, err := e.oracle.Reputation(ctx, fresh)
	require.NoError(t, err)
	require.True(t, rep.Equal(types.DefaultReputation))
}

func TestRewardTiers(t *testing.T) {
	require.True(t, types.RewardFactor(dec("0.9")).Equal(dec("3")))    // 1.5 * 2.0
	require.True(t, types.RewardFactor(dec("0.7")).Equal(dec("2.25"))) // 1.5 * 1.5
	require.True(t, types.RewardFactor(dec("0.6")).Equal(dec("1.8")))  // 1.5 * 1.2
	require.True(t, types.RewardFactor(dec("0.2")).Equal(dec("1.8")))
}
