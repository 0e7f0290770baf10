package keeper

import (
	"context"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	marketkeeper "github.com/openclaim/claimdex/x/market/keeper"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	"github.com/openclaim/claimdex/x/oracle/types"
	settlementkeeper "github.com/openclaim/claimdex/x/settlement/keeper"
)

// Keeper accepts staked reports, enforces the Sybil guards, and drives
// consensus-triggered settlement.
type Keeper struct {
	store      store.Store
	ledger     *ledgerkeeper.Keeper
	market     *marketkeeper.Keeper
	settlement *settlementkeeper.Keeper
	logger     log.Logger

	reputations *reputationCache
}

func NewKeeper(st store.Store, ledger *ledgerkeeper.Keeper, market *marketkeeper.Keeper, settlement *settlementkeeper.Keeper, logger log.Logger) *Keeper {
	return &Keeper{
		store:       st,
		ledger:      ledger,
		market:      market,
		settlement:  settlement,
		logger:      logger.With("module", "x/oracle"),
		reputations: newReputationCache(),
	}
}

// ReportResult is what a successful report submission returns.
type ReportResult struct {
	Report             *types.Report
	ConsensusTriggered bool
	Outcome            markettypes.Side // set when ConsensusTriggered
}

// SubmitReport runs the pre-checks in order, locks the stake, persists the
// report and vote record, then evaluates consensus. A consensus verdict
// settles the market synchronously; a settlement failure is logged and the
// report still stands.
func (k *Keeper) SubmitReport(ctx context.Context, oracleID, marketID string, verdict markettypes.Side, evidence []string, stake math.LegacyDec, ipHash string) (*ReportResult, error) {
	if !verdict.Valid() {
		return nil, types.ErrInvalidVerdict.Wrap(string(verdict))
	}

	m, err := k.market.Get(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, markettypes.ErrMarketNotActive.Wrap(string(m.Status))
	}

	oracle, err := k.ledger.GetUser(ctx, oracleID)
	if err != nil {
		if ledgertypes.ErrUserNotFound.Is(err) {
			return nil, types.ErrOracleNotFound.Wrap(oracleID)
		}
		return nil, err
	}
	if stake.IsNil() || stake.LT(types.MinReportStake) {
		return nil, types.ErrStakeTooLow.Wrapf("minimum report stake is %s CC", types.MinReportStake)
	}
	if stake.GT(oracle.Available) {
		return nil, ledgertypes.ErrInsufficientFunds
	}

	// One vote per oracle per market, ever.
	existing, err := k.store.ListReportsByOracle(ctx, oracleID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.MarketID == marketID {
			return nil, types.ErrDuplicateVote
		}
	}

	if ipHash != "" {
		since := time.Now().UTC().Add(-types.RateLimitWindow)
		n, err := k.store.CountVotesByIPHashSince(ctx, ipHash, since)
		if err != nil {
			return nil, err
		}
		if n >= types.RateLimitMaxVotes {
			return nil, types.ErrRateLimited.Wrapf("at most %d reports per hour", types.RateLimitMaxVotes)
		}
	}

	if _, err := k.ledger.Lock(ctx, oracleID, stake); err != nil {
		return nil, err
	}

	report := types.NewReport(uuid.NewString(), oracleID, marketID, verdict, evidence, stake)
	if err := k.store.CreateReport(ctx, report); err != nil {
		if _, uerr := k.ledger.Unlock(ctx, oracleID, stake); uerr != nil {
			k.logger.Error("report stake rollback failed", "oracle_id", oracleID, "err", uerr)
		}
		if store.ErrDuplicate.Is(err) {
			return nil, types.ErrDuplicateVote
		}
		return nil, err
	}

	if ipHash != "" {
		vote := &types.VoteRecord{
			OracleID:  oracleID,
			MarketID:  marketID,
			IPHash:    ipHash,
			CreatedAt: report.CreatedAt,
		}
		// Advisory ledger; the stake lock is the economic fallback.
		if err := k.store.AppendVoteRecord(ctx, vote); err != nil {
			k.logger.Error("vote record append failed", "oracle_id", oracleID, "err", err)
		}
	}

	k.logger.Info("report submitted",
		"market_id", marketID, "oracle_id", oracleID,
		"verdict", string(verdict), "stake", stake.String())

	res := &ReportResult{Report: report}

	outcome, decided, err := k.CheckConsensus(ctx, marketID)
	if err != nil {
		k.logger.Error("consensus check failed", "market_id", marketID, "err", err)
		return res, nil
	}
	if !decided {
		return res, nil
	}

	if _, err := k.settlement.Settle(ctx, marketID, outcome); err != nil {
		// The report stands; the next submission retries the cascade.
		k.logger.Error("consensus settlement failed", "market_id", marketID, "err", err)
		return res, nil
	}
	if err := k.ApplyPayouts(ctx, marketID, outcome); err != nil {
		k.logger.Error("oracle payouts failed", "market_id", marketID, "err", err)
		return res, nil
	}

	res.ConsensusTriggered = true
	res.Outcome = outcome
	return res, nil
}

// ReportsByMarket lists a market's reports, newest first.
func (k *Keeper) ReportsByMarket(ctx context.Context, marketID string) ([]*types.Report, error) {
	return k.store.ListReportsByMarket(ctx, marketID)
}
