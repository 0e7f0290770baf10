package keeper

import (
	"context"

	"cosmossdk.io/math"

	markettypes "github.com/openclaim/claimdex/x/market/types"
	"github.com/openclaim/claimdex/x/oracle/types"
)

// CheckConsensus computes the stake- and reputation-weighted score over all
// of a market's reports. The bool reports whether a verdict was reached.
func (k *Keeper) CheckConsensus(ctx context.Context, marketID string) (markettypes.Side, bool, error) {
	reports, err := k.store.ListReportsByMarket(ctx, marketID)
	if err != nil {
		return "", false, err
	}
	if len(reports) < types.MinReportsForConsensus {
		return "", false, nil
	}

	weightTrue := math.LegacyZeroDec()
	weightAll := math.LegacyZeroDec()
	for _, r := range reports {
		rep, err := k.Reputation(ctx, r.OracleID)
		if err != nil {
			return "", false, err
		}
		w := r.Stake.Mul(rep)
		weightAll = weightAll.Add(w)
		if r.Verdict == markettypes.SideTrue {
			weightTrue = weightTrue.Add(w)
		}
	}
	if weightAll.IsZero() {
		return "", false, nil
	}

	score := weightTrue.Quo(weightAll)
	switch {
	case score.GTE(types.ConsensusTrueThreshold):
		return markettypes.SideTrue, true, nil
	case score.LTE(types.ConsensusFalseThreshold):
		return markettypes.SideFalse, true, nil
	default:
		return "", false, nil
	}
}

// ApplyPayouts resolves every report on a settled market: correct reporters
// get their stake back plus stake times the reputation-tiered reward factor,
// incorrect reporters are slashed.
func (k *Keeper) ApplyPayouts(ctx context.Context, marketID string, consensus markettypes.Side) error {
	reports, err := k.store.ListReportsByMarket(ctx, marketID)
	if err != nil {
		return err
	}

	for _, r := range reports {
		if r.Status != types.ReportStatusPending {
			continue
		}

		if r.Verdict == consensus {
			// Reward factor uses the reputation as of settlement.
			rep, err := k.Reputation(ctx, r.OracleID)
			if err != nil {
				k.logger.Error("reputation lookup failed", "oracle_id", r.OracleID, "err", err)
				rep = types.DefaultReputation
			}
			reward := r.Stake.Mul(types.RewardFactor(rep))
			if _, err := k.ledger.UnlockAndCredit(ctx, r.OracleID, r.Stake, reward); err != nil {
				k.logger.Error("oracle reward failed",
					"report_id", r.ID, "oracle_id", r.OracleID, "err", err)
				continue
			}
			r.Status = types.ReportStatusCorrect
		} else {
			if _, err := k.ledger.DebitFromLocked(ctx, r.OracleID, r.Stake); err != nil {
				k.logger.Error("oracle slash failed",
					"report_id", r.ID, "oracle_id", r.OracleID, "err", err)
				continue
			}
			r.Status = types.ReportStatusIncorrect
		}

		if err := k.store.UpdateReport(ctx, r); err != nil {
			k.logger.Error("report status update failed", "report_id", r.ID, "err", err)
			continue
		}
		k.reputations.invalidate(r.OracleID)
	}
	return nil
}
