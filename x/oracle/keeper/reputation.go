package keeper

import (
	"context"
	"sync"

	"cosmossdk.io/math"

	"github.com/openclaim/claimdex/x/oracle/types"
)

// reputationCache memoizes the derived accuracy ratio per oracle. Entries
// are invalidated whenever a report's status changes.
type reputationCache struct {
	mu sync.RWMutex
	m  map[string]math.LegacyDec
}

func newReputationCache() *reputationCache {
	return &reputationCache{m: make(map[string]math.LegacyDec)}
}

func (c *reputationCache) get(oracleID string) (math.LegacyDec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rep, ok := c.m[oracleID]
	return rep, ok
}

func (c *reputationCache) put(oracleID string, rep math.LegacyDec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[oracleID] = rep
}

func (c *reputationCache) invalidate(oracleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, oracleID)
}

// Reputation is correct/(correct+incorrect) over the oracle's resolved
// reports. Oracles with nothing resolved get the default. Pending reports
// never contribute.
func (k *Keeper) Reputation(ctx context.Context, oracleID string) (math.LegacyDec, error) {
	if rep, ok := k.reputations.get(oracleID); ok {
		return rep, nil
	}

	reports, err := k.store.ListReportsByOracle(ctx, oracleID)
	if err != nil {
		return math.LegacyDec{}, err
	}

	var correct, incorrect int64
	for _, r := range reports {
		switch r.Status {
		case types.ReportStatusCorrect:
			correct++
		case types.ReportStatusIncorrect:
			incorrect++
		}
	}

	rep := types.DefaultReputation
	if correct+incorrect > 0 {
		rep = math.LegacyNewDec(correct).Quo(math.LegacyNewDec(correct + incorrect))
	}
	k.reputations.put(oracleID, rep)
	return rep, nil
}
