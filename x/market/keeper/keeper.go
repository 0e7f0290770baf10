package keeper

import (
	"context"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/openclaim/claimdex/advisor"
	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	settlementtypes "github.com/openclaim/claimdex/x/settlement/types"
	"github.com/openclaim/claimdex/x/trade/types"

	markettypes "github.com/openclaim/claimdex/x/market/types"
)

// MaxTextLength bounds claim text before sanitization.
const MaxTextLength = 500

var allowedCategories = map[string]bool{
	"academic":   true,
	"social":     true,
	"events":     true,
	"policies":   true,
	"technology": true,
	"health":     true,
	"other":      true,
}

// NormalizeCategory maps unknown categories onto "other".
func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if allowedCategories[c] {
		return c
	}
	return "other"
}

// Keeper manages the market lifecycle and serializes all writes touching a
// market through per-market locks.
type Keeper struct {
	store   store.Store
	ledger  *ledgerkeeper.Keeper
	advisor advisor.Advisor
	logger  log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeeper(st store.Store, ledger *ledgerkeeper.Keeper, adv advisor.Advisor, logger log.Logger) *Keeper {
	if adv == nil {
		adv = advisor.Noop{}
	}
	return &Keeper{
		store:   st,
		ledger:  ledger,
		advisor: adv,
		logger:  logger.With("module", "x/market"),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (k *Keeper) marketLock(marketID string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[marketID]
	if !ok {
		l = &sync.Mutex{}
		k.locks[marketID] = l
	}
	return l
}

// WithMarketLock runs fn while holding the market's write lock. Bets,
// settlement and deletion all funnel through here so a market sees at most
// one writer at a time.
func (k *Keeper) WithMarketLock(marketID string, fn func() error) error {
	l := k.marketLock(marketID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Submit creates a market: validates, locks the submitter's stake, asks the
// advisor for a signal, and persists. The stake is unlocked again if the
// insert fails.
func (k *Keeper) Submit(ctx context.Context, submitterID, text, category string, stake math.LegacyDec) (*markettypes.Market, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, markettypes.ErrEmptyText
	}
	if len([]rune(text)) > MaxTextLength {
		return nil, markettypes.ErrInvalidInput.Wrapf("text exceeds %d characters", MaxTextLength)
	}
	if stake.IsNil() || stake.LT(markettypes.MinStake) {
		return nil, markettypes.ErrStakeTooLow.Wrapf("minimum stake is %s CC", markettypes.MinStake)
	}

	if _, err := k.ledger.Lock(ctx, submitterID, stake); err != nil {
		return nil, err
	}

	m := markettypes.NewMarket(uuid.NewString(), text, NormalizeCategory(category), submitterID, stake)

	// Advisory signals only; failures fall back to neutral.
	pred, err := k.advisor.Classify(ctx, text)
	if err != nil {
		k.logger.Warn("advisor classify failed", "market_id", m.ID, "err", err)
	}
	m.AIPrediction = pred.Label
	m.AIConfidence = pred.Confidence
	if emb, err := k.advisor.Embed(ctx, text); err == nil {
		m.Embedding = emb
	} else {
		k.logger.Warn("advisor embed failed", "market_id", m.ID, "err", err)
	}

	if err := k.store.CreateMarket(ctx, m); err != nil {
		if _, uerr := k.ledger.Unlock(ctx, submitterID, stake); uerr != nil {
			k.logger.Error("stake rollback failed", "user_id", submitterID, "err", uerr)
		}
		return nil, err
	}

	k.logger.Info("market submitted",
		"market_id", m.ID, "submitter_id", submitterID, "stake", stake.String())
	return m, nil
}

// Get loads a market by id.
func (k *Keeper) Get(ctx context.Context, id string) (*markettypes.Market, error) {
	m, err := k.store.GetMarket(ctx, id)
	if err != nil {
		if store.ErrNotFound.Is(err) {
			return nil, markettypes.ErrMarketNotFound.Wrap(id)
		}
		return nil, err
	}
	return m, nil
}

// List returns markets matching the filter, newest first.
func (k *Keeper) List(ctx context.Context, f store.MarketFilter) ([]*markettypes.Market, error) {
	return k.store.ListMarkets(ctx, f)
}

// Delete retires an active market and refunds everyone at cost. Only the
// submitter may delete, and only while the market is still active.
func (k *Keeper) Delete(ctx context.Context, marketID, requesterID string) ([]settlementtypes.Refund, error) {
	var refunds []settlementtypes.Refund
	err := k.WithMarketLock(marketID, func() error {
		m, err := k.Get(ctx, marketID)
		if err != nil {
			return err
		}
		if m.SubmitterID != requesterID {
			return markettypes.ErrNotSubmitter
		}
		if !m.IsActive() {
			return markettypes.ErrMarketNotActive.Wrap(string(m.Status))
		}

		positions, err := k.store.ListOpenPositionsByMarket(ctx, marketID)
		if err != nil {
			return err
		}

		// Refund every open position at cost, then the submitter's stake.
		for _, p := range positions {
			if _, err := k.ledger.Unlock(ctx, p.UserID, p.CostBasis); err != nil {
				k.logger.Error("position refund failed",
					"market_id", marketID, "position_id", p.ID, "err", err)
				continue
			}
			p.Status = types.PositionStatusDeleted
			p.UpdatedAt = time.Now().UTC()
			if err := k.store.UpdatePosition(ctx, p); err != nil {
				k.logger.Error("position close failed",
					"market_id", marketID, "position_id", p.ID, "err", err)
			}
			refunds = append(refunds, settlementtypes.Refund{
				UserID: p.UserID, Amount: p.CostBasis, Kind: "position",
			})
		}

		if _, err := k.ledger.Unlock(ctx, m.SubmitterID, m.Stake); err != nil {
			k.logger.Error("stake refund failed", "market_id", marketID, "err", err)
		} else {
			refunds = append(refunds, settlementtypes.Refund{
				UserID: m.SubmitterID, Amount: m.Stake, Kind: "submitter",
			})
		}

		// The status flip is last so the market stays visible as active
		// until every refund has landed.
		return k.store.TransitionMarketStatus(ctx, marketID,
			markettypes.MarketStatusActive, markettypes.MarketStatusDeleted)
	})
	if err != nil {
		return nil, err
	}
	k.logger.Info("market deleted", "market_id", marketID, "refunds", len(refunds))
	return refunds, nil
}

// FindSimilar returns active markets whose embedding similarity to the text
// exceeds threshold. Best effort: without an advisor it returns nothing.
func (k *Keeper) FindSimilar(ctx context.Context, text string, threshold float64, limit int) ([]*markettypes.Market, error) {
	emb, err := k.advisor.Embed(ctx, text)
	if err != nil || len(emb) == 0 {
		return nil, nil
	}
	active, err := k.store.ListMarkets(ctx, store.MarketFilter{
		Status: markettypes.MarketStatusActive,
		Limit:  200,
	})
	if err != nil {
		return nil, err
	}
	var out []*markettypes.Market
	for _, m := range active {
		if advisor.CosineSimilarity(emb, m.Embedding) >= threshold {
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
