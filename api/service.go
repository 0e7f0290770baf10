package api

import (
	"context"
	"strconv"

	"cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/openclaim/claimdex/advisor"
	"github.com/openclaim/claimdex/api/middleware"
	"github.com/openclaim/claimdex/api/types"
	"github.com/openclaim/claimdex/metrics"
	"github.com/openclaim/claimdex/store"
	ledgerkeeper "github.com/openclaim/claimdex/x/ledger/keeper"
	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	marketkeeper "github.com/openclaim/claimdex/x/market/keeper"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	oraclekeeper "github.com/openclaim/claimdex/x/oracle/keeper"
	oracletypes "github.com/openclaim/claimdex/x/oracle/types"
	settlementkeeper "github.com/openclaim/claimdex/x/settlement/keeper"
	tradekeeper "github.com/openclaim/claimdex/x/trade/keeper"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

const (
	leaderboardSize = 20

	// Near-duplicate claims are flagged, not blocked.
	similarityThreshold = 0.85
	similarityLimit     = 3
)

// CoreService implements the API service interfaces on top of the keepers.
type CoreService struct {
	store      store.Store
	ledger     *ledgerkeeper.Keeper
	market     *marketkeeper.Keeper
	trade      *tradekeeper.Keeper
	oracle     *oraclekeeper.Keeper
	settlement *settlementkeeper.Keeper
	tokens     *middleware.TokenIssuer
	advisorOn  bool
	logger     log.Logger
}

var (
	_ types.AuthService   = (*CoreService)(nil)
	_ types.MarketService = (*CoreService)(nil)
	_ types.OracleService = (*CoreService)(nil)
	_ types.StatusService = (*CoreService)(nil)
)

// NewCoreService wires the keeper stack onto a store.
func NewCoreService(st store.Store, adv advisor.Advisor, tokens *middleware.TokenIssuer, logger log.Logger) *CoreService {
	ledger := ledgerkeeper.NewKeeper(st, logger)
	market := marketkeeper.NewKeeper(st, ledger, adv, logger)
	trade := tradekeeper.NewKeeper(st, ledger, market, logger)
	settlement := settlementkeeper.NewKeeper(st, ledger, market, logger)
	oracle := oraclekeeper.NewKeeper(st, ledger, market, settlement, logger)

	_, advisorOn := adv.(*advisor.Client)
	return &CoreService{
		store:      st,
		ledger:     ledger,
		market:     market,
		trade:      trade,
		oracle:     oracle,
		settlement: settlement,
		tokens:     tokens,
		advisorOn:  advisorOn,
		logger:     logger.With("module", "api"),
	}
}

// decFromFloat converts a JSON number into an exact decimal.
func decFromFloat(f float64) (math.LegacyDec, error) {
	return math.LegacyNewDecFromStr(strconv.FormatFloat(f, 'f', -1, 64))
}

// ============ AuthService ============

func (s *CoreService) Initialize(ctx context.Context, req *types.InitializeRequest) (*types.InitializeResponse, error) {
	u, created, err := s.ledger.Initialize(ctx, req.Pseudonym)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &types.InitializeResponse{
		User:    toUser(u),
		Token:   token,
		Created: created,
	}, nil
}

func (s *CoreService) GetUser(ctx context.Context, id string) (*types.UserDetail, error) {
	u, err := s.ledger.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.trade.Positions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &types.UserDetail{
		User:           *toUser(u),
		PositionsCount: int64(len(positions)),
		WinRate:        tradekeeper.WinRate(positions).String(),
	}, nil
}

func (s *CoreService) Leaderboard(ctx context.Context) ([]types.LeaderboardEntry, error) {
	top, err := s.ledger.TopUsers(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}
	out := make([]types.LeaderboardEntry, 0, len(top))
	for i, u := range top {
		name := u.Pseudonym
		if len(name) > 8 {
			name = name[:8]
		}
		out = append(out, types.LeaderboardEntry{
			Rank:      i + 1,
			Pseudonym: name,
			Balance:   u.TotalBalance().String(),
		})
	}
	return out, nil
}

// ============ MarketService ============

func (s *CoreService) SubmitMarket(ctx context.Context, req *types.SubmitMarketRequest) (*types.SubmitMarketResponse, error) {
	stake, err := decFromFloat(req.Stake)
	if err != nil {
		return nil, markettypes.ErrInvalidInput.Wrap("stake")
	}
	text := SanitizeText(req.Text, marketkeeper.MaxTextLength)

	var similar []*types.Market
	if s.advisorOn {
		near, err := s.market.FindSimilar(ctx, text, similarityThreshold, similarityLimit)
		if err != nil {
			s.logger.Warn("similarity scan failed", "err", err)
		}
		for _, m := range near {
			similar = append(similar, toMarket(m))
		}
	}

	m, err := s.market.Submit(ctx, req.UserID, text, req.Category, stake)
	if err != nil {
		return nil, err
	}
	return &types.SubmitMarketResponse{
		Market: toMarket(m),
		AIAnalysis: &types.AIAnalysis{
			Prediction: m.AIPrediction,
			Confidence: m.AIConfidence,
		},
		SimilarMarkets: similar,
	}, nil
}

func (s *CoreService) GetMarket(ctx context.Context, id string) (*types.MarketDetail, error) {
	m, err := s.market.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountPositionsByMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	submitter := ""
	if u, err := s.ledger.GetUser(ctx, m.SubmitterID); err == nil {
		submitter = u.Pseudonym
	}
	return &types.MarketDetail{
		Market:         *toMarket(m),
		Submitter:      submitter,
		PositionsCount: count,
	}, nil
}

func (s *CoreService) ListMarkets(ctx context.Context, status, category string, limit, offset int) ([]*types.Market, error) {
	markets, err := s.market.List(ctx, store.MarketFilter{
		Status:   markettypes.MarketStatus(status),
		Category: category,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*types.Market, 0, len(markets))
	for _, m := range markets {
		out = append(out, toMarket(m))
	}
	return out, nil
}

func (s *CoreService) PlaceBet(ctx context.Context, marketID string, req *types.BetRequest) (*types.BetResponse, error) {
	var side markettypes.Side
	switch req.Type {
	case "long":
		side = markettypes.SideTrue
	case "short":
		side = markettypes.SideFalse
	default:
		return nil, tradetypes.ErrInvalidDirection.Wrap(req.Type)
	}
	cc, err := decFromFloat(req.CCAmount)
	if err != nil {
		return nil, tradetypes.ErrInvalidAmount
	}

	res, err := s.trade.PlaceBet(ctx, req.UserID, marketID, side, cc)
	if err != nil {
		return nil, err
	}
	return &types.BetResponse{
		Market:   toMarket(res.Market),
		Position: toPosition(res.Position),
		Shares:   res.Trade.Shares.String(),
		NewPrice: res.Market.Price.String(),
	}, nil
}

func (s *CoreService) DeleteMarket(ctx context.Context, marketID string, req *types.DeleteMarketRequest) (*types.DeleteMarketResponse, error) {
	refunds, err := s.market.Delete(ctx, marketID, req.UserID)
	if err != nil {
		return nil, err
	}
	out := &types.DeleteMarketResponse{
		MarketID: marketID,
		Status:   string(markettypes.MarketStatusDeleted),
	}
	for _, r := range refunds {
		out.Refunds = append(out.Refunds, types.RefundEntry{
			UserID: r.UserID,
			Amount: r.Amount.String(),
			Kind:   r.Kind,
		})
	}
	return out, nil
}

// ============ OracleService ============

func (s *CoreService) SubmitReport(ctx context.Context, req *types.ReportRequest, ipHash string) (*types.ReportResponse, error) {
	stake, err := decFromFloat(req.Stake)
	if err != nil {
		return nil, oracletypes.ErrStakeTooLow
	}
	res, err := s.oracle.SubmitReport(ctx, req.OracleID, req.MarketID,
		markettypes.Side(req.Verdict), req.Evidence, stake, ipHash)
	if err != nil {
		return nil, err
	}
	out := &types.ReportResponse{
		Report:             toReport(res.Report),
		ConsensusTriggered: res.ConsensusTriggered,
	}
	if res.ConsensusTriggered {
		out.Outcome = string(res.Outcome)
	}
	return out, nil
}

func (s *CoreService) ReportsByMarket(ctx context.Context, marketID string) ([]*types.Report, error) {
	reports, err := s.oracle.ReportsByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReport(r))
	}
	return out, nil
}

// ============ StatusService ============

func (s *CoreService) Health(ctx context.Context) *types.HealthResponse {
	db := "ok"
	if err := s.store.Ping(ctx); err != nil {
		db = "unavailable"
	}
	ai := "disabled"
	if s.advisorOn {
		ai = "ok"
	}
	return &types.HealthResponse{Database: db, AI: ai}
}

func (s *CoreService) Stats(ctx context.Context) (*types.StatsResponse, error) {
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	markets, err := s.store.CountMarkets(ctx, "")
	if err != nil {
		return nil, err
	}
	active, err := s.store.CountMarkets(ctx, markettypes.MarketStatusActive)
	if err != nil {
		return nil, err
	}
	locked, err := s.store.SumLocked(ctx)
	if err != nil {
		return nil, err
	}
	if f, err := locked.Float64(); err == nil {
		metrics.Get().CCLocked.Set(f)
	}
	return &types.StatsResponse{
		TotalUsers:    users,
		TotalMarkets:  markets,
		ActiveMarkets: active,
		TotalCCLocked: locked.String(),
	}, nil
}

// ============ DTO mapping ============

func toUser(u *ledgertypes.User) *types.User {
	return &types.User{
		ID:          u.ID,
		Pseudonym:   u.Pseudonym,
		Available:   u.Available.String(),
		Locked:      u.Locked.String(),
		TotalEarned: u.TotalEarned.String(),
		TotalLost:   u.TotalLost.String(),
		CreatedAt:   u.CreatedAt.Unix(),
	}
}

func toMarket(m *markettypes.Market) *types.Market {
	out := &types.Market{
		ID:            m.ID,
		Text:          m.Text,
		Category:      m.Category,
		SubmitterID:   m.SubmitterID,
		Stake:         m.Stake.String(),
		TotalBetTrue:  m.TotalBetTrue.String(),
		TotalBetFalse: m.TotalBetFalse.String(),
		Price:         m.Price.String(),
		Status:        string(m.Status),
		AIPrediction:  m.AIPrediction,
		AIConfidence:  m.AIConfidence,
		CreatedAt:     m.CreatedAt.Unix(),
	}
	if m.ResolvedAt != nil {
		out.ResolvedAt = m.ResolvedAt.Unix()
	}
	return out
}

func toPosition(p *tradetypes.Position) *types.Position {
	return &types.Position{
		ID:         p.ID,
		UserID:     p.UserID,
		MarketID:   p.MarketID,
		Side:       string(p.Side),
		Shares:     p.Shares.String(),
		EntryPrice: p.EntryPrice.String(),
		CostBasis:  p.CostBasis.String(),
		Collateral: p.Collateral.String(),
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt.Unix(),
	}
}

func toReport(r *oracletypes.Report) *types.Report {
	return &types.Report{
		ID:        r.ID,
		OracleID:  r.OracleID,
		MarketID:  r.MarketID,
		Verdict:   string(r.Verdict),
		Evidence:  r.Evidence,
		Stake:     r.Stake.String(),
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.Unix(),
	}
}
