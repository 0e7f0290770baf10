// Package types defines the API request/response shapes and the service
// interfaces the handlers call into. CC amounts are string-encoded decimals
// on the wire.
package types

import (
	"context"
)

// ============ Requests ============

// InitializeRequest creates or fetches a user by pseudonym.
type InitializeRequest struct {
	Pseudonym string `json:"pseudonym" validate:"required,alphanumunicode|containsany=_-,min=3,max=20"`
}

// SubmitMarketRequest creates a market.
type SubmitMarketRequest struct {
	UserID   string  `json:"user_id" validate:"required"`
	Text     string  `json:"text" validate:"required,max=500"`
	Category string  `json:"category"`
	Stake    float64 `json:"stake" validate:"required,gt=0"`
}

// BetRequest places a bet on a market.
type BetRequest struct {
	UserID   string  `json:"user_id" validate:"required"`
	Type     string  `json:"type" validate:"required,oneof=long short"`
	CCAmount float64 `json:"cc_amount" validate:"required,gt=0"`
}

// DeleteMarketRequest retires an active market.
type DeleteMarketRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// ReportRequest submits an oracle verdict.
type ReportRequest struct {
	OracleID string   `json:"oracle_id" validate:"required"`
	MarketID string   `json:"market_id" validate:"required"`
	Verdict  string   `json:"verdict" validate:"required,oneof=true false"`
	Evidence []string `json:"evidence"`
	Stake    float64  `json:"stake" validate:"required,gt=0"`
}

// ============ Responses ============

// User is the wire representation of a participant.
type User struct {
	ID          string `json:"id"`
	Pseudonym   string `json:"pseudonym"`
	Available   string `json:"available"`
	Locked      string `json:"locked"`
	TotalEarned string `json:"total_earned"`
	TotalLost   string `json:"total_lost"`
	CreatedAt   int64  `json:"created_at"`
}

// UserDetail adds derived stats to the user view.
type UserDetail struct {
	User
	PositionsCount int64  `json:"positions_count"`
	WinRate        string `json:"win_rate"`
}

// LeaderboardEntry is one row of the top-balances listing. The pseudonym is
// truncated for display.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Pseudonym string `json:"pseudonym"`
	Balance   string `json:"balance"`
}

// InitializeResponse wraps the user plus an API token.
type InitializeResponse struct {
	User    *User  `json:"user"`
	Token   string `json:"token"`
	Created bool   `json:"created"`
}

// Market is the wire representation of a market.
type Market struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	Category      string `json:"category"`
	SubmitterID   string `json:"submitter_id"`
	Stake         string `json:"stake"`
	TotalBetTrue  string `json:"total_bet_true"`
	TotalBetFalse string `json:"total_bet_false"`
	Price         string `json:"price"`
	Status        string `json:"status"`
	AIPrediction  string `json:"ai_prediction,omitempty"`
	AIConfidence  int    `json:"ai_confidence,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	ResolvedAt    int64  `json:"resolved_at,omitempty"`
}

// MarketDetail adds relational context to the market view.
type MarketDetail struct {
	Market
	Submitter      string `json:"submitter"`
	PositionsCount int64  `json:"positions_count"`
}

// SubmitMarketResponse wraps a created market with the advisory analysis and
// any already-active markets making a near-identical claim.
type SubmitMarketResponse struct {
	Market         *Market     `json:"market"`
	AIAnalysis     *AIAnalysis `json:"ai_analysis"`
	SimilarMarkets []*Market   `json:"similar_markets,omitempty"`
}

// AIAnalysis is the advisory signal attached at submission.
type AIAnalysis struct {
	Prediction string `json:"prediction"`
	Confidence int    `json:"confidence"`
}

// Position is the wire representation of a position.
type Position struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	MarketID   string `json:"market_id"`
	Side       string `json:"side"`
	Shares     string `json:"shares"`
	EntryPrice string `json:"entry_price"`
	CostBasis  string `json:"cost_basis"`
	Collateral string `json:"collateral"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

// BetResponse is returned after a successful bet.
type BetResponse struct {
	Market   *Market   `json:"market"`
	Position *Position `json:"position"`
	Shares   string    `json:"shares"`
	NewPrice string    `json:"new_price"`
}

// RefundEntry is one refund from a market deletion.
type RefundEntry struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
	Kind   string `json:"kind"`
}

// DeleteMarketResponse lists the refunds a deletion produced.
type DeleteMarketResponse struct {
	MarketID string        `json:"market_id"`
	Status   string        `json:"status"`
	Refunds  []RefundEntry `json:"refunds"`
}

// Report is the wire representation of an oracle report.
type Report struct {
	ID        string   `json:"id"`
	OracleID  string   `json:"oracle_id"`
	MarketID  string   `json:"market_id"`
	Verdict   string   `json:"verdict"`
	Evidence  []string `json:"evidence,omitempty"`
	Stake     string   `json:"stake"`
	Status    string   `json:"status"`
	CreatedAt int64    `json:"created_at"`
}

// ReportResponse wraps a submitted report.
type ReportResponse struct {
	Report             *Report `json:"report"`
	ConsensusTriggered bool    `json:"consensus_triggered"`
	Outcome            string  `json:"outcome,omitempty"`
}

// HealthResponse reports dependency health.
type HealthResponse struct {
	Database string `json:"database"`
	AI       string `json:"ai"`
}

// StatsResponse reports platform totals.
type StatsResponse struct {
	TotalUsers    int64  `json:"total_users"`
	TotalMarkets  int64  `json:"total_markets"`
	ActiveMarkets int64  `json:"active_markets"`
	TotalCCLocked string `json:"total_cc_locked"`
}

// ============ Service interfaces ============

// AuthService manages users and identity.
type AuthService interface {
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error)
	GetUser(ctx context.Context, id string) (*UserDetail, error)
	Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)
}

// MarketService manages the market lifecycle and trading.
type MarketService interface {
	SubmitMarket(ctx context.Context, req *SubmitMarketRequest) (*SubmitMarketResponse, error)
	GetMarket(ctx context.Context, id string) (*MarketDetail, error)
	ListMarkets(ctx context.Context, status, category string, limit, offset int) ([]*Market, error)
	PlaceBet(ctx context.Context, marketID string, req *BetRequest) (*BetResponse, error)
	DeleteMarket(ctx context.Context, marketID string, req *DeleteMarketRequest) (*DeleteMarketResponse, error)
}

// OracleService manages verdict reports.
type OracleService interface {
	SubmitReport(ctx context.Context, req *ReportRequest, ipHash string) (*ReportResponse, error)
	ReportsByMarket(ctx context.Context, marketID string) ([]*Report, error)
}

// StatusService backs the health and stats endpoints.
type StatusService interface {
	Health(ctx context.Context) *HealthResponse
	Stats(ctx context.Context) (*StatsResponse, error)
}
