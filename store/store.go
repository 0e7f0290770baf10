// Package store defines the persistence boundary of the engine. All mutable
// shared state lives behind this interface; the keepers rely on its
// conditional-update semantics for consistency under concurrency.
package store

import (
	"context"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	oracletypes "github.com/openclaim/claimdex/x/oracle/types"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

// Store error codes
var (
	ErrNotFound        = errors.Register("store", 1, "record not found")
	ErrDuplicate       = errors.Register("store", 2, "record already exists")
	ErrVersionConflict = errors.Register("store", 3, "version conflict")
	ErrStatusConflict  = errors.Register("store", 4, "status transition conflict")
	ErrUnavailable     = errors.Register("store", 5, "store unavailable")
)

// MarketFilter narrows and pages market listings. Results are always newest
// first.
type MarketFilter struct {
	Status   markettypes.MarketStatus // empty matches all
	Category string                   // empty matches all
	Limit    int
	Offset   int
}

// Store is the persistence interface the engine runs against.
//
// Update methods compare the record's Version against the stored one and
// fail with ErrVersionConflict on mismatch; on success the stored Version is
// incremented. TransitionMarketStatus is the settlement guard: it succeeds
// at most once per market for a given source status.
type Store interface {
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, u *ledgertypes.User) error
	GetUser(ctx context.Context, id string) (*ledgertypes.User, error)
	GetUserByPseudonym(ctx context.Context, pseudonym string) (*ledgertypes.User, error)
	UpdateUser(ctx context.Context, u *ledgertypes.User) error
	TopUsers(ctx context.Context, limit int) ([]*ledgertypes.User, error)
	CountUsers(ctx context.Context) (int64, error)
	SumLocked(ctx context.Context) (math.LegacyDec, error)

	// Markets
	CreateMarket(ctx context.Context, m *markettypes.Market) error
	GetMarket(ctx context.Context, id string) (*markettypes.Market, error)
	UpdateMarket(ctx context.Context, m *markettypes.Market) error
	ListMarkets(ctx context.Context, f MarketFilter) ([]*markettypes.Market, error)
	TransitionMarketStatus(ctx context.Context, id string, from, to markettypes.MarketStatus) error
	CountMarkets(ctx context.Context, status markettypes.MarketStatus) (int64, error)

	// Positions
	CreatePosition(ctx context.Context, p *tradetypes.Position) error
	UpdatePosition(ctx context.Context, p *tradetypes.Position) error
	GetOpenPosition(ctx context.Context, userID, marketID string, side markettypes.Side) (*tradetypes.Position, error)
	ListOpenPositionsByMarket(ctx context.Context, marketID string) ([]*tradetypes.Position, error)
	ListPositionsByUser(ctx context.Context, userID string) ([]*tradetypes.Position, error)
	CountPositionsByMarket(ctx context.Context, marketID string) (int64, error)
	CountPositionsByUser(ctx context.Context, userID string) (int64, error)

	// Trades (append-only)
	AppendTrade(ctx context.Context, t *tradetypes.Trade) error
	ListTradesByMarket(ctx context.Context, marketID string) ([]*tradetypes.Trade, error)

	// Oracle reports
	CreateReport(ctx context.Context, r *oracletypes.Report) error
	UpdateReport(ctx context.Context, r *oracletypes.Report) error
	ListReportsByMarket(ctx context.Context, marketID string) ([]*oracletypes.Report, error)
	ListReportsByOracle(ctx context.Context, oracleID string) ([]*oracletypes.Report, error)

	// Oracle vote history (rate-limit ledger)
	AppendVoteRecord(ctx context.Context, v *oracletypes.VoteRecord) error
	CountVotesByIPHashSince(ctx context.Context, ipHash string, since time.Time) (int64, error)
}
