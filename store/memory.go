package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/google/btree"
	"github.com/huandu/skiplist"

	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	oracletypes "github.com/openclaim/claimdex/x/oracle/types"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

const btreeDegree = 8

// marketIndexItem orders markets by creation time for newest-first listing.
type marketIndexItem struct {
	createdAt int64 // unix nanos
	id        string
}

func (a marketIndexItem) Less(b btree.Item) bool {
	o := b.(marketIndexItem)
	if a.createdAt != o.createdAt {
		return a.createdAt < o.createdAt
	}
	return a.id < o.id
}

// leaderboardKey orders users by total balance, richest first, with the user
// ID as tiebreaker so every key is unique in the skip list.
type leaderboardKey struct {
	balance math.LegacyDec
	userID  string
}

type leaderboardDesc struct{}

func (leaderboardDesc) Compare(lhs, rhs interface{}) int {
	l := lhs.(leaderboardKey)
	r := rhs.(leaderboardKey)
	if l.balance.GT(r.balance) {
		return -1
	}
	if l.balance.LT(r.balance) {
		return 1
	}
	if l.userID < r.userID {
		return -1
	}
	if l.userID > r.userID {
		return 1
	}
	return 0
}

func (leaderboardDesc) CalcScore(key interface{}) float64 {
	f, _ := key.(leaderboardKey).balance.Float64()
	return -f
}

// Memory is the in-memory Store used by tests and standalone mode. It
// honors the same conditional-update contract as the Postgres store.
type Memory struct {
	mu sync.RWMutex

	users        map[string]*ledgertypes.User
	pseudonyms   map[string]string // pseudonym -> user ID
	leaderboard  *skiplist.SkipList
	leaderboards map[string]leaderboardKey // user ID -> current key

	markets     map[string]*markettypes.Market
	marketIndex *btree.BTree

	positions map[string]*tradetypes.Position
	trades    []*tradetypes.Trade

	reports   map[string]*oracletypes.Report
	reportKey map[string]string // oracleID+"/"+marketID -> report ID

	votes []*oracletypes.VoteRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]*ledgertypes.User),
		pseudonyms:   make(map[string]string),
		leaderboard:  skiplist.New(leaderboardDesc{}),
		leaderboards: make(map[string]leaderboardKey),
		markets:      make(map[string]*markettypes.Market),
		marketIndex:  btree.New(btreeDegree),
		positions:    make(map[string]*tradetypes.Position),
		reports:      make(map[string]*oracletypes.Report),
		reportKey:    make(map[string]string),
	}
}

var _ Store = (*Memory)(nil)

func (s *Memory) Ping(ctx context.Context) error { return nil }

// ---- Users ----

func copyUser(u *ledgertypes.User) *ledgertypes.User {
	c := *u
	return &c
}

func (s *Memory) CreateUser(ctx context.Context, u *ledgertypes.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicate.Wrap("user id")
	}
	if _, ok := s.pseudonyms[u.Pseudonym]; ok {
		return ErrDuplicate.Wrap("pseudonym")
	}
	s.users[u.ID] = copyUser(u)
	s.pseudonyms[u.Pseudonym] = u.ID
	s.reindexUserLocked(u)
	return nil
}

func (s *Memory) GetUser(ctx context.Context, id string) (*ledgertypes.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound.Wrapf("user %s", id)
	}
	return copyUser(u), nil
}

func (s *Memory) GetUserByPseudonym(ctx context.Context, pseudonym string) (*ledgertypes.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pseudonyms[pseudonym]
	if !ok {
		return nil, ErrNotFound.Wrapf("pseudonym %s", pseudonym)
	}
	return copyUser(s.users[id]), nil
}

func (s *Memory) UpdateUser(ctx context.Context, u *ledgertypes.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound.Wrapf("user %s", u.ID)
	}
	if cur.Version != u.Version {
		return ErrVersionConflict.Wrapf("user %s", u.ID)
	}
	next := copyUser(u)
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = next
	u.Version = next.Version
	s.reindexUserLocked(next)
	return nil
}

// reindexUserLocked keeps the skip-list leaderboard in step with a user's
// total balance. Caller holds s.mu.
func (s *Memory) reindexUserLocked(u *ledgertypes.User) {
	if old, ok := s.leaderboards[u.ID]; ok {
		s.leaderboard.Remove(old)
	}
	key := leaderboardKey{balance: u.TotalBalance(), userID: u.ID}
	s.leaderboard.Set(key, u.ID)
	s.leaderboards[u.ID] = key
}

func (s *Memory) TopUsers(ctx context.Context, limit int) ([]*ledgertypes.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ledgertypes.User, 0, limit)
	for el := s.leaderboard.Front(); el != nil && len(out) < limit; el = el.Next() {
		out = append(out, copyUser(s.users[el.Value.(string)]))
	}
	return out, nil
}

func (s *Memory) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *Memory) SumLocked(ctx context.Context) (math.LegacyDec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := math.LegacyZeroDec()
	for _, u := range s.users {
		sum = sum.Add(u.Locked)
	}
	return sum, nil
}

// ---- Markets ----

func copyMarket(m *markettypes.Market) *markettypes.Market {
	c := *m
	if m.Embedding != nil {
		c.Embedding = append([]float64(nil), m.Embedding...)
	}
	if m.ResolvedAt != nil {
		t := *m.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func (s *Memory) CreateMarket(ctx context.Context, m *markettypes.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[m.ID]; ok {
		return ErrDuplicate.Wrap("market id")
	}
	s.markets[m.ID] = copyMarket(m)
	s.marketIndex.ReplaceOrInsert(marketIndexItem{createdAt: m.CreatedAt.UnixNano(), id: m.ID})
	return nil
}

func (s *Memory) GetMarket(ctx context.Context, id string) (*markettypes.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, ErrNotFound.Wrapf("market %s", id)
	}
	return copyMarket(m), nil
}

func (s *Memory) UpdateMarket(ctx context.Context, m *markettypes.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.markets[m.ID]
	if !ok {
		return ErrNotFound.Wrapf("market %s", m.ID)
	}
	if cur.Version != m.Version {
		return ErrVersionConflict.Wrapf("market %s", m.ID)
	}
	next := copyMarket(m)
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	s.markets[m.ID] = next
	m.Version = next.Version
	return nil
}

func (s *Memory) ListMarkets(ctx context.Context, f MarketFilter) ([]*markettypes.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	out := make([]*markettypes.Market, 0, limit)
	skipped := 0
	s.marketIndex.Descend(func(item btree.Item) bool {
		m := s.markets[item.(marketIndexItem).id]
		if f.Status != "" && m.Status != f.Status {
			return true
		}
		if f.Category != "" && m.Category != f.Category {
			return true
		}
		if skipped < f.Offset {
			skipped++
			return true
		}
		out = append(out, copyMarket(m))
		return len(out) < limit
	})
	return out, nil
}

func (s *Memory) TransitionMarketStatus(ctx context.Context, id string, from, to markettypes.MarketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return ErrNotFound.Wrapf("market %s", id)
	}
	if m.Status != from {
		return ErrStatusConflict.Wrapf("market %s is %s", id, m.Status)
	}
	now := time.Now().UTC()
	m.Status = to
	m.UpdatedAt = now
	m.Version++
	if to == markettypes.MarketStatusResolvedTrue || to == markettypes.MarketStatusResolvedFalse {
		m.ResolvedAt = &now
	}
	return nil
}

func (s *Memory) CountMarkets(ctx context.Context, status markettypes.MarketStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status == "" {
		return int64(len(s.markets)), nil
	}
	var n int64
	for _, m := range s.markets {
		if m.Status == status {
			n++
		}
	}
	return n, nil
}

// ---- Positions ----

func copyPosition(p *tradetypes.Position) *tradetypes.Position {
	c := *p
	return &c
}

func (s *Memory) CreatePosition(ctx context.Context, p *tradetypes.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[p.ID]; ok {
		return ErrDuplicate.Wrap("position id")
	}
	s.positions[p.ID] = copyPosition(p)
	return nil
}

func (s *Memory) UpdatePosition(ctx context.Context, p *tradetypes.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.positions[p.ID]
	if !ok {
		return ErrNotFound.Wrapf("position %s", p.ID)
	}
	if cur.Version != p.Version {
		return ErrVersionConflict.Wrapf("position %s", p.ID)
	}
	next := copyPosition(p)
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	s.positions[p.ID] = next
	p.Version = next.Version
	return nil
}

func (s *Memory) GetOpenPosition(ctx context.Context, userID, marketID string, side markettypes.Side) (*tradetypes.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.positions {
		if p.UserID == userID && p.MarketID == marketID && p.Side == side && p.Status == tradetypes.PositionStatusOpen {
			return copyPosition(p), nil
		}
	}
	return nil, ErrNotFound.Wrap("open position")
}

func (s *Memory) ListOpenPositionsByMarket(ctx context.Context, marketID string) ([]*tradetypes.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*tradetypes.Position
	for _, p := range s.positions {
		if p.MarketID == marketID && p.Status == tradetypes.PositionStatusOpen {
			out = append(out, copyPosition(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Memory) ListPositionsByUser(ctx context.Context, userID string) ([]*tradetypes.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*tradetypes.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			out = append(out, copyPosition(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) CountPositionsByMarket(ctx context.Context, marketID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.positions {
		if p.MarketID == marketID {
			n++
		}
	}
	return n, nil
}

func (s *Memory) CountPositionsByUser(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.positions {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ---- Trades ----

func (s *Memory) AppendTrade(ctx context.Context, t *tradetypes.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *t
	s.trades = append(s.trades, &c)
	return nil
}

func (s *Memory) ListTradesByMarket(ctx context.Context, marketID string) ([]*tradetypes.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*tradetypes.Trade
	for _, t := range s.trades {
		if t.MarketID == marketID {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

// ---- Oracle reports ----

func copyReport(r *oracletypes.Report) *oracletypes.Report {
	c := *r
	if r.Evidence != nil {
		c.Evidence = append([]string(nil), r.Evidence...)
	}
	return &c
}

func reportKeyOf(oracleID, marketID string) string {
	return oracleID + "/" + marketID
}

func (s *Memory) CreateReport(ctx context.Context, r *oracletypes.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reportKeyOf(r.OracleID, r.MarketID)
	if _, ok := s.reportKey[key]; ok {
		return ErrDuplicate.Wrap("oracle report")
	}
	s.reports[r.ID] = copyReport(r)
	s.reportKey[key] = r.ID
	return nil
}

func (s *Memory) UpdateReport(ctx context.Context, r *oracletypes.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[r.ID]
	if !ok {
		return ErrNotFound.Wrapf("report %s", r.ID)
	}
	if cur.Version != r.Version {
		return ErrVersionConflict.Wrapf("report %s", r.ID)
	}
	next := copyReport(r)
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	s.reports[r.ID] = next
	r.Version = next.Version
	return nil
}

func (s *Memory) ListReportsByMarket(ctx context.Context, marketID string) ([]*oracletypes.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*oracletypes.Report
	for _, r := range s.reports {
		if r.MarketID == marketID {
			out = append(out, copyReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) ListReportsByOracle(ctx context.Context, oracleID string) ([]*oracletypes.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*oracletypes.Report
	for _, r := range s.reports {
		if r.OracleID == oracleID {
			out = append(out, copyReport(r))
		}
	}
	return out, nil
}

// ---- Vote history ----

func (s *Memory) AppendVoteRecord(ctx context.Context, v *oracletypes.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *v
	s.votes = append(s.votes, &c)
	return nil
}

func (s *Memory) CountVotesByIPHashSince(ctx context.Context, ipHash string, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, v := range s.votes {
		if v.IPHash == ipHash && !v.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
