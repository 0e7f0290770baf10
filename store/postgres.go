package store

import (
	"context"
	"database/sql"
	"time"

	"cosmossdk.io/math"
	"github.com/lib/pq"

	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	oracletypes "github.com/openclaim/claimdex/x/oracle/types"
	tradetypes "github.com/openclaim/claimdex/x/trade/types"
)

// Schema for the six tables. CC amounts are NUMERIC and scanned through
// strings into LegacyDec.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	pseudonym     TEXT NOT NULL UNIQUE,
	available     NUMERIC(30,18) NOT NULL,
	locked        NUMERIC(30,18) NOT NULL,
	total_earned  NUMERIC(30,18) NOT NULL,
	total_lost    NUMERIC(30,18) NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	version       BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS markets (
	id              TEXT PRIMARY KEY,
	text            TEXT NOT NULL,
	category        TEXT NOT NULL,
	submitter_id    TEXT NOT NULL REFERENCES users(id),
	stake           NUMERIC(30,18) NOT NULL,
	total_bet_true  NUMERIC(30,18) NOT NULL,
	total_bet_false NUMERIC(30,18) NOT NULL,
	price           NUMERIC(30,18) NOT NULL,
	status          TEXT NOT NULL,
	ai_prediction   TEXT,
	ai_confidence   INT,
	embedding       FLOAT8[],
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	resolved_at     TIMESTAMPTZ,
	version         BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS markets_created_at_idx ON markets (created_at DESC);
CREATE INDEX IF NOT EXISTS markets_status_idx ON markets (status);

CREATE TABLE IF NOT EXISTS positions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id),
	market_id   TEXT NOT NULL REFERENCES markets(id),
	side        TEXT NOT NULL,
	shares      NUMERIC(30,18) NOT NULL,
	entry_price NUMERIC(30,18) NOT NULL,
	cost_basis  NUMERIC(30,18) NOT NULL,
	collateral  NUMERIC(30,18) NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	version     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS positions_market_idx ON positions (market_id, status);
CREATE INDEX IF NOT EXISTS positions_user_idx ON positions (user_id);

CREATE TABLE IF NOT EXISTS trades (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	market_id          TEXT NOT NULL,
	side               TEXT NOT NULL,
	cc_amount          NUMERIC(30,18) NOT NULL,
	shares             NUMERIC(30,18) NOT NULL,
	price_at_execution NUMERIC(30,18) NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_market_idx ON trades (market_id);

CREATE TABLE IF NOT EXISTS oracle_reports (
	id         TEXT PRIMARY KEY,
	oracle_id  TEXT NOT NULL,
	market_id  TEXT NOT NULL,
	verdict    TEXT NOT NULL,
	evidence   TEXT[],
	stake      NUMERIC(30,18) NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version    BIGINT NOT NULL,
	UNIQUE (oracle_id, market_id)
);
CREATE INDEX IF NOT EXISTS oracle_reports_market_idx ON oracle_reports (market_id);

CREATE TABLE IF NOT EXISTS oracle_vote_history (
	oracle_id  TEXT NOT NULL,
	market_id  TEXT NOT NULL,
	ip_hash    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS oracle_vote_history_ip_idx ON oracle_vote_history (ip_hash, created_at);
`

// Postgres is the durable Store backed by lib/pq.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the database and ensures the schema exists.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		return nil, ErrUnavailable.Wrapf("ensure schema: %v", err)
	}
	return &Postgres{db: db}, nil
}

var _ Store = (*Postgres)(nil)

// Close releases the connection pool.
func (s *Postgres) Close() error { return s.db.Close() }

func (s *Postgres) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func decOf(s string) math.LegacyDec {
	d, err := math.LegacyNewDecFromStr(s)
	if err != nil {
		return math.LegacyZeroDec()
	}
	return d
}

// ---- Users ----

func (s *Postgres) CreateUser(ctx context.Context, u *ledgertypes.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, pseudonym, available, locked, total_earned, total_lost, created_at, updated_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Pseudonym, u.Available.String(), u.Locked.String(),
		u.TotalEarned.String(), u.TotalLost.String(), u.CreatedAt, u.UpdatedAt, u.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate.Wrap("user")
		}
		return ErrUnavailable.Wrap(err.Error())
	}
	return nil
}

func (s *Postgres) scanUser(row *sql.Row) (*ledgertypes.User, error) {
	var u ledgertypes.User
	var available, locked, earned, lost string
	err := row.Scan(&u.ID, &u.Pseudonym, &available, &locked, &earned, &lost,
		&u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound.Wrap("user")
	}
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	u.Available = decOf(available)
	u.Locked = decOf(locked)
	u.TotalEarned = decOf(earned)
	u.TotalLost = decOf(lost)
	return &u, nil
}

const userColumns = `id, pseudonym, available, locked, total_earned, total_lost, created_at, updated_at, version`

func (s *Postgres) GetUser(ctx context.Context, id string) (*ledgertypes.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Postgres) GetUserByPseudonym(ctx context.Context, pseudonym string) (*ledgertypes.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE pseudonym = $1`, pseudonym))
}

func (s *Postgres) UpdateUser(ctx context.Context, u *ledgertypes.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET available=$1, locked=$2, total_earned=$3, total_lost=$4,
			updated_at=now(), version=version+1
		WHERE id=$5 AND version=$6`,
		u.Available.String(), u.Locked.String(), u.TotalEarned.String(),
		u.TotalLost.String(), u.ID, u.Version)
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return s.versionOrNotFound(ctx, `users`, u.ID)
	}
	u.Version++
	return nil
}

// versionOrNotFound disambiguates a zero-row conditional update.
func (s *Postgres) versionOrNotFound(ctx context.Context, table, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	if !exists {
		return ErrNotFound.Wrapf("%s %s", table, id)
	}
	return ErrVersionConflict.Wrapf("%s %s", table, id)
}

func (s *Postgres) TopUsers(ctx context.Context, limit int) ([]*ledgertypes.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY available + locked DESC LIMIT $1`, limit)
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	defer rows.Close()

	var out []*ledgertypes.User
	for rows.Next() {
		var u ledgertypes.User
		var available, locked, earned, lost string
		if err := rows.Scan(&u.ID, &u.Pseudonym, &available, &locked, &earned, &lost,
			&u.CreatedAt, &u.UpdatedAt, &u.Version); err != nil {
			return nil, ErrUnavailable.Wrap(err.Error())
		}
		u.Available = decOf(available)
		u.Locked = decOf(locked)
		u.TotalEarned = decOf(earned)
		u.TotalLost = decOf(lost)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *Postgres) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	if err != nil {
		return 0, ErrUnavailable.Wrap(err.Error())
	}
	return n, nil
}

func (s *Postgres) SumLocked(ctx context.Context) (math.LegacyDec, error) {
	var sum string
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(locked), 0) FROM users`).Scan(&sum)
	if err != nil {
		return math.LegacyDec{}, ErrUnavailable.Wrap(err.Error())
	}
	return decOf(sum), nil
}

// ---- Markets ----

const marketColumns = `id, text, category, submitter_id, stake, total_bet_true, total_bet_false,
	price, status, ai_prediction, ai_confidence, embedding, created_at, updated_at, resolved_at, version`

func (s *Postgres) CreateMarket(ctx context.Context, m *markettypes.Market) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets (`+marketColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		m.ID, m.Text, m.Category, m.SubmitterID, m.Stake.String(),
		m.TotalBetTrue.String(), m.TotalBetFalse.String(), m.Price.String(),
		string(m.Status), nullStr(m.AIPrediction), m.AIConfidence,
		pq.Array(m.Embedding), m.CreatedAt, m.UpdatedAt, m.ResolvedAt, m.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate.Wrap("market")
		}
		return ErrUnavailable.Wrap(err.Error())
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanMarketRow(scan func(dest ...interface{}) error) (*markettypes.Market, error) {
	var m markettypes.Market
	var stake, betTrue, betFalse, price string
	var status string
	var aiPrediction sql.NullString
	var aiConfidence sql.NullInt64
	var embedding pq.Float64Array
	var resolvedAt sql.NullTime
	err := scan(&m.ID, &m.Text, &m.Category, &m.SubmitterID, &stake, &betTrue,
		&betFalse, &price, &status, &aiPrediction, &aiConfidence, &embedding,
		&m.CreatedAt, &m.UpdatedAt, &resolvedAt, &m.Version)
	if err != nil {
		return nil, err
	}
	m.Stake = decOf(stake)
	m.TotalBetTrue = decOf(betTrue)
	m.TotalBetFalse = decOf(betFalse)
	m.Price = decOf(price)
	m.Status = markettypes.MarketStatus(status)
	m.AIPrediction = aiPrediction.String
	m.AIConfidence = int(aiConfidence.Int64)
	m.Embedding = []float64(embedding)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		m.ResolvedAt = &t
	}
	return &m, nil
}

func (s *Postgres) GetMarket(ctx context.Context, id string) (*markettypes.Market, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id = $1`, id)
	m, err := scanMarketRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound.Wrapf("market %s", id)
	}
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	return m, nil
}

func (s *Postgres) UpdateMarket(ctx context.Context, m *markettypes.Market) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE markets SET total_bet_true=$1, total_bet_false=$2, price=$3, status=$4,
			updated_at=now(), resolved_at=$5, version=version+1
		WHERE id=$6 AND version=$7`,
		m.TotalBetTrue.String(), m.TotalBetFalse.String(), m.Price.String(),
		string(m.Status), m.ResolvedAt, m.ID, m.Version)
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return s.versionOrNotFound(ctx, `markets`, m.ID)
	}
	m.Version++
	return nil
}

func (s *Postgres) ListMarkets(ctx context.Context, f MarketFilter) ([]*markettypes.Market, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+marketColumns+` FROM markets
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		string(f.Status), f.Category, limit, f.Offset)
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	defer rows.Close()

	var out []*markettypes.Market
	for rows.Next() {
		m, err := scanMarketRow(rows.Scan)
		if err != nil {
			return nil, ErrUnavailable.Wrap(err.Error())
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) TransitionMarketStatus(ctx context.Context, id string, from, to markettypes.MarketStatus) error {
	resolvedAt := sql.NullTime{}
	if to == markettypes.MarketStatusResolvedTrue || to == markettypes.MarketStatusResolvedFalse {
		resolvedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE markets SET status=$1, resolved_at=COALESCE($2, resolved_at),
			updated_at=now(), version=version+1
		WHERE id=$3 AND status=$4`,
		string(to), resolvedAt, id, string(from))
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM markets WHERE id = $1)`, id).Scan(&exists); err != nil {
			return ErrUnavailable.Wrap(err.Error())
		}
		if !exists {
			return ErrNotFound.Wrapf("market %s", id)
		}
		return ErrStatusConflict.Wrapf("market %s", id)
	}
	return nil
}

func (s *Postgres) CountMarkets(ctx context.Context, status markettypes.MarketStatus) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM markets WHERE $1 = '' OR status = $1`, string(status)).Scan(&n)
	if err != nil {
		return 0, ErrUnavailable.Wrap(err.Error())
	}
	return n, nil
}

// ---- Positions ----

const positionColumns = `id, user_id, market_id, side, shares, entry_price, cost_basis, collateral, status, created_at, updated_at, version`

func (s *Postgres) CreatePosition(ctx context.Context, p *tradetypes.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (`+positionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.UserID, p.MarketID, string(p.Side), p.Shares.String(),
		p.EntryPrice.String(), p.CostBasis.String(), p.Collateral.String(),
		string(p.Status), p.CreatedAt, p.UpdatedAt, p.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate.Wrap("position")
		}
		return ErrUnavailable.Wrap(err.Error())
	}
	return nil
}

func (s *Postgres) UpdatePosition(ctx context.Context, p *tradetypes.Position) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions SET shares=$1, entry_price=$2, cost_basis=$3, collateral=$4,
			status=$5, updated_at=now(), version=version+1
		WHERE id=$6 AND version=$7`,
		p.Shares.String(), p.EntryPrice.String(), p.CostBasis.String(),
		p.Collateral.String(), string(p.Status), p.ID, p.Version)
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return s.versionOrNotFound(ctx, `positions`, p.ID)
	}
	p.Version++
	return nil
}

func scanPositionRow(scan func(dest ...interface{}) error) (*tradetypes.Position, error) {
	var p tradetypes.Position
	var side, status, shares, entry, cost, collateral string
	err := scan(&p.ID, &p.UserID, &p.MarketID, &side, &shares, &entry, &cost,
		&collateral, &status, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return nil, err
	}
	p.Side = markettypes.Side(side)
	p.Status = tradetypes.PositionStatus(status)
	p.Shares = decOf(shares)
	p.EntryPrice = decOf(entry)
	p.CostBasis = decOf(cost)
	p.Collateral = decOf(collateral)
	return &p, nil
}

func (s *Postgres) GetOpenPosition(ctx context.Context, userID, marketID string, side markettypes.Side) (*tradetypes.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE user_id=$1 AND market_id=$2 AND side=$3 AND status='open'`,
		userID, marketID, string(side))
	p, err := scanPositionRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound.Wrap("open position")
	}
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	return p, nil
}

func (s *Postgres) queryPositions(ctx context.Context, query string, args ...interface{}) ([]*tradetypes.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	defer rows.Close()

	var out []*tradetypes.Position
	for rows.Next() {
		p, err := scanPositionRow(rows.Scan)
		if err != nil {
			return nil, ErrUnavailable.Wrap(err.Error())
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) ListOpenPositionsByMarket(ctx context.Context, marketID string) ([]*tradetypes.Position, error) {
	return s.queryPositions(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE market_id=$1 AND status='open' ORDER BY id`, marketID)
}

func (s *Postgres) ListPositionsByUser(ctx context.Context, userID string) ([]*tradetypes.Position, error) {
	return s.queryPositions(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *Postgres) CountPositionsByMarket(ctx context.Context, marketID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM positions WHERE market_id=$1`, marketID).Scan(&n)
	if err != nil {
		return 0, ErrUnavailable.Wrap(err.Error())
	}
	return n, nil
}

func (s *Postgres) CountPositionsByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM positions WHERE user_id=$1`, userID).Scan(&n)
	if err != nil {
		return 0, ErrUnavailable.Wrap(err.Error())
	}
	return n, nil
}

// ---- Trades ----

func (s *Postgres) AppendTrade(ctx context.Context, t *tradetypes.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, user_id, market_id, side, cc_amount, shares, price_at_execution, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.UserID, t.MarketID, string(t.Side), t.CCAmount.String(),
		t.Shares.String(), t.PriceAtExecution.String(), t.CreatedAt)
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	return nil
}

func (s *Postgres) ListTradesByMarket(ctx context.Context, marketID string) ([]*tradetypes.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, market_id, side, cc_amount, shares, price_at_execution, created_at
		FROM trades WHERE market_id=$1 ORDER BY created_at`, marketID)
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	defer rows.Close()

	var out []*tradetypes.Trade
	for rows.Next() {
		var t tradetypes.Trade
		var side, cc, shares, price string
		if err := rows.Scan(&t.ID, &t.UserID, &t.MarketID, &side, &cc, &shares,
			&price, &t.CreatedAt); err != nil {
			return nil, ErrUnavailable.Wrap(err.Error())
		}
		t.Side = markettypes.Side(side)
		t.CCAmount = decOf(cc)
		t.Shares = decOf(shares)
		t.PriceAtExecution = decOf(price)
		out = append(out, &t)
	}
	return out, rows.Err()
}

// ---- Oracle reports ----

const reportColumns = `id, oracle_id, market_id, verdict, evidence, stake, status, created_at, updated_at, version`

func (s *Postgres) CreateReport(ctx context.Context, r *oracletypes.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_reports (`+reportColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.OracleID, r.MarketID, string(r.Verdict), pq.Array(r.Evidence),
		r.Stake.String(), string(r.Status), r.CreatedAt, r.UpdatedAt, r.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate.Wrap("oracle report")
		}
		return ErrUnavailable.Wrap(err.Error())
	}
	return nil
}

func (s *Postgres) UpdateReport(ctx context.Context, r *oracletypes.Report) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE oracle_reports SET status=$1, updated_at=now(), version=version+1
		WHERE id=$2 AND version=$3`,
		string(r.Status), r.ID, r.Version)
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return s.versionOrNotFound(ctx, `oracle_reports`, r.ID)
	}
	r.Version++
	return nil
}

func (s *Postgres) queryReports(ctx context.Context, query string, args ...interface{}) ([]*oracletypes.Report, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ErrUnavailable.Wrap(err.Error())
	}
	defer rows.Close()

	var out []*oracletypes.Report
	for rows.Next() {
		var r oracletypes.Report
		var verdict, status, stake string
		var evidence pq.StringArray
		if err := rows.Scan(&r.ID, &r.OracleID, &r.MarketID, &verdict, &evidence,
			&stake, &status, &r.CreatedAt, &r.UpdatedAt, &r.Version); err != nil {
			return nil, ErrUnavailable.Wrap(err.Error())
		}
		r.Verdict = markettypes.Side(verdict)
		r.Status = oracletypes.ReportStatus(status)
		r.Stake = decOf(stake)
		r.Evidence = []string(evidence)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Postgres) ListReportsByMarket(ctx context.Context, marketID string) ([]*oracletypes.Report, error) {
	return s.queryReports(ctx, `
		SELECT `+reportColumns+` FROM oracle_reports
		WHERE market_id=$1 ORDER BY created_at DESC`, marketID)
}

func (s *Postgres) ListReportsByOracle(ctx context.Context, oracleID string) ([]*oracletypes.Report, error) {
	return s.queryReports(ctx, `
		SELECT `+reportColumns+` FROM oracle_reports
		WHERE oracle_id=$1 ORDER BY created_at DESC`, oracleID)
}

// ---- Vote history ----

func (s *Postgres) AppendVoteRecord(ctx context.Context, v *oracletypes.VoteRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_vote_history (oracle_id, market_id, ip_hash, created_at)
		VALUES ($1,$2,$3,$4)`,
		v.OracleID, v.MarketID, v.IPHash, v.CreatedAt)
	if err != nil {
		return ErrUnavailable.Wrap(err.Error())
	}
	return nil
}

func (s *Postgres) CountVotesByIPHashSince(ctx context.Context, ipHash string, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM oracle_vote_history
		WHERE ip_hash=$1 AND created_at >= $2`, ipHash, since).Scan(&n)
	if err != nil {
		return 0, ErrUnavailable.Wrap(err.Error())
	}
	return n, nil
}
