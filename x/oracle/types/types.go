package types

import (
	"time"

	"cosmossdk.io/math"

	markettypes "github.com/openclaim/claimdex/x/market/types"
)

// ReportStatus is the lifecycle state of a staked report.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusCorrect   ReportStatus = "correct"
	ReportStatusIncorrect ReportStatus = "incorrect"
)

// MinReportStake is the anti-Sybil floor on report stakes. Deliberately
// higher than the nominal 5 floor to price out cheap identities.
var MinReportStake = math.LegacyNewDec(20)

// Consensus thresholds: a decisive majority is required on either side.
var (
	ConsensusTrueThreshold  = math.LegacyNewDecWithPrec(75, 2) // score >= 0.75 -> true
	ConsensusFalseThreshold = math.LegacyNewDecWithPrec(25, 2) // score <= 0.25 -> false
)

// MinReportsForConsensus is the minimum report count before consensus is
// even evaluated.
const MinReportsForConsensus = 3

// DefaultReputation applies to oracles with no resolved reports.
var DefaultReputation = math.LegacyNewDecWithPrec(6, 1) // 0.6

// Report is a staked verdict on a market. (OracleID, MarketID) is unique
// regardless of status: one vote per oracle per market, ever.
type Report struct {
	ID       string
	OracleID string
	MarketID string

	Verdict  markettypes.Side
	Evidence []string
	Stake    math.LegacyDec
	Status   ReportStatus

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// NewReport creates a pending report.
func NewReport(id, oracleID, marketID string, verdict markettypes.Side, evidence []string, stake math.LegacyDec) *Report {
	now := time.Now().UTC()
	return &Report{
		ID:        id,
		OracleID:  oracleID,
		MarketID:  marketID,
		Verdict:   verdict,
		Evidence:  evidence,
		Stake:     stake,
		Status:    ReportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// VoteRecord is the rate-limit ledger entry for a submitted report. IPHash
// is HMAC-SHA256(secret, client IP); the raw IP never reaches storage.
type VoteRecord struct {
	OracleID  string
	MarketID  string
	IPHash    string
	CreatedAt time.Time
}

// RateLimitWindow and RateLimitMaxVotes bound report submissions per IP hash.
const (
	RateLimitWindow   = time.Hour
	RateLimitMaxVotes = 5
)

// RewardTier maps an oracle's reputation to its payout multiplier tier.
func RewardTier(rep math.LegacyDec) math.LegacyDec {
	switch {
	case rep.GT(math.LegacyNewDecWithPrec(8, 1)): // > 0.8
		return math.LegacyNewDec(2)
	case rep.GT(math.LegacyNewDecWithPrec(6, 1)): // > 0.6
		return math.LegacyNewDecWithPrec(15, 1)
	default:
		return math.LegacyNewDecWithPrec(12, 1)
	}
}

// BaseRewardFactor multiplies the tier to form the final reward factor.
var BaseRewardFactor = math.LegacyNewDecWithPrec(15, 1) // 1.5

// RewardFactor is the multiplier applied to a correct report's stake.
func RewardFactor(rep math.LegacyDec) math.LegacyDec {
	return BaseRewardFactor.Mul(RewardTier(rep))
}
