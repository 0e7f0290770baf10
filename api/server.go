// Package api exposes the claim engine over HTTP and WebSocket.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/openclaim/claimdex/api/handlers"
	"github.com/openclaim/claimdex/api/middleware"
	"github.com/openclaim/claimdex/api/types"
	"github.com/openclaim/claimdex/api/websocket"
	"github.com/openclaim/claimdex/metrics"
	ledgertypes "github.com/openclaim/claimdex/x/ledger/types"
	markettypes "github.com/openclaim/claimdex/x/market/types"
	oracletypes "github.com/openclaim/claimdex/x/oracle/types"
)

// Config carries the HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server ties the service, handlers, middleware chain and the event hub
// together behind one http.Server.
type Server struct {
	cfg     *Config
	service *CoreService
	hub     *websocket.Hub
	limiter *middleware.RateLimiter
	router  *mux.Router
	http    *http.Server
	logger  log.Logger
}

// NewServer builds a fully wired Server. hasher may be disabled (empty
// secret); report submissions then skip the per-IP vote limit.
func NewServer(cfg *Config, service *CoreService, issuer *middleware.TokenIssuer, hasher *middleware.IPHasher, logger log.Logger) *Server {
	hub := websocket.NewHub(nil)

	s := &Server{
		cfg:     cfg,
		service: service,
		hub:     hub,
		limiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		router:  mux.NewRouter(),
		logger:  logger.With("module", "api/server"),
	}
	s.routes(issuer, hasher)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      c.Handler(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(issuer *middleware.TokenIssuer, hasher *middleware.IPHasher) {
	marketSvc := &publishingMarketService{MarketService: s.service, hub: s.hub}
	oracleSvc := &publishingOracleService{OracleService: s.service, hub: s.hub}

	auth := handlers.NewAuthHandler(s.service)
	market := handlers.NewMarketHandler(marketSvc)
	oracle := handlers.NewOracleHandler(oracleSvc, hasher)
	status := handlers.NewStatusHandler(s.service)

	s.router.Use(s.metricsMiddleware)
	s.router.Use(middleware.AuthMiddleware(issuer))
	s.router.Use(middleware.RateLimitMiddleware(s.limiter))

	writeLimited := middleware.WriteRateLimitMiddleware(s.limiter)

	s.router.HandleFunc("/auth/initialize", auth.HandleInitialize).Methods(http.MethodPost)
	s.router.HandleFunc("/auth/user/{id}", auth.HandleGetUser).Methods(http.MethodGet)
	s.router.HandleFunc("/auth/users", auth.HandleLeaderboard).Methods(http.MethodGet)

	s.router.HandleFunc("/markets", market.HandleList).Methods(http.MethodGet)
	s.router.Handle("/markets/submit", writeLimited(http.HandlerFunc(market.HandleSubmit))).Methods(http.MethodPost)
	s.router.HandleFunc("/markets/{id}", market.HandleGet).Methods(http.MethodGet)
	s.router.Handle("/markets/{id}", writeLimited(http.HandlerFunc(market.HandleDelete))).Methods(http.MethodDelete)
	s.router.Handle("/markets/{id}/bet", writeLimited(http.HandlerFunc(market.HandleBet))).Methods(http.MethodPost)

	s.router.Handle("/oracles/report", writeLimited(http.HandlerFunc(oracle.HandleSubmitReport))).Methods(http.MethodPost)
	s.router.HandleFunc("/oracles/reports/{market_id}", oracle.HandleReportsByMarket).Methods(http.MethodGet)

	s.router.HandleFunc("/health", status.HandleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", status.HandleStats).Methods(http.MethodGet)

	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.hub.ServeWS)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.Get().ObserveRequest(route, strconv.Itoa(rec.status), time.Since(start))
	})
}

// Start runs the hub loop and serves HTTP until Shutdown.
func (s *Server) Start() error {
	go s.hub.Run()
	s.logger.Info("http server listening", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.http.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ============ Event publication ============

// publishingMarketService pushes hub events and metrics after successful
// market mutations. Reads pass through untouched.
type publishingMarketService struct {
	types.MarketService
	hub *websocket.Hub
}

func (p *publishingMarketService) SubmitMarket(ctx context.Context, req *types.SubmitMarketRequest) (*types.SubmitMarketResponse, error) {
	resp, err := p.MarketService.SubmitMarket(ctx, req)
	if err != nil {
		return nil, err
	}
	m := metrics.Get()
	m.MarketsCreated.Inc()
	m.MarketsActive.Inc()
	p.hub.BroadcastNewMarket(&websocket.NewMarketMessage{
		MarketID:  resp.Market.ID,
		Text:      resp.Market.Text,
		Category:  resp.Market.Category,
		Price:     resp.Market.Price,
		Timestamp: time.Now().Unix(),
	})
	return resp, nil
}

func (p *publishingMarketService) PlaceBet(ctx context.Context, marketID string, req *types.BetRequest) (*types.BetResponse, error) {
	resp, err := p.MarketService.PlaceBet(ctx, marketID, req)
	if err != nil {
		return nil, err
	}
	m := metrics.Get()
	m.BetsTotal.WithLabelValues(req.Type).Inc()
	m.BetVolume.WithLabelValues(req.Type).Add(req.CCAmount)
	p.hub.BroadcastTick(&websocket.TickMessage{
		MarketID:      marketID,
		Price:         resp.NewPrice,
		TotalBetTrue:  resp.Market.TotalBetTrue,
		TotalBetFalse: resp.Market.TotalBetFalse,
		Timestamp:     time.Now().Unix(),
	})
	return resp, nil
}

func (p *publishingMarketService) DeleteMarket(ctx context.Context, marketID string, req *types.DeleteMarketRequest) (*types.DeleteMarketResponse, error) {
	resp, err := p.MarketService.DeleteMarket(ctx, marketID, req)
	if err != nil {
		return nil, err
	}
	m := metrics.Get()
	m.MarketsDeleted.Inc()
	m.MarketsActive.Dec()
	p.hub.BroadcastResolution(&websocket.ResolutionMessage{
		MarketID:  marketID,
		Status:    resp.Status,
		Timestamp: time.Now().Unix(),
	})
	return resp, nil
}

// rejectionReason buckets a failed report submission for the rejection
// counter.
func rejectionReason(err error) string {
	switch {
	case oracletypes.ErrDuplicateVote.Is(err):
		return "duplicate_vote"
	case oracletypes.ErrRateLimited.Is(err):
		return "rate_limited"
	case oracletypes.ErrStakeTooLow.Is(err):
		return "stake_too_low"
	case oracletypes.ErrInvalidVerdict.Is(err):
		return "invalid_verdict"
	case ledgertypes.ErrInsufficientFunds.Is(err):
		return "insufficient_funds"
	case markettypes.ErrMarketNotActive.Is(err):
		return "market_not_active"
	default:
		return "other"
	}
}

// publishingOracleService pushes resolution events once a report trips
// consensus.
type publishingOracleService struct {
	types.OracleService
	hub *websocket.Hub
}

func (p *publishingOracleService) SubmitReport(ctx context.Context, req *types.ReportRequest, ipHash string) (*types.ReportResponse, error) {
	resp, err := p.OracleService.SubmitReport(ctx, req, ipHash)
	if err != nil {
		metrics.Get().ReportsRejected.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}
	m := metrics.Get()
	m.ReportsTotal.WithLabelValues(req.Verdict).Inc()
	if resp.ConsensusTriggered {
		m.ConsensusReached.WithLabelValues(resp.Outcome).Inc()
		m.MarketsSettled.WithLabelValues(resp.Outcome).Inc()
		m.MarketsActive.Dec()
		p.hub.BroadcastResolution(&websocket.ResolutionMessage{
			MarketID:  req.MarketID,
			Status:    string(markettypes.ResolvedStatus(markettypes.Side(resp.Outcome))),
			Outcome:   resp.Outcome,
			Timestamp: time.Now().Unix(),
		})
	}
	return resp, nil
}
