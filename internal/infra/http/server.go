package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/config"
	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
	"github.com/rifat-sarwar/IntelliTrust/internal/infra/db"
	"github.com/rifat-sarwar/IntelliTrust/internal/infra/medium/memchain"
	"github.com/rifat-sarwar/IntelliTrust/internal/infra/policy"
	"github.com/rifat-sarwar/IntelliTrust/internal/infra/ratelimit"
	"github.com/rifat-sarwar/IntelliTrust/internal/registry"
	"github.com/rifat-sarwar/IntelliTrust/internal/submit"
	"github.com/rifat-sarwar/IntelliTrust/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	ledger *usecase.Ledger
	logger *slog.Logger

	adminAPIKey string
	initErr     error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r, logger: slog.Default()}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Ledger      *usecase.Ledger
	Store       *db.Store
	AdminAPIKey string
	RateLimiter domain.RateLimiter
	Logger      *slog.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		store:       deps.Store,
		r:           r,
		ledger:      deps.Ledger,
		logger:      deps.Logger,
		adminAPIKey: deps.AdminAPIKey,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	access := registry.NewAccessController(s.cfg.InitialAdmin)
	if s.cfg.InitialAdmin != "" {
		// The bootstrap administrator can exercise every operation until real
		// grants are issued.
		_ = access.Grant(s.cfg.InitialAdmin, s.cfg.InitialAdmin, domain.CapabilityAnchor)
		_ = access.Grant(s.cfg.InitialAdmin, s.cfg.InitialAdmin, domain.CapabilityRevoke)
	}
	notifier := registry.NewNotifier(0)
	reg := registry.New(registry.Options{
		Limits: domain.Limits{
			MaxMetadataBytes: s.cfg.MaxMetadataBytes,
			MaxPerIdentity:   s.cfg.MaxPerIdentity,
			MinFee:           s.cfg.MinFee,
		},
		Access:   access,
		Notifier: notifier,
	})

	var journal memchain.Journal
	if s.store != nil && s.store.DB != nil {
		journal = db.NewCallJournal(s.store.DB)
	}
	chain := memchain.New(memchain.Options{Registry: reg, Journal: journal})
	if journal != nil {
		if err := chain.Replay(context.Background()); err != nil {
			s.initErr = err
			return
		}
	}

	submitter, err := submit.New(chain, submit.Options{
		Identity:     s.cfg.ServiceIdentity,
		MaxAttempts:  s.cfg.SubmitMaxAttempts,
		Backoff:      s.cfg.SubmitBackoff(),
		Timeout:      s.cfg.SubmitTimeout(),
		FallbackCost: uint64(s.cfg.FallbackCost),
		MaxCost:      uint64(s.cfg.MaxCost),
		NonceTTL:     s.cfg.NonceTTL(),
		Logger:       s.logger,
	})
	if err != nil {
		s.initErr = err
		return
	}

	var admission usecase.AnchorPolicy
	if s.cfg.PolicyPath != "" {
		engine, err := policy.NewEngineFromPath(context.Background(), s.cfg.PolicyPath)
		if err != nil {
			s.initErr = err
			return
		}
		admission = engine
	}

	s.ledger = &usecase.Ledger{
		Registry:  reg,
		Submitter: submitter,
		Medium:    chain,
		Policy:    admission,
		Logger:    s.logger,
	}

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/documents/anchor", s.handleAnchor)
		v1.GET("/documents/:fingerprint", s.handleVerify)
		v1.POST("/documents/:fingerprint/revoke", s.handleRevoke)
		v1.PUT("/documents/:fingerprint/metadata", s.handleUpdateMetadata)
		v1.GET("/documents/:fingerprint/history", s.handleHistory)
		v1.GET("/statistics", s.handleStatistics)

		v1.POST("/admin/limits", s.handleAdminSetLimits)
		v1.POST("/admin/pause", s.handleAdminPause)
		v1.POST("/admin/unpause", s.handleAdminUnpause)
		v1.POST("/admin/withdraw", s.handleAdminWithdraw)
		v1.GET("/admin/capabilities", s.handleAdminListCapabilities)
		v1.POST("/admin/capabilities/grant", s.handleAdminGrant)
		v1.POST("/admin/capabilities/revoke", s.handleAdminRevokeGrant)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
