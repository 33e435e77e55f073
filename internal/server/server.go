package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/lumafi/lumafi/internal/config"
	creditscoredomain "github.com/lumafi/lumafi/internal/creditscore/domain"
	loandomain "github.com/lumafi/lumafi/internal/loan/domain"
	"github.com/lumafi/lumafi/internal/telemetry"
	userdomain "github.com/lumafi/lumafi/internal/user/domain"
	webhookdomain "github.com/lumafi/lumafi/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SignatureHeader carries the keyed hash of the raw webhook body.
const SignatureHeader = "X-Lumafi-Signature"

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	WebhookSvc webhookdomain.Service
	LoanSvc    loandomain.Service
	ScoreSvc   creditscoredomain.Service
	UserSvc    userdomain.Service
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	webhookSvc webhookdomain.Service
	loanSvc    loandomain.Service
	scoreSvc   creditscoredomain.Service
	userSvc    userdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		webhookSvc: p.WebhookSvc,
		loanSvc:    p.LoanSvc,
		scoreSvc:   p.ScoreSvc,
		userSvc:    p.UserSvc,
	}
}

func NewEngine(log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogMiddleware(log, metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RegisterRoutes wires the public API surface.
func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/webhooks/chain", s.handleChainWebhook)

	v1.POST("/users", s.handleCreateUser)
	v1.GET("/users", s.handleGetUserByWallet)
	v1.GET("/users/:id/credit-score", s.handleGetCreditScore)

	v1.POST("/loans", s.handleRequestLoan)
	v1.POST("/loans/:id/repay", s.handleRepayLoan)
	v1.GET("/loans", s.handleListLoans)
	v1.GET("/loans/:id", s.handleGetLoan)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			log.Info("http server stopping")
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)
