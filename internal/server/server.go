package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	chatdomain "github.com/smallbiznis/quoteshare/internal/chat/domain"
	"github.com/smallbiznis/quoteshare/internal/config"
	jobdomain "github.com/smallbiznis/quoteshare/internal/job/domain"
	"github.com/smallbiznis/quoteshare/internal/observability"
	obslogger "github.com/smallbiznis/quoteshare/internal/observability/logger"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
	"github.com/smallbiznis/quoteshare/internal/ratelimit"
	sharelinkdomain "github.com/smallbiznis/quoteshare/internal/sharelink/domain"
	"github.com/smallbiznis/quoteshare/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	ObsCfg  observability.Config
	Log     *zap.Logger
	Metrics *telemetry.Metrics `optional:"true"`
}

func NewEngine(obsCfg observability.Config, log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(p EngineParams) *gin.Engine {
	return NewEngine(p.ObsCfg, p.Log, p.Metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	jobSvc   jobdomain.Service
	offerSvc offerdomain.Service
	shareSvc sharelinkdomain.Service
	chatSvc  chatdomain.Service
	limiter  *ratelimit.ShareLimiter
	metrics  *telemetry.Metrics
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	JobSvc   jobdomain.Service
	OfferSvc offerdomain.Service
	ShareSvc sharelinkdomain.Service
	ChatSvc  chatdomain.Service
	Limiter  *ratelimit.ShareLimiter `optional:"true"`
	Metrics  *telemetry.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		log:      p.Log.Named("http.server"),
		jobSvc:   p.JobSvc,
		offerSvc: p.OfferSvc,
		shareSvc: p.ShareSvc,
		chatSvc:  p.ChatSvc,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}

	s.registerAPIRoutes()
	s.registerShareRoutes()
	s.registerFallback()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(OrgContext())

	// -------- Jobs --------
	api.POST("/jobs", s.CreateJob)
	api.GET("/jobs/:id", s.GetJob)
	api.DELETE("/jobs/:id", s.DeleteJob)
	api.GET("/jobs/:id/offers", s.ListJobOffers)
	api.POST("/jobs/:id/offers", s.RecordOffer)

	// -------- Offers --------
	api.GET("/offers", s.QueryOffers)
	api.GET("/offers/:id", s.GetOffer)
	api.PATCH("/offers/:id", s.UpdateOffer)

	// -------- Share links --------
	api.POST("/jobs/:id/share-links", s.IssueShareLink)
	api.GET("/jobs/:id/share-links", s.ListShareLinks)
	api.DELETE("/share-links/:token", s.RevokeShareLink)

	// -------- Chat --------
	api.POST("/chat/sessions", s.CreateChatSession)
	api.GET("/chat/sessions", s.ListChatSessions)
	api.DELETE("/chat/sessions/:id", s.DeleteChatSession)
	api.POST("/chat/sessions/:id/messages", s.AppendChatMessage)
	api.GET("/chat/sessions/:id/messages", s.ListChatMessages)
}

// registerShareRoutes mounts the bearer-token surface. The token is the
// capability; an org header is optional and only cross-checked.
func (s *Server) registerShareRoutes() {
	share := s.engine.Group("/share/:token")
	share.Use(OptionalOrgContext())
	share.Use(s.ShareRateLimit())

	share.GET("", s.ViewShare)
	share.PATCH("/offers", s.ShareEditLock(), s.EditShare)
	share.PUT("/view-prefs", s.UpdateShareViewPrefs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
