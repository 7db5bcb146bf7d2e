package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/ai"
	"github.com/drewmudry/shootplan-api/analysis"
	"github.com/drewmudry/shootplan-api/audiences"
	"github.com/drewmudry/shootplan-api/auth"
	"github.com/drewmudry/shootplan-api/breakdown"
	"github.com/drewmudry/shootplan-api/budget"
	"github.com/drewmudry/shootplan-api/dragdrop"
	"github.com/drewmudry/shootplan-api/festivals"
	"github.com/drewmudry/shootplan-api/financing"
	"github.com/drewmudry/shootplan-api/internal/platform"
	"github.com/drewmudry/shootplan-api/planning"
	"github.com/drewmudry/shootplan-api/projects"
	stripehandlers "github.com/drewmudry/shootplan-api/stripe"
	"github.com/drewmudry/shootplan-api/webhooks"
)

type Server struct {
	Config   platform.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Logger   *zap.Logger
	Drags    *dragdrop.Registry
	Analyzer *analysis.Analyzer
	// Generator is nil when no OpenAI key is configured.
	Generator ai.Generator
	Router    *gin.Engine
}

func NewServer(cfg platform.Config, db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), cors(cfg.FrontendURL))

	s := &Server{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Logger: log,
		Drags:  dragdrop.NewRegistry(cfg.DragSessionTTL),
		Router: router,
	}

	analyzer, gen, err := platform.NewAnalyzer(cfg, log)
	if err != nil {
		log.Warn("ai endpoints disabled", zap.Error(err))
	} else {
		s.Analyzer = analyzer
		if gen != nil {
			s.Generator = gen
		}
	}

	s.setupRoutes()
	return s
}

func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.Router.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		redisStatus := "connected"
		if s.Redis == nil || s.Redis.Ping(c.Request.Context()).Err() != nil {
			redisStatus = "unavailable"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"redis":    redisStatus,
		})
	})

	tokens := auth.NewTokens(s.Config.JWTSecret, auth.DefaultTokenTTL)
	authMW := auth.Middleware(s.DB, tokens, s.Logger)

	authHandler := auth.NewHandler(s.DB, auth.NewGoogleOAuth(s.Config), tokens, s.Drags, s.Logger, s.Config.FrontendURL)
	projectHandler := projects.NewHandler(s.DB, s.Redis, s.Logger)
	breakdownHandler := breakdown.NewHandler(s.DB, s.Logger)
	planHandler := planning.NewHandler(s.DB, s.Drags, s.Logger)
	festivalHandler := festivals.NewHandler(s.DB, s.Logger)
	budgetHandler := budget.NewHandler(s.DB, s.Logger)
	financingHandler := financing.NewHandler(s.DB, s.Logger)
	audienceHandler := audiences.NewHandler(s.DB, s.Logger)
	stripeHandler := stripehandlers.NewHandler(s.DB, s.Config.StripeSecretKey, s.Config.StripePriceID, s.Config.FrontendURL, nil, s.Logger)
	webhookHandler := webhooks.NewHandler(s.DB, s.Config.StripeWebhookSecret, s.Logger)

	// Webhook routes (public - no auth, but signature verified in handler)
	s.Router.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	authRoutes := s.Router.Group("/auth")
	{
		authRoutes.GET("/google", authHandler.InitiateGoogleLogin)
		authRoutes.GET("/google/callback", authHandler.GoogleCallback)
		authRoutes.POST("/logout", authMW, authHandler.Logout)
		authRoutes.GET("/me", authMW, authHandler.GetCurrentUser)
	}

	protected := s.Router.Group("")
	protected.Use(authMW)

	protected.POST("/projects", projectHandler.CreateProject)
	protected.GET("/projects", projectHandler.ListProjects)

	project := protected.Group("/projects/:id", projects.RequireProject(s.DB))
	{
		project.GET("", projectHandler.GetProject)
		project.PUT("", projectHandler.UpdateProject)
		project.DELETE("", projectHandler.DeleteProject)
		project.PUT("/script", projectHandler.UploadScript)
		project.POST("/analysis", projectHandler.StartAnalysis)
		project.GET("/analysis/:job", projectHandler.GetAnalysisJob)

		project.GET("/sequences", breakdownHandler.ListSequences)
		project.POST("/sequences", breakdownHandler.CreateSequence)
		project.PUT("/sequences/:seq", breakdownHandler.UpdateSequence)
		project.DELETE("/sequences/:seq", breakdownHandler.DeleteSequence)
		project.PUT("/sequences/:seq/complexity", breakdownHandler.UpdateComplexity)
		project.GET("/complexity", breakdownHandler.GetComplexity)
		project.GET("/locations", breakdownHandler.ListLocations)
		project.POST("/locations", breakdownHandler.CreateLocation)
		project.DELETE("/locations/:loc", breakdownHandler.DeleteLocation)
		project.GET("/characters", breakdownHandler.ListCharacters)
		project.POST("/characters", breakdownHandler.CreateCharacter)
		project.DELETE("/characters/:char", breakdownHandler.DeleteCharacter)

		project.GET("/plan", planHandler.GetPlan)
		project.GET("/plan/unassigned", planHandler.GetUnassigned)
		project.POST("/plan/days", planHandler.CreateDay)
		project.PUT("/plan/days/:day", planHandler.UpdateDay)
		project.DELETE("/plan/days/:day", planHandler.DeleteDay)
		project.POST("/plan/drag", planHandler.StartDrag)
		project.GET("/plan/drag", planHandler.GetDrag)
		project.DELETE("/plan/drag", planHandler.EndDrag)
		project.POST("/plan/drop", planHandler.Drop)

		project.GET("/festivals", festivalHandler.List)
		project.POST("/festivals", festivalHandler.Create)
		project.PUT("/festivals/:app", festivalHandler.Update)
		project.DELETE("/festivals/:app", festivalHandler.Delete)

		project.GET("/budget", budgetHandler.List)
		project.GET("/budget/summary", budgetHandler.GetSummary)
		project.POST("/budget", budgetHandler.Create)
		project.PUT("/budget/:line", budgetHandler.Update)
		project.DELETE("/budget/:line", budgetHandler.Delete)

		project.GET("/financing", financingHandler.List)
		project.GET("/financing/coverage", financingHandler.GetCoverage)
		project.POST("/financing", financingHandler.Create)
		project.PUT("/financing/:source", financingHandler.Update)
		project.DELETE("/financing/:source", financingHandler.Delete)

		project.GET("/audiences", audienceHandler.List)
		project.POST("/audiences", audienceHandler.Create)
		project.PUT("/audiences/:audience", audienceHandler.Update)
		project.DELETE("/audiences/:audience", audienceHandler.Delete)
	}

	if s.Analyzer != nil {
		aiHandler := ai.NewHandler(s.DB, s.Analyzer, s.Generator, s.Logger)
		protected.POST("/ai/analyze-script", aiHandler.AnalyzeScript)
		protected.POST("/ai/generate", aiHandler.Generate)
	}

	billing := protected.Group("/billing")
	{
		billing.POST("/checkout", stripeHandler.CreateCheckoutSession)
		billing.GET("/status", stripeHandler.GetStatus)
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.Drags.StartCleanup(time.Minute)
	defer s.Drags.Close()

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("server starting", zap.String("port", s.Config.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.Logger.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg, envLoaded := platform.LoadConfig()
	log, err := platform.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if !envLoaded {
		log.Debug("no .env file found, using environment")
	}

	db, err := platform.NewDBConnection(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	rdb, err := platform.NewRedisClient(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewServer(cfg, db, rdb, log).Run(ctx); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
