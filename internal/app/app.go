package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"training_tracker_backend/internal/config"
	"training_tracker_backend/internal/controller"
	"training_tracker_backend/internal/middleware"
	"training_tracker_backend/internal/repository"
	"training_tracker_backend/internal/service"
	"training_tracker_backend/pkg/configwatcher"
	"training_tracker_backend/pkg/database"
	"training_tracker_backend/pkg/logger"
	"training_tracker_backend/pkg/monitoring"
	"training_tracker_backend/pkg/security"
	"training_tracker_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	tracer          *sdktrace.TracerProvider
	ctx             context.Context
	cancel          context.CancelFunc
}

type services struct {
	xp       *service.XPService
	stats    *service.UserStatService
	progress *service.ProgressTrackingService
}

type controllers struct {
	xp       *controller.XPController
	stats    *controller.StatsController
	progress *controller.ProgressController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	rules, err := service.RulesFromConfig(cfg.Scoring)
	if err != nil {
		return nil, err
	}

	uow := repository.NewUnitOfWork(db)
	clock := service.SystemClock{}

	s := &services{}
	s.xp = service.NewXPService(uow, clock, rules)

	// Redis 未启用时排行榜直接查库
	var cache service.LeaderboardCache
	if rdb != nil {
		cache = repository.NewLeaderboardCache(rdb, cfg.Redis.LeaderboardTTL)
	}
	s.stats = service.NewUserStatService(uow, s.xp, clock, cache)
	s.progress = service.NewProgressTrackingService(uow, clock)
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		xp:       controller.NewXPController(s.xp, s.stats),
		stats:    controller.NewStatsController(s.stats),
		progress: controller.NewProgressController(s.progress),
		health:   controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		limiter := security.NewIPRateLimiter(cfg.RateLimit.MaxRequests, window)
		router.Use(limiter.Middleware(a.ctx.Done()))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// applyConfig 热加载回调：积分规则与日志级别
func (a *App) applyConfig(cfg *config.Config) {
	rules, err := service.RulesFromConfig(cfg.Scoring)
	if err != nil {
		logger.Log.Error("Ignoring invalid scoring config", zap.Error(err))
		return
	}
	a.services.xp.SetRules(rules)
	logger.SetLevel(logger.ResolveLevel(cfg))
	logger.Log.Info("Scoring rules reloaded",
		zap.Int("session_complete", cfg.Scoring.XP.SessionComplete),
		zap.Int("week_complete", cfg.Scoring.XP.WeekComplete),
		zap.Int("month_complete", cfg.Scoring.XP.MonthComplete),
	)
}

func (a *App) startBackgroundTasks(cfg *config.Config) {
	err := configwatcher.Watch(a.ctx, configDir, func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config watcher disabled", zap.Error(err))
	}

	interval := cfg.Scheduler.StatsRefreshInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				n, err := a.services.stats.RecomputeAll(a.ctx)
				if err != nil {
					logger.Log.Error("scheduled stat refresh error", zap.Int("refreshed", n), zap.Error(err))
					continue
				}
				logger.Log.Info("scheduled stat refresh", zap.Int("refreshed", n))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	// 非 release 模式默认自动迁移，release 需显式 -migrate
	migrate := cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
			log.Fatalf("Failed to initialize redis: %v", err)
		}
		app.Redis = rdb
	}

	services, err := app.initServices(cfg, db, app.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	app.RegisterConfigCallback(app.applyConfig)
	app.startBackgroundTasks(cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 停止后台任务
	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
