package app

import (
	"context"
	"net/http"
	"os/signal"
	"quiz_master_backend/internal/config"
	"quiz_master_backend/internal/controller"
	"quiz_master_backend/internal/repository"
	"quiz_master_backend/internal/service"
	"quiz_master_backend/pkg/configwatcher"
	"quiz_master_backend/pkg/database"
	"quiz_master_backend/pkg/logger"
	"quiz_master_backend/pkg/monitoring"
	"quiz_master_backend/pkg/security"
	"quiz_master_backend/pkg/tracing"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services *services
	tracer   *tracing.Provider
	// 全局限流和统计任务提交限流
	limiter    *security.RateLimiter
	jobLimiter *security.RateLimiter

	cfgMu           sync.RWMutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user    *repository.UserRepository
	subject *repository.SubjectRepository
	quiz    *repository.QuizRepository
	score   *repository.ScoreRepository
}

type services struct {
	storage    service.ArtifactStore
	quiz       *service.QuizService
	dispatcher *service.TaskDispatcher
	statistics *service.StatisticsService
	scheduler  *service.StatsScheduler
}

type controllers struct {
	quiz       *controller.QuizController
	statistics *controller.StatisticsController
	admin      *controller.AdminController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	a.cfgMu.RLock()
	callbacks := a.configCallbacks
	a.cfgMu.RUnlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:    repository.NewUserRepository(db),
		subject: repository.NewSubjectRepository(db),
		quiz:    repository.NewQuizRepository(db),
		score:   repository.NewScoreRepository(db),
	}
}

// newJobStore 启用 redis 时多个实例共享任务状态
func newJobStore(cfg *config.Config, rdb *redis.Client) service.JobStore {
	if rdb != nil {
		logger.Log.Info("Statistics jobs stored in redis")
		return service.NewRedisJobStore(rdb, cfg.Statistics.JobTTL)
	}
	return service.NewMemoryJobStore(cfg.Statistics.JobTTL)
}

func statisticsOptions(cfg *config.Config) service.StatisticsOptions {
	return service.StatisticsOptions{
		Wait: service.WaitOptions{
			InitialInterval: cfg.Statistics.PollInitialInterval,
			MaxInterval:     cfg.Statistics.PollMaxInterval,
			Timeout:         cfg.Statistics.WaitTimeout,
		},
		AttemptPolicy: cfg.Statistics.AttemptPolicy,
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	storageCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.storage = service.NewArtifactStore(storageCtx, &cfg.Storage)
	s.quiz = service.NewQuizService(repos.quiz, repos.score, repos.subject)
	s.dispatcher = service.NewTaskDispatcher(newJobStore(cfg, rdb), cfg.Statistics.Workers, cfg.Statistics.QueueSize)
	s.statistics = service.NewStatisticsService(
		repos.user,
		repos.score,
		s.dispatcher,
		service.NewChartRenderer(s.storage),
		service.MonthNamesFrom(cfg.Statistics.MonthNames),
		statisticsOptions(cfg),
	)
	s.scheduler = service.NewStatsScheduler(s.statistics)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		quiz:       controller.NewQuizController(s.quiz),
		statistics: controller.NewStatisticsController(s.statistics),
		admin:      controller.NewAdminController(s.quiz),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, window, security.ClientIPKey)
	a.jobLimiter = security.NewRateLimiter(cfg.RateLimit.StatsJobs, window, security.UserKey)

	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("/metrics", "/api/health"))
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerReloadables 配置文件变化时更新的部分
func (a *App) registerReloadables(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.statistics.UpdateOptions(statisticsOptions(cfg))
	})
}

func (a *App) startBackgroundTasks(s *services) {
	if err := s.scheduler.Start(a.Config.Statistics.PlatformSchedule); err != nil {
		logger.Log.Error("Invalid platform statistics schedule",
			zap.String("spec", a.Config.Statistics.PlatformSchedule),
			zap.Error(err))
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	tp, err := tracing.Init(&cfg.Tracing)
	if err != nil {
		logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	app.tracer = tp

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	app.build()

	app.registerReloadables(app.services)
	app.startBackgroundTasks(app.services)

	return app
}

// build 组装仓库、服务、控制器和路由
func (a *App) build() {
	repos := a.initRepositories(a.DB)
	a.services = a.initServices(repos, a.Config, a.Redis)
	controllers := a.initControllers(a.services, a.DB, a.Redis)

	router := gin.Default()
	a.Router = router

	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, controllers, a.Config)

	// 远端存储初始化失败时也会退回本地目录
	if local, ok := a.services.storage.(*service.LocalStorage); ok {
		router.Static("/static", local.Root)
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := configwatcher.WatchConfig(ctx, a.Config.Dir, a.applyConfig); err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	// 关闭服务（设置5秒的超时时间）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(shutdownCtx)
	logger.Log.Info("Server exiting")
}

// Close 停止定时任务，等待统计任务完成后释放连接
func (a *App) Close(ctx context.Context) {
	if s := a.services; s != nil {
		<-s.scheduler.Stop().Done()
		if err := s.dispatcher.Shutdown(ctx); err != nil {
			logger.Log.Warn("Statistics jobs still running at shutdown", zap.Error(err))
		}
	}

	a.limiter.Stop()
	a.jobLimiter.Stop()

	if err := a.tracer.Shutdown(ctx); err != nil {
		logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Log.Sync()
}

// Statistics 供脚本直接调用统计服务
func (a *App) Statistics() *service.StatisticsService {
	if a.services == nil {
		return nil
	}
	return a.services.statistics
}
