package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"qbank_backend/internal/config"
	"qbank_backend/internal/controller"
	"qbank_backend/internal/extractor"
	"qbank_backend/internal/middleware"
	"qbank_backend/internal/paper"
	"qbank_backend/internal/repository"
	"qbank_backend/internal/service"
	"qbank_backend/internal/util"
	"qbank_backend/pkg/configwatcher"
	"qbank_backend/pkg/database"
	"qbank_backend/pkg/jobstore"
	"qbank_backend/pkg/logger"
	"qbank_backend/pkg/monitoring"
	"qbank_backend/pkg/security"
	"qbank_backend/pkg/tracing"
	"qbank_backend/pkg/workqueue"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ConfigPath is the file watched for hot reload.
const ConfigPath = "configs/config.yaml"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Queue  *workqueue.Queue

	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	document *repository.QuestionDocumentRepository
	question *repository.QuestionRepository
	taxonomy *repository.TaxonomyRepository
	paper    *repository.GeneratedPaperRepository
}

type services struct {
	storage    *service.StorageService
	extraction *service.ExtractionService
	document   *service.QuestionDocumentService
	paper      *service.QuestionPaperService
	taxonomy   *service.TaxonomyService
}

type controllers struct {
	document *controller.QuestionDocumentController
	paper    *controller.QuestionPaperController
	taxonomy *controller.TaxonomyController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig hands a reloaded configuration to every registered callback.
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		document: repository.NewQuestionDocumentRepository(db),
		question: repository.NewQuestionRepository(db),
		taxonomy: repository.NewTaxonomyRepository(db),
		paper:    repository.NewGeneratedPaperRepository(db),
	}
}

// ExtractionOptions maps the extraction, classifier and categorizer sections.
func ExtractionOptions(cfg *config.Config) service.ExtractionOptions {
	return service.ExtractionOptions{
		Extractor: extractor.Options{
			MinQuestionLength:        cfg.Extraction.MinQuestionLength,
			MinStemForOptions:        cfg.Extraction.MinStemForOptions,
			EssayWordThreshold:       cfg.Classifier.EssayWordThreshold,
			ShortAnswerWordThreshold: cfg.Classifier.ShortAnswerWordThreshold,
			EasyWordLimit:            cfg.Classifier.EasyWordLimit,
			MediumWordLimit:          cfg.Classifier.MediumWordLimit,
		},
		CategorizerThreshold: cfg.Categorizer.Threshold,
		ImageDir:             cfg.Extraction.ImageDir,
		MaxMessageLength:     cfg.Extraction.MaxMessageLength,
	}
}

func PaperOptions(cfg *config.Config) service.PaperOptions {
	layout := paper.DefaultOptions()
	if cfg.Paper.QuestionsPerPage > 0 {
		layout.QuestionsPerPage = cfg.Paper.QuestionsPerPage
	}
	if cfg.Paper.MaxImageWidth > 0 {
		layout.MaxImageWidth = cfg.Paper.MaxImageWidth
	}
	if cfg.Paper.MaxImageHeight > 0 {
		layout.MaxImageHeight = cfg.Paper.MaxImageHeight
	}
	if cfg.Paper.Watermark != "" {
		layout.Watermark = cfg.Paper.Watermark
	}
	if cfg.Paper.Copyright != "" {
		layout.Copyright = cfg.Paper.Copyright
	}
	layout.FontPath = cfg.Paper.FontPath

	return service.PaperOptions{
		OutputDir:       cfg.Paper.OutputDir,
		DurationMinutes: cfg.Paper.DurationMinutes,
		Layout:          layout,
	}
}

func (a *App) newJobStore(cfg *config.Config) jobstore.Store {
	if a.Redis != nil {
		return jobstore.NewRedisStore(a.Redis, cfg.Extraction.StatusTTL())
	}
	return jobstore.NewMemoryStore()
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.extraction = service.NewExtractionService(
		repos.document,
		repos.question,
		repos.taxonomy,
		a.newJobStore(cfg),
		a.Queue,
		extractor.PDFOpener{},
		ExtractionOptions(cfg),
	)
	// uploads stay on local disk where the extractor can open them, whatever the
	// storage backend used for published papers
	uploads := &service.LocalStorageProvider{Config: &cfg.Storage}
	s.document = service.NewQuestionDocumentService(
		repos.document,
		repos.question,
		repos.taxonomy,
		uploads,
		s.extraction,
		cfg.Extraction.ImageDir,
	)
	s.paper = service.NewQuestionPaperService(repos.question, repos.taxonomy, repos.paper, s.storage, PaperOptions(cfg))
	s.taxonomy = service.NewTaxonomyService(repos.taxonomy)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.extraction.SetOptions(ExtractionOptions(newCfg))
		s.paper.SetOptions(PaperOptions(newCfg))
	})

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		document: controller.NewQuestionDocumentController(s.document, s.extraction),
		paper:    controller.NewQuestionPaperController(s.paper),
		taxonomy: controller.NewTaxonomyController(s.taxonomy),
		health:   controller.NewHealthController(a.DB, a.Redis, a.Queue),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.RateWindow()))
	}

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New assembles the application on an open database. rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Queue:  workqueue.New(cfg.Extraction.QueueSize, cfg.Extraction.Workers),
	}

	monitoring.Init()
	app.Queue.OnDepthChange(func(depth int) {
		monitoring.ExtractionQueueDepth.Set(float64(depth))
	})

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg)
	controllers := app.initControllers(app.services)

	router := gin.New()
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// NewApp opens the database (and redis when enabled), migrates in debug mode or
// when forced, and assembles the application.
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("qbank-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

// Run serves HTTP, runs the extraction workers and watches the config file until
// SIGINT or SIGTERM, then shuts everything down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Queue.Run(gctx)
	})

	g.Go(func() error {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		path, err := filepath.Abs(ConfigPath)
		if err != nil {
			return err
		}
		if err := configwatcher.Watch(gctx, path, configwatcher.DefaultDebounce, nil, a.ApplyConfig); err != nil {
			// hot reload is optional
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()

	if a.tracer != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(flushCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, dbErr := a.DB.DB(); dbErr == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
	return err
}
