package bootstrap

import (
	"context"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	sifthttp "sift_server/adapter/in/http"
	"sift_server/config"
	"sift_server/core/domain"
	"sift_server/core/port/in"
	"sift_server/infra/middleware"
	"sift_server/pkg/apperr"
	"sift_server/pkg/logger"
)

// lazyProcessService defers pipeline construction until a Gmail token
// exists. The OAuth flow runs over this same API, so the service cannot be
// built at startup on a fresh install.
type lazyProcessService struct {
	deps *Dependencies
	mu   sync.Mutex
	svc  in.ProcessService
}

func (l *lazyProcessService) resolve(ctx context.Context) (in.ProcessService, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.svc != nil {
		return l.svc, nil
	}
	if !l.deps.GmailAdapter.HasToken() {
		return nil, apperr.New(apperr.CodeOAuthFailed,
			"gmail account not connected, visit /oauth/url first", fiber.StatusConflict)
	}
	svc, err := l.deps.BuildProcessService(ctx)
	if err != nil {
		return nil, apperr.Provider("failed to initialize gmail client", err)
	}
	l.svc = svc
	return svc, nil
}

func (l *lazyProcessService) ProcessInbox(ctx context.Context) (*in.ProcessResult, error) {
	svc, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return svc.ProcessInbox(ctx)
}

func (l *lazyProcessService) ListProcessed(ctx context.Context, limit int) ([]*domain.ProcessedEmail, error) {
	// Reads only touch the repository, no Gmail token needed.
	return l.deps.EmailRepo.List(ctx, limit)
}

func (l *lazyProcessService) GetProcessed(ctx context.Context, id string) (*domain.ProcessedEmail, error) {
	return l.deps.EmailRepo.GetByID(ctx, id)
}

var _ in.ProcessService = (*lazyProcessService)(nil)

func NewAPI(cfg *config.Config) (*fiber.App, *Dependencies, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "sift-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,

		// go-json is a drop-in replacement for encoding/json
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	// Routes
	sifthttp.NewHealthHandler(deps.DB, deps.Redis).Register(app)
	sifthttp.NewOAuthHandler(deps.GmailAdapter).Register(app)
	sifthttp.NewEmailHandler(&lazyProcessService{deps: deps}).Register(app)

	return app, deps, cleanup, nil
}
