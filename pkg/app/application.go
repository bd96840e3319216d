package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmartins/quizchain/internal/extract"
	"github.com/lmartins/quizchain/internal/metrics"
	"github.com/lmartins/quizchain/internal/middleware"
	"github.com/lmartins/quizchain/internal/providers"
	"github.com/lmartins/quizchain/internal/ratelimit"
	"github.com/lmartins/quizchain/internal/render"
	"github.com/lmartins/quizchain/internal/repository"
	"github.com/lmartins/quizchain/internal/services"
	"github.com/lmartins/quizchain/internal/solver"
	"github.com/lmartins/quizchain/internal/submit"
	"github.com/lmartins/quizchain/internal/tracing"
	"github.com/lmartins/quizchain/pkg/auth"
	"github.com/lmartins/quizchain/pkg/auth/static"
	"github.com/lmartins/quizchain/pkg/config"

	"github.com/gin-gonic/gin"
)

type Application struct {
	Config          *config.Config
	Engine          *gin.Engine
	Runs            services.RunService
	Logger          *slog.Logger
	Validator       auth.Validator
	RateLimiter     ratelimit.Limiter
	Renderer        render.Renderer
	TracingShutdown func(context.Context) error

	stopBackground context.CancelFunc
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithValidator sets a custom secret validator
func WithValidator(validator auth.Validator) ApplicationOption {
	return func(app *Application) error {
		app.Validator = validator
		return nil
	}
}

// WithRenderer sets a custom page renderer
func WithRenderer(r render.Renderer) ApplicationOption {
	return func(app *Application) error {
		app.Renderer = r
		return nil
	}
}

func NewApplication(cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler).With("service", "quizchain", "env", cfg.Env)
	slog.SetDefault(logger)

	redisClient := providers.NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword)
	limiter := ratelimit.NewTokenBucketLimiter(redisClient)
	metrics.RegisterRedisCollector(redisClient, logger)

	app := &Application{
		Config:      cfg,
		Logger:      logger,
		RateLimiter: limiter,
	}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.Validator == nil {
		validator, err := static.NewValidator(cfg.QuizSecret, "quiz", cfg.DefaultEmail)
		if err != nil {
			return nil, fmt.Errorf("auth validator: %w", err)
		}
		app.Validator = validator
	}

	bg, stop := context.WithCancel(context.Background())
	app.stopBackground = stop

	shutdown, err := tracing.Setup(bg, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		stop()
		return nil, fmt.Errorf("tracing: %w", err)
	}
	app.TracingShutdown = shutdown

	if app.Renderer == nil {
		ropts := render.Options{
			Timeout:    cfg.RenderTimeout(),
			SettleWait: cfg.PageRenderWait(),
		}
		switch cfg.Renderer {
		case "static":
			app.Renderer = render.NewStatic(ropts)
		default:
			// A browser that will not launch is a fatal init failure, not
			// something to retry per task.
			chrome, err := render.NewChrome(bg, ropts)
			if err != nil {
				stop()
				return nil, fmt.Errorf("chrome renderer: %w", err)
			}
			app.Renderer = chrome
		}
	}

	extractor := extract.New(cfg.RenderTimeout(), cfg.PDFColumnName, logger)
	client := submit.NewClient(cfg.SubmitTimeout(), logger)
	sv := solver.New(app.Renderer, extractor, client, solver.Options{
		Secret:            cfg.QuizSecret,
		Email:             cfg.DefaultEmail,
		Deadline:          cfg.SolveDeadline(),
		PerTaskRetries:    cfg.PerQuestionRetries,
		RetryBackoff:      cfg.RetryBackoff(),
		MinRetryWindow:    cfg.MinRetryWindow(),
		FallbackScanChars: cfg.FallbackScanChars,
	}, logger)

	repo := repository.NewRunRepository(redisClient, cfg.RunRetention())
	app.Runs = services.NewRunService(sv, repo, app.Renderer, extractor, logger)
	go app.Runs.StartRetentionLoop(bg)

	engine := gin.New()
	engine.Use(gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
		middleware.TracingMiddleware(cfg.Tracing.ServiceName))
	app.Engine = engine

	return app, nil
}

// Close stops background loops and releases the renderer.
func (a *Application) Close() error {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.Renderer != nil {
		return a.Renderer.Close()
	}
	return nil
}
