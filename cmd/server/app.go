package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nextudy/nextudy-api/internal/api"
	"github.com/nextudy/nextudy-api/internal/api/middleware"
	"github.com/nextudy/nextudy-api/internal/config"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/events"
	"github.com/nextudy/nextudy-api/internal/extract"
	"github.com/nextudy/nextudy-api/internal/generation"
	"github.com/nextudy/nextudy-api/internal/platform/cron"
	"github.com/nextudy/nextudy-api/internal/platform/gemini"
	"github.com/nextudy/nextudy-api/internal/platform/groq"
	"github.com/nextudy/nextudy-api/internal/platform/mailer"
	"github.com/nextudy/nextudy-api/internal/platform/metrics"
	"github.com/nextudy/nextudy-api/internal/platform/objectstore"
	"github.com/nextudy/nextudy-api/internal/platform/postgres"
	"github.com/nextudy/nextudy-api/internal/platform/redisstore"
	"github.com/nextudy/nextudy-api/internal/platform/stripeclient"
	"github.com/nextudy/nextudy-api/internal/ratelimit"
	"github.com/nextudy/nextudy-api/internal/service"
	"github.com/nextudy/nextudy-api/internal/service/auth"
	"github.com/nextudy/nextudy-api/internal/task"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// subscriptionPlan names the single paid plan sold through Stripe.
const subscriptionPlan = "premium"

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 15 * time.Second

// application holds the long-lived dependencies so they can be started and
// released together.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	taskRunner *task.TaskRunner
	scheduler  *cron.Scheduler
	router     http.Handler
}

// newApplication wires stores, integrations, services and the router.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	// Stores
	users := postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	activationTokens := postgres.NewPostgresActivationTokenStore(db)
	generationTasks := postgres.NewPostgresGenerationTaskStore(db, logger)
	conversations := postgres.NewPostgresConversationStore(db)
	summaries := postgres.NewPostgresSummaryStore(db)
	flashcards := postgres.NewPostgresFlashcardStore(db)
	quizzes := postgres.NewPostgresQuizStore(db)
	documents := postgres.NewPostgresDocumentStore(db)
	todos := postgres.NewPostgresTodoStore(db)
	subscriptions := postgres.NewPostgresSubscriptionStore(db)
	stats := postgres.NewPostgresStatsStore(db)

	m := metrics.New()

	// Events and mail
	emitter := events.NewInMemoryEventEmitter(logger)
	mail, err := mailer.New(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	service.NewNotifier(mail, users, cfg.Auth.AdminEmails, cfg.Server.PublicURL, logger).Subscribe(emitter)

	// Redis
	app.redis, err = redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	loginCodeTTL := time.Duration(cfg.Auth.LoginCodeTTLMinutes) * time.Minute
	loginCodes := redisstore.NewLoginCodeStore(app.redis, cfg.Redis.Prefix, loginCodeTTL, cfg.Auth.BCryptCost)
	limiter, err := ratelimit.NewFixedWindowLimiter(app.redis, cfg.Redis.Prefix+"login:",
		cfg.Redis.LoginAttempts, time.Duration(cfg.Redis.LoginWindowMinutes)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	accounts, err := service.NewAccountService(service.AccountDeps{
		DB:         db,
		Users:      users,
		Tokens:     activationTokens,
		JWT:        jwtService,
		Passwords:  auth.NewBcryptVerifier(),
		LoginCodes: loginCodes,
		Limiter:    limiter,
		Events:     emitter,
		Logger:     logger,
	}, service.AccountConfig{
		ActivationTTL: time.Duration(cfg.Auth.ActivationTokenHours) * time.Hour,
		BCryptCost:    cfg.Auth.BCryptCost,
		LoginCodeTTL:  loginCodeTTL,
		AdminEmails:   cfg.Auth.AdminEmails,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account service: %w", err)
	}

	// Language models
	chatModel, groqClient, err := setupLanguageModels(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	retry := generation.RetryPolicy{
		MaxRetries: cfg.LLM.MaxRetries,
		Delay:      time.Duration(cfg.LLM.RetryDelayMS) * time.Millisecond,
	}
	var extractor *extract.Extractor
	if groqClient != nil {
		extractor = extract.New(groqClient, groqClient, retry, logger)
	} else {
		logger.Warn("no Groq API key, audio and image uploads are disabled")
		extractor = extract.New(nil, nil, retry, logger)
	}
	studyGenerator, err := generation.NewStudyGenerator(chatModel, generation.StudyGeneratorConfig{
		Model:         cfg.LLM.ContentModel,
		Temperature:   cfg.LLM.Temperature,
		MaxInputChars: cfg.LLM.MaxInputChars,
		Retry:         retry,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize study generator: %w", err)
	}

	// Background generation
	app.taskRunner = task.NewTaskRunner(generationTasks, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		TaskTimeout:  time.Duration(cfg.Task.TimeoutMinutes) * time.Minute,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)
	app.taskRunner.SetObserver(m)
	m.RegisterQueueDepth(app.taskRunner.QueueDepth)

	streamDeps := task.ChatGenerationDeps{
		Model:         chatModel,
		Tasks:         generationTasks,
		Conversations: conversations,
		Logger:        logger,
	}
	streamConfig := task.ChatGenerationConfig{
		Model:         cfg.LLM.ChatModel,
		Temperature:   cfg.LLM.Temperature,
		FlushInterval: time.Duration(cfg.Task.FlushIntervalMS) * time.Millisecond,
		FlushChars:    cfg.Task.FlushChars,
		Retry:         retry,
	}
	newChatTask := func(row *domain.GenerationTask) (task.Task, error) {
		t, err := task.NewChatGenerationTask(row, streamDeps, streamConfig)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	// Optional integrations stay nil interfaces when disabled.
	var objects service.ObjectStore
	if cfg.Storage.Endpoint != "" {
		store, err := objectstore.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		objects = store
	} else {
		logger.Warn("no storage endpoint configured, uploads are disabled")
	}

	var payments service.PaymentProvider
	if cfg.Billing.StripeSecretKey != "" {
		payments = stripeclient.New(cfg.Billing.StripeSecretKey, cfg.Billing.WebhookSecret, cfg.Billing.PriceID, nil)
	} else {
		logger.Warn("no Stripe key configured, billing is disabled")
	}

	// Services
	publicURL := strings.TrimSuffix(cfg.Server.PublicURL, "/")
	todoService := service.NewTodoService(todos, logger)
	reminderZone, err := time.LoadLocation(cfg.Reminders.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder timezone: %w", err)
	}
	reminders := service.NewReminderService(todos, users, mail, publicURL, reminderZone, logger)

	app.router = api.NewRouter(api.RouterDeps{
		Logger:        logger,
		Auth:          middleware.NewAuthMiddleware(jwtService, accounts),
		Accounts:      accounts,
		Chat:          service.NewChatService(db, generationTasks, conversations, app.taskRunner, newChatTask, cfg.Task.HistoryLimit, logger),
		Conversations: service.NewConversationService(conversations, logger),
		Study: service.NewStudyService(service.StudyDeps{
			Summaries:  summaries,
			Flashcards: flashcards,
			Quizzes:    quizzes,
			Documents:  documents,
			Generator:  studyGenerator,
			Recorder:   m,
			Logger:     logger,
		}),
		Documents: service.NewDocumentService(documents, objects, extractor, m,
			int64(cfg.Storage.MaxUploadMB)<<20, logger),
		Todos: todoService,
		Billing: service.NewBillingService(subscriptions, users, payments, service.BillingURLs{
			Success:      publicURL + cfg.Billing.SuccessPath,
			Cancel:       publicURL + cfg.Billing.CancelPath,
			PortalReturn: publicURL + cfg.Billing.PortalReturnPath,
		}, subscriptionPlan, logger),
		Admin:          service.NewAdminService(users, stats, emitter, logger),
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
		Metrics:        m,
		HealthCheck:    db.PingContext,
	})

	// Scheduled jobs
	app.scheduler = cron.New(logger)
	app.scheduler.Add(cron.Job{
		Name:     "activation_token_cleanup",
		Schedule: "17 * * * *",
		Run: func(ctx context.Context) error {
			n, err := activationTokens.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("expired activation tokens deleted", "count", n)
			}
			return nil
		},
	})
	if cfg.Reminders.Enabled {
		app.scheduler.Add(cron.Job{
			Name:     "todo_reminders",
			Schedule: cfg.Reminders.Cron,
			Run: func(ctx context.Context) error {
				sent, err := reminders.SendDueToday(ctx)
				logger.Info("todo reminders sent", "count", sent)
				return err
			},
		})
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// setupLanguageModels returns the chat model for the configured provider and
// the Groq client when a Groq key is present. Transcription and vision always
// go through Groq.
func setupLanguageModels(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.ChatModel, *groq.Client, error) {
	var groqClient *groq.Client
	if cfg.GroqAPIKey != "" {
		client, err := groq.NewClient(cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Groq client: %w", err)
		}
		groqClient = client
	}

	switch cfg.Provider {
	case "gemini":
		model, err := gemini.NewModel(ctx, cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Gemini model: %w", err)
		}
		logger.Info("LLM provider initialized", "provider", "gemini")
		return model, groqClient, nil
	default:
		if groqClient == nil {
			return nil, nil, fmt.Errorf("%w: groq provider requires an API key", generation.ErrInvalidConfig)
		}
		logger.Info("LLM provider initialized", "provider", "groq", "chat_model", cfg.ChatModel)
		return groqClient, groqClient, nil
	}
}

// Run starts the task runner, the scheduler and the HTTP server, and blocks
// until ctx is cancelled or one of them fails. Resources are released before
// it returns.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.taskRunner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return app.scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
