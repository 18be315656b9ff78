package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisStore := persistence.NewRedis(cfg.Redis, logger)
	defer redisStore.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TxRunner:         pg,
		TicketRepo:       ticketRepo,
		HistoryRepo:      historyRepo,
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		CategoryRepo:     categoryRepo,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	queryService := service.NewTicketQueryService(service.QueryDependencies{
		TicketRepo:   ticketRepo,
		HistoryRepo:  historyRepo,
		CommentRepo:  commentRepo,
		UserRepo:     userRepo,
		CategoryRepo: categoryRepo,
		Cache:        redisStore.Client,
		CacheTTL:     cfg.Stats.CacheTTL(),
		Logger:       logger,
	})
	queryService.RegisterCacheInvalidation(dispatcher)

	notificationService := service.NewNotificationService(notificationRepo, dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	commentService := service.NewCommentService(commentRepo, ticketRepo, userRepo, notificationRepo, dispatcher, logger)
	userService := service.NewUserService(userRepo)
	categoryService := service.NewCategoryService(categoryRepo)

	tokenVerifier := auth.NewTokenVerifier(cfg.Identity)
	authMiddleware := auth.NewMiddleware(tokenVerifier, userRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(metrics),
		Tickets:        handlers.NewTicketsHandler(ticketService, queryService, commentService),
		Users:          handlers.NewUsersHandler(userService, queryService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
