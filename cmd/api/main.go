package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/creatorlane/marketplace/internal/api/http"
	"github.com/creatorlane/marketplace/internal/api/http/handlers"
	"github.com/creatorlane/marketplace/internal/auth"
	"github.com/creatorlane/marketplace/internal/chat"
	"github.com/creatorlane/marketplace/internal/config"
	"github.com/creatorlane/marketplace/internal/events"
	"github.com/creatorlane/marketplace/internal/observability"
	"github.com/creatorlane/marketplace/internal/persistence"
	"github.com/creatorlane/marketplace/internal/repository"
	"github.com/creatorlane/marketplace/internal/service"
	"github.com/creatorlane/marketplace/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	deliverableRepo := repository.NewDeliverableRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		AgentRepo:   agentRepo,
	})
	orderService := service.NewOrderService(service.OrderDependencies{
		OrderRepo:       orderRepo,
		DeliverableRepo: deliverableRepo,
		TicketRepo:      ticketRepo,
		MessageRepo:     messageRepo,
		Dispatcher:      dispatcher,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		OrderRepo:   orderRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  ticketRepo,
		AgentRepo:   agentRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})

	gateway := chat.NewGateway(cfg.Chat, logger)
	registry := chat.NewChannelRegistry(redis.Client)
	chatService := service.NewChatService(service.ChatDependencies{
		Gateway:    gateway,
		Registry:   registry,
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartEventWorkers(notificationService, chatService, assignmentService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo, agentRepo)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Orders:         handlers.NewOrdersHandler(orderService, ticketService),
		Tickets:        handlers.NewCRMTicketsHandler(ticketService, assignmentService, agentRepo),
		Chat:           handlers.NewChatHandler(chatService),
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
