package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/postgres"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/rabbitmq"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/app/broadcast"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/app/dispatch"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/app/lifecycle"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/app/progress"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/app/tracking"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/config"

	amqpAdapter "github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/amqp"
	httpAdapter "github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: dispatch-engine, notification-subscriber")
	port := flag.Int("port", 3000, "HTTP port")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	autoProgress := flag.Bool("auto-progress", true, "Run the progress scheduler (dispatch-engine mode)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	lgr := logger.New(*mode)

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", map[string]any{
		"host": cfg.RabbitMQ.Host,
	})

	switch *mode {
	case "dispatch-engine":
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		lgr.Info("db_connected", "Connected to PostgreSQL database", map[string]any{
			"host": cfg.Database.Host,
			"db":   cfg.Database.Database,
		})

		runDispatchEngine(ctx, db, mqConn, lgr, cfg, *port, *autoProgress)

	case "notification-subscriber":
		runNotificationSubscriber(ctx, mqConn, lgr)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runDispatchEngine(ctx context.Context, db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, cfg *config.Config, port int, autoProgress bool) {
	retryPolicy := postgres.NewRetryPolicy(cfg.Engine.StoreRetry)
	orderRepo := postgres.NewOrderRepository(db, retryPolicy)
	agentRepo := postgres.NewAgentRepository(db)

	publisher := rabbitmq.NewPublisher(mqConn)

	hub := broadcast.NewHub(time.Duration(cfg.Engine.LocationMinIntervalSeconds)*time.Second, lgr)
	allocator := dispatch.NewAllocator(agentRepo, lgr)
	engine := lifecycle.NewService(orderRepo, agentRepo, allocator, hub, publisher, lgr, cfg.Engine)
	trackingService := tracking.NewService(orderRepo, agentRepo, lgr)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if autoProgress && cfg.Engine.AutoProgress.Enabled {
		scheduler := progress.NewScheduler(orderRepo, engine, cfg.Engine.AutoProgress, lgr)
		go scheduler.Run(runCtx)
	}

	orderHandler := httpAdapter.NewOrderHandler(engine, trackingService, lgr)
	agentHandler := httpAdapter.NewAgentHandler(engine, trackingService, lgr)
	eventsHandler := httpAdapter.NewEventsHandler(hub, cfg.Engine.EventBufferSize, lgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", orderHandler.CreateOrder)
	mux.HandleFunc("/orders/", orderHandler.HandleOrders)
	mux.HandleFunc("/agents", agentHandler.ListAgents)
	mux.HandleFunc("/agents/", agentHandler.HandleAgents)
	mux.HandleFunc("/events", eventsHandler.Stream)

	handler := httpAdapter.LoggingMiddleware(lgr)(mux)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Dispatch engine started on port %d", port), map[string]any{
		"port":          port,
		"auto_progress": autoProgress && cfg.Engine.AutoProgress.Enabled,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down dispatch engine", nil)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", nil, err)
	}
}

func runNotificationSubscriber(ctx context.Context, mqConn rabbitmq.Connection, lgr logger.Logger) {
	consumer := rabbitmq.NewConsumer(mqConn)
	handler := amqpAdapter.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notification subscriber started", nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := consumer.ConsumeOrderEvents(runCtx, handler.HandleEvent); err != nil {
			lgr.Error("consumer_error", "Error consuming events", nil, err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down notification subscriber", nil)
}
