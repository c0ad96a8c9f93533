/**
 * @description
 * This is the main entry point for the savings-service. It is responsible for
 * initializing all components of the service, including configuration, the Redis
 * store, the message broker, the core application service, the cron scheduler,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/redis/go-redis/v9: Redis client.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nestvault/savings-service/internal/api"
	"github.com/nestvault/savings-service/internal/app"
	"github.com/nestvault/savings-service/internal/config"
	"github.com/nestvault/savings-service/internal/domain"
	"github.com/nestvault/savings-service/internal/store"
	rmrabbit "github.com/nestvault/savings-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting savings-service\" port=%s", cfg.ServerPort)

	// Establish the Redis connection. Redis is the primary store, so a failed
	// connection is fatal.
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"redis url must be configured\" env=REDIS_URL")
	}
	redisOptions, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"redis url parse failed\" err=%v", err)
	}
	redisClient := redis.NewClient(redisOptions)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"redis connection failed\" err=%v", err)
	}
	defer redisClient.Close()
	log.Println("level=info component=bootstrap msg=\"redis connected\"")

	// Initialize the RabbitMQ producer to publish events. A broker outage
	// degrades to the no-op fallback publisher rather than blocking startup.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		producer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the data access layer (repository).
	recordTTL := time.Duration(cfg.RecordTTLHours) * time.Hour
	repository := store.NewRedisRepository(redisClient, cfg.RedisKeyPrefix, recordTTL)

	adminID := parseOptionalUUID(cfg.AdminUserID, "ADMIN_USER_ID")
	feeRecipient := parseOptionalUUID(cfg.FeeRecipientID, "FEE_RECIPIENT_ID")

	// Seed the protocol configuration on first boot; later boots keep the
	// values the admins have set since.
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSeed()
	seedConfig := &domain.ProtocolConfig{
		ProtocolFeeBps:   uint32(cfg.ProtocolFeeBps),
		EarlyBreakFeeBps: uint32(cfg.EarlyBreakFeeBps),
		FeeRecipient:     feeRecipient,
	}
	if err := repository.InitProtocolConfig(seedCtx, seedConfig); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"protocol config seed failed\" err=%v", err)
	}

	// Initialize the core application service with its dependencies.
	savingsService := app.NewService(repository, producer, adminID)

	// Initialize the API handlers.
	limiter := app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	savingsHandlers := api.NewSavingsHandlers(
		savingsService,
		limiter,
		cfg.WriteRateLimitPerMinute,
		cfg.ExecuteRateLimitPerMinute,
	)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/savings", api.SavingsRoutes(savingsHandlers, cfg.JWTSecret, cfg.JWTAudience, cfg.JWTIssuer))

	// Start the cron scheduler that sweeps due autosave schedules.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	jobs := app.NewJobs(savingsService, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-scheduler.Stop().Done()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

func parseOptionalUUID(raw, envName string) uuid.UUID {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"invalid uuid in config; ignoring\" env=%s value=%q", envName, trimmed)
		return uuid.Nil
	}
	return id
}
