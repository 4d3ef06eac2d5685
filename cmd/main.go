/**
 * @description
 * This is the main entry point for the custody-service. It is responsible for
 * initializing all components of the service, including configuration, the
 * journal database connection, the settlement API client, message brokers,
 * the custody engine, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver for the journal.
 * - github.com/redis/go-redis/v9: Distributed withdrawal rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/settlementclient: Client for the external settlement API.
 * - pkg/rabbitmq: Audit event producer and control-plane consumer.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/transfa/custody-service/internal/api"
	"github.com/transfa/custody-service/internal/app"
	"github.com/transfa/custody-service/internal/config"
	"github.com/transfa/custody-service/internal/store"
	rmrabbit "github.com/transfa/custody-service/pkg/rabbitmq"
	"github.com/transfa/custody-service/pkg/settlementclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}
	if strings.TrimSpace(cfg.BootstrapAdmin) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"bootstrap admin principal must be configured\" env=BOOTSTRAP_ADMIN")
	}

	log.Printf("level=info component=bootstrap msg=\"starting custody-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL journal database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"journal database connected\"")

	// Initialize the RabbitMQ producer for publishing audit events. The
	// engine keeps running with a fallback producer if the broker is down.
	var eventProducer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventProducer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		eventProducer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the settlement API.
	settlementClient := settlementclient.NewClient(cfg.SettlementAPIBaseURL, cfg.SettlementAPIKey)

	var redisClient *redis.Client
	if cfg.WithdrawRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; withdrawal rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; withdrawal rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; withdrawal rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the journal (repository) layer.
	journal := store.NewPostgresRepository(dbpool)

	// Initialize the custody engine with its dependencies.
	custodyService := app.NewService(
		journal,
		settlementClient,
		eventProducer,
		cfg.BootstrapAdmin,
		app.NewBatchGuard(cfg.WithdrawBatchMax, cfg.CreditBatchMax),
	)
	if cfg.TokenFundingEnabled {
		custodyService.SetFundingSource(settlementClient)
		log.Println("level=info component=bootstrap msg=\"token-backed deposit funding enabled\"")
	}
	if redisClient != nil {
		custodyService.SetWithdrawRateLimiter(
			app.NewRedisWithdrawRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.WithdrawRateLimitPerMinute,
		)
	}

	// Initialize the API handlers and router.
	custodyHandlers := api.NewCustodyHandlers(custodyService)
	router := api.CustodyRoutes(custodyHandlers, cfg.JWKSURL, cfg.InternalAPIKey)

	// Wire up the control-plane consumer so incident tooling can trip the
	// breaker over the bus. Broker unavailability was already tolerated for
	// the producer; the consumer is likewise optional.
	controlConsumer := custodyService.ControlConsumer()
	rabbitConsumer, err := rmrabbit.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; control plane disabled\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()

		controlBindings := map[string]func([]byte) bool{
			"custody.control.pause":   controlConsumer.HandlePause,
			"custody.control.unpause": controlConsumer.HandleUnpause,
		}
		if err := rabbitConsumer.ConsumeWithBindings(rmrabbit.EventsExchange, cfg.ControlEventQueue, controlBindings); err != nil {
			log.Printf("level=warn component=bootstrap msg=\"control consumer start failed; control plane disabled\" err=%v", err)
		}
	}

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

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
