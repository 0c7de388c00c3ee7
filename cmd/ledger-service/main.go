package main

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ticket-ledger/internal/api"
	"ticket-ledger/internal/auth"
	"ticket-ledger/internal/clock"
	"ticket-ledger/internal/config"
	"ticket-ledger/internal/dispatch"
	"ticket-ledger/internal/holding"
	"ticket-ledger/internal/holding/qr"
	"ticket-ledger/internal/identity"
	"ticket-ledger/internal/income"
	"ticket-ledger/internal/kafka"
	"ticket-ledger/internal/kvstore"
	"ticket-ledger/internal/ledger"
	ledgerredis "ticket-ledger/internal/ledger/redis"
	"ticket-ledger/internal/logger"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/purchase"
	"ticket-ledger/internal/sse"
	"ticket-ledger/internal/token"
	"ticket-ledger/internal/withdraw"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	if cfg.Database.Driver == "postgres" {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.Database.Username, cfg.Database.Password,
			cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

		var sqldb *sql.DB
		var err error
		maxRetries := 5

		for i := 0; i < maxRetries; i++ {
			log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
			sqldb, err = sql.Open("postgres", dsn)
			if err == nil {
				err = sqldb.Ping()
			}
			if err == nil {
				break
			}
			log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
			if i < maxRetries-1 {
				time.Sleep(2 * time.Second)
			}
		}
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
		}

		sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

		log.Info("DATABASE", "PostgreSQL connection successful")
		return bun.NewDB(sqldb, pgdialect.New())
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.Path)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open SQLite database: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to SQLite: %v", err))
	}

	log.Info("DATABASE", fmt.Sprintf("SQLite database opened at %s", cfg.Database.Path))
	return bun.NewDB(sqldb, sqlitedialect.New())
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting ticket-ledger initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if cfg.Event.OwnerAddress == "" {
		log.Fatal("CONFIG", "EVENT_OWNER_ADDRESS not set")
	}
	if cfg.Token.ContractAddress == "" {
		log.Fatal("CONFIG", "TOKEN_CONTRACT_ADDRESS not set")
	}

	ctx := context.Background()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()

	store, err := kvstore.NewBunStore(ctx, bunDB)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to initialize records table: %v", err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	locks := ledgerredis.NewRedis(redisClient)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	tokenClient := token.NewClient(cfg.Token, httpClient)
	scale := int64(math.Pow10(cfg.Token.Decimals))

	authz := auth.New(cfg.Event.OwnerAddress, cfg.Event.JWTSecret, cfg.Token.CallbackSecret)

	ledgerSvc := ledger.NewService(store, locks, cfg.Event.OwnerAddress)
	holdingSvc := holding.NewService(store, ledgerSvc, locks)
	identitySvc := identity.NewService(store)
	incomeSvc := income.NewService(store)
	withdrawSvc := withdraw.NewService(tokenClient, cfg.Event.OwnerAddress)
	purchaseSvc := purchase.NewService(store, locks, clock.NewSystem(),
		cfg.Event.OwnerAddress, cfg.Token.ContractAddress, scale)

	emitter := sse.NewPurchaseEventEmitter()
	purchaseSvc.SSE = emitter

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		requiredTopics := []string{
			cfg.Kafka.Topics.TokenTransfers,
			cfg.Kafka.Topics.TicketPurchased,
			cfg.Kafka.Topics.TicketRedeemed,
			cfg.Kafka.Topics.DepositReceived,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		defer producer.Close()
		purchaseSvc.Kafka = producer
		holdingSvc.Kafka = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")

		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TokenTransfers, cfg.Kafka.GroupID)
	} else {
		log.Warn("KAFKA", "Kafka disabled, transfer notifications arrive via HTTP callback only")
	}

	dispatcher := dispatch.NewDispatcher(ledgerSvc, holdingSvc, identitySvc, withdrawSvc)

	handler := &api.Handler{
		Logger:     log,
		Auth:       authz,
		Dispatcher: dispatcher,
		Purchases:  purchaseSvc,
		Emitter:    emitter,
		Holdings:   holdingSvc,
		Tiers:      ledgerSvc,
		Identity:   identitySvc,
		Income:     incomeSvc,
		QR:         qr.NewQRGenerator(cfg.Event.JWTSecret),
	}

	r := chi.NewRouter()
	handler.Routes(r)
	log.Info("ROUTER", "Ledger routes registered")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()
	if consumer != nil {
		go consumer.Start(consumerCtx, func(ev models.TransferEvent) error {
			return purchaseSvc.HandleTransfer(consumerCtx, ev)
		})
		defer consumer.Close()
		log.Info("KAFKA", fmt.Sprintf("Transfer consumer listening on topic %s", cfg.Kafka.Topics.TokenTransfers))
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("ticket-ledger running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancelConsumer()

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Server shut down cleanly")
	}
}
