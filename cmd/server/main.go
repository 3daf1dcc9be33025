package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/crossex/cross/config"
	"github.com/crossex/cross/internal/accounts"
	"github.com/crossex/cross/internal/admin"
	"github.com/crossex/cross/internal/logger"
	"github.com/crossex/cross/internal/market"
	"github.com/crossex/cross/internal/matching"
	"github.com/crossex/cross/internal/notify"
	"github.com/crossex/cross/internal/server"
	"github.com/crossex/cross/internal/service"
	"github.com/crossex/cross/internal/storage"
	"github.com/crossex/cross/internal/storage/file"
	"github.com/crossex/cross/internal/storage/memory"
	"github.com/crossex/cross/internal/storage/postgres"
	"github.com/crossex/cross/internal/storage/redis"
	"github.com/crossex/cross/internal/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.SetMinLevel(logger.ParseLevel(cfg.Logger.Level))

	logger.Info("Starting exchange server", map[string]interface{}{
		"version": "1.0.0",
	})

	// Build storage layers based on configuration
	tradeStore := buildStorageLayers(cfg)

	// Seed the id generator from the persisted trade log
	ids, err := matching.NewIDGenerator(tradeStore)
	if err != nil {
		logger.Error("Trade log scan failed, starting from fallback id", map[string]interface{}{
			"error":   err.Error(),
			"next_id": ids.Peek(),
		})
	}

	// Recover the last-traded price from the log
	state := market.NewState(recoverMarketPrice(tradeStore))

	// UDP notification fan-out
	fanout, err := notify.NewFanout(cfg.Multicast.Address, cfg.Multicast.Port, cfg.Engine.NotifyBuffer)
	if err != nil {
		logger.Error("Failed to open notification socket", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// User accounts
	accountSvc, err := accounts.NewFileService(cfg.Engine.UsersPath)
	if err != nil {
		logger.Error("Failed to open user store", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	exchange := service.NewExchange(matching.NewEngine(), ids, state, tradeStore, fanout)

	logger.Info("Exchange assembled", map[string]interface{}{
		"market_price": state.Last(),
		"next_id":      ids.Peek(),
	})

	// Client-facing TCP server
	tcpServer := server.NewServer(server.Config{
		Port:             cfg.Server.TCPPort,
		SocketTimeout:    cfg.Server.SocketTimeout,
		MulticastAddress: cfg.Multicast.Address,
		MulticastPort:    cfg.Multicast.Port,
	}, exchange, accountSvc)

	go func() {
		if err := tcpServer.Serve(); err != nil {
			logger.Error("TCP server failed", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}()

	// Operator control plane
	controlServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.ControlPort),
		Handler: admin.SetupRoutes(admin.NewHandlers(exchange, accountSvc)),
	}

	go func() {
		logger.Info("Control plane listening", map[string]interface{}{
			"port": cfg.Server.ControlPort,
		})
		if err := controlServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Control plane failed", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...", nil)

	// Shutdown order: stop accepting requests, then drain notifications,
	// then release storage
	if err := tcpServer.Close(); err != nil {
		logger.Warn("TCP server close failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := controlServer.Shutdown(ctx); err != nil {
		logger.Warn("Control plane forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := fanout.Close(); err != nil {
		logger.Warn("Notification fan-out close failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := tradeStore.Close(); err != nil {
		logger.Warn("Trade store close failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Info("Server exited successfully", nil)
}

// buildStorageLayers constructs the trade store stack based on
// configuration. The durable file log is always first so full reads and
// id seeding come from it; optional cache and archive layers follow.
func buildStorageLayers(cfg *config.Config) storage.TradeStore {
	var tradeStores []storage.TradeStore

	// L1: File log (durable source of truth) - always enabled
	fileStore, err := file.NewTradeStore(cfg.Engine.TradeLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open trade log: %v\n", err)
		os.Exit(1)
	}
	tradeStores = append(tradeStores, fileStore)
	logger.Info("File trade log opened", map[string]interface{}{
		"path": cfg.Engine.TradeLogPath,
	})

	// L2: In-memory recent cache - if enabled
	if cfg.Memory.Enabled {
		tradeStores = append(tradeStores, memory.NewTradeStore(cfg.Memory.MaxTrades))
		logger.Info("In-memory storage layer enabled", map[string]interface{}{
			"max_trades": cfg.Memory.MaxTrades,
		})
	}

	// L3: Redis (distributed cache) - if enabled
	if cfg.Redis.Enabled {
		redisStore, err := redis.NewTradeStore(redis.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			TLSEnabled:   cfg.Redis.TLSEnabled,
			MaxTrades:    cfg.Redis.MaxTrades,
		})
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without distributed cache", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			logger.Info("Redis cache connected successfully", map[string]interface{}{
				"host": cfg.Redis.Host,
				"port": cfg.Redis.Port,
			})
			tradeStores = append(tradeStores, redisStore)
		}
	}

	// L4: PostgreSQL (queryable archive) - if enabled
	if cfg.Database.Enabled {
		pgStore, err := postgres.NewTradeStore(postgres.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Name,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			MaxConns:        cfg.Database.MaxConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			SSLMode:         cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Warn("Failed to connect to PostgreSQL, continuing without archive", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			logger.Info("PostgreSQL connected successfully", map[string]interface{}{
				"host":     cfg.Database.Host,
				"database": cfg.Database.Name,
			})
			tradeStores = append(tradeStores, pgStore)
		}
	}

	return storage.NewCompositeTradeStore(tradeStores...)
}

// recoverMarketPrice replays the trade log tail to restore the last
// traded price, falling back to the instrument default on an empty or
// unreadable log.
func recoverMarketPrice(store storage.TradeStore) int64 {
	records, err := store.LoadAll()
	if err != nil {
		logger.Warn("Could not recover market price from trade log", map[string]interface{}{
			"error": err.Error(),
		})
		return types.DefaultMarketPrice
	}
	if len(records) == 0 {
		return types.DefaultMarketPrice
	}
	return records[len(records)-1].Price
}
