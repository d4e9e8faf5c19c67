// Package main 转账服务启动入口
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/fundstransfer/internal/transfer/application"
	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
	"github.com/wyfcoding/fundstransfer/internal/transfer/infrastructure/lock"
	"github.com/wyfcoding/fundstransfer/internal/transfer/infrastructure/messaging"
	"github.com/wyfcoding/fundstransfer/internal/transfer/infrastructure/persistence/mysql"
	transferredis "github.com/wyfcoding/fundstransfer/internal/transfer/infrastructure/persistence/redis"
	"github.com/wyfcoding/fundstransfer/internal/transfer/interfaces/consumer"
	httpserver "github.com/wyfcoding/fundstransfer/internal/transfer/interfaces/http"
	"github.com/wyfcoding/fundstransfer/pkg/cache"
	"github.com/wyfcoding/fundstransfer/pkg/config"
	"github.com/wyfcoding/fundstransfer/pkg/db"
	"github.com/wyfcoding/fundstransfer/pkg/logger"
	"github.com/wyfcoding/fundstransfer/pkg/mq"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/transfer/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logger.Get().With("service", cfg.ServiceName)

	// 3. 数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(context.Background(), "failed to connect database", "error", err)
	}
	defer database.Close()

	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(&domain.Account{}, &domain.Transfer{}); err != nil {
			log.Error("failed to migrate database", "error", err)
		}
	}

	// 4. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(context.Background(), "failed to init redis", "error", err)
	}
	defer redisCache.Close()

	// 5. Kafka
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal(context.Background(), "failed to create kafka producer", "error", err)
	}
	defer producer.Close()

	notificationConsumer, err := mq.NewConsumer(kafkaCfg, cfg.Kafka.TransferTopic)
	if err != nil {
		logger.Fatal(context.Background(), "failed to create kafka consumer", "error", err)
	}
	defer notificationConsumer.Close()

	// 6. 仓储与协作方
	accountRepo := mysql.NewAccountRepository(database.DB)
	transferRepo := mysql.NewTransferRepository(database.DB)
	txManager := mysql.NewTxManager(database.DB)
	accountCache := transferredis.NewAccountCache(redisCache)
	lockManager := lock.NewRedisLockManager(redisCache, time.Duration(cfg.Lock.WaitSeconds)*time.Second)
	publisher := messaging.NewKafkaPublisher(producer, cfg.Kafka.TransferTopic)

	// 7. 应用服务
	transferService := application.NewTransferService(
		accountRepo,
		transferRepo,
		txManager,
		lockManager,
		accountCache,
		publisher,
		time.Duration(cfg.Lock.LeaseSeconds)*time.Second,
		log,
	)
	queryService := application.NewQueryService(accountRepo, transferRepo, accountCache, log)

	// 8. 接口层
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	handler := httpserver.NewHandler(transferService, queryService, cfg.API.Key)
	handler.RegisterRoutes(router.Group("/api/v1"))

	notificationHandler := consumer.NewNotificationHandler(transferRepo, notificationConsumer, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 9. 生命周期
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("notification consumer starting", "topic", cfg.Kafka.TransferTopic)
		return notificationHandler.Run(ctx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			log.Info("shutting down servers...")
			cancel()
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal(context.Background(), "server error", "error", err)
	}
}
