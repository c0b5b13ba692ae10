// Package main provides the main entry point for the Blastline message dispatch engine
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	mathrand "math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farhadmsg/blastline/app/handlers"
	"github.com/farhadmsg/blastline/app/router"
	"github.com/farhadmsg/blastline/app/scheduler"
	"github.com/farhadmsg/blastline/app/services"
	businessflow "github.com/farhadmsg/blastline/business_flow"
	"github.com/farhadmsg/blastline/config"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	"github.com/farhadmsg/blastline/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Blastline application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity.
// Returns nil without error when caching is disabled.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(monitorCtx, 2*time.Second)
				if err := client.Ping(pingCtx).Err(); err != nil {
					log.Printf("Redis health check failed: %v", err)
				}
				pingCancel()
			}
		}
	}()

	return cancel
}

// newServiceLogger builds a logger for a background component, honoring the
// configured output mode (stdout, file, or both).
func newServiceLogger(cfg config.LoggingConfig, prefix string) *log.Logger {
	var out io.Writer = os.Stdout
	if cfg.Output == "file" || cfg.Output == "both" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "file" {
			out = rotating
		} else {
			out = io.MultiWriter(os.Stdout, rotating)
		}
	}
	return log.New(out, prefix, log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// ensurePlatformSettings seeds the singleton settings row on first boot so
// word lengths and the gateway mode have explicit persisted values.
func ensurePlatformSettings(db *gorm.DB) error {
	var row models.PlatformSettings
	err := db.First(&row).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to read platform settings: %w", err)
	}

	row = models.PlatformSettings{
		SMSGatewayMode:    models.SMSGatewayModeAPI,
		PlainWordLength:   utils.DefaultPlainWordLength,
		UnicodeWordLength: utils.DefaultUnicodeWordLength,
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to seed platform settings: %w", err)
	}
	log.Println("Seeded default platform settings")
	return nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	appCtx, cancel := context.WithCancel(context.Background())
	stopFuncs = append(stopFuncs, cancel)

	if rc != nil {
		stopMonitor := startCacheHealthMonitor(appCtx, rc, 30*time.Second)
		stopFuncs = append(stopFuncs, stopMonitor)
	}

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	if err := ensurePlatformSettings(db); err != nil {
		return nil, err
	}

	// Repositories
	customerRepo := repository.NewCustomerRepository(db)
	messageLogRepo := repository.NewMessageLogRepository(db)
	creditLogRepo := repository.NewCreditLogRepository(db)
	gatewayRepo := repository.NewGatewayRepository(db)
	deviceSIMRepo := repository.NewDeviceSIMRepository(db)
	waGatewayRepo := repository.NewWhatsAppGatewayRepository(db)
	waTemplateRepo := repository.NewWhatsAppTemplateRepository(db)
	contactRepo := repository.NewContactRepository(db)
	campaignContactRepo := repository.NewCampaignContactRepository(db)
	settingsRepo := repository.NewPlatformSettingsRepository(db, rc)

	// Outbound clients
	smsClient := services.NewSMSGatewayClient(&cfg.SMSProvider)
	deviceClient := services.NewDeviceGatewayClient(&cfg.DeviceGateway)
	bridgeClient := services.NewWhatsAppBridgeClient(&cfg.WhatsAppBridge)
	cloudClient := services.NewWhatsAppCloudClient(&cfg.WhatsAppCloud)

	// Bridge session registry: dialing a session asks the bridge process to
	// bring the underlying WhatsApp Web connection up.
	sessionRegistry := services.NewSessionRegistry(
		bridgeClient.Connect,
		newServiceLogger(cfg.Logging, "session "),
	)

	// Business flows
	ledger := businessflow.NewCreditLedger(db, creditLogRepo)
	resolver := businessflow.NewRecipientResolver(contactRepo, businessflow.NewFileImporter())
	renderer := businessflow.NewContentRenderer(mathrand.New(mathrand.NewSource(time.Now().UnixNano())))
	selector := businessflow.NewGatewaySelector(gatewayRepo, deviceSIMRepo, waGatewayRepo, waTemplateRepo)

	dispatchFlow := businessflow.NewDispatchFlow(
		db,
		settingsRepo,
		customerRepo,
		messageLogRepo,
		ledger,
		resolver,
		renderer,
		selector,
	)
	messageLogFlow := businessflow.NewMessageLogFlow(messageLogRepo, creditLogRepo, ledger)

	executor := businessflow.NewDeliveryExecutor(
		messageLogRepo,
		gatewayRepo,
		waGatewayRepo,
		waTemplateRepo,
		campaignContactRepo,
		ledger,
		smsClient,
		deviceClient,
		bridgeClient,
		cloudClient,
		sessionRegistry,
		newServiceLogger(cfg.Logging, "delivery "),
	)

	// Background dispatch worker
	worker := scheduler.NewDispatchWorker(messageLogRepo, executor, cfg.Scheduler, cfg.Logging)
	stopWorker := worker.Start(appCtx)
	stopFuncs = append(stopFuncs, stopWorker)
	log.Printf("Dispatch worker started (interval=%s, batch=%d)", cfg.Scheduler.PollInterval, cfg.Scheduler.BatchSize)

	// HTTP layer
	dispatchHandler := handlers.NewDispatchHandler(dispatchFlow)
	messageLogHandler := handlers.NewMessageLogHandler(messageLogFlow)

	appRouter := router.NewFiberRouter(cfg, customerRepo, dispatchHandler, messageLogHandler)

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
