package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/api"
	"github.com/akylbek/ar-system/discrepancy-service/internal/config"
	"github.com/akylbek/ar-system/discrepancy-service/internal/events"
	"github.com/akylbek/ar-system/discrepancy-service/internal/ingest"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/mailer"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/repository"
	"github.com/akylbek/ar-system/discrepancy-service/internal/scoring"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
	"github.com/akylbek/ar-system/discrepancy-service/internal/spreadsheet"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry(telemetry.Options{
		ServiceName:    "discrepancy-service",
		ServiceVersion: cfg.ServiceVersion,
		Endpoint:       cfg.JaegerEndpoint,
		LogLevel:       cfg.LogLevel,
	}); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Discrepancy Service")

	heuristics, err := config.LoadHeuristics(cfg.HeuristicsFile)
	if err != nil {
		telemetry.Logger.Fatal("Failed to load heuristics", zap.Error(err))
	}
	ratios, err := heuristics.Reconciliation.Parse()
	if err != nil {
		telemetry.Logger.Fatal("Invalid reconciliation ratios", zap.Error(err))
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.InitDB(initCtx, db); err != nil {
		telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	cancelInit()

	// Initialize repositories
	discrepancyRepo := repository.NewDiscrepancyRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Redis backs the customer code counter and import key claims when configured
	var codes interfaces.CodeSequence = repository.NewPostgresCodeSequence(db)
	var claims interfaces.KeyClaimer = repository.LocalKeyClaimer{}
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer redisClient.Close()

		codes = repository.NewRedisCodeSequence(redisClient, customerRepo.Count)
		claims = repository.NewRedisKeyClaimer(redisClient)
		telemetry.Logger.Info("Using Redis for code sequence and import claims", zap.String("addr", cfg.RedisURL))
	}

	// Kafka carries discrepancy events when brokers are configured
	var publisher interfaces.EventPublisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.CreatedTopic, cfg.StatusTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	var transport interfaces.MailTransport = mailer.NewSMTPTransport(cfg.EmailRate)
	if cfg.EmailDryRun {
		transport = mailer.DryRunTransport{}
		telemetry.Logger.Warn("Email dry run enabled, no mail will be delivered")
	}

	// Initialize services
	customers := service.NewCustomerService(customerRepo, discrepancyRepo, emailLogRepo, codes)
	email := service.NewEmailService(settingsRepo, templateRepo, emailLogRepo, transport, models.SMTPSettings{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Secure:    cfg.SMTPSecure,
		User:      cfg.SMTPUser,
		Pass:      cfg.SMTPPass,
		FromName:  cfg.SMTPFromName,
		FromEmail: cfg.SMTPFromEmail,
	}, cfg.CompanyName)
	discrepancies := service.NewDiscrepancyService(discrepancyRepo, taskRepo, emailLogRepo, customers, email, publisher)
	imports := service.NewImportService(
		spreadsheet.NewResolver(heuristics),
		ingest.NewNormalizer(heuristics),
		scoring.NewCalculator(ratios),
		discrepancyRepo,
		customers,
		discrepancies,
		claims,
		activityRepo,
	)

	r := api.NewRouter(api.Services{
		Auth:          service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL),
		Customers:     customers,
		Discrepancies: discrepancies,
		Email:         email,
		Imports:       imports,
		Tasks:         service.NewTaskService(taskRepo),
		Dashboard:     service.NewDashboardService(discrepancyRepo, customerRepo, emailLogRepo),
	}, api.Options{MaxUploadBytes: cfg.MaxUploadBytes})

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Discrepancy Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
