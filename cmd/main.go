package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"visitordesk/docs/swagger"
	"visitordesk/internal/api"
	"visitordesk/internal/auth"
	"visitordesk/internal/config"
	"visitordesk/internal/dashboard"
	"visitordesk/internal/db"
	"visitordesk/internal/events"
	"visitordesk/internal/models"
	"visitordesk/internal/notify"
	"visitordesk/internal/obs"
	"visitordesk/internal/services"
	"visitordesk/internal/tasks"
	"visitordesk/internal/tasks/rate"
	"visitordesk/internal/utils/logger"
)

// @title Visitor Desk API
// @version 1.0
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger := logger.New("visitordesk")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	obs.Init()

	// Connect to database
	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := models.SeedAdmin(gdb, cfg); err != nil {
		logger.Warn("Failed to seed admin: %v", err)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Visitor changes are published on the local bus and, when a channel is
	// configured, mirrored to every other instance.
	local := events.NewEventBus("visitors", cfg.Notify.StreamBuffer)
	var feed events.Bus = local
	if cfg.Redis.EventChannel != "" {
		bridge := events.NewRedisBridge(local, redisClient, cfg.Redis.EventChannel)
		bridge.Bridge(events.TopicVisitorsChanged, events.JSONDecoder[models.VisitorEvent]())
		go func() {
			if err := bridge.Run(rootCtx); err != nil {
				logger.Error("Event bridge stopped", err)
			}
		}()
		feed = bridge
	}

	limiter := rate.NewSlidingWindowLimiter(redisClient, "sign-in", rate.RateLimit{
		Window:   cfg.Session.SignInWindow,
		Attempts: cfg.Session.SignInLimit,
	})
	authService := auth.NewService(auth.NewGormCredentials(gdb), cfg.JWT, auth.WithLimiter(limiter))

	profileService := services.NewProfileService(gdb)
	visitorService := services.NewVisitorService(gdb, feed)

	// Security escalation queue
	var escalator notify.Alerter
	taskClient := tasks.NewTaskClient(cfg.Redis)
	defer taskClient.Close()
	if cfg.Notify.EscalateToQueue {
		escalator = tasks.NewEscalator(taskClient.GetClient())
	}

	dashboards := dashboard.NewRegistry(dashboard.Deps{
		Auth:      authService,
		Profiles:  profileService,
		Writer:    profileService,
		Feed:      feed,
		Escalator: escalator,
		Session:   cfg.Session,
		Notify:    cfg.Notify,
		RevokeFor: cfg.JWT.RefreshTTL,
	})

	// Initialize task server
	taskServer := tasks.NewServer(cfg, tasks.NewTaskHandler(nil))
	if err := taskServer.Start(); err != nil {
		logger.Error("Task server error", err)
	}

	// Idle dashboards are swept on a local schedule.
	taskScheduler := tasks.NewScheduler()
	if cfg.Session.SweepSpec != "" {
		if err := taskScheduler.RegisterSweep(cfg.Session.SweepSpec, dashboards, cfg.Session.IdleTimeout); err != nil {
			log.Fatalf("Failed to schedule dashboard sweep: %v", err)
		}
	}
	taskScheduler.Start()

	// Swagger documentation
	swagger.SwaggerInfo.Host = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	// Initialize API server
	apiServer := api.NewServer(cfg, api.Deps{
		DB:         gdb,
		Dashboards: dashboards,
		Visitors:   visitorService,
		Profiles:   profileService,
	})
	go func() {
		logger.Success("API server started")
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown API server", err)
	}

	taskScheduler.Stop(ctx)
	dashboards.CloseAll()
	taskServer.Shutdown()
	rootCancel()

	logger.Info("Servers shutdown gracefully")
}
