// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/handlers"
	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/config"
	"github.com/Marga-Ghale/ora-collab-backend/internal/cron"
	"github.com/Marga-Ghale/ora-collab-backend/internal/db"
	"github.com/Marga-Ghale/ora-collab-backend/internal/email"
	"github.com/Marga-Ghale/ora-collab-backend/internal/notification"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/seed"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/Marga-Ghale/ora-collab-backend/internal/socket"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	log.Println("🔄 Running database migrations...")
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// ============================================
	// Initialize PostgreSQL (pgxpool + sql.DB)
	// ============================================
	ctx := context.Background()

	pg, err := db.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}

	repos := repository.NewRepositories(pg.Pool, pg.DB, cfg.StoreTimeout)
	log.Println("📦 Repositories initialized")

	// ============================================
	// Initialize Redis (optional token revocation store)
	// ============================================
	var tokens service.TokenStore
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (revoked tokens kept in memory)", err)
		} else {
			tokens = redisDB
			log.Println("⚡ Redis token store enabled")
		}
	}

	// ============================================
	// Initialize Email Service (optional)
	// ============================================
	emailSvc := email.NewService(&email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		UseTLS:   cfg.SMTPUseTLS,
	})
	if emailSvc.Enabled() {
		log.Println("📧 Email service initialized")
	} else {
		log.Println("⚠️  Email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	access := service.NewAccessService(repos.ProjectRepo)
	hub := socket.NewHub(socket.ProjectRoomAuthorizer(access))
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)
	log.Println("🔌 WebSocket hub initialized")

	// ============================================
	// Initialize Notification Dispatcher
	// ============================================
	dispatcher := notification.NewDispatcher(repos, emailSvc, broadcaster, notification.Config{
		Workers:     cfg.NotifyWorkers,
		QueueSize:   cfg.NotifyQueueSize,
		Timeout:     cfg.NotifyTimeout,
		FrontendURL: cfg.FrontendURL,
	})
	dispatcher.Start()

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Notifier:    dispatcher,
		Broadcaster: broadcaster,
		Tokens:      tokens,
	})
	log.Println("✨ All services initialized")

	if !cfg.IsProduction() {
		if err := seed.SeedData(ctx, services, repos); err != nil {
			log.Printf("⚠️ Seeding failed: %v", err)
		}
	}

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(cfg.DueDateCron, repos.TaskRepo, dispatcher, cfg.StoreTimeout)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	health := func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		code, state, database := http.StatusOK, "healthy", "connected"
		if err := pg.Ping(pingCtx); err != nil {
			code, state, database = http.StatusServiceUnavailable, "degraded", "unavailable"
		}
		c.JSON(code, gin.H{
			"status":     state,
			"timestamp":  time.Now(),
			"database":   database,
			"cache":      getCacheStatus(redisDB),
			"ws_clients": hub.ClientCount(),
			"email":      getEmailStatus(emailSvc),
		})
	}
	r.GET("/health", health)

	api := r.Group("/api/v1")
	api.GET("/health", health)
	handlers.NewHandlers(services).Register(api, services.Auth)

	wsHandler := socket.NewHandler(hub, services.Auth, cfg.CORSOrigins)
	api.GET("/ws", wsHandler.HandleWebSocket)

	// ============================================
	// Start Server with graceful shutdown
	// ============================================
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	scheduler.Stop()
	dispatcher.Stop()
	hub.Stop()
	if redisDB != nil {
		redisDB.Close()
	}
	pg.Close()

	log.Println("👋 Server exited")
}

func getCacheStatus(redisDB *db.RedisDB) string {
	if redisDB != nil {
		return "connected"
	}
	return "disabled"
}

func getEmailStatus(emailSvc *email.Service) string {
	if emailSvc.Enabled() {
		return "configured"
	}
	return "disabled"
}
