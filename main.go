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

	"github.com/LovationAdmin/feeding-api/config"
	"github.com/LovationAdmin/feeding-api/handlers"
	"github.com/LovationAdmin/feeding-api/middleware"
	"github.com/LovationAdmin/feeding-api/migration"
	"github.com/LovationAdmin/feeding-api/routes"
	"github.com/LovationAdmin/feeding-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	seed := flag.Bool("seed", false, "populate the database with sample data and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database connected")

	if err := config.RunMigrations(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	if *seed {
		adminID, err := migration.Seed(context.Background(), db, logger)
		if err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
		token, err := utils.GenerateAccessToken(cfg.JWTSecret, adminID, 24*time.Hour)
		if err != nil {
			logger.Fatal("failed to issue development token", zap.Error(err))
		}
		fmt.Printf("Development token for %s (valid 24h):\n%s\n", migration.SeedUsername, token)
		return
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	wsHandler := handlers.NewWSHandler(logger)
	defer wsHandler.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go limiter.Run(time.Minute, stopCleanup)

	router := gin.New()
	router.Use(gin.Recovery())

	allowedOrigins := []string{cfg.FrontendURL}
	logger.Info("CORS configured", zap.Strings("origins", allowedOrigins))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	router.Use(middleware.RequestLogger(logger))
	router.Use(limiter.Handler())

	api := router.Group("/api")
	{
		routes.Setup(api, routes.Deps{
			DB:            db,
			JWTSecret:     cfg.JWTSecret,
			EncryptionKey: cfg.EncryptionKey,
			Notifier:      wsHandler,
			Logger:        logger,
		})
		api.GET("/ws/updates", middleware.AuthMiddleware(cfg.JWTSecret), wsHandler.HandleWS)
	}

	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(c.Request.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
