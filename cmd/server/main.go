package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"flashkids/internal/config"
	"flashkids/internal/credentials"
	"flashkids/internal/database"
	"flashkids/internal/handlers"
	"flashkids/internal/repository"
	"flashkids/internal/session"
	"flashkids/internal/speech"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.CredentialsSecret == "" {
		log.Fatal("CREDENTIALS_SECRET must be set")
	}
	if cfg.JWTSigningKey == "" {
		log.Fatal("JWT_SIGNING_KEY must be set")
	}

	logger, err := setupLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("migrations completed")

	// Encrypted credential store for the parent PIN and speech API key
	creds, err := credentials.NewFileStore(cfg.CredentialsPath, cfg.CredentialsSecret)
	if err != nil {
		logger.Fatal("failed to open credential store", zap.Error(err))
	}

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Session tracker owns all mutable app state
	tracker := session.New(profileRepo, progressRepo, settingsRepo, usageRepo, creds, logger)
	if err := tracker.LoadProfiles(); err != nil {
		logger.Fatal("failed to load profiles", zap.Error(err))
	}
	tracker.StartTimeTracking()
	defer tracker.StopTimeTracking()

	speechClient := speech.NewClient(cfg.SpeechBaseURL, creds)

	// Initialize handlers
	middleware := handlers.NewMiddleware(tracker, logger, []byte(cfg.JWTSigningKey), cfg.ParentSessionTTL)
	profileHandler := handlers.NewProfileHandler(tracker, logger)
	sessionHandler := handlers.NewSessionHandler(tracker, logger)
	settingsHandler := handlers.NewSettingsHandler(tracker, middleware, logger)
	speechHandler := handlers.NewSpeechHandler(speechClient, logger)

	// Setup routes
	mux := http.NewServeMux()

	// Session state and navigation
	mux.HandleFunc("GET /api/state", sessionHandler.State)
	mux.HandleFunc("POST /api/navigate", sessionHandler.Navigate)
	mux.HandleFunc("GET /api/levels/{subject}", sessionHandler.Levels)
	mux.HandleFunc("POST /api/lessons/complete", sessionHandler.CompleteLesson)
	mux.HandleFunc("POST /api/tracking/start", sessionHandler.StartTracking)
	mux.HandleFunc("POST /api/tracking/stop", sessionHandler.StopTracking)

	// Profiles
	mux.HandleFunc("GET /api/profiles", profileHandler.List)
	mux.HandleFunc("POST /api/profiles", profileHandler.Create)
	mux.HandleFunc("PUT /api/profiles/{id}", profileHandler.Update)
	mux.HandleFunc("DELETE /api/profiles/{id}", middleware.RequireParent(profileHandler.Delete))
	mux.HandleFunc("POST /api/profiles/{id}/select", profileHandler.Select)
	mux.HandleFunc("POST /api/profiles/reorder", middleware.RequireParent(profileHandler.Reorder))

	// Settings and the parent PIN gate
	mux.HandleFunc("GET /api/settings", settingsHandler.Get)
	mux.HandleFunc("PUT /api/settings", middleware.RequireParent(settingsHandler.Update))
	mux.HandleFunc("POST /api/pin", middleware.RequireParent(settingsHandler.SetPIN))
	mux.HandleFunc("POST /api/pin/verify", middleware.RateLimitPIN(settingsHandler.VerifyPIN))
	mux.HandleFunc("DELETE /api/pin", middleware.RequireParent(settingsHandler.ClearPIN))

	// Speech synthesis
	mux.HandleFunc("POST /api/speech/generate", speechHandler.Generate)
	mux.HandleFunc("GET /api/speech/voices", speechHandler.Voices)
	mux.HandleFunc("PUT /api/speech/key", middleware.RequireParent(speechHandler.SaveKey))
	mux.HandleFunc("DELETE /api/speech/key", middleware.RequireParent(speechHandler.DeleteKey))
	mux.HandleFunc("POST /api/speech/key/validate", speechHandler.ValidateKey)

	// Wrap with logging middleware
	handler := middleware.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

// setupLogger builds a production logger, or a development logger with
// readable output outside production.
func setupLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
