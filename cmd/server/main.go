package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fcetrainer/internal/config"
	"fcetrainer/internal/database"
	"fcetrainer/internal/exercise"
	"fcetrainer/internal/handlers"
	"fcetrainer/internal/metrics"
	"fcetrainer/internal/models"
	"fcetrainer/internal/repository"
	"fcetrainer/internal/security"
	"fcetrainer/internal/service"
	"fcetrainer/internal/snapshot"
)

func main() {
	// Load configuration
	cfg := config.Load()

	readiness := handlers.NewReadiness(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepTemplates,
		handlers.StepExercises,
		handlers.StepSnapshots,
	)

	// Routes are added once initialization completes; until then every page
	// but the health check answers 503
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", readiness.ShowHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Wrap with logging middleware
	handler := handlers.Logging(readiness.Gate(mux))

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
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)
	readiness.CompleteStep(handlers.StepDatabase)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")
	readiness.CompleteStep(handlers.StepMigrations)

	// Load templates
	templates, err := handlers.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")
	readiness.CompleteStep(handlers.StepTemplates)

	// Exercise data, one CSV source per part
	store := exercise.NewStore(map[models.Part]string{
		models.PartMultipleChoice: cfg.MultipleChoiceFile,
		models.PartOpenCloze:      cfg.OpenClozeFile,
		models.PartWordFormation:  cfg.WordFormationFile,
	})
	store.Debug = cfg.Debug
	for _, part := range models.Parts {
		stats := store.Stats(part)
		if !stats.Found {
			log.Printf("Warning: data source for %s not found at %s", part.Title(), store.Source(part))
			continue
		}
		log.Printf("Data source for %s: %d usable of %d rows", part.Title(), stats.Valid, stats.Loaded)
	}
	readiness.CompleteStep(handlers.StepExercises)

	watchCtx, stopWatching := context.WithCancel(context.Background())
	defer stopWatching()
	if cfg.WatchData {
		watcher, err := exercise.NewWatcher(store)
		if err != nil {
			log.Printf("Warning: data files will not be watched: %v", err)
		} else {
			go watcher.Run(watchCtx)
		}
	}

	// Initialize repositories
	attemptRepo := repository.NewAttemptRepository(db)

	var snapshots service.SnapshotStore
	switch cfg.SnapshotBackend {
	case "database":
		snapshots = repository.NewSnapshotRepository(db)
	case "file":
		fileStore, err := snapshot.NewFileStore(cfg.SnapshotPath)
		if err != nil {
			log.Fatalf("Failed to open snapshot directory: %v", err)
		}
		snapshots = fileStore
	case "redis":
		redisStore, err := snapshot.NewRedisStore(snapshot.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.CookieDuration)
		if err != nil {
			log.Fatalf("Failed to open redis snapshot store: %v", err)
		}
		defer redisStore.Close()
		snapshots = redisStore
	default:
		log.Fatalf("Unknown SNAPSHOT_BACKEND %q (expected file, database or redis)", cfg.SnapshotBackend)
	}

	log.Printf("Snapshot backend: %s", cfg.SnapshotBackend)
	readiness.CompleteStep(handlers.StepSnapshots)

	// Initialize services
	trainer := service.NewTrainerService(store, snapshots, attemptRepo, cfg.RecoveredTimeLimit)

	if cfg.AppSecret == config.DefaultAppSecret {
		log.Println("WARNING: APP_SECRET is not set; trainee cookies are signed with the default secret")
	}
	keys, err := security.DeriveKeys(cfg.AppSecret)
	if err != nil {
		log.Fatalf("Failed to derive keys: %v", err)
	}
	tokens := security.NewTraineeTokens(keys.Token, cfg.CookieDuration)
	csrf := security.NewCSRFGenerator(keys.CSRF, cfg.CookieDuration)

	// Initialize handlers
	startLimiter := security.NewRateLimiter(cfg.StartRateLimit, time.Minute)
	middleware := handlers.NewMiddleware(tokens, csrf, startLimiter)
	homeHandler := handlers.NewHomeHandler(trainer, middleware, templates)
	clozeHandler := handlers.NewClozeHandler(trainer, middleware, templates)
	wordFormationHandler := handlers.NewWordFormationHandler(trainer, middleware, templates)

	// Setup routes
	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	mux.HandleFunc("GET /", middleware.RequireTrainee(homeHandler.ShowHome))

	// Part 1 and Part 2
	mux.HandleFunc("GET /part/{part}", middleware.RequireTrainee(clozeHandler.ShowPart))
	mux.HandleFunc("POST /part/{part}/start", middleware.RateLimit(middleware.RequireTrainee(middleware.CSRFProtect(clozeHandler.StartPart))))
	mux.HandleFunc("POST /part/{part}/submit", middleware.RequireTrainee(middleware.CSRFProtect(clozeHandler.SubmitPart)))
	mux.HandleFunc("POST /part/{part}/retry", middleware.RequireTrainee(middleware.CSRFProtect(clozeHandler.RetryPart)))
	mux.HandleFunc("POST /part/{part}/reset", middleware.RequireTrainee(middleware.CSRFProtect(clozeHandler.ResetPart)))

	// Part 3
	mux.HandleFunc("GET /word-formation", middleware.RequireTrainee(wordFormationHandler.Show))
	mux.HandleFunc("POST /word-formation/start", middleware.RateLimit(middleware.RequireTrainee(middleware.CSRFProtect(wordFormationHandler.Start))))
	mux.HandleFunc("POST /word-formation/submit", middleware.RequireTrainee(middleware.CSRFProtect(wordFormationHandler.Submit)))
	mux.HandleFunc("POST /word-formation/advance", middleware.RequireTrainee(middleware.CSRFProtect(wordFormationHandler.Advance)))
	mux.HandleFunc("POST /word-formation/reset", middleware.RequireTrainee(middleware.CSRFProtect(wordFormationHandler.Reset)))

	readiness.MarkReady()
	log.Println("Server ready")

	// Start background cleanup of idle trainees
	go pruneInactiveTrainees(trainer, startLimiter, cfg.CookieDuration)

	// Graceful shutdown on interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopWatching()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// pruneInactiveTrainees periodically drops the in-memory sessions of
// trainees whose cookie would have expired, along with stale rate limit entries
func pruneInactiveTrainees(trainer *service.TrainerService, limiter *security.RateLimiter, maxIdle time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if pruned := trainer.PruneInactive(maxIdle); pruned > 0 {
			log.Printf("Pruned %d inactive trainees", pruned)
		}
		limiter.Prune()
	}
}
