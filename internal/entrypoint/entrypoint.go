package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	activityservice "github.com/shelfmark/shelfmark/internal/activity"
	"github.com/shelfmark/shelfmark/internal/clock"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/contentsource"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/database/activity"
	"github.com/shelfmark/shelfmark/internal/database/annotations"
	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/database/profiles"
	"github.com/shelfmark/shelfmark/internal/database/progress"
	"github.com/shelfmark/shelfmark/internal/database/sessions"
	"github.com/shelfmark/shelfmark/internal/gamification"
	http_controllers "github.com/shelfmark/shelfmark/internal/http"
	"github.com/shelfmark/shelfmark/internal/navigation"
	"github.com/shelfmark/shelfmark/internal/reader"
	"github.com/shelfmark/shelfmark/internal/scheduler"
	"github.com/shelfmark/shelfmark/internal/tasks"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first so open sessions flush their pending
	// progress writes before the server stops accepting work.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfmark v%s", version)

	if cfg.Content.LibraryDir == "" {
		log.Fatalf("Library directory is not set")
		return
	}
	if _, err := os.Stat(cfg.Content.LibraryDir); os.IsNotExist(err) {
		log.Fatalf("Library directory %s does not exist", cfg.Content.LibraryDir)
		return
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	bookRepo := books.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)
	annotationRepo := annotations.NewRepository(db.DB)
	sessionRepo := sessions.NewRepository(db.DB)
	profileRepo := profiles.NewRepository(db.DB)
	activityRepo := activity.NewRepository(db.DB)

	activityService := activityservice.NewService(activityRepo)

	// Content source for document files and signed URLs
	contentSource, err := contentsource.NewLocal(cfg.Content.LibraryDir, cfg.Content.SigningKey, cfg.Content.URLTTL)
	if err != nil {
		log.Fatalf("Failed to initialize content source: %v", err)
	}

	// Position tracker with debounced dual writes
	trk := tracker.New(progressRepo, bookRepo, cfg.Tracker.DebounceWindow)
	defer trk.Close()

	// Reading session manager and navigation
	manager := reader.NewManager(bookRepo, progressRepo, trk, contentSource, cfg.Gamification.HistoryDepth)
	navigator := navigation.NewCoordinator(manager, annotationRepo)

	// Gamification engine
	engine := gamification.NewEngine(
		sessionRepo,
		profileRepo,
		trk,
		activityService,
		clock.NewSystem(),
		cfg.Gamification.XPPerMinute,
		cfg.Gamification.TickMinutes,
	)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewRepairProgressQueue(bookRepo),
			tasks.NewCleanupActivityEventsQueue(activityRepo),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		// Failed denormalized writes get retried out-of-band
		trk.SetRepairEnqueuer(&tasks.ProgressRepairEnqueuer{Client: taskClient})

		// Kick off activity retention enforcement once per process start
		_, err = taskClient.Add(tasks.CleanupActivityEventsTask{RetentionDays: cfg.Activity.RetentionDays}).Save()
		if err != nil {
			log.Printf("Failed to enqueue activity cleanup: %v", err)
		}
	}

	// Nightly drift reconciliation
	reconciler := scheduler.NewReconcileScheduler(progressRepo, bookRepo, activityService, scheduler.Config{
		Enabled:  cfg.Reconcile.Enabled,
		Schedule: cfg.Reconcile.Schedule,
	})
	if err := reconciler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start reconcile scheduler: %v", err)
	}

	// Token auth is opt-in; the default is single-user mode where every
	// request acts as the default user.
	var users http_controllers.UserResolver
	if cfg.Auth.Mode == config.AuthModeToken {
		log.Printf("Authentication mode: token")
		users = db
	} else {
		log.Printf("Authentication mode: none (single-user)")
	}

	// Build router configuration with all dependencies
	routerCfg := http_controllers.RouterConfig{
		Database:        db,
		Books:           bookRepo,
		Progress:        progressRepo,
		Manager:         manager,
		Tracker:         trk,
		Navigator:       navigator,
		Annotations:     annotationRepo,
		Engine:          engine,
		Profiles:        profileRepo,
		Sessions:        sessionRepo,
		ContentSource:   contentSource,
		ActivityService: activityService,
		ActivityStore:   activityRepo,
		Users:           users,
		Version:         version,
	}

	router := http_controllers.NewRouter(routerCfg)

	Serve(router, cfg, func(ctx context.Context) {
		// Close sessions first: that flushes pending position writes.
		manager.CloseAll()
		reconciler.Stop()

		if taskClient != nil {
			taskClient.Stop(ctx)
			if taskCtxCancel != nil {
				taskCtxCancel()
			}
		}
	})
}
