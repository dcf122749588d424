package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Tracker
		Gamification
		Content
		Tasks
		Reconcile
		Activity
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Tracker struct {
		DebounceWindow time.Duration // trailing-edge coalescing window for position writes
	}
	Gamification struct {
		TickMinutes  int // minutes credited per heartbeat tick
		XPPerMinute  int
		HistoryDepth int // visit-history ring buffer capacity
	}
	Content struct {
		LibraryDir string        // root directory holding document files
		URLTTL     time.Duration // lifetime of signed content URLs
		SigningKey string        // HMAC key; auto-generated when empty
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Reconcile struct {
		Enabled  bool
		Schedule string // cron format: "30 3 * * *" = nightly at 03:30
	}
	Activity struct {
		RetentionDays int
	}
	Auth struct {
		Mode string // "none" for single-user, "token" for bearer tokens
	}
)

const (
	AuthModeNone  = "none"
	AuthModeToken = "token"
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8288)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Position tracker defaults
	v.SetDefault("tracker_debounce_window", "1500ms")

	// Gamification defaults
	v.SetDefault("gamification_tick_minutes", 1)
	v.SetDefault("gamification_xp_per_minute", 1)
	v.SetDefault("navigation_history_depth", DefaultHistoryDepth)

	// Content source defaults
	v.SetDefault("content_library_dir", "./library")
	v.SetDefault("content_url_ttl", "15m")
	v.SetDefault("content_signing_key", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Progress reconciliation defaults
	v.SetDefault("reconcile_enabled", true)
	v.SetDefault("reconcile_schedule", "30 3 * * *") // Nightly at 03:30

	// Activity log defaults
	v.SetDefault("activity_retention_days", 90)

	// Auth defaults
	v.SetDefault("auth_mode", AuthModeNone)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Tracker: Tracker{
			DebounceWindow: v.GetDuration("TRACKER_DEBOUNCE_WINDOW"),
		},
		Gamification: Gamification{
			TickMinutes:  v.GetInt("GAMIFICATION_TICK_MINUTES"),
			XPPerMinute:  v.GetInt("GAMIFICATION_XP_PER_MINUTE"),
			HistoryDepth: v.GetInt("NAVIGATION_HISTORY_DEPTH"),
		},
		Content: Content{
			LibraryDir: v.GetString("CONTENT_LIBRARY_DIR"),
			URLTTL:     v.GetDuration("CONTENT_URL_TTL"),
			SigningKey: v.GetString("CONTENT_SIGNING_KEY"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Reconcile: Reconcile{
			Enabled:  v.GetBool("RECONCILE_ENABLED"),
			Schedule: v.GetString("RECONCILE_SCHEDULE"),
		},
		Activity: Activity{
			RetentionDays: v.GetInt("ACTIVITY_RETENTION_DAYS"),
		},
		Auth: Auth{
			Mode: v.GetString("AUTH_MODE"),
		},
	}
}
