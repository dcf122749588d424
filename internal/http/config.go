package http

import (
	activityservice "github.com/shelfmark/shelfmark/internal/activity"
	"github.com/shelfmark/shelfmark/internal/contentsource"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/database/activity"
	"github.com/shelfmark/shelfmark/internal/database/annotations"
	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/database/profiles"
	"github.com/shelfmark/shelfmark/internal/database/progress"
	"github.com/shelfmark/shelfmark/internal/database/sessions"
	"github.com/shelfmark/shelfmark/internal/gamification"
	"github.com/shelfmark/shelfmark/internal/navigation"
	"github.com/shelfmark/shelfmark/internal/reader"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// RouterConfig contains all dependencies needed to create the HTTP
// router, replacing a long parameter list in NewRouter.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Books    *books.Repository
	Progress *progress.Repository

	// Reading session machinery
	Manager   *reader.Manager
	Tracker   *tracker.Tracker
	Navigator *navigation.Coordinator

	// Annotations
	Annotations *annotations.Repository

	// Gamification
	Engine   *gamification.Engine
	Profiles *profiles.Repository
	Sessions *sessions.Repository

	// Content delivery
	ContentSource contentsource.Source

	// Activity feed
	ActivityService *activityservice.Service
	ActivityStore   *activity.Repository

	// Authentication; nil runs the server in single-user mode
	Users UserResolver

	// Application info
	Version string
}
