package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

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
	"github.com/shelfmark/shelfmark/internal/http"
	"github.com/shelfmark/shelfmark/internal/navigation"
	"github.com/shelfmark/shelfmark/internal/reader"
	"github.com/shelfmark/shelfmark/internal/scheduler"
	"github.com/shelfmark/shelfmark/internal/tasks"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// =============================================================================
// Format Adapters
// =============================================================================

var _ reader.Adapter = (*reader.PageAdapter)(nil)
var _ reader.Adapter = (*reader.FragmentAdapter)(nil)
var _ reader.Adapter = (*reader.OffsetAdapter)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.BookStore = (*books.Repository)(nil)
var _ http.ProgressReader = (*progress.Repository)(nil)
var _ http.AnnotationStore = (*annotations.Repository)(nil)
var _ http.ProfileStore = (*profiles.Repository)(nil)
var _ http.SessionStore = (*sessions.Repository)(nil)
var _ http.ActivityStore = (*activity.Repository)(nil)
var _ http.ContentBookStore = (*books.Repository)(nil)
var _ http.UserResolver = (*database.Database)(nil)
var _ http.SessionPositions = (*reader.Manager)(nil)
var _ http.AnnotationActivityLog = (*activityservice.Service)(nil)

// =============================================================================
// Reading Session Machinery
// =============================================================================

var _ reader.BookStore = (*books.Repository)(nil)
var _ reader.ResumeStore = (*progress.Repository)(nil)
var _ reader.PositionSink = (*tracker.Tracker)(nil)
var _ reader.ContentResolver = (*contentsource.Local)(nil)

var _ tracker.ProgressStore = (*progress.Repository)(nil)
var _ tracker.BookDenormalizer = (*books.Repository)(nil)
var _ tracker.RepairEnqueuer = (*tasks.ProgressRepairEnqueuer)(nil)

var _ navigation.SessionProvider = (*reader.Manager)(nil)
var _ navigation.AnnotationStore = (*annotations.Repository)(nil)

// =============================================================================
// Gamification
// =============================================================================

var _ gamification.SessionStore = (*sessions.Repository)(nil)
var _ gamification.ProfileStore = (*profiles.Repository)(nil)
var _ gamification.PositionSource = (*tracker.Tracker)(nil)
var _ gamification.ActivityLog = (*activityservice.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.BookPercentSetter = (*books.Repository)(nil)
var _ tasks.ActivityEventCleaner = (*activity.Repository)(nil)

var _ scheduler.StaleLister = (*progress.Repository)(nil)
var _ scheduler.BookPercentSetter = (*books.Repository)(nil)
var _ scheduler.RepairLog = (*activityservice.Service)(nil)

// =============================================================================
// Content Delivery
// =============================================================================

var _ contentsource.Source = (*contentsource.Local)(nil)
