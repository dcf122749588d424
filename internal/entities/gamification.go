package entities

import "time"

// ReadingSession is one logical block of reading time for a book on a
// calendar day. Multiple raw ticks on the same day collapse into one row
// by accumulation; once the day rolls over the row is immutable history.
type ReadingSession struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserID          uint   `gorm:"uniqueIndex:idx_user_book_date" json:"user_id"`
	BookID          uint   `gorm:"uniqueIndex:idx_user_book_date" json:"book_id"`
	Date            string `gorm:"size:10;uniqueIndex:idx_user_book_date" json:"date"` // YYYY-MM-DD, reader-local
	DurationMinutes int    `json:"duration_minutes"`

	// Best-known position bounds reached during the day. Widened min/max
	// by progress percent on every tick, never replaced backwards.
	StartPosition ReadingPosition `gorm:"embedded;embeddedPrefix:start_" json:"start_position"`
	EndPosition   ReadingPosition `gorm:"embedded;embeddedPrefix:end_" json:"end_position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile carries the user-level streak and XP state. It is written by a
// single active reading session at a time; the incremental streak update
// is not safe under concurrent writers from two devices on the same day.
type Profile struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UserID        uint   `gorm:"uniqueIndex" json:"user_id"`
	TotalXP       int    `json:"total_xp"`
	CurrentLevel  int    `json:"current_level"`
	CurrentStreak int    `json:"current_streak"`
	HighestStreak int    `json:"highest_streak"`
	LastReadDate  string `gorm:"size:10" json:"last_read_date,omitempty"` // YYYY-MM-DD

	UpdatedAt time.Time `json:"updated_at"`
}

// Achievement is a seeded catalog row describing an unlockable badge and
// its fixed XP bonus.
type Achievement struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:50" json:"name"`
	Title       string `gorm:"size:100" json:"title"`
	Description string `gorm:"size:256" json:"description,omitempty"`
	XPBonus     int    `json:"xp_bonus"`
}

// AchievementUnlock records that a user earned an achievement. The
// (user, name) uniqueness constraint is what makes concurrent unlock
// attempts collapse to a single row: the race loser's insert fails and is
// treated as a no-op. Notified is durable so the "new achievement" toast
// is shown once across devices, not tracked in client storage.
type AchievementUnlock struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"uniqueIndex:idx_user_achievement" json:"user_id"`
	Name     string `gorm:"uniqueIndex:idx_user_achievement;size:50" json:"name"`
	Notified bool   `gorm:"default:false" json:"notified"`

	CreatedAt time.Time `json:"created_at"`
}

func (ReadingSession) TableName() string {
	return "reading_sessions"
}

func (Profile) TableName() string {
	return "profiles"
}

func (Achievement) TableName() string {
	return "achievements"
}

func (AchievementUnlock) TableName() string {
	return "achievement_unlocks"
}
