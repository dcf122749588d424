package entities

import "time"

type ActivityType string

const (
	ActivityAnnotation  ActivityType = "annotation"
	ActivityAchievement ActivityType = "achievement"
	ActivityReconcile   ActivityType = "reconcile"
	ActivityRepair      ActivityType = "repair"
)

type ActivityStatus string

const (
	ActivityStatusSuccess ActivityStatus = "success"
	ActivityStatusFailed  ActivityStatus = "failed"
)

// ActivityEvent is a lightweight, retention-pruned record of the
// engine's side effects: annotation writes, achievement unlocks and
// background repair/reconciliation runs.
type ActivityEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	EventType   ActivityType   `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"` // e.g. "bookmark_toggle", "achievement_unlock"
	Description string         `gorm:"size:500" json:"description"`
	BookID      *uint          `gorm:"index" json:"book_id,omitempty"`
	Status      ActivityStatus `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (ActivityEvent) TableName() string {
	return "activity_events"
}
