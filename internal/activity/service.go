// Package activity provides high-level logging of the engine's durable
// side effects: annotation writes, achievement unlocks and background
// repair runs. Events are pruned by a retention task, never surfaced as
// errors to the reading flow.
package activity

import (
	"log"

	"github.com/shelfmark/shelfmark/internal/database/activity"
	"github.com/shelfmark/shelfmark/internal/entities"
)

type Service struct {
	repo *activity.Repository
}

func NewService(repo *activity.Repository) *Service {
	return &Service{repo: repo}
}

// LogAsync records an activity event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.ActivityEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log activity event: %v", err)
		}
	}()
}

// LogAnnotation records an annotation create/delete.
func (s *Service) LogAnnotation(userID, bookID uint, action, description string, err error) {
	event := &entities.ActivityEvent{
		UserID:      userID,
		EventType:   entities.ActivityAnnotation,
		Action:      action,
		Description: description,
		BookID:      &bookID,
		Status:      entities.ActivityStatusSuccess,
	}
	if err != nil {
		event.Status = entities.ActivityStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogAchievement records an achievement unlock.
func (s *Service) LogAchievement(userID uint, name string) {
	s.LogAsync(&entities.ActivityEvent{
		UserID:      userID,
		EventType:   entities.ActivityAchievement,
		Action:      "achievement_unlock",
		Description: name,
		Status:      entities.ActivityStatusSuccess,
	})
}

// LogRepair records a background progress repair or reconciliation run.
func (s *Service) LogRepair(action, description string, err error) {
	event := &entities.ActivityEvent{
		EventType:   entities.ActivityRepair,
		Action:      action,
		Description: description,
		Status:      entities.ActivityStatusSuccess,
	}
	if err != nil {
		event.Status = entities.ActivityStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
