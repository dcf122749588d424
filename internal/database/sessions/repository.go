// Package sessions persists daily reading sessions.
//
// At most one row exists per (user, book, date); raw ticks on the same
// day collapse into that row by accumulation. Prior days are never
// touched again; the next day's first tick starts a fresh row.
package sessions

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Repository handles reading-session database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AccumulateTick folds one reading tick into the day's session: the
// first tick of the day creates the row, subsequent ticks increment the
// duration and widen the position bounds min/max by progress percent.
// Returns the session row after the tick is applied.
func (r *Repository) AccumulateTick(userID, bookID uint, date string, minutes int, pos entities.ReadingPosition) (*entities.ReadingSession, error) {
	var session entities.ReadingSession
	err := r.db.Where("user_id = ? AND book_id = ? AND date = ?", userID, bookID, date).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		session = entities.ReadingSession{
			UserID:          userID,
			BookID:          bookID,
			Date:            date,
			DurationMinutes: minutes,
			StartPosition:   pos,
			EndPosition:     pos,
		}
		createErr := r.db.Create(&session).Error
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			// A concurrent tick created the row first; fold into it.
			return r.AccumulateTick(userID, bookID, date, minutes, pos)
		}
		if createErr != nil {
			return nil, createErr
		}
		return &session, nil
	}
	if err != nil {
		return nil, err
	}

	session.DurationMinutes += minutes
	if !pos.IsZero() {
		if session.StartPosition.IsZero() || pos.ProgressPercent < session.StartPosition.ProgressPercent {
			session.StartPosition = pos
		}
		if session.EndPosition.IsZero() || pos.ProgressPercent > session.EndPosition.ProgressPercent {
			session.EndPosition = pos
		}
	}
	if err := r.db.Save(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession returns the session for one (user, book, date), or
// gorm.ErrRecordNotFound.
func (r *Repository) GetSession(userID, bookID uint, date string) (*entities.ReadingSession, error) {
	var session entities.ReadingSession
	err := r.db.Where("user_id = ? AND book_id = ? AND date = ?", userID, bookID, date).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionsForUser returns sessions within the inclusive date range,
// newest day first.
func (r *Repository) GetSessionsForUser(userID uint, fromDate, toDate string) ([]entities.ReadingSession, error) {
	var sessionList []entities.ReadingSession
	query := r.db.Where("user_id = ?", userID)
	if fromDate != "" {
		query = query.Where("date >= ?", fromDate)
	}
	if toDate != "" {
		query = query.Where("date <= ?", toDate)
	}
	err := query.Order("date DESC, book_id ASC").Find(&sessionList).Error
	return sessionList, err
}

// TotalMinutesForUser sums reading time across all of the user's
// sessions. Used for the accumulated-minutes achievement.
func (r *Repository) TotalMinutesForUser(userID uint) (int, error) {
	var total int64
	err := r.db.Model(&entities.ReadingSession{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Scan(&total).Error
	return int(total), err
}
