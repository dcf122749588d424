package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/gamification"
)

// ProfileStore defines profile and achievement reads for the API.
type ProfileStore interface {
	GetOrCreateProfile(userID uint) (*entities.Profile, error)
	GetAllAchievements() ([]entities.Achievement, error)
	GetUnlocksForUser(userID uint) ([]entities.AchievementUnlock, error)
	MarkNotified(userID uint, name string) error
}

// SessionStore defines reading-session reads for the API.
type SessionStore interface {
	GetSessionsForUser(userID uint, fromDate, toDate string) ([]entities.ReadingSession, error)
	TotalMinutesForUser(userID uint) (int, error)
}

type GamificationController struct {
	engine   *gamification.Engine
	profiles ProfileStore
	sessions SessionStore
}

func NewGamificationController(engine *gamification.Engine, profiles ProfileStore, sessions SessionStore) *GamificationController {
	return &GamificationController{engine: engine, profiles: profiles, sessions: sessions}
}

type tickRequest struct {
	Minutes int `json:"minutes,omitempty"`
}

// Tick credits reading time for an open book. Persistence failures are
// absorbed: reading must never be interrupted by gamification, so the
// response is success-shaped either way and only Recorded tells the
// client whether the tick landed.
// POST /api/books/:id/tick
func (gc *GamificationController) Tick(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req tickRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid tick request")
			return
		}
	}

	result, err := gc.engine.Tick(GetUserID(c), bookID, req.Minutes)
	if err != nil {
		log.Printf("Reading tick dropped for book %d: %v", bookID, err)
		c.JSON(http.StatusOK, gin.H{"recorded": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recorded":   true,
		"session":    result.Session,
		"profile":    result.Profile,
		"leveled_up": result.LeveledUp,
		"unlocked":   result.Unlocked,
	})
}

// GetProfile returns the user's streak, XP and level state.
// GET /api/gamification/profile
func (gc *GamificationController) GetProfile(c *gin.Context) {
	profile, err := gc.profiles.GetOrCreateProfile(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "get profile")
		return
	}

	total, err := gc.sessions.TotalMinutesForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "total minutes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":          profile,
		"total_minutes":    total,
		"xp_to_next_level": gamification.XPToNextLevel(profile.TotalXP),
	})
}

// GetSessions returns reading sessions in an optional date range.
// GET /api/gamification/sessions
func (gc *GamificationController) GetSessions(c *gin.Context) {
	sessions, err := gc.sessions.GetSessionsForUser(GetUserID(c), c.Query("from"), c.Query("to"))
	if err != nil {
		respondInternalError(c, err, "list sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": len(sessions)})
}

type achievementView struct {
	entities.Achievement
	Unlocked   bool   `json:"unlocked"`
	Notified   bool   `json:"notified"`
	UnlockedAt string `json:"unlocked_at,omitempty"`
}

// GetAchievements returns the catalog annotated with the user's unlock
// and notification state.
// GET /api/gamification/achievements
func (gc *GamificationController) GetAchievements(c *gin.Context) {
	catalog, err := gc.profiles.GetAllAchievements()
	if err != nil {
		respondInternalError(c, err, "list achievements")
		return
	}
	unlocks, err := gc.profiles.GetUnlocksForUser(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list unlocks")
		return
	}

	byName := make(map[string]entities.AchievementUnlock, len(unlocks))
	for _, unlock := range unlocks {
		byName[unlock.Name] = unlock
	}

	views := make([]achievementView, 0, len(catalog))
	for _, achievement := range catalog {
		view := achievementView{Achievement: achievement}
		if unlock, ok := byName[achievement.Name]; ok {
			view.Unlocked = true
			view.Notified = unlock.Notified
			view.UnlockedAt = unlock.CreatedAt.Format(time.RFC3339)
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"achievements": views})
}

// MarkNotified sets the durable notified flag so the unlock toast is
// shown exactly once across devices.
// POST /api/gamification/achievements/:name/notified
func (gc *GamificationController) MarkNotified(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		respondBadRequest(c, "achievement name is required")
		return
	}

	err := gc.profiles.MarkNotified(GetUserID(c), name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "achievement unlock")
		return
	}
	if err != nil {
		respondInternalError(c, err, "mark notified")
		return
	}
	respondSuccess(c, "marked notified")
}

type awardXPRequest struct {
	Amount int `json:"amount" binding:"required"`
}

// AwardXP grants a one-off XP bonus.
// POST /api/gamification/xp
func (gc *GamificationController) AwardXP(c *gin.Context) {
	var req awardXPRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		respondBadRequest(c, "amount must be a positive integer")
		return
	}

	profile, err := gc.engine.AwardXP(GetUserID(c), req.Amount)
	if err != nil {
		respondInternalError(c, err, "award xp")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
