// Package gamification turns reading time into sessions, streaks, XP
// and achievements. One tick per elapsed reading minute drives the
// whole pipeline; everything derived from it is recomputed
// incrementally, never by scanning history.
package gamification

import (
	"errors"
	"fmt"
	"log"

	"github.com/shelfmark/shelfmark/internal/clock"
	"github.com/shelfmark/shelfmark/internal/database/profiles"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// Seeded achievement names. The catalog rows live in the database,
// these are the keys the engine's checks refer to.
const (
	AchievementFirstSession = "first_session"
	AchievementStreak7      = "streak_7"
	AchievementStreak30     = "streak_30"
	AchievementMinutes600   = "minutes_600"
	AchievementLevel5       = "level_5"
)

// totalMinutesThreshold is the lifetime reading time behind minutes_600.
const totalMinutesThreshold = 600

// SessionStore is the subset of the sessions repository the engine uses.
type SessionStore interface {
	AccumulateTick(userID, bookID uint, date string, minutes int, pos entities.ReadingPosition) (*entities.ReadingSession, error)
	TotalMinutesForUser(userID uint) (int, error)
}

// ProfileStore is the subset of the profiles repository the engine uses.
type ProfileStore interface {
	GetOrCreateProfile(userID uint) (*entities.Profile, error)
	SaveProfile(profile *entities.Profile) error
	UnlockAchievement(userID uint, name string) (*entities.AchievementUnlock, error)
	GetAchievement(name string) (*entities.Achievement, error)
}

// PositionSource yields the freshest known position for a user and
// book, so ticks can stamp the session bounds without waiting for the
// debounced persistence cycle.
type PositionSource interface {
	Current(userID, bookID uint) (entities.ReadingPosition, bool)
}

// ActivityLog records unlocked achievements in the activity feed.
type ActivityLog interface {
	LogAchievement(userID uint, name string)
}

// TickResult is everything a single reading tick changed.
type TickResult struct {
	Session   *entities.ReadingSession `json:"session"`
	Profile   *entities.Profile        `json:"profile"`
	LeveledUp bool                     `json:"leveled_up"`
	Unlocked  []string                 `json:"unlocked,omitempty"`
}

type Engine struct {
	sessions  SessionStore
	profiles  ProfileStore
	positions PositionSource
	activity  ActivityLog
	clock     clock.Clock

	xpPerMinute int
	tickMinutes int
}

func NewEngine(sessions SessionStore, profiles ProfileStore, positions PositionSource, activity ActivityLog, clk clock.Clock, xpPerMinute, tickMinutes int) *Engine {
	if xpPerMinute <= 0 {
		xpPerMinute = 1
	}
	if tickMinutes <= 0 {
		tickMinutes = 1
	}
	return &Engine{
		sessions:    sessions,
		profiles:    profiles,
		positions:   positions,
		activity:    activity,
		clock:       clk,
		xpPerMinute: xpPerMinute,
		tickMinutes: tickMinutes,
	}
}

// Tick credits minutes of reading for a book: it folds the time into
// today's session row, advances the streak, awards XP and checks
// achievements. Safe to call repeatedly; each call only adds.
func (e *Engine) Tick(userID, bookID uint, minutes int) (*TickResult, error) {
	if minutes <= 0 {
		minutes = e.tickMinutes
	}
	today := e.clock.Today()

	pos, _ := e.positions.Current(userID, bookID)
	session, err := e.sessions.AccumulateTick(userID, bookID, today, minutes, pos)
	if err != nil {
		return nil, fmt.Errorf("accumulate reading tick: %w", err)
	}

	profile, err := e.profiles.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}
	levelBefore := profile.CurrentLevel

	e.advanceStreak(profile, today)
	profile.TotalXP += minutes * e.xpPerMinute

	unlocked := e.checkAchievements(profile, userID)

	profile.CurrentLevel = LevelFor(profile.TotalXP)
	if profile.CurrentLevel >= 5 {
		if e.unlock(profile, userID, AchievementLevel5) {
			unlocked = append(unlocked, AchievementLevel5)
			profile.CurrentLevel = LevelFor(profile.TotalXP)
		}
	}

	if err := e.profiles.SaveProfile(profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return &TickResult{
		Session:   session,
		Profile:   profile,
		LeveledUp: profile.CurrentLevel > levelBefore,
		Unlocked:  unlocked,
	}, nil
}

// AwardXP grants XP outside the tick path, for one-off bonuses.
func (e *Engine) AwardXP(userID uint, amount int) (*entities.Profile, error) {
	if amount <= 0 {
		return nil, errors.New("xp amount must be positive")
	}
	profile, err := e.profiles.GetOrCreateProfile(userID)
	if err != nil {
		return nil, err
	}
	profile.TotalXP += amount
	profile.CurrentLevel = LevelFor(profile.TotalXP)
	if profile.CurrentLevel >= 5 {
		if e.unlock(profile, userID, AchievementLevel5) {
			profile.CurrentLevel = LevelFor(profile.TotalXP)
		}
	}
	if err := e.profiles.SaveProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// advanceStreak applies the day delta between the last recorded reading
// day and today. Same day keeps the streak, the next day extends it,
// any gap resets it to one.
func (e *Engine) advanceStreak(profile *entities.Profile, today string) {
	switch {
	case profile.LastReadDate == "":
		profile.CurrentStreak = 1
	case profile.LastReadDate == today:
		// already counted today
	case clock.DaysBetween(profile.LastReadDate, today) == 1:
		profile.CurrentStreak++
	default:
		profile.CurrentStreak = 1
	}
	if profile.CurrentStreak > profile.HighestStreak {
		profile.HighestStreak = profile.CurrentStreak
	}
	profile.LastReadDate = today
}

func (e *Engine) checkAchievements(profile *entities.Profile, userID uint) []string {
	var unlocked []string
	try := func(name string, earned bool) {
		if earned && e.unlock(profile, userID, name) {
			unlocked = append(unlocked, name)
		}
	}

	try(AchievementFirstSession, true)
	try(AchievementStreak7, profile.CurrentStreak >= 7)
	try(AchievementStreak30, profile.CurrentStreak >= 30)

	total, err := e.sessions.TotalMinutesForUser(userID)
	if err != nil {
		log.Printf("failed to total reading minutes for user %d: %v", userID, err)
	} else {
		try(AchievementMinutes600, total >= totalMinutesThreshold)
	}
	return unlocked
}

// unlock attempts the conditional insert for an achievement. Losing the
// uniqueness race, or having unlocked it on an earlier tick, is a
// success-equivalent no-op. The catalog's XP bonus is folded into the
// profile on a genuine first unlock.
func (e *Engine) unlock(profile *entities.Profile, userID uint, name string) bool {
	_, err := e.profiles.UnlockAchievement(userID, name)
	if errors.Is(err, profiles.ErrAlreadyUnlocked) {
		return false
	}
	if err != nil {
		log.Printf("failed to unlock achievement %s for user %d: %v", name, userID, err)
		return false
	}

	if badge, err := e.profiles.GetAchievement(name); err != nil {
		log.Printf("achievement %s missing from catalog: %v", name, err)
	} else if badge != nil {
		profile.TotalXP += badge.XPBonus
	}
	if e.activity != nil {
		e.activity.LogAchievement(userID, name)
	}
	return true
}
