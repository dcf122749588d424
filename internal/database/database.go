package database

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// defaultAchievements is the seeded catalog. The engine evaluates the
// unlock criteria; rows here only carry display data and the XP bonus.
var defaultAchievements = []entities.Achievement{
	{Name: "first_session", Title: "First Steps", Description: "Record your first reading session", XPBonus: 10},
	{Name: "streak_7", Title: "One Week Wonder", Description: "Read on 7 consecutive days", XPBonus: 50},
	{Name: "streak_30", Title: "Habit Formed", Description: "Read on 30 consecutive days", XPBonus: 250},
	{Name: "minutes_600", Title: "Ten Hours In", Description: "Accumulate 600 minutes of reading", XPBonus: 100},
	{Name: "level_5", Title: "Seasoned Reader", Description: "Reach level 5", XPBonus: 75},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Uniqueness violations must be distinguishable: achievement
		// unlocks and bookmark upserts rely on gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.BookProgress{},
		&entities.Bookmark{},
		&entities.Highlight{},
		&entities.ReadingSession{},
		&entities.Profile{},
		&entities.Achievement{},
		&entities.AchievementUnlock{},
		&entities.ActivityEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedAchievements(); err != nil {
		return nil, fmt.Errorf("failed to seed achievements: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedAchievements() error {
	for _, achievement := range defaultAchievements {
		var existing entities.Achievement
		result := d.DB.Where("name = ?", achievement.Name).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&achievement).Error; err != nil {
				return fmt.Errorf("failed to create achievement %s: %w", achievement.Name, err)
			}
		}
	}
	return nil
}

func (d *Database) CreateUser(username, email string) (*entities.User, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	user := &entities.User{
		Username: username,
		Email:    email,
		Token:    token,
	}

	if err := d.DB.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

func (d *Database) GetUserByToken(token string) (*entities.User, error) {
	var user entities.User
	err := d.DB.Where("token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := d.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
