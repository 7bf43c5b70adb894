package contentdb

import (
	"context"
	"errors"
	"fmt"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Content is the content-store row. Only status and scheduled_at are written here.
type Content struct {
	ID          string     `gorm:"primaryKey;type:text"`
	UserID      string     `gorm:"index;not null"`
	Platform    string     `gorm:"type:text;not null"`
	Body        string     `gorm:"type:text;not null;default:''"`
	Status      string     `gorm:"index;not null;default:'draft'"`
	ScheduledAt *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Content) TableName() string { return "contents" }

func Open(driver, dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch driver {
	case "postgres":
		dial = postgres.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&Content{})
}

type Store struct {
	DB *gorm.DB
}

var _ ports.ContentStore = (*Store)(nil)

func (s *Store) Get(ctx context.Context, contentID string) (*domain.Content, error) {
	var row Content
	if err := s.DB.WithContext(ctx).Where("id = ?", contentID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrContentNotFound, contentID)
		}
		return nil, fmt.Errorf("load content %s: %w", contentID, err)
	}

	return &domain.Content{
		ID:          row.ID,
		UserID:      row.UserID,
		Platform:    domain.Platform(row.Platform),
		Body:        row.Body,
		Status:      domain.ContentStatus(row.Status),
		ScheduledAt: row.ScheduledAt,
	}, nil
}

// SetStatus writes status and scheduled_at; a nil scheduledAt clears the column.
func (s *Store) SetStatus(ctx context.Context, contentID string, status domain.ContentStatus, scheduledAt *time.Time) error {
	res := s.DB.WithContext(ctx).Model(&Content{}).
		Where("id = ?", contentID).
		Updates(map[string]any{
			"status":       string(status),
			"scheduled_at": scheduledAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("set content %s status: %w", contentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrContentNotFound, contentID)
	}
	return nil
}
