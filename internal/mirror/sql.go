package mirror

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type entry struct {
	Key   string `gorm:"column:mirror_key;primaryKey;type:varchar(255)"`
	Value string `gorm:"type:text;not null"`
}

func (entry) TableName() string { return "mirror_entries" }

// SQLStorage persists items in a database table so they survive restarts.
type SQLStorage struct {
	db *gorm.DB
}

// NewSQLStorage creates the storage and migrates its table.
func NewSQLStorage(db *gorm.DB) (*SQLStorage, error) {
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate mirror_entries: %w", err)
	}
	return &SQLStorage{db: db}, nil
}

func (s *SQLStorage) GetItem(key string) (string, bool, error) {
	var e entry
	if err := s.db.First(&e, "mirror_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read mirror key %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (s *SQLStorage) SetItem(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mirror_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("failed to write mirror key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) RemoveItem(key string) error {
	if err := s.db.Delete(&entry{}, "mirror_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to remove mirror key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) Clear() error {
	if err := s.db.Where("1 = 1").Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("failed to clear mirror: %w", err)
	}
	return nil
}
