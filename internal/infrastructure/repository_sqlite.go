package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/streamline-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteJobRepository implements JobHistoryRepository using SQLite
type SQLiteJobRepository struct {
	db *gorm.DB
}

// NewSQLiteJobRepository creates a new SQLite repository
func NewSQLiteJobRepository(dbPath string) (*SQLiteJobRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.JobRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// Create creates a new record
func (r *SQLiteJobRepository) Create(record *domain.JobRecord) error {
	return r.db.Create(record).Error
}

// Update upserts a record so a failed Create does not lose the outcome
func (r *SQLiteJobRepository) Update(record *domain.JobRecord) error {
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error
}

// MarkDelivered stamps the delivery time of the newest undelivered record owning the artifact
func (r *SQLiteJobRepository) MarkDelivered(artifactName string) error {
	var record domain.JobRecord
	err := r.db.Where("artifact_name = ? AND delivered_at IS NULL", artifactName).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	return r.db.Model(&record).Update("delivered_at", time.Now()).Error
}

// FindRecent returns up to limit records, newest first
func (r *SQLiteJobRepository) FindRecent(limit int) ([]*domain.JobRecord, error) {
	var records []*domain.JobRecord
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// GetStats returns job statistics
func (r *SQLiteJobRepository) GetStats() (*domain.JobStats, error) {
	stats := &domain.JobStats{}

	if err := r.db.Model(&domain.JobRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.JobStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.JobRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.JobRunning:
			stats.Running = sc.Count
		case domain.JobCompleted:
			stats.Completed = sc.Count
		case domain.JobFailed:
			stats.Failed = sc.Count
		case domain.JobCancelled:
			stats.Cancelled = sc.Count
		}
	}

	if err := r.db.Model(&domain.JobRecord{}).
		Where("delivered_at IS NOT NULL").
		Count(&stats.Delivered).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NopJobRepository discards history when persistence is disabled
type NopJobRepository struct{}

func (NopJobRepository) Create(*domain.JobRecord) error { return nil }
func (NopJobRepository) Update(*domain.JobRecord) error { return nil }
func (NopJobRepository) MarkDelivered(string) error { return nil }
func (NopJobRepository) FindRecent(int) ([]*domain.JobRecord, error) {
	return []*domain.JobRecord{}, nil
}
func (NopJobRepository) GetStats() (*domain.JobStats, error) { return &domain.JobStats{}, nil }
