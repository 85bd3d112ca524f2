package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/huanlingzx/gemini-key/internal/config"
	"github.com/huanlingzx/gemini-key/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Service defines the persistence operations on key records.
type Service interface {
	FindKeyRecord(key string) (*model.KeyRecord, error)
	UpsertKeyRecord(key string, status model.Status, message *string) (*model.KeyRecord, error)
	ListKeyRecords(limit int) ([]model.KeyRecord, error)
	ListKeyRecordsByStatus(statuses ...model.Status) ([]model.KeyRecord, error)
	DeleteKeyRecordsByStatus(statuses ...model.Status) (int64, error)
	CountKeyRecords() (int64, error)
	GetDB() *gorm.DB
	Close() error
}

// newGormLogger logs slow queries and failures. A missing record is an
// expected lookup result and is not logged.
func newGormLogger(w io.Writer) logger.Interface {
	return logger.New(
		log.New(w, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type gormService struct {
	db *gorm.DB
}

// NewService initializes the database connection based on the provided configuration.
func NewService(cfg config.DatabaseConfig) (Service, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(os.Stdout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if cfg.Type == "sqlite" {
		// A single connection keeps in-memory databases coherent and serializes writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&model.KeyRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &gormService{db: db}, nil
}

// GetDB exposes the underlying connection, mainly for tests.
func (s *gormService) GetDB() *gorm.DB {
	return s.db
}

func (s *gormService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindKeyRecord looks a record up by its key string. It returns gorm.ErrRecordNotFound when absent.
func (s *gormService) FindKeyRecord(key string) (*model.KeyRecord, error) {
	var record model.KeyRecord
	if err := s.db.Where("key_string = ?", key).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertKeyRecord updates the record for key in place, or inserts it if it does not exist yet.
func (s *gormService) UpsertKeyRecord(key string, status model.Status, message *string) (*model.KeyRecord, error) {
	now := time.Now()
	existing, err := s.FindKeyRecord(key)
	switch {
	case err == nil:
		result := s.db.Model(existing).Updates(map[string]interface{}{
			"status":            status,
			"error_message":     message,
			"last_validated_at": now,
		})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update key record %d: %w", existing.ID, result.Error)
		}
		existing.Status = status
		existing.ErrorMessage = message
		existing.LastValidatedAt = now
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		record := &model.KeyRecord{
			KeyString:       key,
			Status:          status,
			ErrorMessage:    message,
			LastValidatedAt: now,
		}
		if err := s.db.Create(record).Error; err != nil {
			return nil, fmt.Errorf("failed to create key record: %w", err)
		}
		return record, nil
	default:
		return nil, fmt.Errorf("failed to look up key record: %w", err)
	}
}

// ListKeyRecords returns records newest first. A limit of 0 or less returns all of them.
func (s *gormService) ListKeyRecords(limit int) ([]model.KeyRecord, error) {
	records := []model.KeyRecord{}
	query := s.db.Order("created_at desc").Order("id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list key records: %w", err)
	}
	return records, nil
}

func (s *gormService) ListKeyRecordsByStatus(statuses ...model.Status) ([]model.KeyRecord, error) {
	records := []model.KeyRecord{}
	if len(statuses) == 0 {
		return records, nil
	}
	err := s.db.Where("status IN ?", statuses).Order("created_at desc").Order("id desc").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list key records by status %s: %w", joinStatuses(statuses), err)
	}
	return records, nil
}

// DeleteKeyRecordsByStatus permanently removes every record in one of the given statuses.
func (s *gormService) DeleteKeyRecordsByStatus(statuses ...model.Status) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	result := s.db.Where("status IN ?", statuses).Delete(&model.KeyRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete key records by status %s: %w", joinStatuses(statuses), result.Error)
	}
	return result.RowsAffected, nil
}

func (s *gormService) CountKeyRecords() (int64, error) {
	var count int64
	if err := s.db.Model(&model.KeyRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count key records: %w", err)
	}
	return count, nil
}

func joinStatuses(statuses []model.Status) string {
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		parts[i] = string(st)
	}
	return strings.Join(parts, ",")
}
