package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	if driver == "postgres" {
		gormDialector = postgres.Open(dsn)
	} else if driver == "sqlite" {
		gormDialector = sqlite.Open(dsn)
	} else {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&RateSnapshot{},
		&HistoricalRate{},
		&Setting{},
		&ScheduledJob{},
	)
}

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) LatestSnapshot(ctx context.Context) (*RateSnapshot, error) {
	var snap RateSnapshot
	err := s.db.WithContext(ctx).Order("captured_at DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *GormStorage) SaveSnapshot(ctx context.Context, snap RateSnapshot) error {
	return s.db.WithContext(ctx).Create(&snap).Error
}

func (s *GormStorage) GetHistoricalRate(ctx context.Context, date string) (*HistoricalRate, error) {
	var rec HistoricalRate
	err := s.db.WithContext(ctx).Where("date = ?", date).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStorage) SaveHistoricalRate(ctx context.Context, rec HistoricalRate) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (s *GormStorage) PruneHistoricalRates(ctx context.Context, before string) error {
	return s.db.WithContext(ctx).Where("date < ?", before).Delete(&HistoricalRate{}).Error
}

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&Setting{Key: key, Value: value, UpdatedAt: time.Now()}).Error
}

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, runAt time.Time, dur time.Duration, success bool, errMsg string) error {
	ok := 0
	if success {
		ok = 1
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&ScheduledJob{
		Name:           name,
		LastRunAt:      runAt,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    ok,
		LastError:      errMsg,
	}).Error
}
