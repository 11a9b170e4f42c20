package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is the row type of the gorm backend.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Entry) TableName() string {
	return "gradeflow_kv"
}

// GormStore is a KeyValue backed by a SQL database.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) a sqlite database file.
func OpenSQLite(path string) (*GormStore, error) {
	return openGorm(sqlite.Open(path))
}

// OpenPostgres connects to postgres with a DSN or URL.
func OpenPostgres(dsn string) (*GormStore, error) {
	return openGorm(postgres.Open(dsn))
}

func openGorm(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening store database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore uses an existing connection, migrating the table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating store table: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	var e Entry
	if err := s.db.WithContext(ctx).First(&e, "entry_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading %q: %w", key, err)
	}
	return e.Value, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Delete(&Entry{}, "entry_key = ?", key)
	if res.Error != nil {
		return fmt.Errorf("deleting %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("entry_key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("entry_key").
		Pluck("entry_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
