package storage

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tabletop_web/pkg/config"
)

// NewSQLiteDB 開啟 sqlite 資料庫，只保留一條連線以避免 SQLITE_BUSY
func NewSQLiteDB(dsn string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &DB{DB: db}, nil
}

// Open 依設定選擇資料庫驅動
func Open(cfg config.DBConfig) (*DB, error) {
	switch cfg.Driver {
	case "", "postgres":
		return NewPostgresDB(cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)
	case "sqlite":
		return NewSQLiteDB(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
