// Package storagetest 提供測試用的記憶體 sqlite 資料庫。
package storagetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"

	"tabletop_web/internal/repository/models"
	"tabletop_web/internal/storage"
)

// NewDB 建立一個已遷移的記憶體資料庫，測試結束時關閉
func NewDB(t testing.TB) *storage.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := storage.NewSQLiteDB(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Database{}, &models.Document{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
