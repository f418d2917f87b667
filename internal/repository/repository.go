package repository

import (
	"tabletop_web/internal/repository/models"
	"tabletop_web/internal/storage"
)

type Repositories struct {
	Document DocumentRepository
}

func NewRepositories(db *storage.DB) *Repositories {
	return &Repositories{
		Document: NewDocumentRepository(db),
	}
}

// Migrate 建立文件儲存需要的資料表
func Migrate(db *storage.DB) error {
	return db.AutoMigrate(&models.Database{}, &models.Document{})
}
