package models

import "time"

// Database 代表一個邏輯資料庫（master 或某個房間）
type Database struct {
	Name      string `gorm:"primaryKey;size:190"`
	CreatedAt time.Time
}

func (Database) TableName() string {
	return "document_databases"
}

// Document 是資料庫中以 key 區分的一份 JSON 文件，Rev 用於樂觀鎖
type Document struct {
	DBName    string `gorm:"column:db_name;primaryKey;size:190"`
	DocKey    string `gorm:"column:doc_key;primaryKey;size:64"`
	Value     string `gorm:"column:value;type:text;not null"`
	Rev       int64  `gorm:"column:rev;not null"`
	UpdatedAt time.Time
}

func (Document) TableName() string {
	return "documents"
}
