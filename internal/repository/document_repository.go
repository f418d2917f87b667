package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tabletop_web/internal/repository/models"
	"tabletop_web/internal/storage"
)

var (
	// ErrConflict 寫入時帶的 revision 與儲存的不一致
	ErrConflict = errors.New("document revision conflict")
	// ErrNotFound 資料庫或文件不存在
	ErrNotFound = errors.New("document not found")
)

// Revision 是文件的版本標記，0 表示尚未建立
type Revision int64

// DocumentDB 是單一邏輯資料庫的讀寫介面
type DocumentDB interface {
	Name() string
	// Get 讀取 key 的內容解碼到 out，回傳目前的 revision
	Get(ctx context.Context, key string, out any) (Revision, error)
	// Put 以 rev 作為前提條件寫入 value，成功時回傳新的 revision
	Put(ctx context.Context, key string, value any, rev Revision) (Revision, error)
}

type DocumentRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) (DocumentDB, error)
	Destroy(ctx context.Context, name string) error
	Open(ctx context.Context, name string) (DocumentDB, error)
}

type documentRepository struct {
	db *storage.DB
}

func NewDocumentRepository(db *storage.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Database{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *documentRepository) Create(ctx context.Context, name string) (DocumentDB, error) {
	err := r.db.WithContext(ctx).Create(&models.Database{Name: name}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create database %s: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("create database %s: %w", name, err)
	}
	return &documentDB{db: r.db, name: name}, nil
}

// Destroy 刪除資料庫及其所有文件，不存在時回傳 ErrNotFound
func (r *documentRepository) Destroy(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("db_name = ?", name).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		res := tx.Where("name = ?", name).Delete(&models.Database{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("destroy database %s: %w", name, ErrNotFound)
		}
		return nil
	})
}

func (r *documentRepository) Open(ctx context.Context, name string) (DocumentDB, error) {
	ok, err := r.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("open database %s: %w", name, ErrNotFound)
	}
	return &documentDB{db: r.db, name: name}, nil
}

type documentDB struct {
	db   *storage.DB
	name string
}

func (d *documentDB) Name() string {
	return d.name
}

func (d *documentDB) Get(ctx context.Context, key string, out any) (Revision, error) {
	var doc models.Document
	err := d.db.WithContext(ctx).
		Where("db_name = ? AND doc_key = ?", d.name, key).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("get %s/%s: %w", d.name, key, ErrNotFound)
		}
		return 0, err
	}
	if out != nil {
		if err := json.Unmarshal([]byte(doc.Value), out); err != nil {
			return 0, fmt.Errorf("decode %s/%s: %w", d.name, key, err)
		}
	}
	return Revision(doc.Rev), nil
}

func (d *documentDB) Put(ctx context.Context, key string, value any, rev Revision) (Revision, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("encode %s/%s: %w", d.name, key, err)
	}

	var next Revision
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rev == 0 {
			return d.insert(tx, key, string(raw), &next)
		}
		return d.update(tx, key, string(raw), rev, &next)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (d *documentDB) insert(tx *gorm.DB, key, value string, next *Revision) error {
	var count int64
	if err := tx.Model(&models.Document{}).Where("db_name = ? AND doc_key = ?", d.name, key).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("put %s/%s: %w", d.name, key, ErrConflict)
	}

	doc := models.Document{DBName: d.name, DocKey: key, Value: value, Rev: 1}
	if err := tx.Create(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("put %s/%s: %w", d.name, key, ErrConflict)
		}
		return err
	}
	*next = 1
	return nil
}

func (d *documentDB) update(tx *gorm.DB, key, value string, rev Revision, next *Revision) error {
	res := tx.Model(&models.Document{}).
		Where("db_name = ? AND doc_key = ? AND rev = ?", d.name, key, int64(rev)).
		Updates(map[string]any{
			"value":      value,
			"rev":        int64(rev) + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		*next = rev + 1
		return nil
	}

	var count int64
	if err := tx.Model(&models.Document{}).Where("db_name = ? AND doc_key = ?", d.name, key).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("put %s/%s: %w", d.name, key, ErrNotFound)
	}
	return fmt.Errorf("put %s/%s at rev %d: %w", d.name, key, rev, ErrConflict)
}
