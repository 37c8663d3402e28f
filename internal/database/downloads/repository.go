// Package downloads records and queries the download audit trail.
package downloads

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/entities"
)

// Filter narrows a download listing. Zero values mean no restriction.
type Filter struct {
	UserID uint
	BookID uint
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record appends a download event. A user or book that vanished in the
// meantime yields apperr.ErrNotFound.
func (r *Repository) Record(ctx context.Context, download *entities.Download) error {
	if download.DownloadedAt.IsZero() {
		download.DownloadedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(download).Error
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("book %d: %w", download.BookID, apperr.ErrNotFound)
	}
	return err
}

// List returns one page of download events, newest first, with user and
// book loaded.
func (r *Repository) List(ctx context.Context, filter Filter, page, pageSize int) (database.Page[entities.Download], error) {
	page, pageSize, offset := database.NormalizePage(page, pageSize)
	result := database.Page[entities.Download]{Page: page, PageSize: pageSize}

	db := r.db.WithContext(ctx)
	if err := applyFilter(db.Model(&entities.Download{}), filter).Count(&result.Total).Error; err != nil {
		return result, err
	}

	err := applyFilter(db.Model(&entities.Download{}), filter).
		Preload("User").
		Preload("Book").
		Order("downloaded_at DESC, id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&result.Items).Error
	return result, err
}

// Recent returns the latest limit events matching filter.
func (r *Repository) Recent(ctx context.Context, filter Filter, limit int) ([]entities.Download, error) {
	var downloads []entities.Download
	err := applyFilter(r.db.WithContext(ctx), filter).
		Preload("User").
		Preload("Book").
		Order("downloaded_at DESC, id DESC").
		Limit(limit).
		Find(&downloads).Error
	return downloads, err
}

// Count returns the number of events matching filter.
func (r *Repository) Count(ctx context.Context, filter Filter) (int64, error) {
	var count int64
	err := applyFilter(r.db.WithContext(ctx).Model(&entities.Download{}), filter).Count(&count).Error
	return count, err
}

func applyFilter(q *gorm.DB, filter Filter) *gorm.DB {
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != 0 {
		q = q.Where("book_id = ?", filter.BookID)
	}
	return q
}
