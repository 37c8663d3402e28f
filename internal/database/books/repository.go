// Package books provides database operations for the book catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	page, err := repo.List(ctx, books.Filter{Query: "go"}, 1, 12)
package books

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/entities"
)

// Filter narrows a book listing. Zero values mean no restriction.
type Filter struct {
	// Query matches title or author, case-insensitive substring.
	Query      string
	CategoryID uint
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts book. The category must exist.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	if book.UploadedAt.IsZero() {
		book.UploadedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCategory(tx, book.CategoryID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(book).Error; err != nil {
			return err
		}
		return tx.Preload("Category").First(book, book.ID).Error
	})
}

// GetByID loads a book with its category and download count.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	db := r.db.WithContext(ctx)
	if err := db.Preload("Category").First(&book, id).Error; err != nil {
		return nil, database.NotFound(err, "book %d", id)
	}
	list := []entities.Book{book}
	if err := attachDownloadCounts(db, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// UpdateMetadata changes the descriptive fields of book id. The file is not
// touched.
func (r *Repository) UpdateMetadata(ctx context.Context, id uint, title, author, description string, categoryID uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			return database.NotFound(err, "book %d", id)
		}
		if err := requireCategory(tx, categoryID); err != nil {
			return err
		}
		if err := tx.Model(&book).Updates(map[string]any{
			"title":       title,
			"author":      author,
			"description": description,
			"category_id": categoryID,
		}).Error; err != nil {
			return err
		}
		return tx.Preload("Category").First(&book, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes book id and every download recorded against it.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.Download{}).Error; err != nil {
			return fmt.Errorf("failed to delete downloads: %w", err)
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("book %d: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
}

// List returns one page of books matching filter, newest upload first.
func (r *Repository) List(ctx context.Context, filter Filter, page, pageSize int) (database.Page[entities.Book], error) {
	page, pageSize, offset := database.NormalizePage(page, pageSize)
	result := database.Page[entities.Book]{Page: page, PageSize: pageSize}

	db := r.db.WithContext(ctx)
	query := applyFilter(db.Model(&entities.Book{}), filter)
	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}

	err := applyFilter(db.Model(&entities.Book{}), filter).
		Preload("Category").
		Order("uploaded_at DESC, id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&result.Items).Error
	if err != nil {
		return result, err
	}
	return result, attachDownloadCounts(db, result.Items)
}

// Recent returns the limit most recently uploaded books.
func (r *Repository) Recent(ctx context.Context, limit int) ([]entities.Book, error) {
	var books []entities.Book
	db := r.db.WithContext(ctx)
	err := db.Preload("Category").
		Order("uploaded_at DESC, id DESC").
		Limit(limit).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, attachDownloadCounts(db, books)
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// FilePaths returns the blob path of every book.
func (r *Repository) FilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Pluck("file_path", &paths).Error
	return paths, err
}

func applyFilter(q *gorm.DB, filter Filter) *gorm.DB {
	if s := strings.TrimSpace(filter.Query); s != "" {
		pattern := database.LikePattern(s)
		q = q.Where(`(LOWER(title) LIKE LOWER(?) ESCAPE '\' OR LOWER(author) LIKE LOWER(?) ESCAPE '\')`, pattern, pattern)
	}
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	return q
}

func requireCategory(tx *gorm.DB, categoryID uint) error {
	var count int64
	if err := tx.Model(&entities.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NewValidationError("category_id", "Please select a valid category.")
	}
	return nil
}

type downloadCount struct {
	BookID uint
	Total  int64
}

func attachDownloadCounts(db *gorm.DB, books []entities.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]uint, len(books))
	for i := range books {
		ids[i] = books[i].ID
	}

	var counts []downloadCount
	err := db.Model(&entities.Download{}).
		Select("book_id, COUNT(*) AS total").
		Where("book_id IN ?", ids).
		Group("book_id").
		Scan(&counts).Error
	if err != nil {
		return fmt.Errorf("failed to count downloads: %w", err)
	}

	byBook := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byBook[c.BookID] = c.Total
	}
	for i := range books {
		books[i].DownloadCount = byBook[books[i].ID]
	}
	return nil
}
