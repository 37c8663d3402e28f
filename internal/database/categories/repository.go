// Package categories provides database operations for book categories.
package categories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/entities"
)

const msgNameTaken = "Category already exists."

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts category. Names are unique.
func (r *Repository) Create(ctx context.Context, category *entities.Category) error {
	category.Name = strings.TrimSpace(category.Name)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Category{}).Where("name = ?", category.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("name", msgNameTaken)
		}
		return tx.Create(category).Error
	})
	if err != nil && !errors.Is(err, apperr.ErrConflict) && database.IsUniqueViolation(err) {
		return apperr.Conflict("name", msgNameTaken)
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, database.NotFound(err, "category %d", id)
	}
	return &category, nil
}

// Exists reports whether a category with id is present.
func (r *Repository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List returns all categories ordered by name.
func (r *Repository) List(ctx context.Context) ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Category{}).Count(&count).Error
	return count, err
}

// Delete removes an empty category. Categories that still hold books are
// refused with a conflict.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category entities.Category
		if err := tx.First(&category, id).Error; err != nil {
			return database.NotFound(err, "category %d", id)
		}

		var books int64
		if err := tx.Model(&entities.Book{}).Where("category_id = ?", id).Count(&books).Error; err != nil {
			return err
		}
		if books > 0 {
			return apperr.Refuse(apperr.ErrConflict, "Cannot delete category that contains books. Please move or delete the books first.")
		}
		return tx.Delete(&category).Error
	})
}
