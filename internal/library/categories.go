package library

import (
	"context"

	"github.com/mrlokans/elibrary/internal/entities"
)

// ListCategories returns every category by name. Anyone may browse.
func (s *Service) ListCategories(ctx context.Context) ([]entities.Category, error) {
	return s.categories.List(ctx)
}

// GetCategory loads one category.
func (s *Service) GetCategory(ctx context.Context, id uint) (*entities.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// CreateCategory adds a category with a unique name.
func (s *Service) CreateCategory(ctx context.Context, principal *entities.Principal, in CategoryInput) (*entities.Category, error) {
	if err := authorize(principal, capAdmin); err != nil {
		return nil, err
	}

	in.normalize()
	if err := orNil(check(s.validate, in)); err != nil {
		return nil, err
	}

	category := &entities.Category{Name: in.Name, Description: in.Description}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes an empty category.
func (s *Service) DeleteCategory(ctx context.Context, principal *entities.Principal, id uint) error {
	if err := authorize(principal, capAdmin); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}
