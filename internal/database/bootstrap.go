package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/entities"
)

var defaultCategories = []entities.Category{
	{Name: "Fiction", Description: "Novels, short stories, and other fictional works"},
	{Name: "Non-Fiction", Description: "Biographies, memoirs, and factual books"},
	{Name: "Science", Description: "Scientific research, textbooks, and journals"},
	{Name: "Technology", Description: "Computer science, programming, and tech guides"},
	{Name: "History", Description: "Historical accounts, documentaries, and archives"},
	{Name: "Education", Description: "Textbooks, learning materials, and academic resources"},
	{Name: "Business", Description: "Management, entrepreneurship, and business guides"},
	{Name: "Literature", Description: "Classic literature, poetry, and literary criticism"},
}

// PasswordHasher turns a plaintext password into a storable hash.
type PasswordHasher func(password string) (string, error)

// BootstrapResult reports what a bootstrap run created.
type BootstrapResult struct {
	AdminCreated      bool
	CategoriesCreated int
}

// Bootstrap creates the default administrator when no admin exists and seeds
// the default categories when the categories table is empty. Running it
// against an initialised store is a no-op.
func (d *Database) Bootstrap(ctx context.Context, cfg config.Bootstrap, hash PasswordHasher) (BootstrapResult, error) {
	var result BootstrapResult

	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := seedAdmin(tx, cfg, hash)
		if err != nil {
			return err
		}
		result.AdminCreated = created

		n, err := seedCategories(tx)
		if err != nil {
			return err
		}
		result.CategoriesCreated = n
		return nil
	})
	if err != nil {
		return BootstrapResult{}, err
	}

	if result.AdminCreated {
		log.Printf("Default admin user created: %s", cfg.AdminUsername)
		if cfg.AdminPassword == config.DefaultAdminPassword {
			log.Printf("WARNING: the bootstrap admin uses the well-known default password. Set BOOTSTRAP_ADMIN_PASSWORD or change it after first login.")
		}
	}
	if result.CategoriesCreated > 0 {
		log.Printf("Default categories created: %d", result.CategoriesCreated)
	}

	return result, nil
}

func seedAdmin(tx *gorm.DB, cfg config.Bootstrap, hash PasswordHasher) (bool, error) {
	var admins int64
	if err := tx.Model(&entities.User{}).Where("is_admin = ?", true).Count(&admins).Error; err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	if admins > 0 {
		return false, nil
	}

	var existing entities.User
	err := tx.Where("username = ? OR email = ?", cfg.AdminUsername, cfg.AdminEmail).First(&existing).Error
	if err == nil {
		log.Printf("WARNING: no admin exists but %q/%q is taken by a regular user; skipping admin bootstrap", cfg.AdminUsername, cfg.AdminEmail)
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check bootstrap admin: %w", err)
	}

	passwordHash, err := hash(cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	admin := &entities.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		FullName:     cfg.AdminFullName,
		PasswordHash: passwordHash,
		IsAdmin:      true,
	}
	if err := tx.Create(admin).Error; err != nil {
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	return true, nil
}

func seedCategories(tx *gorm.DB) (int, error) {
	var count int64
	if err := tx.Model(&entities.Category{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	categories := make([]entities.Category, len(defaultCategories))
	copy(categories, defaultCategories)
	if err := tx.Create(&categories).Error; err != nil {
		return 0, fmt.Errorf("failed to create default categories: %w", err)
	}
	return len(categories), nil
}

// DefaultCategoryNames returns the names seeded on first start.
func DefaultCategoryNames() []string {
	names := make([]string, len(defaultCategories))
	for i, c := range defaultCategories {
		names[i] = c.Name
	}
	return names
}
