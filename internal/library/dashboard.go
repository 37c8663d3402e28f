package library

import (
	"context"

	"github.com/mrlokans/elibrary/internal/database/downloads"
	"github.com/mrlokans/elibrary/internal/entities"
)

// AdminStats is the data behind the admin dashboard.
type AdminStats struct {
	TotalBooks      int64               `json:"total_books"`
	TotalUsers      int64               `json:"total_users"`
	TotalDownloads  int64               `json:"total_downloads"`
	TotalCategories int64               `json:"total_categories"`
	RecentDownloads []entities.Download `json:"recent_downloads"`
}

// UserDashboard is the data behind a reader's dashboard.
type UserDashboard struct {
	RecentBooks   []entities.Book `json:"recent_books"`
	DownloadCount int64           `json:"download_count"`
}

// AdminStats counts books, regular users and downloads and lists the latest
// downloads.
func (s *Service) AdminStats(ctx context.Context, principal *entities.Principal) (*AdminStats, error) {
	if err := authorize(principal, capAdmin); err != nil {
		return nil, err
	}

	var (
		stats AdminStats
		err   error
	)
	if stats.TotalBooks, err = s.books.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalUsers, err = s.users.CountNonAdmin(ctx); err != nil {
		return nil, err
	}
	if stats.TotalDownloads, err = s.downloads.Count(ctx, downloads.Filter{}); err != nil {
		return nil, err
	}
	if stats.TotalCategories, err = s.categories.Count(ctx); err != nil {
		return nil, err
	}
	if stats.RecentDownloads, err = s.downloads.Recent(ctx, downloads.Filter{}, adminRecentDownloads); err != nil {
		return nil, err
	}
	return &stats, nil
}

// UserDashboard shows a reader the newest books and how many downloads they
// have made.
func (s *Service) UserDashboard(ctx context.Context, principal *entities.Principal) (*UserDashboard, error) {
	if err := authorize(principal, capNonAdmin); err != nil {
		return nil, err
	}

	recent, err := s.books.Recent(ctx, homeRecentBooks)
	if err != nil {
		return nil, err
	}
	count, err := s.downloads.Count(ctx, downloads.Filter{UserID: principal.UserID})
	if err != nil {
		return nil, err
	}
	return &UserDashboard{RecentBooks: recent, DownloadCount: count}, nil
}
