package library

import (
	"context"
	"io"

	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/database/downloads"
	"github.com/mrlokans/elibrary/internal/entities"
)

// ListDownloads returns one page of the download audit trail.
func (s *Service) ListDownloads(ctx context.Context, principal *entities.Principal, page, pageSize int) (database.Page[entities.Download], error) {
	if err := authorize(principal, capAdmin); err != nil {
		return database.Page[entities.Download]{}, err
	}
	return s.downloads.List(ctx, downloads.Filter{}, page, pageSize)
}

// Download records that principal fetched the book and opens its file. The
// event is recorded even when the file turns out to be missing, in which
// case the error matches apperr.ErrFileMissing. The caller closes the
// reader.
func (s *Service) Download(ctx context.Context, principal *entities.Principal, bookID uint, ip string) (*entities.Book, io.ReadCloser, error) {
	if err := authorize(principal, capAuthenticated); err != nil {
		return nil, nil, err
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}

	if len(ip) > maxIPLength {
		ip = ip[:maxIPLength]
	}
	event := &entities.Download{
		UserID:       principal.UserID,
		BookID:       book.ID,
		IPAddress:    ip,
		DownloadedAt: s.now().UTC(),
	}
	if err := s.downloads.Record(ctx, event); err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, book.FilePath)
	if err != nil {
		return book, nil, err
	}
	return book, rc, nil
}
