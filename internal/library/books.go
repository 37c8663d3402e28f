package library

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/database/books"
	"github.com/mrlokans/elibrary/internal/entities"
	"github.com/mrlokans/elibrary/internal/utils"
)

// ListBooks returns one page of the catalog. Anyone may browse.
func (s *Service) ListBooks(ctx context.Context, filter books.Filter, page, pageSize int) (database.Page[entities.Book], error) {
	filter.Query = strings.TrimSpace(filter.Query)
	return s.books.List(ctx, filter, page, pageSize)
}

// RecentBooks returns the newest uploads for the home page.
func (s *Service) RecentBooks(ctx context.Context, limit int) ([]entities.Book, error) {
	if limit <= 0 {
		limit = homeRecentBooks
	}
	return s.books.Recent(ctx, limit)
}

// GetBook loads one book with its category and download count.
func (s *Service) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	return s.books.GetByID(ctx, id)
}

// CreateBook stores the uploaded file and records the book, uploaded by
// principal. Validation runs before any store access; if the row cannot be
// written the blob is removed again.
func (s *Service) CreateBook(ctx context.Context, principal *entities.Principal, in BookInput, up Upload) (*entities.Book, error) {
	if err := authorize(principal, capAdmin); err != nil {
		return nil, err
	}

	in.normalize()
	verr := check(s.validate, in)
	if verr == nil {
		verr = &apperr.ValidationError{}
	}
	s.checkUpload(verr, up)
	if verr.HasErrors() {
		return nil, verr
	}

	ok, err := s.categories.Exists(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NewValidationError("category_id", "Please select a valid category.")
	}

	// One byte over the limit is enough to tell an oversize body apart.
	limited := io.LimitReader(up.Body, s.upload.MaxBytes+1)
	obj, err := s.blobs.Save(ctx, up.Name, limited)
	if err != nil {
		return nil, err
	}
	if obj.Size > s.upload.MaxBytes {
		s.removeBlob(ctx, obj.Path)
		return nil, apperr.NewValidationError("file", s.sizeMessage())
	}

	book := &entities.Book{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Filename:    obj.Filename,
		FilePath:    obj.Path,
		FileSize:    obj.Size,
		UploadedAt:  s.now().UTC(),
		CategoryID:  in.CategoryID,
		UploadedBy:  principal.UserID,
	}
	if err := s.books.Create(ctx, book); err != nil {
		s.removeBlob(ctx, obj.Path)
		return nil, fmt.Errorf("failed to save book: %w", err)
	}

	log.Printf("Book %d %q uploaded by %s (%s)", book.ID, book.Title, principal.Username, utils.FormatSize(book.FileSize))
	return book, nil
}

// UpdateBook changes a book's title, author, description and category. The
// stored file is never replaced.
func (s *Service) UpdateBook(ctx context.Context, principal *entities.Principal, id uint, in BookInput) (*entities.Book, error) {
	if err := authorize(principal, capAdmin); err != nil {
		return nil, err
	}

	in.normalize()
	if err := orNil(check(s.validate, in)); err != nil {
		return nil, err
	}

	return s.books.UpdateMetadata(ctx, id, in.Title, in.Author, in.Description, in.CategoryID)
}

// DeleteBook removes the book, its download history and its file. A file
// that cannot be removed is logged and left for the orphan sweep.
func (s *Service) DeleteBook(ctx context.Context, principal *entities.Principal, id uint) error {
	if err := authorize(principal, capAdmin); err != nil {
		return err
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.removeBlob(ctx, book.FilePath)

	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Book %d %q deleted by %s", book.ID, book.Title, principal.Username)
	return nil
}

func (s *Service) checkUpload(verr *apperr.ValidationError, up Upload) {
	if up.Body == nil || strings.TrimSpace(up.Name) == "" {
		verr.Add("file", "This field is required.")
		return
	}
	if !utils.HasAllowedExtension(up.Name, s.upload.AllowedExtensions) {
		verr.Add("file", "Only "+strings.ToUpper(strings.Join(s.upload.AllowedExtensions, ", "))+" files are allowed!")
		return
	}
	if up.Size > s.upload.MaxBytes {
		verr.Add("file", s.sizeMessage())
	}
}

func (s *Service) sizeMessage() string {
	return "File is larger than " + utils.FormatSize(s.upload.MaxBytes) + "."
}

func (s *Service) removeBlob(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.blobs.Delete(ctx, path); err != nil {
		log.Printf("Error deleting file %s: %v", path, err)
	}
}
