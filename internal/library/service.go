// Package library implements the operations behind every page of the
// e-library: catalog browsing, book administration, accounts, downloads,
// dashboards and profile self-service.
//
// Each operation takes the caller's *entities.Principal (nil for anonymous)
// and checks its capability before touching any store, so access rules hold
// however the HTTP routes are wired.
package library

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/blobstore"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/entities"
)

const (
	homeRecentBooks       = 6
	adminRecentDownloads  = 5
	profileRecentDownload = 10
	maxIPLength           = 45
)

// SystemPrincipal acts for command-line maintenance, outside any session.
var SystemPrincipal = &entities.Principal{Username: "system", IsAdmin: true}

type capability int

const (
	capAuthenticated capability = iota
	capAdmin
	capNonAdmin
)

// authorize checks that principal holds cap.
func authorize(principal *entities.Principal, cap capability) error {
	if principal == nil {
		return apperr.ErrUnauthenticated
	}
	switch cap {
	case capAdmin:
		if !principal.IsAdmin {
			return apperr.ErrForbidden
		}
	case capNonAdmin:
		if principal.IsAdmin {
			return apperr.ErrForbidden
		}
	}
	return nil
}

// Dependencies wires the service to its stores.
type Dependencies struct {
	Books      BookStore
	Categories CategoryStore
	Users      UserStore
	Downloads  DownloadStore
	Blobs      blobstore.Store
	Passwords  PasswordHasher
	Upload     config.Upload
	Now        Clock
}

// Service implements the library operations.
type Service struct {
	books      BookStore
	categories CategoryStore
	users      UserStore
	downloads  DownloadStore
	blobs      blobstore.Store
	passwords  PasswordHasher
	upload     config.Upload
	validate   *validator.Validate
	now        Clock
}

// NewService creates a library service.
func NewService(deps Dependencies) *Service {
	upload := deps.Upload
	if upload.MaxBytes <= 0 {
		upload.MaxBytes = config.DefaultMaxUploadBytes
	}
	if len(upload.AllowedExtensions) == 0 {
		upload.AllowedExtensions = config.DefaultAllowedExtensions
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		books:      deps.Books,
		categories: deps.Categories,
		users:      deps.Users,
		downloads:  deps.Downloads,
		blobs:      deps.Blobs,
		passwords:  deps.Passwords,
		upload:     upload,
		validate:   newValidator(),
		now:        now,
	}
}

// AllowedExtensions lists accepted upload formats, for display.
func (s *Service) AllowedExtensions() []string {
	return s.upload.AllowedExtensions
}

// MaxUploadBytes is the upload size limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.upload.MaxBytes
}
