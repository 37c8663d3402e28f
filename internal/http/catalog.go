package http

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/database/books"
	"github.com/mrlokans/elibrary/internal/library"
)

// CatalogController serves the public catalog and file downloads.
type CatalogController struct {
	*pages
	library  *library.Service
	pageSize int
}

// NewCatalogController creates a catalog controller listing pageSize books per page.
func NewCatalogController(lib *library.Service, p *pages, pageSize int) *CatalogController {
	return &CatalogController{pages: p, library: lib, pageSize: pageSize}
}

// Index shows the newest books to visitors. Signed-in users go to their
// dashboard instead.
func (cc *CatalogController) Index(c *gin.Context) {
	if principal := auth.GetPrincipal(c); principal != nil {
		if principal.IsAdmin {
			c.Redirect(http.StatusFound, "/admin")
		} else {
			c.Redirect(http.StatusFound, "/dashboard")
		}
		return
	}

	ctx := c.Request.Context()
	recent, err := cc.library.RecentBooks(ctx, 0)
	if err != nil {
		cc.fail(c, err, "/")
		return
	}
	categories, err := cc.library.ListCategories(ctx)
	if err != nil {
		cc.fail(c, err, "/")
		return
	}

	cc.render(c, http.StatusOK, "index.html", gin.H{
		"Title":       "eLibrary",
		"RecentBooks": recent,
		"Categories":  categories,
	})
}

// Books handles GET /books?query=&category=&page=
func (cc *CatalogController) Books(c *gin.Context) {
	ctx := c.Request.Context()
	filter := books.Filter{
		Query:      strings.TrimSpace(c.Query("query")),
		CategoryID: uint(queryInt(c, "category", 0)),
	}

	page, err := cc.library.ListBooks(ctx, filter, queryInt(c, "page", 1), cc.pageSize)
	if err != nil {
		cc.fail(c, err, "/")
		return
	}
	categories, err := cc.library.ListCategories(ctx)
	if err != nil {
		cc.fail(c, err, "/")
		return
	}

	cc.render(c, http.StatusOK, "books.html", gin.H{
		"Title":            "Browse Books",
		"Books":            paginated(page),
		"Categories":       categories,
		"Query":            filter.Query,
		"SelectedCategory": filter.CategoryID,
	})
}

// Download handles GET /download/:id. The download is recorded before the
// file is opened; a missing file sends the user back to the catalog.
func (cc *CatalogController) Download(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, rc, err := cc.library.Download(c.Request.Context(), auth.GetPrincipal(c), id, c.ClientIP())
	if err != nil {
		cc.fail(c, err, "/books")
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(book.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": book.Filename})

	c.DataFromReader(http.StatusOK, book.FileSize, contentType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}
