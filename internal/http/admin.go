package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/database/books"
	"github.com/mrlokans/elibrary/internal/library"
	"github.com/mrlokans/elibrary/internal/utils"
)

// AdminController serves the /admin pages.
type AdminController struct {
	*pages
	library       *library.Service
	booksPerPage  int
	downloadsPage int
}

// NewAdminController creates the admin controller.
func NewAdminController(lib *library.Service, p *pages, booksPerPage, downloadsPerPage int) *AdminController {
	return &AdminController{
		pages:         p,
		library:       lib,
		booksPerPage:  booksPerPage,
		downloadsPage: downloadsPerPage,
	}
}

// Dashboard handles GET /admin
func (ac *AdminController) Dashboard(c *gin.Context) {
	stats, err := ac.library.AdminStats(c.Request.Context(), auth.GetPrincipal(c))
	if err != nil {
		ac.fail(c, err, "/")
		return
	}
	ac.render(c, http.StatusOK, "admin_dashboard.html", gin.H{
		"Title":           "Admin Dashboard",
		"TotalBooks":      stats.TotalBooks,
		"TotalUsers":      stats.TotalUsers,
		"TotalDownloads":  stats.TotalDownloads,
		"TotalCategories": stats.TotalCategories,
		"RecentDownloads": stats.RecentDownloads,
	})
}

// --- Books ---

// Books handles GET /admin/books?page=&query=
func (ac *AdminController) Books(c *gin.Context) {
	filter := books.Filter{Query: c.Query("query")}
	page, err := ac.library.ListBooks(c.Request.Context(), filter, queryInt(c, "page", 1), ac.booksPerPage)
	if err != nil {
		ac.fail(c, err, "/admin")
		return
	}
	ac.render(c, http.StatusOK, "admin_books.html", gin.H{
		"Title": "Manage Books",
		"Books": paginated(page),
		"Query": filter.Query,
	})
}

// AddBookForm handles GET /admin/books/add
func (ac *AdminController) AddBookForm(c *gin.Context) {
	ac.renderBookForm(c, http.StatusOK, "Add Book", gin.H{"Form": library.BookInput{}})
}

// AddBook handles POST /admin/books/add (multipart, file field "file").
// UploadLimitMiddleware has already parsed and size-checked the form.
func (ac *AdminController) AddBook(c *gin.Context) {
	up, cleanup, err := ac.readUpload(c)
	if err != nil {
		ac.renderBookError(c, "Add Book", err, library.BookInput{})
		return
	}
	defer cleanup()

	in := bookInput(c)
	book, err := ac.library.CreateBook(c.Request.Context(), auth.GetPrincipal(c), in, up)
	if err != nil {
		ac.renderBookError(c, "Add Book", err, in)
		return
	}

	if isAPIRequest(c) {
		c.JSON(http.StatusCreated, book)
		return
	}
	ac.redirect(c, "/admin/books", auth.FlashSuccess, "Book uploaded successfully!")
}

// EditBookForm handles GET /admin/books/edit/:id
func (ac *AdminController) EditBookForm(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ac.library.GetBook(c.Request.Context(), id)
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}
	ac.renderBookForm(c, http.StatusOK, "Edit Book", gin.H{
		"Book": book,
		"Form": library.BookInput{
			Title:       book.Title,
			Author:      book.Author,
			Description: book.Description,
			CategoryID:  book.CategoryID,
		},
	})
}

// EditBook handles POST /admin/books/edit/:id. Only metadata changes; the
// stored file stays.
func (ac *AdminController) EditBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	in := bookInput(c)
	book, err := ac.library.UpdateBook(c.Request.Context(), auth.GetPrincipal(c), id, in)
	if err != nil {
		ac.renderBookError(c, "Edit Book", err, in)
		return
	}

	if isAPIRequest(c) {
		c.JSON(http.StatusOK, book)
		return
	}
	ac.redirect(c, "/admin/books", auth.FlashSuccess, "Book updated successfully!")
}

// DeleteBookConfirm handles GET /admin/books/delete/:id
func (ac *AdminController) DeleteBookConfirm(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ac.library.GetBook(c.Request.Context(), id)
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}
	ac.render(c, http.StatusOK, "admin_confirm_delete.html", gin.H{
		"Title":  "Delete Book",
		"Kind":   "book",
		"Name":   book.Title,
		"Action": c.Request.URL.Path,
		"Cancel": "/admin/books",
	})
}

// DeleteBook handles POST /admin/books/delete/:id
func (ac *AdminController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.library.DeleteBook(c.Request.Context(), auth.GetPrincipal(c), id); err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}
	ac.done(c, "/admin/books", "Book deleted successfully!")
}

// readUpload returns the submitted file. A request without one yields an
// empty Upload so validation reports the missing field.
func (ac *AdminController) readUpload(c *gin.Context) (library.Upload, func(), error) {
	noop := func() {}

	file, header, err := c.Request.FormFile("file")
	switch {
	case err == nil:
		return library.Upload{Name: header.Filename, Size: header.Size, Body: file}, func() { file.Close() }, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return library.Upload{}, noop, nil
	}

	return library.Upload{}, noop, apperr.NewValidationError("file", "Could not read the uploaded file.")
}

func bookInput(c *gin.Context) library.BookInput {
	return library.BookInput{
		Title:       c.PostForm("title"),
		Author:      c.PostForm("author"),
		Description: c.PostForm("description"),
		CategoryID:  formUint(c, "category_id"),
	}
}

func (ac *AdminController) renderBookForm(c *gin.Context, status int, title string, data gin.H) {
	categories, err := ac.library.ListCategories(c.Request.Context())
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}
	data["Title"] = title
	data["Categories"] = categories
	data["AllowedExtensions"] = ac.library.AllowedExtensions()
	data["MaxUploadSize"] = utils.FormatSize(ac.library.MaxUploadBytes())
	ac.render(c, status, "admin_book_form.html", data)
}

func (ac *AdminController) renderBookError(c *gin.Context, title string, err error, in library.BookInput) {
	if apperr.AsValidation(err) == nil {
		ac.fail(c, err, "/admin/books")
		return
	}
	categories, listErr := ac.library.ListCategories(c.Request.Context())
	if listErr != nil {
		ac.fail(c, listErr, "/admin/books")
		return
	}
	ac.formError(c, err, "admin_book_form.html", gin.H{
		"Title":             title,
		"Form":              in,
		"Categories":        categories,
		"AllowedExtensions": ac.library.AllowedExtensions(),
		"MaxUploadSize":     utils.FormatSize(ac.library.MaxUploadBytes()),
	})
}

// --- Users ---

// Users handles GET /admin/users
func (ac *AdminController) Users(c *gin.Context) {
	users, err := ac.library.ListUsers(c.Request.Context(), auth.GetPrincipal(c))
	if err != nil {
		ac.fail(c, err, "/admin")
		return
	}
	ac.render(c, http.StatusOK, "admin_users.html", gin.H{
		"Title": "Manage Users",
		"Users": users,
	})
}

// AddUserForm handles GET /admin/users/add
func (ac *AdminController) AddUserForm(c *gin.Context) {
	ac.render(c, http.StatusOK, "admin_user_form.html", gin.H{
		"Title": "Add User",
		"Form":  library.UserInput{},
	})
}

// AddUser handles POST /admin/users/add
func (ac *AdminController) AddUser(c *gin.Context) {
	in := library.UserInput{
		Username:        c.PostForm("username"),
		Email:           c.PostForm("email"),
		FullName:        c.PostForm("full_name"),
		Password:        c.PostForm("password"),
		PasswordConfirm: c.PostForm("password2"),
		IsAdmin:         formBool(c, "is_admin"),
	}

	user, err := ac.library.CreateUser(c.Request.Context(), auth.GetPrincipal(c), in)
	if err != nil {
		in.Password, in.PasswordConfirm = "", ""
		if ac.formError(c, err, "admin_user_form.html", gin.H{"Title": "Add User", "Form": in}) {
			return
		}
		ac.fail(c, err, "/admin/users")
		return
	}

	if isAPIRequest(c) {
		c.JSON(http.StatusCreated, user)
		return
	}
	ac.redirect(c, "/admin/users", auth.FlashSuccess, "User created successfully!")
}

// DeleteUserConfirm handles GET /admin/users/delete/:id
func (ac *AdminController) DeleteUserConfirm(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := ac.library.GetUser(c.Request.Context(), auth.GetPrincipal(c), id)
	if err != nil {
		ac.fail(c, err, "/admin/users")
		return
	}
	if user.IsAdmin {
		ac.fail(c, apperr.Refuse(apperr.ErrForbidden, "Cannot delete admin users."), "/admin/users")
		return
	}
	ac.render(c, http.StatusOK, "admin_confirm_delete.html", gin.H{
		"Title":  "Delete User",
		"Kind":   "user",
		"Name":   user.Username,
		"Action": c.Request.URL.Path,
		"Cancel": "/admin/users",
	})
}

// DeleteUser handles POST /admin/users/delete/:id
func (ac *AdminController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.library.DeleteUser(c.Request.Context(), auth.GetPrincipal(c), id); err != nil {
		ac.fail(c, err, "/admin/users")
		return
	}
	ac.done(c, "/admin/users", "User deleted successfully!")
}

// --- Categories ---

// Categories handles GET /admin/categories
func (ac *AdminController) Categories(c *gin.Context) {
	data, err := ac.categoriesData(c)
	if err != nil {
		ac.fail(c, err, "/admin")
		return
	}
	data["Form"] = library.CategoryInput{}
	ac.render(c, http.StatusOK, "admin_categories.html", data)
}

// CreateCategory handles POST /admin/categories
func (ac *AdminController) CreateCategory(c *gin.Context) {
	in := library.CategoryInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}

	category, err := ac.library.CreateCategory(c.Request.Context(), auth.GetPrincipal(c), in)
	if err != nil {
		if apperr.AsValidation(err) != nil {
			data, listErr := ac.categoriesData(c)
			if listErr != nil {
				ac.fail(c, listErr, "/admin")
				return
			}
			data["Form"] = in
			ac.formError(c, err, "admin_categories.html", data)
			return
		}
		ac.fail(c, err, "/admin/categories")
		return
	}

	if isAPIRequest(c) {
		c.JSON(http.StatusCreated, category)
		return
	}
	ac.redirect(c, "/admin/categories", auth.FlashSuccess, "Category created successfully!")
}

// DeleteCategoryConfirm handles GET /admin/categories/delete/:id
func (ac *AdminController) DeleteCategoryConfirm(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	category, err := ac.library.GetCategory(c.Request.Context(), id)
	if err != nil {
		ac.fail(c, err, "/admin/categories")
		return
	}
	ac.render(c, http.StatusOK, "admin_confirm_delete.html", gin.H{
		"Title":  "Delete Category",
		"Kind":   "category",
		"Name":   category.Name,
		"Action": c.Request.URL.Path,
		"Cancel": "/admin/categories",
	})
}

// DeleteCategory handles POST /admin/categories/delete/:id
func (ac *AdminController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.library.DeleteCategory(c.Request.Context(), auth.GetPrincipal(c), id); err != nil {
		ac.fail(c, err, "/admin/categories")
		return
	}
	ac.done(c, "/admin/categories", "Category deleted successfully!")
}

func (ac *AdminController) categoriesData(c *gin.Context) (gin.H, error) {
	categories, err := ac.library.ListCategories(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return gin.H{
		"Title":      "Manage Categories",
		"Categories": categories,
	}, nil
}

// --- Downloads ---

// Downloads handles GET /admin/downloads?page=
func (ac *AdminController) Downloads(c *gin.Context) {
	page, err := ac.library.ListDownloads(c.Request.Context(), auth.GetPrincipal(c), queryInt(c, "page", 1), ac.downloadsPage)
	if err != nil {
		ac.fail(c, err, "/admin")
		return
	}
	ac.render(c, http.StatusOK, "admin_downloads.html", gin.H{
		"Title":     "Download History",
		"Downloads": paginated(page),
	})
}

// done finishes a successful delete: JSON for API clients, otherwise a flash
// and a redirect.
func (ac *AdminController) done(c *gin.Context, location, message string) {
	if isAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{"message": message})
		return
	}
	ac.redirect(c, location, auth.FlashSuccess, message)
}
