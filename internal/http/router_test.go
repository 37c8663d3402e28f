package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/blobstore"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/database"
	"github.com/mrlokans/elibrary/internal/database/books"
	"github.com/mrlokans/elibrary/internal/database/categories"
	"github.com/mrlokans/elibrary/internal/database/dbtest"
	"github.com/mrlokans/elibrary/internal/database/downloads"
	"github.com/mrlokans/elibrary/internal/database/users"
	"github.com/mrlokans/elibrary/internal/entities"
	"github.com/mrlokans/elibrary/internal/library"
)

type testEnv struct {
	router  *Router
	db      *database.Database
	library *library.Service
	blobs   blobstore.Store
	admin   *entities.Principal
	reader  *entities.Principal
	fiction *entities.Category
}

func testConfig() config.Auth {
	return config.Auth{
		SessionLifetime:  time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
}

// envOptions adjusts the router under test. Zero values mean the defaults
// used by setupEnv.
type envOptions struct {
	queue           TaskQueue
	csrfSecret      []byte
	maxUploadBytes  int64
	multipartMemory int64
}

func setupEnv(t *testing.T, queue TaskQueue) *testEnv {
	t.Helper()
	return setupEnvWith(t, envOptions{queue: queue})
}

func setupEnvWith(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	if opts.maxUploadBytes == 0 {
		opts.maxUploadBytes = 1024
	}

	db := dbtest.Open(t)
	blobs, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	userRepo := users.NewRepository(db.DB)
	authService := auth.NewService(userRepo, testConfig())
	lib := library.NewService(library.Dependencies{
		Books:      books.NewRepository(db.DB),
		Categories: categories.NewRepository(db.DB),
		Users:      userRepo,
		Downloads:  downloads.NewRepository(db.DB),
		Blobs:      blobs,
		Passwords:  authService,
		Upload:     config.Upload{MaxBytes: opts.maxUploadBytes, AllowedExtensions: config.DefaultAllowedExtensions},
	})

	sessions, err := auth.NewSessionManager(nil, testConfig())
	require.NoError(t, err)

	router, err := NewRouter(RouterConfig{
		Library:         lib,
		Database:        db,
		Blobs:           blobs,
		AuthService:     authService,
		SessionManager:  sessions,
		AuthConfig:      testConfig(),
		CSRFSecret:      opts.csrfSecret,
		MultipartMemory: opts.multipartMemory,
		Pagination:      config.Pagination{AdminBooksPerPage: 10, PublicBooksPerPage: 12, DownloadsPerPage: 20},
		Version:         "test",
		TaskQueue:       opts.queue,
		BlobSweep:       config.BlobSweep{GracePeriod: time.Hour},
	})
	require.NoError(t, err)
	t.Cleanup(router.Close)

	env := &testEnv{
		router:  router,
		db:      db,
		library: lib,
		blobs:   blobs,
		fiction: dbtest.Category(t, db, "Fiction"),
	}
	env.admin = env.createUser(t, authService, userRepo, "admin", "adminpass", true)
	env.reader = env.createUser(t, authService, userRepo, "reader", "readerpass", false)
	return env
}

func (e *testEnv) createUser(t *testing.T, a *auth.Service, repo *users.Repository, username, password string, admin bool) *entities.Principal {
	t.Helper()
	hash, err := a.HashPassword(password)
	require.NoError(t, err)
	user := &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Full " + username,
		PasswordHash: hash,
		IsAdmin:      admin,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return entities.PrincipalFromUser(user)
}

func (e *testEnv) addBook(t *testing.T, title, author string) *entities.Book {
	t.Helper()
	body := "content of " + title
	book, err := e.library.CreateBook(context.Background(), e.admin,
		library.BookInput{Title: title, Author: author, CategoryID: e.fiction.ID},
		library.Upload{Name: title + ".pdf", Size: int64(len(body)), Body: strings.NewReader(body)})
	require.NoError(t, err)
	return book
}

// browser carries the session cookie between requests the way a browser does.
type browser struct {
	env    *testEnv
	cookie *http.Cookie
	others map[string]*http.Cookie // CSRF and any other non-session cookies
	api    bool
}

func (e *testEnv) anonymous() *browser {
	return &browser{env: e}
}

func (e *testEnv) loggedIn(t *testing.T, username, password string) *browser {
	t.Helper()
	b := &browser{env: e}
	rr := b.postForm("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	require.NotNil(t, b.cookie)
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	for _, c := range b.others {
		req.AddCookie(c)
	}
	if b.api {
		req.Header.Set("Accept", "application/json")
	}
	rr := httptest.NewRecorder()
	b.env.router.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" {
			b.cookie = c
			continue
		}
		if b.others == nil {
			b.others = make(map[string]*http.Cookie)
		}
		b.others[c.Name] = c
	}
	return rr
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postMultipart(t *testing.T, path string, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

// flashes renders a page and returns the flash messages it carried.
func (b *browser) flashes(t *testing.T, path string) []string {
	t.Helper()
	rr := b.get(path)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Flashes []auth.Flash `json:"Flashes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	out := make([]string, 0, len(body.Flashes))
	for _, f := range body.Flashes {
		out = append(out, f.Message)
	}
	return out
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func TestHealthAndPing(t *testing.T) {
	env := setupEnv(t, nil)
	b := env.anonymous()

	rr := b.get("/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"database": "ok"`)
	assert.Contains(t, rr.Body.String(), `"storage": "ok"`)

	rr = b.get("/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")
}

func TestIndex(t *testing.T) {
	env := setupEnv(t, nil)
	env.addBook(t, "Dune", "Herbert")

	rr := env.anonymous().get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Len(t, body["RecentBooks"], 1)
	assert.Len(t, body["Categories"], 1)

	rr = env.loggedIn(t, "admin", "adminpass").get("/")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/admin", rr.Header().Get("Location"))

	rr = env.loggedIn(t, "reader", "readerpass").get("/")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
}

func TestBooks_SearchAndFilter(t *testing.T) {
	env := setupEnv(t, nil)
	env.addBook(t, "Dune", "Herbert")
	env.addBook(t, "Foundation", "Asimov")
	b := env.anonymous()

	rr := b.get("/books?query=DUNE")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode(t, rr)["Books"].(map[string]any)
	assert.Equal(t, float64(1), page["total"])

	rr = b.get("/books?query=asimov&category=" + itoa(env.fiction.ID))
	page = decode(t, rr)["Books"].(map[string]any)
	assert.Equal(t, float64(1), page["total"])

	rr = b.get("/books?page=9")
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode(t, rr)["Books"].(map[string]any)
	assert.Empty(t, page["data"])
	assert.Equal(t, float64(12), page["page_size"])
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestDownload(t *testing.T) {
	env := setupEnv(t, nil)
	book := env.addBook(t, "Dune", "Herbert")
	path := "/download/" + itoa(book.ID)

	t.Run("anonymous is sent to login", func(t *testing.T) {
		rr := env.anonymous().get(path)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login?next="+url.QueryEscape(path), rr.Header().Get("Location"))
	})

	t.Run("reader gets the file", func(t *testing.T) {
		rr := env.loggedIn(t, "reader", "readerpass").get(path)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "content of Dune", rr.Body.String())
		assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename=Dune.pdf`)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	})

	t.Run("unknown book is 404", func(t *testing.T) {
		b := env.loggedIn(t, "reader", "readerpass")
		b.api = true
		rr := b.get("/download/999")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing file redirects with a flash and is still recorded", func(t *testing.T) {
		require.NoError(t, env.blobs.Delete(context.Background(), book.FilePath))
		var before int64
		require.NoError(t, env.db.DB.Model(&entities.Download{}).Count(&before).Error)

		b := env.loggedIn(t, "reader", "readerpass")
		rr := b.get(path)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/books", rr.Header().Get("Location"))
		assert.Contains(t, b.flashes(t, "/books"), "File not found. Please contact administrator.")

		var after int64
		require.NoError(t, env.db.DB.Model(&entities.Download{}).Count(&after).Error)
		assert.Equal(t, before+1, after)
	})
}

func TestAdmin_RequiresAdmin(t *testing.T) {
	env := setupEnv(t, nil)

	paths := []string{"/admin", "/admin/books", "/admin/users", "/admin/categories", "/admin/downloads", "/admin/books/add"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rr := env.anonymous().get(path)
			assert.Equal(t, http.StatusFound, rr.Code)
			assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login"))

			reader := env.loggedIn(t, "reader", "readerpass")
			rr = reader.get(path)
			assert.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, "/", rr.Header().Get("Location"))

			reader.api = true
			rr = reader.get(path)
			assert.Equal(t, http.StatusForbidden, rr.Code)
		})
	}

	rr := env.anonymous().postForm("/admin/categories", url.Values{"name": {"Poetry"}})
	assert.Equal(t, http.StatusFound, rr.Code)
	list, err := env.library.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1, "rejected request changes nothing")
}

func TestAdmin_Dashboard(t *testing.T) {
	env := setupEnv(t, nil)
	env.addBook(t, "Dune", "Herbert")

	rr := env.loggedIn(t, "admin", "adminpass").get("/admin")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, float64(1), body["TotalBooks"])
	assert.Equal(t, float64(1), body["TotalUsers"])
	assert.Equal(t, float64(0), body["TotalDownloads"])
}

func TestAdmin_AddBook(t *testing.T) {
	env := setupEnv(t, nil)
	admin := env.loggedIn(t, "admin", "adminpass")
	fields := map[string]string{
		"title":       "Dune",
		"author":      "Frank Herbert",
		"description": "Spice",
		"category_id": itoa(env.fiction.ID),
	}

	rr := admin.postMultipart(t, "/admin/books/add", fields, "../../Dune Novel.pdf", "spice")
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	assert.Equal(t, "/admin/books", rr.Header().Get("Location"))
	assert.Contains(t, admin.flashes(t, "/admin/books"), "Book uploaded successfully!")

	page, err := env.library.ListBooks(context.Background(), books.Filter{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dune_Novel.pdf", page.Items[0].Filename)
	assert.Equal(t, int64(5), page.Items[0].FileSize)

	t.Run("rejects bad extension", func(t *testing.T) {
		rr := admin.postMultipart(t, "/admin/books/add", fields, "virus.exe", "x")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode(t, rr)["Errors"], "file")
	})

	t.Run("rejects missing file", func(t *testing.T) {
		rr := admin.postMultipart(t, "/admin/books/add", fields, "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode(t, rr)["Errors"], "file")
	})

	t.Run("rejects oversize file", func(t *testing.T) {
		rr := admin.postMultipart(t, "/admin/books/add", fields, "big.pdf", strings.Repeat("x", 4096))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		bad := map[string]string{"title": "T", "author": "A", "category_id": "999"}
		rr := admin.postMultipart(t, "/admin/books/add", bad, "t.pdf", "x")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode(t, rr)["Errors"], "category_id")
	})

	page, err = env.library.ListBooks(context.Background(), books.Filter{}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	entries, err := env.blobs.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rejected uploads leave no files")
}

// countingReader records how much of a request body was consumed.
type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func multipartTempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "multipart-") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestAdmin_AddBook_WithCSRF(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	const maxUpload = 64 << 10
	env := setupEnvWith(t, envOptions{
		csrfSecret:      []byte("01234567890123456789012345678901"),
		maxUploadBytes:  maxUpload,
		multipartMemory: 1024,
	})

	b := env.anonymous()
	b.api = true
	rr := b.get("/login")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	token, _ := decode(t, rr)["CSRFToken"].(string)
	require.NotEmpty(t, token)
	b.api = false

	rr = b.postForm("/login", url.Values{
		"username":         {"admin"},
		"password":         {"adminpass"},
		auth.CSRFFieldName: {token},
	})
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())

	fields := map[string]string{"title": "Big", "author": "A", "category_id": itoa(env.fiction.ID)}
	content := strings.Repeat("x", 8<<10)

	t.Run("missing token is refused and leaves no temp files", func(t *testing.T) {
		rr := b.postMultipart(t, "/admin/books/add", fields, "big.pdf", content)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Empty(t, multipartTempFiles(t, tmp))
	})

	t.Run("upload spilled to disk is stored and its temp file removed", func(t *testing.T) {
		withToken := map[string]string{auth.CSRFFieldName: token}
		for k, v := range fields {
			withToken[k] = v
		}
		rr := b.postMultipart(t, "/admin/books/add", withToken, "big.pdf", content)
		require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
		assert.Equal(t, "/admin/books", rr.Header().Get("Location"))
		assert.Empty(t, multipartTempFiles(t, tmp))

		page, err := env.library.ListBooks(context.Background(), books.Filter{}, 1, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, int64(len(content)), page.Items[0].FileSize)
	})

	t.Run("declared oversize body is refused unread", func(t *testing.T) {
		body := &countingReader{r: strings.NewReader(strings.Repeat("x", 1024))}
		req := httptest.NewRequest(http.MethodPost, "/admin/books/add", body)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		req.ContentLength = maxUpload + multipartOverhead + 1
		rr := b.do(req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Zero(t, body.read)
	})

	t.Run("undeclared oversize body is cut off", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("file", "huge.pdf")
		require.NoError(t, err)
		_, err = fw.Write(bytes.Repeat([]byte("x"), maxUpload+multipartOverhead+1))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/admin/books/add", io.MultiReader(&buf))
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Accept", "application/json")
		rr := b.do(req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Contains(t, decode(t, rr)["fields"], "file")
		assert.Empty(t, multipartTempFiles(t, tmp))
	})
}

func TestAdmin_EditBook(t *testing.T) {
	env := setupEnv(t, nil)
	book := env.addBook(t, "Draft", "Anon")
	admin := env.loggedIn(t, "admin", "adminpass")
	path := "/admin/books/edit/" + itoa(book.ID)

	rr := admin.get(path)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Draft")

	rr = admin.postForm(path, url.Values{"title": {"Final"}, "author": {"Known"}, "category_id": {itoa(env.fiction.ID)}})
	assert.Equal(t, http.StatusFound, rr.Code)

	updated, err := env.library.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, book.FilePath, updated.FilePath)

	rr = admin.postForm(path, url.Values{"title": {""}, "author": {"Known"}, "category_id": {itoa(env.fiction.ID)}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = admin.get("/admin/books/edit/999")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = admin.get("/admin/books/edit/abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdmin_DeleteBook(t *testing.T) {
	env := setupEnv(t, nil)
	book := env.addBook(t, "Dune", "Herbert")
	reader := env.loggedIn(t, "reader", "readerpass")
	require.Equal(t, http.StatusOK, reader.get("/download/"+itoa(book.ID)).Code)

	admin := env.loggedIn(t, "admin", "adminpass")
	path := "/admin/books/delete/" + itoa(book.ID)

	rr := admin.get(path)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Dune", decode(t, rr)["Name"])

	rr = admin.postForm(path, nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, admin.flashes(t, "/admin/books"), "Book deleted successfully!")

	_, err := env.library.GetBook(context.Background(), book.ID)
	assert.Error(t, err)
	var downloads int64
	require.NoError(t, env.db.DB.Model(&entities.Download{}).Count(&downloads).Error)
	assert.Zero(t, downloads)
}

func TestAdmin_Users(t *testing.T) {
	env := setupEnv(t, nil)
	admin := env.loggedIn(t, "admin", "adminpass")

	form := url.Values{
		"username":  {"newbie"},
		"email":     {"newbie@example.com"},
		"full_name": {"New Reader"},
		"password":  {"secret1"},
		"password2": {"secret1"},
	}
	rr := admin.postForm("/admin/users/add", form)
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())

	rr = admin.postForm("/admin/users/add", form)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, decode(t, rr)["Errors"], "username")

	rr = admin.get("/admin/users")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["Users"], 2)

	newbie := env.loggedIn(t, "newbie", "secret1")
	assert.NotNil(t, newbie.cookie)

	t.Run("admin accounts cannot be deleted", func(t *testing.T) {
		path := "/admin/users/delete/" + itoa(env.admin.UserID)
		rr := admin.postForm(path, nil)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/admin/users", rr.Header().Get("Location"))
		assert.Contains(t, admin.flashes(t, "/admin/users"), "Cannot delete admin users.")

		admin.api = true
		rr = admin.postForm(path, nil)
		admin.api = false
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("reader is deleted", func(t *testing.T) {
		rr := admin.postForm("/admin/users/delete/"+itoa(env.reader.UserID), nil)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Contains(t, admin.flashes(t, "/admin/users"), "User deleted successfully!")
	})
}

func TestAdmin_Categories(t *testing.T) {
	env := setupEnv(t, nil)
	env.addBook(t, "Dune", "Herbert")
	admin := env.loggedIn(t, "admin", "adminpass")

	rr := admin.postForm("/admin/categories", url.Values{"name": {"Poetry"}, "description": {"Verse"}})
	require.Equal(t, http.StatusFound, rr.Code)

	rr = admin.postForm("/admin/categories", url.Values{"name": {"Poetry"}})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = admin.postForm("/admin/categories", url.Values{"name": {"P"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = admin.postForm("/admin/categories/delete/"+itoa(env.fiction.ID), nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, admin.flashes(t, "/admin/categories"),
		"Cannot delete category that contains books. Please move or delete the books first.")

	list, err := env.library.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	var poetry uint
	for _, c := range list {
		if c.Name == "Poetry" {
			poetry = c.ID
		}
	}
	rr = admin.postForm("/admin/categories/delete/"+itoa(poetry), nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Contains(t, admin.flashes(t, "/admin/categories"), "Category deleted successfully!")
}

func TestAdmin_Downloads(t *testing.T) {
	env := setupEnv(t, nil)
	book := env.addBook(t, "Dune", "Herbert")
	reader := env.loggedIn(t, "reader", "readerpass")
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, reader.get("/download/"+itoa(book.ID)).Code)
	}

	rr := env.loggedIn(t, "admin", "adminpass").get("/admin/downloads")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode(t, rr)["Downloads"].(map[string]any)
	assert.Equal(t, float64(3), page["total"])
	assert.Equal(t, float64(20), page["page_size"])
}

func TestReaderPages(t *testing.T) {
	env := setupEnv(t, nil)
	env.addBook(t, "Dune", "Herbert")

	t.Run("admins are sent to the admin dashboard", func(t *testing.T) {
		admin := env.loggedIn(t, "admin", "adminpass")
		rr := admin.get("/profile")
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/admin", rr.Header().Get("Location"))
		assert.Contains(t, admin.flashes(t, "/admin"), "Admins cannot edit profile here. Please contact system administrator.")

		rr = admin.get("/dashboard")
		assert.Equal(t, "/admin", rr.Header().Get("Location"))
	})

	t.Run("dashboard", func(t *testing.T) {
		rr := env.loggedIn(t, "reader", "readerpass").get("/dashboard")
		require.Equal(t, http.StatusOK, rr.Code)
		body := decode(t, rr)
		assert.Len(t, body["RecentBooks"], 1)
		assert.Equal(t, float64(0), body["UserDownloads"])
	})

	t.Run("update profile", func(t *testing.T) {
		reader := env.loggedIn(t, "reader", "readerpass")
		rr := reader.postForm("/profile", url.Values{
			"update_profile": {"Update"},
			"username":       {"reader"},
			"email":          {"new@example.com"},
			"full_name":      {"Reader Renamed"},
		})
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Contains(t, reader.flashes(t, "/profile"), "Profile updated successfully!")

		rr = reader.postForm("/profile", url.Values{
			"update_profile": {"Update"},
			"username":       {"admin"},
			"email":          {"new@example.com"},
			"full_name":      {"Reader Renamed"},
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("change password", func(t *testing.T) {
		reader := env.loggedIn(t, "reader", "readerpass")
		rr := reader.postForm("/profile", url.Values{
			"change_password":  {"Change"},
			"current_password": {"wrong"},
			"password":         {"newpass1"},
			"password2":        {"newpass1"},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Current password is incorrect.")

		rr = reader.postForm("/profile", url.Values{
			"change_password":  {"Change"},
			"current_password": {"readerpass"},
			"password":         {"newpass1"},
			"password2":        {"newpass1"},
		})
		assert.Equal(t, http.StatusFound, rr.Code)

		env.loggedIn(t, "reader", "newpass1")
	})
}

func TestLogout(t *testing.T) {
	env := setupEnv(t, nil)
	reader := env.loggedIn(t, "reader", "readerpass")
	old := reader.cookie

	rr := reader.get("/logout")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	stale := &browser{env: env, cookie: old}
	rr = stale.get("/dashboard")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login"))
}
