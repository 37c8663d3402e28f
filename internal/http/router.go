package http

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/auth"
)

// Router is the configured engine plus the resources it owns.
type Router struct {
	*gin.Engine
	authController *auth.AuthController
}

// Close stops background work started by the router.
func (r *Router) Close() {
	r.authController.Stop()
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) (*Router, error) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(31536000))
	}

	if cfg.MultipartMemory > 0 {
		router.MaxMultipartMemory = cfg.MultipartMemory
	}
	// Upload bodies are capped and parsed before CSRF reads the form
	router.Use(UploadLimitMiddleware(cfg.Library.MaxUploadBytes(), router.MaxMultipartMemory))

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	router.Use(cfg.SessionManager.SessionLoadSave())

	mw := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	router.Use(mw.Handler())

	tmpl, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}
	if tmpl != nil {
		router.SetHTMLTemplate(tmpl)
	} else {
		log.Printf("No page templates configured, serving JSON responses")
	}

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	p := newPages(cfg.SessionManager, tmpl != nil)
	health := NewHealthController(cfg.Database, cfg.Blobs, cfg.Version)
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
	catalog := NewCatalogController(cfg.Library, p, cfg.Pagination.PublicBooksPerPage)
	account := NewAccountController(cfg.Library, p)
	admin := NewAdminController(cfg.Library, p, cfg.Pagination.AdminBooksPerPage, cfg.Pagination.DownloadsPerPage)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Public pages
	router.GET("/", catalog.Index)
	router.GET("/books", catalog.Books)
	router.GET("/login", authController.LoginPage)
	router.POST("/login", authController.Login)

	// Any signed-in user
	signedIn := router.Group("/", mw.RequireAuth())
	signedIn.GET("/logout", authController.Logout)
	signedIn.POST("/logout", authController.Logout)
	signedIn.GET("/download/:id", catalog.Download)

	// Readers only; admins are sent to /admin
	readers := router.Group("/", mw.RequireAuth())
	readers.GET("/dashboard", mw.RequireNonAdmin(""), account.Dashboard)
	profileNotice := "Admins cannot edit profile here. Please contact system administrator."
	readers.GET("/profile", mw.RequireNonAdmin(profileNotice), account.Profile)
	readers.POST("/profile", mw.RequireNonAdmin(profileNotice), account.UpdateProfile)

	// Admin pages
	adminGroup := router.Group("/admin", mw.RequireAdmin())
	adminGroup.GET("", admin.Dashboard)
	adminGroup.GET("/books", admin.Books)
	adminGroup.GET("/books/add", admin.AddBookForm)
	adminGroup.POST("/books/add", admin.AddBook)
	adminGroup.GET("/books/edit/:id", admin.EditBookForm)
	adminGroup.POST("/books/edit/:id", admin.EditBook)
	adminGroup.GET("/books/delete/:id", admin.DeleteBookConfirm)
	adminGroup.POST("/books/delete/:id", admin.DeleteBook)
	adminGroup.GET("/users", admin.Users)
	adminGroup.GET("/users/add", admin.AddUserForm)
	adminGroup.POST("/users/add", admin.AddUser)
	adminGroup.GET("/users/delete/:id", admin.DeleteUserConfirm)
	adminGroup.POST("/users/delete/:id", admin.DeleteUser)
	adminGroup.GET("/categories", admin.Categories)
	adminGroup.POST("/categories", admin.CreateCategory)
	adminGroup.GET("/categories/delete/:id", admin.DeleteCategoryConfirm)
	adminGroup.POST("/categories/delete/:id", admin.DeleteCategory)
	adminGroup.GET("/downloads", admin.Downloads)

	// Task management endpoints
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue, p, cfg.BlobSweep.GracePeriod)
		adminGroup.GET("/tasks/types", tasksController.ListTaskTypes)
		adminGroup.GET("/tasks/:id", tasksController.GetTaskStatus)
		adminGroup.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return &Router{Engine: router, authController: authController}, nil
}
