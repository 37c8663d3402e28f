package auth

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/config"
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// AuthController serves the login and logout endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	rateLimiter    *RateLimiter
}

// NewAuthController creates a new authentication controller. Templates are
// read from <templatesPath>/auth/*.html; without them responses are JSON.
func NewAuthController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth) *AuthController {
	var tmpl *template.Template
	if templatesPath != "" {
		parsed, err := template.ParseGlob(filepath.Join(templatesPath, "auth", "*.html"))
		if err != nil {
			log.Printf("auth templates not loaded: %v", err)
		} else {
			tmpl = parsed
		}
	}

	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		rateLimiter:    rateLimiter,
	}
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if GetPrincipal(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.renderTemplate(c, http.StatusOK, "login.html", gin.H{
		"Title":     "Login",
		"Next":      sanitizeRedirectPath(c.Query("next")),
		"CSRFToken": GetCSRFToken(c),
		"Flashes":   ac.sessionManager.PopFlashes(c.Request),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	if GetPrincipal(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	remember := isChecked(c.PostForm("remember_me"))
	next := c.PostForm("next")
	if next == "" {
		next = c.Query("next")
	}
	next = sanitizeRedirectPath(next)
	clientIP := c.ClientIP()

	data := gin.H{
		"Title":     "Login",
		"Next":      next,
		"Username":  username,
		"CSRFToken": GetCSRFToken(c),
	}

	verr := &apperr.ValidationError{}
	if username == "" {
		verr.Add("username", "This field is required.")
	}
	if password == "" {
		verr.Add("password", "This field is required.")
	}
	if verr.HasErrors() {
		data["Errors"] = verr.Fields
		ac.renderTemplate(c, http.StatusBadRequest, "login.html", data)
		return
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		data["Error"] = "Too many login attempts. Please try again later."
		data["RetryAfter"] = retryAfter.String()
		ac.renderTemplate(c, http.StatusTooManyRequests, "login.html", data)
		return
	}

	principal, err := ac.service.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			ac.rateLimiter.RecordFailure(clientIP, username)
		} else {
			log.Printf("login failed for %q: %v", username, err)
			status = http.StatusInternalServerError
		}
		data["Error"] = apperr.Message(apperr.ErrInvalidCredentials)
		ac.renderTemplate(c, status, "login.html", data)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request, principal, remember); err != nil {
		log.Printf("failed to create session for %q: %v", username, err)
		data["Error"] = "Failed to create session"
		ac.renderTemplate(c, http.StatusInternalServerError, "login.html", data)
		return
	}

	ac.sessionManager.AddFlash(c.Request, FlashSuccess, "Welcome back, "+principal.FullName+"!")
	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and returns to the home page.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("failed to destroy session: %v", err)
	}
	ac.sessionManager.AddFlash(c.Request, FlashInfo, "You have been logged out.")
	c.Redirect(http.StatusFound, "/")
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil || IsAPIRequest(c) {
		c.JSON(status, data)
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		log.Printf("template %s: %v", name, err)
	}
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "y", "yes":
		return true
	}
	return false
}
