package auth

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/entities"
)

// ContextKeyPrincipal holds the *entities.Principal of the logged-in user.
const ContextKeyPrincipal = "auth_principal"

// Middleware resolves sessions into principals and gates routes on them.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// Handler loads the principal for the session, if any. It never aborts:
// anonymous requests continue without a principal and the Require*
// middlewares decide what is allowed.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.sessionManager == nil {
			c.Next()
			return
		}

		userID := m.sessionManager.GetUserID(c.Request)
		if userID == 0 {
			c.Next()
			return
		}

		principal, err := m.service.PrincipalByID(c.Request.Context(), userID)
		switch {
		case err == nil:
			c.Set(ContextKeyPrincipal, principal)
		case errors.Is(err, apperr.ErrUnauthenticated):
			// The account was deleted; drop the stale session.
			_ = m.sessionManager.DestroySession(c.Request)
		default:
			log.Printf("auth: failed to load principal for user %d: %v", userID, err)
		}

		c.Next()
	}
}

// RequireAuth rejects anonymous requests: browsers are sent to the login
// page, API clients get 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetPrincipal(c) == nil {
			m.rejectAnonymous(c)
			return
		}
		c.Next()
	}
}

// RequireAdmin allows only administrators.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			m.rejectAnonymous(c)
			return
		}
		if !principal.IsAdmin {
			if IsAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "insufficient permissions",
				})
				return
			}
			m.flash(c, FlashError, apperr.Message(apperr.ErrForbidden))
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireNonAdmin sends administrators to the admin dashboard, with notice as
// a flash message when it is non-empty. Used for the personal dashboard and
// profile pages.
func (m *Middleware) RequireNonAdmin(notice string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			m.rejectAnonymous(c)
			return
		}
		if principal.IsAdmin {
			if IsAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "not available for administrators",
				})
				return
			}
			if notice != "" {
				m.flash(c, FlashInfo, notice)
			}
			c.Redirect(http.StatusFound, "/admin")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (m *Middleware) rejectAnonymous(c *gin.Context) {
	if IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}
	m.flash(c, FlashInfo, apperr.Message(apperr.ErrUnauthenticated))
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

func (m *Middleware) flash(c *gin.Context, category, message string) {
	if m.sessionManager != nil {
		m.sessionManager.AddFlash(c.Request, category, message)
	}
}

// IsAPIRequest reports whether the client expects JSON rather than HTML.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// GetPrincipal returns the logged-in user, or nil for anonymous requests.
func GetPrincipal(c *gin.Context) *entities.Principal {
	if v, exists := c.Get(ContextKeyPrincipal); exists {
		if p, ok := v.(*entities.Principal); ok {
			return p
		}
	}
	return nil
}

// GetUserID returns the logged-in user's ID, or 0.
func GetUserID(c *gin.Context) uint {
	if p := GetPrincipal(c); p != nil {
		return p.UserID
	}
	return 0
}

// IsAdmin reports whether the request belongs to an administrator.
func IsAdmin(c *gin.Context) bool {
	p := GetPrincipal(c)
	return p != nil && p.IsAdmin
}
