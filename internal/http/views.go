package http

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/utils"
)

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"formatSize": utils.FormatSize,
	"formatDate": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"add":      func(a, b int) int { return a + b },
	"subtract": func(a, b int) int { return a - b },
}

// loadTemplates parses every page template in dir. An empty dir means the
// application answers with JSON only.
func loadTemplates(dir string) (*template.Template, error) {
	if dir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no templates found in %s", dir)
	}
	return template.New("").Funcs(templateFuncs).ParseFiles(matches...)
}

// pages renders page data as HTML or JSON and carries flash messages across
// redirects.
type pages struct {
	sessions *auth.SessionManager
	html     bool
}

func newPages(sessions *auth.SessionManager, html bool) *pages {
	return &pages{sessions: sessions, html: html}
}

// render adds the current user, pending flashes and the CSRF token to data.
// Without templates, or for API clients, data is written as JSON.
func (p *pages) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = auth.GetPrincipal(c)
	data["Flashes"] = p.sessions.PopFlashes(c.Request)

	if !p.html || isAPIRequest(c) {
		c.JSON(status, data)
		return
	}
	data["CSRFToken"] = auth.GetCSRFToken(c)
	c.HTML(status, name, data)
}

func (p *pages) flash(c *gin.Context, category, message string) {
	p.sessions.AddFlash(c.Request, category, message)
}

// redirect ends a form post: flash a message, then go to location.
func (p *pages) redirect(c *gin.Context, location, category, message string) {
	if message != "" {
		p.flash(c, category, message)
	}
	c.Redirect(http.StatusFound, location)
}

// fail maps a service error to a response. API clients get the status and a
// JSON body; browsers get a flash and a redirect to back where the rules
// allow it.
func (p *pages) fail(c *gin.Context, err error, back string) {
	if isAPIRequest(c) {
		respondServiceError(c, err, c.FullPath())
		return
	}

	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		p.redirect(c, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()), auth.FlashInfo, apperr.Message(err))
	case errors.Is(err, apperr.ErrForbidden):
		p.redirect(c, back, auth.FlashError, apperr.Message(err))
	case errors.Is(err, apperr.ErrConflict):
		p.redirect(c, back, auth.FlashError, apperr.Message(err))
	case errors.Is(err, apperr.ErrFileMissing):
		p.redirect(c, "/books", auth.FlashError, apperr.Message(err))
	case errors.Is(err, apperr.ErrNotFound):
		p.render(c, http.StatusNotFound, "error.html", gin.H{"Title": "Not Found", "Error": apperr.Message(err)})
	default:
		var verr *apperr.ValidationError
		if errors.As(err, &verr) {
			p.render(c, http.StatusBadRequest, "error.html", gin.H{"Title": "Invalid Request", "Error": apperr.Message(err), "Errors": verr.Fields})
			return
		}
		log.Printf("Internal error (%s): %v", c.FullPath(), err)
		p.render(c, http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "Error": apperr.Message(err)})
	}
}

// formError re-renders a form with its field messages when err is a
// validation or uniqueness failure, and reports whether it did.
func (p *pages) formError(c *gin.Context, err error, name string, data gin.H) bool {
	verr := apperr.AsValidation(err)
	if verr == nil {
		return false
	}
	status := http.StatusBadRequest
	if errors.Is(err, apperr.ErrConflict) {
		status = http.StatusConflict
	}
	data["Errors"] = verr.Fields
	if isAPIRequest(c) {
		c.JSON(status, ErrorResponse{Error: apperr.Message(err), Code: errorCode(err), Fields: verr.Fields})
		return true
	}
	p.render(c, status, name, data)
	return true
}
