package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/library"
)

// AccountController serves the reader dashboard and profile pages.
type AccountController struct {
	*pages
	library *library.Service
}

// NewAccountController creates an account controller.
func NewAccountController(lib *library.Service, p *pages) *AccountController {
	return &AccountController{pages: p, library: lib}
}

// Dashboard handles GET /dashboard
func (ac *AccountController) Dashboard(c *gin.Context) {
	dash, err := ac.library.UserDashboard(c.Request.Context(), auth.GetPrincipal(c))
	if err != nil {
		ac.fail(c, err, "/admin")
		return
	}

	ac.render(c, http.StatusOK, "dashboard.html", gin.H{
		"Title":         "Dashboard",
		"RecentBooks":   dash.RecentBooks,
		"UserDownloads": dash.DownloadCount,
	})
}

// Profile handles GET /profile
func (ac *AccountController) Profile(c *gin.Context) {
	data, err := ac.profileData(c)
	if err != nil {
		ac.fail(c, err, "/admin")
		return
	}
	ac.render(c, http.StatusOK, "profile.html", data)
}

// UpdateProfile handles POST /profile. The submit button name picks the
// form: update_profile or change_password.
func (ac *AccountController) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	principal := auth.GetPrincipal(c)

	switch {
	case c.PostForm("update_profile") != "":
		in := library.ProfileInput{
			Username: c.PostForm("username"),
			Email:    c.PostForm("email"),
			FullName: c.PostForm("full_name"),
		}
		if _, err := ac.library.UpdateProfile(ctx, principal, in); err != nil {
			if ac.profileError(c, err, gin.H{"Form": in}) {
				return
			}
			ac.fail(c, err, "/profile")
			return
		}
		ac.redirect(c, "/profile", auth.FlashSuccess, "Profile updated successfully!")

	case c.PostForm("change_password") != "":
		in := library.PasswordInput{
			CurrentPassword: c.PostForm("current_password"),
			Password:        c.PostForm("password"),
			PasswordConfirm: c.PostForm("password2"),
		}
		if err := ac.library.ChangePassword(ctx, principal, in); err != nil {
			if ac.profileError(c, err, gin.H{}) {
				return
			}
			ac.fail(c, err, "/profile")
			return
		}
		ac.redirect(c, "/profile", auth.FlashSuccess, "Password changed successfully!")

	default:
		c.Redirect(http.StatusFound, "/profile")
	}
}

// profileError re-renders the profile page with field messages.
func (ac *AccountController) profileError(c *gin.Context, err error, form gin.H) bool {
	verr := apperr.AsValidation(err)
	if verr == nil {
		return false
	}
	data, loadErr := ac.profileData(c)
	if loadErr != nil {
		ac.fail(c, loadErr, "/admin")
		return true
	}
	for k, v := range form {
		data[k] = v
	}
	if msg, ok := verr.Fields["current_password"]; ok && !isAPIRequest(c) {
		ac.flash(c, auth.FlashError, msg)
	}
	return ac.formError(c, err, "profile.html", data)
}

// profileData loads the caller's account and recent downloads.
func (ac *AccountController) profileData(c *gin.Context) (gin.H, error) {
	principal := auth.GetPrincipal(c)
	ctx := c.Request.Context()

	user, err := ac.library.Profile(ctx, principal)
	if err != nil {
		return nil, err
	}
	downloads, err := ac.library.ProfileDownloads(ctx, principal)
	if err != nil {
		return nil, err
	}

	return gin.H{
		"Title":         "Profile",
		"User":          user,
		"UserDownloads": downloads,
		"Form":          library.ProfileInput{Username: user.Username, Email: user.Email, FullName: user.FullName},
	}, nil
}
