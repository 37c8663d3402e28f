// Package auth implements the session gate of the library: password hashing,
// credential checks, cookie sessions, CSRF protection and login throttling.
//
// Every request passes through Middleware.Handler, which turns a session into
// an *entities.Principal on the gin context. Routes then declare what they
// need:
//
//	router.Use(sessions.SessionLoadSave(), mw.Handler())
//	admin := router.Group("/admin", mw.RequireAdmin())
//	router.GET("/dashboard", mw.RequireAuth(), mw.RequireNonAdmin(""), ...)
//
// Handlers read the caller with GetPrincipal(c).
package auth
