package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/auth"
	"github.com/mrlokans/elibrary/internal/database"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`   // machine-readable error code
	Fields  map[string]string `json:"fields,omitempty"` // per-field validation messages
	Details any               `json:"details,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func paginated[T any](p database.Page[T]) PaginatedResponse {
	return PaginatedResponse{
		Data:       p.Items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages(),
		HasPrev:    p.HasPrev(),
		HasNext:    p.HasNext(),
	}
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// formUint reads an unsigned form value; anything unparsable is 0.
func formUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(strings.TrimSpace(c.PostForm(name)), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

// formBool reads a checkbox value.
func formBool(c *gin.Context, name string) bool {
	switch strings.ToLower(c.PostForm(name)) {
	case "1", "true", "on", "y", "yes":
		return true
	}
	return false
}

// --- Service Error Mapping ---

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrFileMissing):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// errorCode is the machine-readable name of err's kind.
func errorCode(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusConflict:
		return "conflict"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusNotFound:
		if errors.Is(err, apperr.ErrFileMissing) {
			return "file_missing"
		}
		return "not_found"
	}
	return "internal"
}

// respondServiceError answers API clients with the mapped status and a JSON
// body. Internal errors are logged and hidden.
func respondServiceError(c *gin.Context, err error, context string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondInternalError(c, err, context)
		return
	}
	body := ErrorResponse{Error: apperr.Message(err), Code: errorCode(err)}
	if verr := apperr.AsValidation(err); verr != nil {
		body.Fields = verr.Fields
	}
	c.JSON(status, body)
}

// isAPIRequest reports whether the client expects JSON rather than redirects.
func isAPIRequest(c *gin.Context) bool {
	return auth.IsAPIRequest(c)
}
