package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		value  string
		wantID uint
		wantOK bool
	}{
		{"123", 123, true},
		{"abc", 0, false},
		{"-1", 0, false},
		{"0", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			id, ok := parseIDParam(c, "id")

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "invalid id")
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?page=3&bad=x&neg=-2", nil)

	assert.Equal(t, 3, queryInt(c, "page", 1))
	assert.Equal(t, 1, queryInt(c, "bad", 1))
	assert.Equal(t, 1, queryInt(c, "neg", 1))
	assert.Equal(t, 7, queryInt(c, "missing", 7))
}

func TestFormValues(t *testing.T) {
	form := url.Values{
		"category_id": {" 12 "},
		"junk":        {"twelve"},
		"is_admin":    {"on"},
		"other":       {"no"},
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	assert.Equal(t, uint(12), formUint(c, "category_id"))
	assert.Equal(t, uint(0), formUint(c, "junk"))
	assert.Equal(t, uint(0), formUint(c, "missing"))
	assert.True(t, formBool(c, "is_admin"))
	assert.False(t, formBool(c, "other"))
	assert.False(t, formBool(c, "missing"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.NewValidationError("title", "required"), http.StatusBadRequest, "validation"},
		{"not found", fmt.Errorf("book 3: %w", apperr.ErrNotFound), http.StatusNotFound, "not_found"},
		{"file missing", fmt.Errorf("open: %w", apperr.ErrFileMissing), http.StatusNotFound, "file_missing"},
		{"conflict", apperr.Conflict("username", "taken"), http.StatusConflict, "conflict"},
		{"rule conflict", apperr.Refuse(apperr.ErrConflict, "in use"), http.StatusConflict, "conflict"},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"unauthenticated", apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
			assert.Equal(t, tt.code, errorCode(tt.err))
		})
	}
}

func TestRespondServiceError(t *testing.T) {
	t.Run("conflict reports the field", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondServiceError(c, apperr.Conflict("email", "Please use a different email address."), "test")

		assert.Equal(t, http.StatusConflict, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "conflict", body.Code)
		assert.Equal(t, "Please use a different email address.", body.Fields["email"])
	})

	t.Run("internal errors are hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		respondServiceError(c, errors.New("connection refused at 10.0.0.3"), "test")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	})
}

func TestPaginated(t *testing.T) {
	resp := paginated(database.Page[string]{Items: []string{"a", "b"}, Total: 5, Page: 2, PageSize: 2})

	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasPrev)
	assert.True(t, resp.HasNext)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
}
