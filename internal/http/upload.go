package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/elibrary/internal/utils"
)

// multipartOverhead is the room allowed for form fields and boundaries on
// top of the file size limit.
const multipartOverhead = 1 << 20

// uploadRoutes are the POST paths that accept a book file.
var uploadRoutes = map[string]bool{
	"/admin/books/add": true,
}

// UploadLimitMiddleware guards the upload routes. It must run before CSRF
// and session middleware: those replace c.Request with copies, and only the
// form parsed here is guaranteed to have its temp files removed.
//
// Bodies that declare a length over the limit are refused unread. Others
// are parsed once under http.MaxBytesReader, holding up to maxMemory bytes
// in memory and spilling the rest to temp files.
func UploadLimitMiddleware(maxBytes, maxMemory int64) gin.HandlerFunc {
	limit := maxBytes + multipartOverhead
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || !uploadRoutes[c.Request.URL.Path] {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			rejectOversize(c, maxBytes)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		err := c.Request.ParseMultipartForm(maxMemory)
		if form := c.Request.MultipartForm; form != nil {
			defer func() {
				if err := form.RemoveAll(); err != nil {
					log.Printf("Failed to remove multipart temp files: %v", err)
				}
			}()
		}

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rejectOversize(c, maxBytes)
			return
		}
		c.Next()
	}
}

func rejectOversize(c *gin.Context, maxBytes int64) {
	msg := "File is larger than " + utils.FormatSize(maxBytes) + "."
	if isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:  msg,
			Code:   "too_large",
			Fields: map[string]string{"file": msg},
		})
		return
	}
	c.Data(http.StatusRequestEntityTooLarge, "text/plain; charset=utf-8", []byte(msg))
	c.Abort()
}
