package middleware

import (
	"authgate/internal/models"
	"authgate/internal/store"

	"github.com/gin-gonic/gin"
)

// Audit records each authenticated request after it completes. Writes are
// best-effort: an audit failure never fails the request. Must run after
// Authenticated so the acting user is known.
func Audit(s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		user := CurrentUser(c)
		if user == nil {
			return
		}

		entry := models.AuditLog{
			UserID:    &user.ID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		_ = s.CreateAuditLog(c.Request.Context(), &entry)
	}
}
