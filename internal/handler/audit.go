package handler

import (
	"net/http"
	"strconv"

	"authgate/internal/store"
	"authgate/internal/util"

	"github.com/gin-gonic/gin"
)

// AuditHandler serves the audit trail. Superuser only (router-guarded).
type AuditHandler struct {
	Store *store.Store
}

func NewAuditHandler(s *store.Store) *AuditHandler {
	return &AuditHandler{Store: s}
}

// ListLogs returns the newest audit entries, newest first.
func (h *AuditHandler) ListLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.Store.ListAuditLogs(c.Request.Context(), limit)
	if err != nil {
		util.Error(c, http.StatusServiceUnavailable, util.CodeStoreErr, "credential store unavailable")
		return
	}

	infos := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, gin.H{
			"id":         e.ID,
			"user_id":    e.UserID,
			"method":     e.Method,
			"path":       e.Path,
			"status":     e.Status,
			"ip":         e.IP,
			"user_agent": e.UserAgent,
			"created_at": e.CreatedAt,
		})
	}
	util.Success(c, util.Response{"logs": infos})
}
