// Conversation history HTTP handler.
//
// Exposes GET /conversations/{sender}/messages, a paginated read view over
// the stored conversation log for one sender. Intended for operators and
// debugging tools rather than end users.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aurawell/go-coach-backend/internal/domain"
	"github.com/aurawell/go-coach-backend/internal/http/middleware"
	"github.com/aurawell/go-coach-backend/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// ListHistoryResponse contains a page of conversation entries and
// pagination metadata.
type ListHistoryResponse struct {
	Entries    []domain.Entry `json:"entries"`
	Pagination Pagination     `json:"pagination"`
}

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ListHistory returns a page of conversation entries for the sender in the
// path, ordered oldest first within the page.
func (h *Handlers) ListHistory(c *gin.Context) {
	sender := strings.TrimSpace(c.Param("sender"))
	if sender == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender id is required")
		return
	}

	page, pageSize := clampPagination(c)

	entries, total, err := h.history.HistoryPage(c.Request.Context(), sender, page, pageSize)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Str("sender", sender).Msg("history listing failed")
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list conversation history")
		return
	}
	if entries == nil {
		entries = []domain.Entry{}
	}

	ok(c, http.StatusOK, ListHistoryResponse{
		Entries: entries,
		Pagination: Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}
