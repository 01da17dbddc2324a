// Package handlers – lookup audit endpoints
//
// This file implements the ops-facing views over the lookup audit trail: a
// newest-first page of recorded lookups and the aggregate stats counters.
// Persistence access goes through the LookupReader contract so the handler
// stays testable without a database.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-card-bot/internal/domain"
	"github.com/tbourn/go-card-bot/internal/repo"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LookupReader defines the audit-trail read contract required by
// LookupHandler.
type LookupReader interface {
	// Count returns the total number of audit rows.
	Count(ctx context.Context) (int64, error)

	// Page returns one page of audit rows, newest first.
	Page(ctx context.Context, offset, limit int) ([]domain.LookupRecord, error)

	// Stats computes the aggregate lookup counters.
	Stats(ctx context.Context) (*repo.LookupStats, error)
}

// LookupHandler exposes the audit trail over HTTP.
type LookupHandler struct {
	Reader LookupReader
}

// LookupPage is the paginated response shape for the lookup list.
type LookupPage struct {
	Items    []domain.LookupRecord `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// List returns one page of recorded lookups, newest first.
// GET /api/v1/lookups?page=<n>&page_size=<n>
func (h *LookupHandler) List(c *gin.Context) {
	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := intQuery(c, "page_size", defaultPageSize)
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	ctx := c.Request.Context()
	total, err := h.Reader.Count(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list lookups")
		return
	}

	items := []domain.LookupRecord{}
	if total > 0 {
		items, err = h.Reader.Page(ctx, (page-1)*size, size)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list lookups")
			return
		}
	}
	ok(c, http.StatusOK, LookupPage{Items: items, Total: total, Page: page, PageSize: size})
}

// Stats returns the aggregate lookup counters.
// GET /api/v1/stats
func (h *LookupHandler) Stats(c *gin.Context) {
	stats, err := h.Reader.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not compute stats")
		return
	}
	ok(c, http.StatusOK, stats)
}

// intQuery parses an integer query parameter, falling back to def on absence
// or parse failure.
func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
