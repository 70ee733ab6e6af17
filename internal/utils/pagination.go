package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow/internal/constants"
)

// PaginationParams is a 1-based page request
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// NewPaginationParams clamps page and limit to the allowed range.
// Out-of-range limits fall back to the default page size, and page is capped
// so that the offset cannot overflow.
func NewPaginationParams(page, limit int) PaginationParams {
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	page = min(max(page, constants.MinPageSize), math.MaxInt/limit)
	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetPaginationParams reads ?page and ?limit; unparsable values count as missing
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = constants.DefaultPageSize
	}
	return NewPaginationParams(page, limit)
}

// Window returns the [start, end) slice bounds of this page over total items
func (p PaginationParams) Window(total int) (int, int) {
	start := min(max(p.Offset, 0), total)
	end := min(start+p.Limit, total)
	return start, end
}

// Response builds the pagination metadata for a result of total items
func (p PaginationParams) Response(total int64) PaginationResponse {
	return PaginationResponse{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
	}
}
