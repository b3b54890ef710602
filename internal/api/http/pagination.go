package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Pagination reads ?limit= and ?offset=, clamping limit to [1, MaxPageSize].
func Pagination(c *gin.Context) (limit, offset int) {
	limit = DefaultPageSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// Page is the envelope for paginated list responses.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func NewPage[T any](items []T, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total}
}
