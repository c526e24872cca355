package handlers

import (
	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/types"
)

// getPaginationOptions returns a ListOptions struct with validated pagination parameters
func getPaginationOptions(page int) *models.ListOptions {
	// Validate and set defaults for page
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * models.DefaultLimit
	return &models.ListOptions{
		Limit:  models.DefaultLimit,
		Offset: offset,
	}
}

// paginate wraps one page of rows with its pagination block
func paginate[T any](rows []T, page int, opts *models.ListOptions) types.ListResponse[T] {
	if rows == nil {
		rows = []T{}
	}
	if page < 1 {
		page = 1
	}
	return types.ListResponse[T]{
		Rows: rows,
		Pagination: types.PaginationResponse{
			Total:  len(rows),
			Page:   page,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	}
}
