package user

// Pagination represents pagination information for list responses.
type Pagination struct {
	Total      int64 // Total number of records
	Page       int64 // Current page number (1-based)
	Limit      int64 // Number of records per page
	TotalPages int64 // Total number of pages
}

// NewPagination creates a new Pagination instance with calculated total pages.
// An empty collection still reports one page.
func NewPagination(total, page, limit int64) *Pagination {
	totalPages := int64(1)
	if limit > 0 && total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	return &Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first record of the current page.
func (p *Pagination) Offset() int64 {
	return (p.Page - 1) * p.Limit
}
