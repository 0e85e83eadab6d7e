package models

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	SearchMaxLen = 255
)

// ListFilter selects a page of live users. Zero Page and Limit mean
// "use the default". Search matches name or email case-insensitively.
type ListFilter struct {
	Page   int
	Limit  int
	Search string
	Active *bool
}

// Normalized fills defaults and validates bounds.
func (f ListFilter) Normalized() (ListFilter, error) {
	var errs FieldErrors

	if f.Page == 0 {
		f.Page = DefaultPage
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Page < 1 {
		errs.add("page", "page must be greater than or equal to 1")
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		errs.add("limit", "limit must be between 1 and 100")
	}
	if len(f.Search) > SearchMaxLen {
		errs.add("search", "search must have at most 255 characters")
	}

	return f, errs.Err()
}

// Offset is the number of rows skipped before the page starts.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// NewPagination computes page metadata for a normalized filter.
func NewPagination(f ListFilter, total int) Pagination {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return Pagination{
		CurrentPage:  f.Page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: f.Limit,
		HasNextPage:  f.Page < pages,
		HasPrevPage:  f.Page > 1,
	}
}

// UserPage is one page of a listing.
type UserPage struct {
	Users      []*User
	Pagination Pagination
}

// Stats summarises live (not deleted) users.
type Stats struct {
	TotalUsers         int `json:"total_users"`
	ActiveUsers        int `json:"active_users"`
	InactiveUsers      int `json:"inactive_users"`
	NewUsersLast30Days int `json:"new_users_last_30_days"`
	NewUsersLast7Days  int `json:"new_users_last_7_days"`
}
