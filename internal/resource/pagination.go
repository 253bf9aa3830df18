// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

// Defaults applied when a list request or response leaves them out.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Pagination describes one page of a collection.
type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// SynthesizePagination derives pagination metadata from a total item count.
// Non-positive page and limit values fall back to DefaultPage and DefaultLimit.
func SynthesizePagination(total, page, limit int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// WithTotal returns the pagination recomputed for a new total.
func (p Pagination) WithTotal(total int) Pagination {
	return SynthesizePagination(total, p.Page, p.Limit)
}
