// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/url"
	"strconv"

	"github.com/olegiv/clinic-admin/internal/resource"
)

// pageWindow is the number of numbered links shown around the current page.
const pageWindow = 5

// AdminPagination holds pagination data for admin templates.
type AdminPagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	PerPage     int
	HasPrev     bool
	HasNext     bool
	Pages       []AdminPaginationPage
	BaseURL     string
	QueryString string
}

// AdminPaginationPage represents a single page link in admin pagination.
type AdminPaginationPage struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// BuildAdminPagination creates pagination links from the pagination returned
// by the API. queryParams other than page are preserved in every link.
func BuildAdminPagination(p resource.Pagination, baseURL string, queryParams url.Values) AdminPagination {
	totalPages := max(p.TotalPages, 1)
	current := min(max(p.Page, 1), totalPages)

	pagination := AdminPagination{
		CurrentPage: current,
		TotalPages:  totalPages,
		TotalItems:  p.Total,
		PerPage:     p.Limit,
		HasPrev:     p.HasPrevPage,
		HasNext:     p.HasNextPage,
		BaseURL:     baseURL,
	}

	if queryParams != nil {
		params := make(url.Values)
		for k, v := range queryParams {
			if k != "page" && len(v) > 0 && v[0] != "" {
				params[k] = v
			}
		}
		if len(params) > 0 {
			pagination.QueryString = params.Encode()
		}
	}

	start := current - pageWindow/2
	end := current + pageWindow/2
	if start < 1 {
		start = 1
		end = pageWindow
	}
	if end > totalPages {
		end = totalPages
		start = max(end-pageWindow+1, 1)
	}

	if start > 1 {
		pagination.Pages = append(pagination.Pages, AdminPaginationPage{Number: 1, URL: pagination.PageURL(1)})
		if start > 2 {
			pagination.Pages = append(pagination.Pages, AdminPaginationPage{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		pagination.Pages = append(pagination.Pages, AdminPaginationPage{
			Number:    i,
			URL:       pagination.PageURL(i),
			IsCurrent: i == current,
		})
	}
	if end < totalPages {
		if end < totalPages-1 {
			pagination.Pages = append(pagination.Pages, AdminPaginationPage{IsEllipsis: true})
		}
		pagination.Pages = append(pagination.Pages, AdminPaginationPage{Number: totalPages, URL: pagination.PageURL(totalPages)})
	}

	return pagination
}

// PageURL returns the URL for a specific page number.
func (p AdminPagination) PageURL(page int) string {
	if p.QueryString != "" {
		return p.BaseURL + "?" + p.QueryString + "&page=" + strconv.Itoa(page)
	}
	return p.BaseURL + "?page=" + strconv.Itoa(page)
}

// PrevURL returns the URL for the previous page.
func (p AdminPagination) PrevURL() string {
	return p.PageURL(p.CurrentPage - 1)
}

// NextURL returns the URL for the next page.
func (p AdminPagination) NextURL() string {
	return p.PageURL(p.CurrentPage + 1)
}

// ShouldShow returns true if pagination should be displayed (more than 1 page).
func (p AdminPagination) ShouldShow() bool {
	return p.TotalPages > 1
}
