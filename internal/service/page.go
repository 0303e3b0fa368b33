package service

const maxPerPage = 50

// PageRequest is a 1-based page request. Zero values fall back to defaults.
type PageRequest struct {
	Page    int
	PerPage int
}

type Pagination struct {
	Total       int  `json:"total"`
	Count       int  `json:"count"`
	PerPage     int  `json:"per_page"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	HasMore     bool `json:"has_more"`
}

func (p PageRequest) normalize(defaultPerPage int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p PageRequest) limitOffset() (uint, uint) {
	return uint(p.PerPage), uint((p.Page - 1) * p.PerPage)
}

func newPagination(p PageRequest, total, count int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Pagination{
		Total:       total,
		Count:       count,
		PerPage:     p.PerPage,
		CurrentPage: p.Page,
		TotalPages:  pages,
		HasMore:     p.Page < pages,
	}
}
