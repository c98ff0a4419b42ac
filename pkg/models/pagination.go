package models

// PageRequest is a 1-based page window.
type PageRequest struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps the request into a usable window.
func (r PageRequest) Normalize(defLimit, maxLimit int) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit <= 0 {
		r.Limit = defLimit
	}
	if r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	return r
}

type PaginationResponse struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
	Count   int  `json:"count"`
	Total   int  `json:"total"`
}

// NewPagination describes the page req selects out of total items.
func NewPagination(req PageRequest, total int) PaginationResponse {
	start := (req.Page - 1) * req.Limit
	count := total - start
	if count < 0 {
		count = 0
	}
	if count > req.Limit {
		count = req.Limit
	}
	return PaginationResponse{
		Page:    req.Page,
		Limit:   req.Limit,
		HasMore: start+count < total,
		Count:   count,
		Total:   total,
	}
}
