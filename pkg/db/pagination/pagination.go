package pagination

import "gorm.io/gorm"

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params are the page parameters bound from the query string.
type Params struct {
	Page  int    `form:"page,default=1"`
	Limit int    `form:"limit,default=20"`
	Sort  string `form:"sort"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	HasMore    bool  `json:"hasMore"`
}

// Normalize clamps page and limit into their valid ranges.
func (p *Params) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Apply adds offset pagination to the query. Normalize first.
func Apply(q *gorm.DB, p Params) *gorm.DB {
	return q.Offset(p.Offset()).Limit(p.Limit)
}

func BuildPageInfo(p Params, total int64) PageInfo {
	return PageInfo{
		Page:       p.Page,
		Limit:      p.Limit,
		TotalCount: total,
		HasMore:    int64(p.Offset()+p.Limit) < total,
	}
}
