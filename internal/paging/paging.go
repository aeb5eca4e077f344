package paging

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to 1..MaxLimit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Pages returns ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Result is one page of items plus the counts needed to render a pager.
type Result[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewResult[T any](items []T, total int, p Params) Result[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items: items,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: Pages(total, p.Limit),
	}
}
