package storage

import (
	"time"

	"github.com/platinummonkey/tenancy/pkg/models"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
	DefaultPage  = 1
	DefaultStart = 0

	// MaxPage and MaxStart keep Offset well inside int range
	MaxPage  = 1_000_000
	MaxStart = 100_000_000
)

// PageParams are the paging inputs every list accepts
type PageParams struct {
	Limit int
	Page  int
	Start int
}

// Normalize fills defaults and clamps out-of-range values
func (p PageParams) Normalize() PageParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Start < 0 {
		p.Start = DefaultStart
	}
	if p.Start > MaxStart {
		p.Start = MaxStart
	}
	return p
}

// Offset is the number of rows skipped: start plus the preceding pages
func (p PageParams) Offset() int {
	n := p.Normalize()
	return n.Start + (n.Page-1)*n.Limit
}

// TimeRange bounds a timestamp column; either end may be open
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

func (r TimeRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// Filter holds the filters shared by every entity
type Filter struct {
	CreatedAt TimeRange
	UpdatedAt TimeRange
}

type UserQuery struct {
	PageParams
	Filter
}

type AdminQuery struct {
	PageParams
	Filter
	Role *models.AdminRole
}

type OrganizationQuery struct {
	PageParams
	Filter
}

type BranchQuery struct {
	PageParams
	Filter
	OrganizationID string
}

type RelationQuery struct {
	PageParams
	Filter
	OrganizationID string
	BranchID       string
	UserID         string
	Role           *models.Role
	RelationType   *models.RelationType
}

// Page is a paginated list response
type Page[T any] struct {
	Total     int64 `json:"total"`
	Limit     int   `json:"limit"`
	Count     int   `json:"count"`
	Page      int   `json:"page"`
	PageCount int64 `json:"page_count"`
	Items     []T   `json:"items"`
}

// NewPage assembles a page; page_count is ceil(total/limit)
func NewPage[T any](items []T, total int64, params PageParams) *Page[T] {
	p := params.Normalize()
	if items == nil {
		items = []T{}
	}
	limit := int64(p.Limit)
	return &Page[T]{
		Total:     total,
		Limit:     p.Limit,
		Count:     len(items),
		Page:      p.Page,
		PageCount: (total + limit - 1) / limit,
		Items:     items,
	}
}
