package pagination

import (
	"fmt"
	"math"

	apperrors "github.com/furkanugurlu/location-dashboard/pkg/errors"
)

const (
	// Up to this many pages every page number is listed.
	maxListedPages = 5
	edgeWindow     = 4
)

// Token is one entry of the page-number strip: a page number with the offset
// it links to, or an ellipsis.
type Token struct {
	Page     int  `json:"page,omitempty"`
	Offset   *int `json:"offset,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

func (t Token) String() string {
	if t.Ellipsis {
		return "..."
	}
	return fmt.Sprintf("%d", t.Page)
}

type PageView struct {
	Total       int     `json:"total"`
	Limit       int     `json:"limit"`
	Offset      int     `json:"offset"`
	CurrentPage int     `json:"current_page"`
	TotalPages  int     `json:"total_pages"`
	HasPrevious bool    `json:"has_previous"`
	HasNext     bool    `json:"has_next"`
	Pages       []Token `json:"pages"`

	Controls       bool `json:"show_controls"`
	PreviousOffset int  `json:"previous_offset"`
	NextOffset     int  `json:"next_offset"`
}

// Compute derives the navigation block for a total/limit/offset triple.
func Compute(total, limit, offset int) (PageView, error) {
	if limit <= 0 {
		return PageView{}, fmt.Errorf("limit %d: %w", limit, apperrors.ErrInvalidInput)
	}
	if total < 0 || offset < 0 {
		return PageView{}, fmt.Errorf("total %d offset %d: %w", total, offset, apperrors.ErrInvalidInput)
	}
	if offset > math.MaxInt-limit {
		return PageView{}, fmt.Errorf("offset %d out of range: %w", offset, apperrors.ErrInvalidInput)
	}

	v := PageView{
		Total:       total,
		Limit:       limit,
		Offset:      offset,
		CurrentPage: offset/limit + 1,
		TotalPages:  total / limit,
		HasPrevious: offset > 0,
		HasNext:     offset < total-limit, // offset+limit < total, without overflow
	}
	if total%limit != 0 {
		v.TotalPages++
	}
	v.Pages = window(v.CurrentPage, v.TotalPages)
	for i := range v.Pages {
		if !v.Pages[i].Ellipsis {
			off := (v.Pages[i].Page - 1) * limit
			v.Pages[i].Offset = &off
		}
	}
	v.Controls = v.ShowControls()
	v.PreviousOffset = v.Previous()
	v.NextOffset = v.Next()
	return v, nil
}

func window(current, totalPages int) []Token {
	pages := make([]Token, 0, 7)
	if totalPages <= maxListedPages {
		for i := 1; i <= totalPages; i++ {
			pages = append(pages, Token{Page: i})
		}
		return pages
	}

	ellipsis := Token{Ellipsis: true}
	switch {
	case current <= 3:
		for i := 1; i <= edgeWindow; i++ {
			pages = append(pages, Token{Page: i})
		}
		pages = append(pages, ellipsis, Token{Page: totalPages})
	case current >= totalPages-2:
		pages = append(pages, Token{Page: 1}, ellipsis)
		for i := totalPages - edgeWindow + 1; i <= totalPages; i++ {
			pages = append(pages, Token{Page: i})
		}
	default:
		pages = append(pages, Token{Page: 1}, ellipsis)
		for i := current - 1; i <= current+1; i++ {
			pages = append(pages, Token{Page: i})
		}
		pages = append(pages, ellipsis, Token{Page: totalPages})
	}
	return pages
}

// ShowControls is false when there is nothing to page through.
func (v PageView) ShowControls() bool {
	return v.TotalPages > 1
}

// GoToPage returns the offset of page n, clamped into [1, TotalPages].
func (v PageView) GoToPage(n int) int {
	if v.TotalPages == 0 || v.Limit <= 0 {
		return 0
	}
	if n < 1 {
		n = 1
	}
	if n > v.TotalPages {
		n = v.TotalPages
	}
	return (n - 1) * v.Limit
}

func (v PageView) Previous() int {
	if !v.HasPrevious {
		return v.Offset
	}
	if prev := v.Offset - v.Limit; prev > 0 {
		return prev
	}
	return 0
}

func (v PageView) Next() int {
	if !v.HasNext {
		return v.Offset
	}
	return v.Offset + v.Limit
}

type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

var DefaultLimits = Limits{DefaultLimit: 100, MaxLimit: 1000}

// Normalize applies defaults and limits to query-supplied paging parameters.
// The offset is capped so that offset+limit always fits in an int.
func Normalize(limit, offset int, limits Limits) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = limits.DefaultLimit
	}
	if limits.MaxLimit > 0 && limit > limits.MaxLimit {
		limit = limits.MaxLimit
	}
	if offset > math.MaxInt-limit {
		offset = math.MaxInt - limit
	}
	return limit, offset
}

// OffsetOf is the offset of 1-indexed page n for a page size of limit. Pages
// below 1 map to 0; the result saturates instead of overflowing.
func OffsetOf(n, limit int) int {
	if n <= 1 || limit <= 0 {
		return 0
	}
	if n-1 > (math.MaxInt-limit)/limit {
		return math.MaxInt - limit
	}
	return (n - 1) * limit
}
