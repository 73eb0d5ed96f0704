package pagination

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	apperrors "github.com/furkanugurlu/location-dashboard/pkg/errors"
)

func strip(v PageView) string {
	parts := make([]string, 0, len(v.Pages))
	for _, p := range v.Pages {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, " ")
}

func mustCompute(t *testing.T, total, limit, offset int) PageView {
	t.Helper()
	v, err := Compute(total, limit, offset)
	if err != nil {
		t.Fatalf("compute(%d,%d,%d): %v", total, limit, offset, err)
	}
	return v
}

func TestComputeNoRecords(t *testing.T) {
	v := mustCompute(t, 0, 10, 0)
	if v.TotalPages != 0 {
		t.Fatalf("expected 0 pages, got %d", v.TotalPages)
	}
	if v.ShowControls() {
		t.Fatalf("no controls expected without pages")
	}
	if len(v.Pages) != 0 {
		t.Fatalf("expected empty window, got %v", v.Pages)
	}
}

func TestComputeFirstAndLastPage(t *testing.T) {
	v := mustCompute(t, 95, 10, 0)
	if v.CurrentPage != 1 || v.TotalPages != 10 || v.HasPrevious || !v.HasNext {
		t.Fatalf("first page: %+v", v)
	}

	v = mustCompute(t, 95, 10, 90)
	if v.CurrentPage != 10 || v.HasNext || !v.HasPrevious {
		t.Fatalf("last page: %+v", v)
	}
}

func TestComputeWindow(t *testing.T) {
	cases := []struct {
		name   string
		total  int
		offset int
		want   string
	}{
		{"few pages", 45, 20, "1 2 3 4 5"},
		{"middle", 200, 90, "1 ... 9 10 11 ... 20"},
		{"near start", 200, 20, "1 2 3 4 ... 20"},
		{"near end", 200, 180, "1 ... 17 18 19 20"},
		{"first of many", 200, 0, "1 2 3 4 ... 20"},
		{"last of many", 200, 190, "1 ... 17 18 19 20"},
		{"six pages page four", 60, 30, "1 ... 3 4 5 6"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := mustCompute(t, tc.total, 10, tc.offset)
			if got := strip(v); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
			if len(v.Pages) > 7 {
				t.Fatalf("window too wide: %d tokens", len(v.Pages))
			}
		})
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	for _, in := range [][3]int{{10, 0, 0}, {10, -5, 0}, {-1, 10, 0}, {10, 10, -1}, {10, 1, math.MaxInt}} {
		if _, err := Compute(in[0], in[1], in[2]); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("compute%v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestNavigation(t *testing.T) {
	v := mustCompute(t, 95, 10, 0)
	if v.Previous() != 0 {
		t.Fatalf("previous on first page must be a no-op")
	}
	if v.Next() != 10 {
		t.Fatalf("next: got %d", v.Next())
	}

	v = mustCompute(t, 95, 10, 90)
	if v.Next() != 90 {
		t.Fatalf("next on last page must be a no-op")
	}
	if v.Previous() != 80 {
		t.Fatalf("previous: got %d", v.Previous())
	}

	// Offsets not aligned to the limit still floor at zero.
	v = mustCompute(t, 95, 10, 5)
	if v.Previous() != 0 {
		t.Fatalf("previous must floor at 0, got %d", v.Previous())
	}
}

func TestGoToPageClamps(t *testing.T) {
	v := mustCompute(t, 95, 10, 0)
	cases := map[int]int{1: 0, 4: 30, 10: 90, 0: 0, -3: 0, 11: 90, 999: 90}
	for page, want := range cases {
		if got := v.GoToPage(page); got != want {
			t.Fatalf("page %d: got offset %d want %d", page, got, want)
		}
	}

	empty := mustCompute(t, 0, 10, 0)
	if empty.GoToPage(3) != 0 {
		t.Fatalf("no pages: expected offset 0")
	}
}

func TestNormalize(t *testing.T) {
	limits := Limits{DefaultLimit: 100, MaxLimit: 500}
	if l, o := Normalize(0, -4, limits); l != 100 || o != 0 {
		t.Fatalf("defaults: %d %d", l, o)
	}
	if l, _ := Normalize(5000, 0, limits); l != 500 {
		t.Fatalf("cap: %d", l)
	}
	if l, o := Normalize(25, 50, limits); l != 25 || o != 50 {
		t.Fatalf("passthrough: %d %d", l, o)
	}
}

func TestComputeHugeOffsetDoesNotOverflow(t *testing.T) {
	cases := []struct {
		name   string
		total  int
		limit  int
		offset int
	}{
		{"near max offset", 3, 10, math.MaxInt - 10},
		{"max total", math.MaxInt, 10, math.MaxInt - 10},
		{"past the end", 3, 10, 5000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := mustCompute(t, tc.total, tc.limit, tc.offset)
			if v.HasNext {
				t.Fatalf("no next page expected: %+v", v)
			}
			if v.Next() != tc.offset || v.NextOffset < 0 || v.PreviousOffset < 0 {
				t.Fatalf("navigation went out of range: next=%d prev=%d", v.NextOffset, v.PreviousOffset)
			}
			if v.TotalPages <= 0 {
				t.Fatalf("total pages: %d", v.TotalPages)
			}
		})
	}
}

func TestPageViewJSON(t *testing.T) {
	v := mustCompute(t, 200, 10, 90)
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got struct {
		ShowControls   bool `json:"show_controls"`
		PreviousOffset int  `json:"previous_offset"`
		NextOffset     int  `json:"next_offset"`
		Pages          []struct {
			Page     int  `json:"page"`
			Offset   *int `json:"offset"`
			Ellipsis bool `json:"ellipsis"`
		} `json:"pages"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.ShowControls || got.PreviousOffset != 80 || got.NextOffset != 100 {
		t.Fatalf("unexpected navigation %s", raw)
	}
	for _, p := range got.Pages {
		if p.Ellipsis {
			if p.Offset != nil {
				t.Fatalf("ellipsis should carry no offset: %s", raw)
			}
			continue
		}
		if p.Offset == nil || *p.Offset != (p.Page-1)*10 {
			t.Fatalf("page %d has the wrong offset: %s", p.Page, raw)
		}
	}

	empty := mustCompute(t, 0, 10, 0)
	if empty.Controls || empty.NextOffset != 0 {
		t.Fatalf("empty view should hide controls: %+v", empty)
	}
}

func TestNormalizeCapsOffset(t *testing.T) {
	l, o := Normalize(10, math.MaxInt-5, DefaultLimits)
	if l != 10 || o != math.MaxInt-10 {
		t.Fatalf("got %d %d", l, o)
	}
	if _, err := Compute(3, l, o); err != nil {
		t.Fatalf("normalized input must be computable: %v", err)
	}
}

func TestOffsetOf(t *testing.T) {
	cases := []struct {
		page, limit, want int
	}{
		{1, 10, 0},
		{0, 10, 0},
		{-2, 10, 0},
		{4, 25, 75},
		{math.MaxInt, 10, math.MaxInt - 10},
	}
	for _, tc := range cases {
		if got := OffsetOf(tc.page, tc.limit); got != tc.want {
			t.Fatalf("page %d limit %d: got %d want %d", tc.page, tc.limit, got, tc.want)
		}
	}
}
