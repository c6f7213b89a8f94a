package moderation

import (
	"testing"
)

func TestListQueryEncodeRepeatsStatusKeys(t *testing.T) {
	q := ListQuery{
		Page:   1,
		Limit:  10,
		Status: []string{"pending", "approved"},
	}

	v := q.Encode()
	statuses := v["status"]
	if len(statuses) != 2 {
		t.Fatalf("expected 2 status values, got %v", statuses)
	}
	if statuses[0] != "pending" || statuses[1] != "approved" {
		t.Errorf("status order not preserved: %v", statuses)
	}

	encoded := v.Encode()
	want := "limit=10&page=1&status=pending&status=approved"
	if encoded != want {
		t.Errorf("encoded = %q, want %q", encoded, want)
	}
}

func TestListQueryEncodeOmitsEmptyParams(t *testing.T) {
	q := ListQuery{Page: 2, Limit: 10}

	v := q.Encode()
	for _, key := range []string{"status", "categoryId", "minPrice", "maxPrice", "sortBy", "sortOrder", "search"} {
		if _, ok := v[key]; ok {
			t.Errorf("expected %s to be omitted, got %q", key, v.Get(key))
		}
	}
}

func TestListQueryEncodeFullTuple(t *testing.T) {
	min, max := 100.0, 2500.5
	q := ListQuery{
		Page:       3,
		Limit:      10,
		Status:     []string{"pending"},
		CategoryID: 7,
		MinPrice:   &min,
		MaxPrice:   &max,
		SortBy:     SortByPrice,
		SortOrder:  SortAsc,
		Search:     "ламповый телевизор",
	}

	v := q.Encode()
	if got := v.Get("categoryId"); got != "7" {
		t.Errorf("categoryId = %q", got)
	}
	if got := v.Get("minPrice"); got != "100" {
		t.Errorf("minPrice = %q", got)
	}
	if got := v.Get("maxPrice"); got != "2500.5" {
		t.Errorf("maxPrice = %q", got)
	}
	if got := v.Get("search"); got != "ламповый телевизор" {
		t.Errorf("search = %q", got)
	}
}

func TestListQueryKeyIsDeterministic(t *testing.T) {
	min := 50.0
	a := ListQuery{Page: 1, Limit: 10, Status: []string{"pending", "draft"}, MinPrice: &min, SortBy: SortByCreatedAt}
	b := ListQuery{Page: 1, Limit: 10, Status: []string{"pending", "draft"}, MinPrice: &min, SortBy: SortByCreatedAt}

	if a.Key() != b.Key() {
		t.Errorf("equal tuples produced different keys: %q vs %q", a.Key(), b.Key())
	}

	c := a
	c.Page = 2
	if a.Key() == c.Key() {
		t.Error("different pages produced the same key")
	}
}
