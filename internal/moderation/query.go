package moderation

import (
	"net/url"
	"strconv"
)

// Sort fields and orders accepted by the list endpoint.
const (
	SortByCreatedAt = "createdAt"
	SortByPrice     = "price"
	SortByPriority  = "priority"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListQuery is the full parameter tuple of one list request. The tuple is
// also the cache identity of the response, so two queries that encode to the
// same values are the same query.
type ListQuery struct {
	Page       int
	Limit      int
	Status     []string
	CategoryID int      // 0 means all categories and is omitted on the wire
	MinPrice   *float64 // nil omitted
	MaxPrice   *float64 // nil omitted
	SortBy     string
	SortOrder  string
	Search     string // applied search term, already trimmed
}

// Encode serializes the query for the list endpoint. Absent and empty
// parameters are omitted entirely; the status filter is serialized as
// repeated keys, not comma-joined.
func (q ListQuery) Encode() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	for _, s := range q.Status {
		if s != "" {
			v.Add("status", s)
		}
	}
	if q.CategoryID > 0 {
		v.Set("categoryId", strconv.Itoa(q.CategoryID))
	}
	if q.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sortOrder", q.SortOrder)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// Key returns the canonical cache key for the query. url.Values.Encode sorts
// parameter names, so equal tuples always produce equal keys and a late
// response for a superseded query can only ever land under its own key.
func (q ListQuery) Key() string {
	return q.Encode().Encode()
}
