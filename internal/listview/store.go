// Package listview holds the review queue's query state and its cached
// fetcher. All filter, sort, pagination and selection invariants are
// enforced here, in one place, rather than scattered across callers.
package listview

import (
	"strconv"
	"strings"
	"sync"

	"github.com/openadmod/console/internal/models"
	"github.com/openadmod/console/internal/moderation"
)

// CategoryAll selects every category; it is omitted from upstream queries.
const CategoryAll = 0

// DefaultPageLimit is the queue page size.
const DefaultPageLimit = 10

// State is a snapshot of the queue's query and selection state.
type State struct {
	Page        int
	Status      []string
	CategoryID  int    // CategoryAll or a concrete category id
	MinPrice    string // raw input, parsed on query build
	MaxPrice    string
	SortBy      string
	SortOrder   string
	SearchInput string // what the moderator is typing
	Search      string // the applied, trimmed term; only changes on ApplySearch

	SelectedIndex int
	ListLength    int // item count of the currently loaded page
}

// Store owns the query state. Every mutation goes through one of the event
// methods below; changing anything that alters the list's composition resets
// the page to 1 and the selection cursor to 0.
type Store struct {
	mu    sync.Mutex
	state State
	limit int
}

// NewStore returns a store at the documented defaults: pending queue,
// all categories, newest first, no search, page 1.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return &Store{state: defaultState(), limit: limit}
}

func defaultState() State {
	return State{
		Page:      1,
		Status:    []string{models.StatusPending},
		SortBy:    moderation.SortByCreatedAt,
		SortOrder: moderation.SortDesc,
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Status = append([]string(nil), s.state.Status...)
	return st
}

// filterChanged applies the shared invariant for any mutation that changes
// the list's composition: back to the first page, cursor to the top.
func (s *Store) filterChanged() {
	s.state.Page = 1
	s.state.SelectedIndex = 0
}

// SetPage moves to another page of the same query. Filters are preserved;
// only the selection cursor resets.
func (s *Store) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Page = page
	s.state.SelectedIndex = 0
}

// SetStatusFilter replaces the set of selected statuses.
func (s *Store) SetStatusFilter(statuses []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = append([]string(nil), statuses...)
	s.filterChanged()
}

// SetCategory selects a category filter, CategoryAll for no filter.
func (s *Store) SetCategory(id int) {
	if id < 0 {
		id = CategoryAll
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CategoryID = id
	s.filterChanged()
}

// SetMinPrice sets the lower price bound from its raw input string.
func (s *Store) SetMinPrice(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MinPrice = v
	s.filterChanged()
}

// SetMaxPrice sets the upper price bound from its raw input string.
func (s *Store) SetMaxPrice(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MaxPrice = v
	s.filterChanged()
}

// SetSortBy changes the sort field.
func (s *Store) SetSortBy(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SortBy = field
	s.filterChanged()
}

// SetSortOrder changes the sort direction.
func (s *Store) SetSortOrder(order string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SortOrder = order
	s.filterChanged()
}

// SetSearchInput updates the raw search text. Typing never triggers a
// fetch; the applied term only changes on ApplySearch.
func (s *Store) SetSearchInput(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SearchInput = v
}

// ApplySearch promotes the trimmed raw input to the applied search term.
// Re-applying an unchanged term produces an identical query key, so the
// cache absorbs it without a new upstream call.
func (s *Store) ApplySearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Search = strings.TrimSpace(s.state.SearchInput)
	s.filterChanged()
}

// ResetFilters restores every field to the documented defaults.
func (s *Store) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = defaultState()
}

// SetListLength records the item count of the loaded page and resets the
// selection cursor, as the previous selection is meaningless after a fetch.
func (s *Store) SetListLength(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ListLength = n
	s.state.SelectedIndex = 0
}

// GoToNext moves the selection cursor down, clamped to the last row.
func (s *Store) GoToNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedIndex = clamp(s.state.SelectedIndex+1, s.state.ListLength)
}

// GoToPrev moves the selection cursor up, clamped to the first row.
func (s *Store) GoToPrev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedIndex = clamp(s.state.SelectedIndex-1, s.state.ListLength)
}

// OpenIndex moves the cursor to idx when it addresses a loaded row.
// Out-of-range requests are ignored.
func (s *Store) OpenIndex(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= s.state.ListLength {
		return
	}
	s.state.SelectedIndex = idx
}

func clamp(idx, length int) int {
	max := length - 1
	if max < 0 {
		max = 0
	}
	if idx < 0 {
		return 0
	}
	if idx > max {
		return max
	}
	return idx
}

// Query materializes the upstream list query for the current state. Empty
// price inputs and unparseable numbers are omitted rather than sent.
func (s *Store) Query() moderation.ListQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return moderation.ListQuery{
		Page:       s.state.Page,
		Limit:      s.limit,
		Status:     append([]string(nil), s.state.Status...),
		CategoryID: s.state.CategoryID,
		MinPrice:   parsePrice(s.state.MinPrice),
		MaxPrice:   parsePrice(s.state.MaxPrice),
		SortBy:     s.state.SortBy,
		SortOrder:  s.state.SortOrder,
		Search:     s.state.Search,
	}
}

func parsePrice(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil
	}
	return &f
}
