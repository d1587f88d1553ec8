package user

// SearchAll is the search sentinel that disables filtering.
const SearchAll = "all"

// Sortable columns.
const (
	SortByFirstName = "first_name"
	SortByLastName  = "last_name"
	SortByEmail     = "email"
	SortByCreatedAt = "created_at"
)

// OrderDesc selects descending order. Any other value sorts ascending.
const OrderDesc = "desc"

// ListQuery describes one page of the filtered, sorted listing of active users.
type ListQuery struct {
	Offset int    // Offset is the number of matching rows to skip
	Limit  int    // Limit is the maximum number of rows to return
	Search string // Search is a substring matched against names and email; SearchAll or empty disables it
	SortBy string // SortBy is one of the SortBy* columns; anything else falls back to created_at desc
	Order  string // Order is OrderDesc or anything else for ascending
}

// HasSearch reports whether the query filters by search text.
func (q ListQuery) HasSearch() bool {
	return q.Search != "" && q.Search != SearchAll
}

// SortKey is one ORDER BY term.
type SortKey struct {
	Column string
	Desc   bool
}

// SortKeys resolves the ORDER BY terms for the query.
//
// A recognized name or email column sorts by that column in the requested
// order with created_at descending as the tie-breaker. created_at sorts in
// the requested order alone. Any other SortBy ignores Order and sorts by
// created_at descending.
func (q ListQuery) SortKeys() []SortKey {
	desc := q.Order == OrderDesc

	switch q.SortBy {
	case SortByFirstName, SortByLastName, SortByEmail:
		return []SortKey{
			{Column: q.SortBy, Desc: desc},
			{Column: SortByCreatedAt, Desc: true},
		}
	case SortByCreatedAt:
		return []SortKey{{Column: SortByCreatedAt, Desc: desc}}
	default:
		return []SortKey{{Column: SortByCreatedAt, Desc: true}}
	}
}
