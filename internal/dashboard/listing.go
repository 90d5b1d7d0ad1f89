package dashboard

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "consultant-dashboard/internal/domain/user"
	ucuser "consultant-dashboard/internal/usecase/user"
	"consultant-dashboard/pkg/format"
)

// AllConsultants is the consultant filter value that disables the filter.
const AllConsultants = "all"

// Sort directions. An empty direction leaves rows in fetch order.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultPageSize is the page size of a fresh listing.
const DefaultPageSize = 10

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 20, 30, 40, 50}

// SortFields are the sortable columns.
var SortFields = []string{"name", "email", "phone", "cpf", "age", "address", "consultant", "createdAt", "updatedAt"}

// Listing is the view state of the users table. Its JSON form is the set of
// client-side signals the dashboard round-trips on every interaction.
type Listing struct {
	Query      string   `json:"query"`
	Consultant string   `json:"consultant"`
	SortField  string   `json:"sortField"`
	SortDir    string   `json:"sortDir"`
	Page       int      `json:"page"` // zero-based
	PageSize   int      `json:"pageSize"`
	Selected   []string `json:"selected"`
}

// NewListing returns the initial listing state.
func NewListing() Listing {
	return Listing{Consultant: AllConsultants, PageSize: DefaultPageSize, Selected: []string{}}
}

// Normalize replaces out-of-range values with their defaults.
func (l *Listing) Normalize() {
	if !slices.Contains(PageSizes, l.PageSize) {
		l.PageSize = DefaultPageSize
	}
	if l.Consultant == "" {
		l.Consultant = AllConsultants
	}
	if !slices.Contains(SortFields, l.SortField) || (l.SortDir != SortAsc && l.SortDir != SortDesc) {
		l.SortField, l.SortDir = "", ""
	}
	if l.Page < 0 {
		l.Page = 0
	}
	if l.Selected == nil {
		l.Selected = []string{}
	}
}

// SetQuery changes the free-text filter and returns to the first page.
func (l *Listing) SetQuery(q string) {
	l.Query = q
	l.Page = 0
}

// SetConsultant changes the consultant filter and returns to the first page.
func (l *Listing) SetConsultant(id string) {
	if id == "" {
		id = AllConsultants
	}
	l.Consultant = id
	l.Page = 0
}

// ClearFilters resets both filters.
func (l *Listing) ClearFilters() {
	l.Query = ""
	l.Consultant = AllConsultants
	l.Page = 0
}

// HasActiveFilters reports whether any filter narrows the rows.
func (l *Listing) HasActiveFilters() bool {
	return l.Consultant != AllConsultants || strings.TrimSpace(l.Query) != ""
}

// ToggleSort cycles field through ascending, descending and unsorted.
// Switching to another field starts at ascending.
func (l *Listing) ToggleSort(field string) {
	if !slices.Contains(SortFields, field) {
		return
	}
	if l.SortField != field {
		l.SortField, l.SortDir = field, SortAsc
		return
	}
	switch l.SortDir {
	case SortAsc:
		l.SortDir = SortDesc
	case SortDesc:
		l.SortField, l.SortDir = "", ""
	default:
		l.SortDir = SortAsc
	}
}

// SetPageSize changes the page size, keeping the first visible row on screen.
// Sizes outside PageSizes are ignored.
func (l *Listing) SetPageSize(size int) {
	if !slices.Contains(PageSizes, size) {
		return
	}
	top := l.Page * l.PageSize
	l.PageSize = size
	l.Page = top / size
}

// GoTo moves to page index p; Apply clamps it to the available pages.
func (l *Listing) GoTo(p int) {
	if p < 0 {
		p = 0
	}
	l.Page = p
}

// IsSelected reports whether the row with id is selected.
func (l *Listing) IsSelected(id string) bool {
	return slices.Contains(l.Selected, id)
}

// ToggleRow flips the selection of one row.
func (l *Listing) ToggleRow(id string) {
	if i := slices.Index(l.Selected, id); i >= 0 {
		l.Selected = slices.Delete(l.Selected, i, i+1)
		return
	}
	l.Selected = append(l.Selected, id)
}

// ToggleAll selects every id, or clears them when all are already selected.
func (l *Listing) ToggleAll(ids []string) {
	all := len(ids) > 0
	for _, id := range ids {
		if !l.IsSelected(id) {
			all = false
			break
		}
	}

	if all {
		l.Selected = slices.DeleteFunc(l.Selected, func(s string) bool { return slices.Contains(ids, s) })
		return
	}
	for _, id := range ids {
		if !l.IsSelected(id) {
			l.Selected = append(l.Selected, id)
		}
	}
}

// Page is one rendered page of the listing.
type Page struct {
	Rows          []ucuser.User
	Index         int // zero-based
	Count         int
	Filtered      int
	Total         int
	SelectedCount int // selected rows among the filtered ones
	HasPrev       bool
	HasNext       bool
}

// AllSelected reports whether every row of the page is selected.
func (p Page) AllSelected(l Listing) bool {
	if len(p.Rows) == 0 {
		return false
	}
	for _, r := range p.Rows {
		if !l.IsSelected(r.ID) {
			return false
		}
	}
	return true
}

// RowIDs returns the IDs of the rows on the page.
func (p Page) RowIDs() []string {
	ids := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		ids[i] = r.ID
	}
	return ids
}

// Apply filters, sorts and paginates users. It clamps l.Page to the result.
func (l *Listing) Apply(users []ucuser.User) Page {
	l.Normalize()

	filtered := l.filter(users)
	l.sort(filtered)

	p := domain.NewPagination(int64(len(filtered)), int64(l.Page+1), int64(l.PageSize))
	l.Page = int(p.Page - 1)

	start := int(p.Offset())
	end := min(start+l.PageSize, len(filtered))

	selected := 0
	for _, u := range filtered {
		if l.IsSelected(u.ID) {
			selected++
		}
	}

	return Page{
		Rows:          filtered[start:end],
		Index:         l.Page,
		Count:         int(p.TotalPages),
		Filtered:      len(filtered),
		Total:         len(users),
		SelectedCount: selected,
		HasPrev:       p.Page > 1,
		HasNext:       p.Page < p.TotalPages,
	}
}

func (l *Listing) filter(users []ucuser.User) []ucuser.User {
	query := fold(strings.TrimSpace(l.Query))
	digits := format.Digits(query)

	out := make([]ucuser.User, 0, len(users))
	for _, u := range users {
		if l.Consultant != AllConsultants && (u.ConsultantID == nil || *u.ConsultantID != l.Consultant) {
			continue
		}
		if query != "" && !matches(u, query, digits) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func matches(u ucuser.User, query, digits string) bool {
	if strings.Contains(fold(u.Name), query) || strings.Contains(fold(u.Email), query) {
		return true
	}
	if digits != "" && (strings.Contains(u.CPF, digits) || strings.Contains(u.Phone, digits)) {
		return true
	}
	return strings.Contains(u.CPF, query) || strings.Contains(u.Phone, query)
}

// fold lowercases s and strips diacritics, so "João" matches "joao".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func (l *Listing) sort(users []ucuser.User) {
	if l.SortField == "" {
		return
	}

	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.IgnoreDiacritics)
	desc := l.SortDir == SortDesc

	slices.SortStableFunc(users, func(a, b ucuser.User) int {
		// Rows without a value sort last in both directions.
		aMissing, bMissing := missing(l.SortField, a), missing(l.SortField, b)
		switch {
		case aMissing && bMissing:
			return 0
		case aMissing:
			return 1
		case bMissing:
			return -1
		}

		c := compareBy(col, l.SortField, a, b)
		if desc {
			return -c
		}
		return c
	})
}

func missing(field string, u ucuser.User) bool {
	switch field {
	case "age":
		return u.Age == nil
	case "consultant":
		return u.Consultant == nil
	}
	return false
}

func compareBy(col *collate.Collator, field string, a, b ucuser.User) int {
	switch field {
	case "name":
		return col.CompareString(a.Name, b.Name)
	case "email":
		return col.CompareString(a.Email, b.Email)
	case "phone":
		return strings.Compare(a.Phone, b.Phone)
	case "cpf":
		return strings.Compare(a.CPF, b.CPF)
	case "address":
		return col.CompareString(a.Address, b.Address)
	case "age":
		return cmp.Compare(*a.Age, *b.Age)
	case "consultant":
		return col.CompareString(a.Consultant.Name, b.Consultant.Name)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}
