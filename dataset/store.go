package dataset

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Attribute is one selectable column with its display label.
type Attribute struct {
	Name  string `json:"value"`
	Label string `json:"label"`
}

// Label turns a column name into display text: lower-cased, underscores
// replaced by spaces.
func Label(column string) string {
	return strings.ReplaceAll(strings.ToLower(column), "_", " ")
}

// Store holds the three datasets. It is immutable once built.
type Store struct {
	standardized *Series
	numeric      *Series
	complaints   []Complaint
	attributes   []Attribute
	labels       map[string]string
}

// NewStore assembles a Store and builds its schema descriptor from the
// standardized series. Callers must not modify the arguments afterwards.
func NewStore(standardized, numeric *Series, complaints []Complaint) *Store {
	s := &Store{
		standardized: standardized,
		numeric:      numeric,
		complaints:   complaints,
		labels:       make(map[string]string),
	}
	for _, col := range standardized.columns {
		label := Label(col)
		s.attributes = append(s.attributes, Attribute{Name: col, Label: label})
		s.labels[col] = label
	}
	return s
}

// Standardized returns the [0,1]-rescaled yearly series.
func (s *Store) Standardized() *Series { return s.standardized }

// Numeric returns the yearly series in original units.
func (s *Store) Numeric() *Series { return s.numeric }

// Complaints returns the complaint records. The slice is shared; callers
// must treat it as read-only.
func (s *Store) Complaints() []Complaint { return s.complaints }

// Attributes returns the schema descriptor in column order.
func (s *Store) Attributes() []Attribute {
	out := make([]Attribute, len(s.attributes))
	copy(out, s.attributes)
	return out
}

// LabelFor returns the display label of a selectable column.
func (s *Store) LabelFor(column string) (string, bool) {
	l, ok := s.labels[column]
	return l, ok
}

// ComplaintYears returns the distinct years present in the complaint
// records, ascending.
func (s *Store) ComplaintYears() []int {
	seen := make(map[int]bool)
	for _, c := range s.complaints {
		if c.HasDate() {
			seen[c.Received.Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Holder publishes the current Store snapshot. Reloads replace the whole
// snapshot; readers never observe a partially loaded Store.
type Holder struct {
	cur atomic.Pointer[Store]
}

// NewHolder returns a Holder serving s.
func NewHolder(s *Store) *Holder {
	h := &Holder{}
	h.cur.Store(s)
	return h
}

// Current returns the active snapshot.
func (h *Holder) Current() *Store { return h.cur.Load() }

// Swap installs s and returns the previous snapshot.
func (h *Holder) Swap(s *Store) *Store { return h.cur.Swap(s) }
