package views

import (
	"fmt"

	"github.com/zalepa/nycdiscovery/dataset"
)

type complaintKey struct {
	borough, category string
}

// complaintTable is the sparse (borough, category) count table of one year.
type complaintTable map[complaintKey]int

// lookup returns the count for a category in a borough and whether the
// combination occurred at all.
func (t complaintTable) lookup(category, borough string) (int, bool) {
	n, ok := t[complaintKey{borough: borough, category: category}]
	return n, ok
}

// Complaints counts the records received in year by borough and complaint
// type over the fixed vocabulary. Combinations that never occur are 0.
// Records whose type or borough falls outside the vocabulary are left out
// of the matrix and reported in Excluded.
func (e *Engine) Complaints(year int) ComplaintView {
	categories := dataset.ComplaintTypes
	boroughs := dataset.Boroughs
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}
	inBorough := make(map[string]bool, len(boroughs))
	for _, b := range boroughs {
		inBorough[b] = true
	}

	view := ComplaintView{
		Year:       year,
		Title:      fmt.Sprintf("Overall %d Complaint Types by Borough", year),
		Caption:    fmt.Sprintf("Figure 6 : Different types of environmental complaints during %d.", year),
		XTitle:     "Boroughs",
		YTitle:     "Number of Complaints",
		Categories: append([]string(nil), categories...),
		Boroughs:   append([]string(nil), boroughs...),
	}

	table := make(complaintTable)
	for _, c := range e.store.Complaints() {
		if !c.HasDate() || c.Received.Year() != year {
			continue
		}
		view.Total++
		switch {
		case !known[c.Type]:
			view.Excluded++
			if view.ExcludedTypes == nil {
				view.ExcludedTypes = make(map[string]int)
			}
			view.ExcludedTypes[c.Type]++
		case !inBorough[c.Borough]:
			view.Excluded++
			if view.ExcludedBoroughs == nil {
				view.ExcludedBoroughs = make(map[string]int)
			}
			view.ExcludedBoroughs[c.Borough]++
		default:
			table[complaintKey{borough: c.Borough, category: c.Type}]++
		}
	}

	view.Counts = make([][]int, len(categories))
	for ci, cat := range categories {
		view.Counts[ci] = make([]int, len(boroughs))
		for bi, b := range boroughs {
			if n, ok := table.lookup(cat, b); ok {
				view.Counts[ci][bi] = n
			}
		}
	}
	return view
}
