package dataset

import "fmt"

// DataLoadError reports a dataset that could not be loaded: a missing or
// unreadable file, a missing required column, or a malformed cell.
type DataLoadError struct {
	Path   string
	Column string
	Row    int // 1-based data row, 0 when not row specific
	Err    error
}

func (e *DataLoadError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("load %s: row %d column %q: %v", e.Path, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("load %s: column %q: %v", e.Path, e.Column, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("load %s: row %d: %v", e.Path, e.Row, e.Err)
	default:
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
}

func (e *DataLoadError) Unwrap() error { return e.Err }
