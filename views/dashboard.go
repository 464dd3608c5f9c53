package views

// Selection is the current value of every dashboard control. It is owned
// by the caller and passed by value on each recompute.
type Selection struct {
	Columns []string `json:"columns"`
	X       string   `json:"x"`
	Y       string   `json:"y"`
	From    int      `json:"from"`
	To      int      `json:"to"`
	Year    int      `json:"year"`
}

// Panel pairs a payload with the notice shown when it could not be built.
type Panel[T any] struct {
	View   *T     `json:"view,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// Dashboard holds every view for one Selection.
type Dashboard struct {
	Selection   Selection              `json:"selection"`
	Trend       Panel[TrendView]       `json:"trend"`
	Pairwise    Panel[PairwiseView]    `json:"pairwise"`
	Correlation Panel[CorrelationView] `json:"correlation"`
	Complaints  Panel[ComplaintView]   `json:"complaints"`
}

func panel[T any](v T, err error) Panel[T] {
	if err != nil {
		return Panel[T]{Notice: Notice(err)}
	}
	return Panel[T]{View: &v}
}

// Dashboard recomputes every view. Per-view failures become notices so
// one bad control value never blanks the whole page.
func (e *Engine) Dashboard(sel Selection) Dashboard {
	d := Dashboard{Selection: sel}
	trend, err := e.Trend(sel.Columns)
	d.Trend = panel(trend, err)
	pair, err := e.Pairwise(sel.X, sel.Y, sel.From, sel.To)
	d.Pairwise = panel(pair, err)
	corr, err := e.Correlation(sel.X, sel.Y, sel.From, sel.To)
	if err == nil && corr.Rows == 0 {
		err = &NoDataInRangeError{X: sel.X, Y: sel.Y, From: sel.From, To: sel.To}
	}
	d.Correlation = panel(corr, err)
	d.Complaints = Panel[ComplaintView]{View: ptr(e.Complaints(sel.Year))}
	return d
}

func ptr[T any](v T) *T { return &v }
