package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics captures shared operational stats for the server and reloader.
type Metrics struct {
	requests  int64
	failures  int64
	noData    int64
	charts    int64
	reloads   int64
	reloadErr int64
	loadedAt  int64 // unix nanos of the current snapshot
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	Requests      int64     `json:"requests"`
	Failures      int64     `json:"failures"`
	NoData        int64     `json:"noData"`
	Charts        int64     `json:"charts"`
	Reloads       int64     `json:"reloads"`
	ReloadFailure int64     `json:"reloadFailures"`
	LoadedAt      time.Time `json:"loadedAt"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordRequest counts one API request. Status codes of 500 and above are
// failures; 422 is an empty selection.
func (m *Metrics) RecordRequest(status int) {
	atomic.AddInt64(&m.requests, 1)
	switch {
	case status >= 500:
		atomic.AddInt64(&m.failures, 1)
	case status == 422:
		atomic.AddInt64(&m.noData, 1)
	}
}

// RecordChart counts one rendered PNG.
func (m *Metrics) RecordChart() { atomic.AddInt64(&m.charts, 1) }

// RecordLoad notes a dataset load at t. Loads after the first count as
// reloads.
func (m *Metrics) RecordLoad(t time.Time, err error) {
	if err != nil {
		atomic.AddInt64(&m.reloadErr, 1)
		return
	}
	if atomic.SwapInt64(&m.loadedAt, t.UnixNano()) != 0 {
		atomic.AddInt64(&m.reloads, 1)
	}
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Requests:      atomic.LoadInt64(&m.requests),
		Failures:      atomic.LoadInt64(&m.failures),
		NoData:        atomic.LoadInt64(&m.noData),
		Charts:        atomic.LoadInt64(&m.charts),
		Reloads:       atomic.LoadInt64(&m.reloads),
		ReloadFailure: atomic.LoadInt64(&m.reloadErr),
	}
	if ns := atomic.LoadInt64(&m.loadedAt); ns != 0 {
		s.LoadedAt = time.Unix(0, ns).UTC()
	}
	return s
}
