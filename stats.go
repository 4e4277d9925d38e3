package preload

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/syssam/preload/backend"
)

// FetchObserver is notified once per batch fetch the loader issues,
// including the root fetch of Query and failed fetches. Test suites use it
// to assert exact call counts; production code can feed it into metrics.
type FetchObserver interface {
	ObserveFetch(ctx context.Context, req backend.FetchRequest, rows int, d time.Duration, err error)
}

// ObserverFunc adapts a plain function to the FetchObserver interface.
type ObserverFunc func(ctx context.Context, req backend.FetchRequest, rows int, d time.Duration, err error)

// ObserveFetch calls f.
func (f ObserverFunc) ObserveFetch(ctx context.Context, req backend.FetchRequest, rows int, d time.Duration, err error) {
	f(ctx, req, rows, d, err)
}

// FetchStats is a FetchObserver accumulating fetch statistics. Safe for
// concurrent use; a zero value is ready to use.
type FetchStats struct {
	// TotalFetches is the number of batch fetches issued.
	TotalFetches atomic.Int64
	// TotalKeys is the number of distinct keys filtered on across fetches.
	TotalKeys atomic.Int64
	// TotalRows is the number of rows returned across fetches.
	TotalRows atomic.Int64
	// TotalDuration is the time spent in backend fetches.
	TotalDuration atomic.Int64 // nanoseconds
	// Errors is the number of failed fetches.
	Errors atomic.Int64
}

// ObserveFetch records one batch fetch.
func (s *FetchStats) ObserveFetch(_ context.Context, req backend.FetchRequest, rows int, d time.Duration, err error) {
	s.TotalFetches.Add(1)
	s.TotalKeys.Add(int64(len(req.Keys)))
	s.TotalRows.Add(int64(rows))
	s.TotalDuration.Add(int64(d))
	if err != nil {
		s.Errors.Add(1)
	}
}

// Reset resets all statistics to zero.
func (s *FetchStats) Reset() {
	s.TotalFetches.Store(0)
	s.TotalKeys.Store(0)
	s.TotalRows.Store(0)
	s.TotalDuration.Store(0)
	s.Errors.Store(0)
}

// Snapshot returns a point-in-time snapshot of the statistics.
func (s *FetchStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalFetches:  s.TotalFetches.Load(),
		TotalKeys:     s.TotalKeys.Load(),
		TotalRows:     s.TotalRows.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		Errors:        s.Errors.Load(),
	}
}

// StatsSnapshot is a point-in-time snapshot of fetch statistics.
type StatsSnapshot struct {
	TotalFetches  int64
	TotalKeys     int64
	TotalRows     int64
	TotalDuration time.Duration
	Errors        int64
}

// AvgFetchDuration returns the average duration of a batch fetch.
func (s StatsSnapshot) AvgFetchDuration() time.Duration {
	if s.TotalFetches == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.TotalFetches)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"fetches=%d keys=%d rows=%d duration=%s avg=%s errors=%d",
		s.TotalFetches, s.TotalKeys, s.TotalRows, s.TotalDuration,
		s.AvgFetchDuration(), s.Errors,
	)
}
