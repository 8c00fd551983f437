package keys

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"keyplane/internal/db"
)

const day = 24 * time.Hour

// DailyUsage is the roll-up of one key's requests on one UTC day.
type DailyUsage struct {
	KeyID uuid.UUID `json:"key_id"`
	Day   time.Time `json:"day"`
	Calls int64     `json:"calls"`
	AvgMs int64     `json:"avg_ms"`
	// Errors counts responses with status >= 500.
	Errors int64 `json:"errors"`
	// ClientErrors counts responses with 400 <= status < 500.
	ClientErrors int64 `json:"client_errors"`
}

// UsageFilter narrows an aggregation. Zero ids do not filter.
type UsageFilter struct {
	TenantID uuid.UUID
	KeyID    uuid.UUID
}

// UsageAggregator folds raw api_key_logs rows into daily roll-ups. Results
// are recomputed on every call.
type UsageAggregator struct {
	store  db.Store
	window time.Duration
	now    func() time.Time
}

func NewUsageAggregator(store db.Store, windowDays int) *UsageAggregator {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &UsageAggregator{
		store:  store,
		window: time.Duration(windowDays) * day,
		now:    time.Now,
	}
}

// Daily returns per-key, per-day usage over the trailing window, most
// recent day first.
func (a *UsageAggregator) Daily(ctx context.Context, f UsageFilter) ([]DailyUsage, error) {
	cutoff := a.now().UTC().Add(-a.window)
	rows, err := a.store.UsageSince(ctx, db.UsageQuery{
		Cutoff:   cutoff,
		TenantID: f.TenantID,
		KeyID:    f.KeyID,
	})
	if err != nil {
		return nil, storeError(err)
	}
	return AggregateDaily(rows, cutoff), nil
}

type dayBucket struct {
	key   uuid.UUID
	day   time.Time
	calls int64
	sumMs int64
	cntMs int64
	err5  int64
	err4  int64
}

// AggregateDaily groups rows by (key, UTC day). Rows older than cutoff are
// ignored. avg_ms is the rounded mean of the rows that carry an elapsed
// time, 0 when none do; a missing status never counts as an error. Output
// is ordered by day descending, then key id ascending.
func AggregateDaily(rows []db.UsageLog, cutoff time.Time) []DailyUsage {
	type groupKey struct {
		key uuid.UUID
		day int64
	}
	groups := make(map[groupKey]*dayBucket)

	for _, row := range rows {
		if row.CreatedAt.Before(cutoff) {
			continue
		}
		d := row.CreatedAt.UTC().Truncate(day)
		gk := groupKey{key: row.KeyID, day: d.Unix()}
		b, ok := groups[gk]
		if !ok {
			b = &dayBucket{key: row.KeyID, day: d}
			groups[gk] = b
		}
		b.add(row)
	}

	out := make([]DailyUsage, 0, len(groups))
	for _, b := range groups {
		out = append(out, DailyUsage{
			KeyID:        b.key,
			Day:          b.day,
			Calls:        b.calls,
			AvgMs:        b.avgMs(),
			Errors:       b.err5,
			ClientErrors: b.err4,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.After(out[j].Day)
		}
		return out[i].KeyID.String() < out[j].KeyID.String()
	})
	return out
}

func (b *dayBucket) add(row db.UsageLog) {
	b.calls++
	if row.ElapsedMs != nil {
		b.sumMs += *row.ElapsedMs
		b.cntMs++
	}
	if row.Status == nil {
		return
	}
	switch s := *row.Status; {
	case s >= 500:
		b.err5++
	case s >= 400:
		b.err4++
	}
}

func (b *dayBucket) avgMs() int64 {
	if b.cntMs == 0 {
		return 0
	}
	return int64(math.Round(float64(b.sumMs) / float64(b.cntMs)))
}
