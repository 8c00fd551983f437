package keys

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"keyplane/internal/db"
)

const maxOverviewDays = 90

// UsageTotals sums calls and error responses. Rates are percentages of Calls.
type UsageTotals struct {
	Calls           int64   `json:"calls"`
	ClientErrors    int64   `json:"err4xx_count"`
	Errors          int64   `json:"err5xx_count"`
	ClientErrorRate float64 `json:"err4xx_rate"`
	ErrorRate       float64 `json:"err5xx_rate"`
}

// DayTotals is every key's usage on one UTC day.
type DayTotals struct {
	Day time.Time `json:"day"`
	UsageTotals
}

// Overview feeds the control dashboard: entity counts plus window totals.
type Overview struct {
	Days    int         `json:"days"`
	Tenants int64       `json:"tenants"`
	Keys    int64       `json:"keys"`
	Totals  UsageTotals `json:"totals"`
	Series  []DayTotals `json:"series"`
}

// Overview summarises the last days (clamped to [1, 90]) of usage. A
// uuid.Nil tenant covers every tenant; any other tenant only sees itself,
// so Tenants is 1. Series is ordered oldest day first.
func (a *UsageAggregator) Overview(ctx context.Context, tenantID uuid.UUID, days int) (*Overview, error) {
	days = clampDays(days)

	var tenants int64 = 1
	if tenantID == uuid.Nil {
		n, err := a.store.CountTenants(ctx)
		if err != nil {
			return nil, storeError(err)
		}
		tenants = n
	}
	keys, err := a.store.CountKeys(ctx, tenantID)
	if err != nil {
		return nil, storeError(err)
	}

	cutoff := a.now().UTC().Add(-time.Duration(days) * day)
	rows, err := a.store.UsageSince(ctx, db.UsageQuery{Cutoff: cutoff, TenantID: tenantID})
	if err != nil {
		return nil, storeError(err)
	}

	series := totalsByDay(AggregateDaily(rows, cutoff))
	var totals UsageTotals
	for _, d := range series {
		totals.Calls += d.Calls
		totals.ClientErrors += d.ClientErrors
		totals.Errors += d.Errors
	}
	totals.setRates()

	return &Overview{
		Days:    days,
		Tenants: tenants,
		Keys:    keys,
		Totals:  totals,
		Series:  series,
	}, nil
}

func totalsByDay(daily []DailyUsage) []DayTotals {
	byDay := make(map[int64]*DayTotals)
	for _, d := range daily {
		t, ok := byDay[d.Day.Unix()]
		if !ok {
			t = &DayTotals{Day: d.Day}
			byDay[d.Day.Unix()] = t
		}
		t.Calls += d.Calls
		t.ClientErrors += d.ClientErrors
		t.Errors += d.Errors
	}

	out := make([]DayTotals, 0, len(byDay))
	for _, t := range byDay {
		t.setRates()
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

func (t *UsageTotals) setRates() {
	if t.Calls == 0 {
		t.ClientErrorRate, t.ErrorRate = 0, 0
		return
	}
	t.ClientErrorRate = float64(t.ClientErrors) / float64(t.Calls) * 100
	t.ErrorRate = float64(t.Errors) / float64(t.Calls) * 100
}

func clampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > maxOverviewDays {
		return maxOverviewDays
	}
	return days
}
