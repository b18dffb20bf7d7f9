package core

import (
	"sort"
	"time"
)

type (
	// PublicStats is the lifetime aggregate served on the dashboard.
	PublicStats struct {
		TotalCents     int64
		DonationCount  int
		DistinctDonors int
	}

	// MonthlyBucket is one point of the donation time series.
	MonthlyBucket struct {
		Month      string // "YYYY-MM", UTC
		TotalCents int64
	}
)

// MonthKey buckets an instant into its UTC calendar month.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// LifetimeStats folds a set of donations into the lifetime aggregate.
// Accumulation happens in cents, so the result is exact regardless of
// input order. Donors are counted by distinct non-empty email.
func LifetimeStats(donations []Donation) PublicStats {
	stats := PublicStats{DonationCount: len(donations)}
	donors := make(map[string]struct{})
	for _, d := range donations {
		stats.TotalCents += d.Amount.Cents
		if email := d.DonorEmail; email != "" {
			donors[email] = struct{}{}
		}
	}
	stats.DistinctDonors = len(donors)
	return stats
}

// MonthlySeries buckets donations by UTC calendar month, ascending.
// Months without donations do not appear. When windowMonths > 0 the
// series is cut to the most recent windowMonths buckets that contain
// data; zero or negative means no cut.
func MonthlySeries(donations []Donation, windowMonths int) []MonthlyBucket {
	totals := make(map[string]int64)
	for _, d := range donations {
		totals[MonthKey(d.CreatedAt)] += d.Amount.Cents
	}

	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	// "YYYY-MM" sorts chronologically as a string
	sort.Strings(months)

	if windowMonths > 0 && len(months) > windowMonths {
		months = months[len(months)-windowMonths:]
	}

	series := make([]MonthlyBucket, 0, len(months))
	for _, m := range months {
		series = append(series, MonthlyBucket{Month: m, TotalCents: totals[m]})
	}
	return series
}
