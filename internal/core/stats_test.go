package core

import (
	"testing"
	"time"
)

func donationAt(email string, cents int64, createdAt time.Time) Donation {
	return Donation{
		DonorName:  "Donor",
		DonorEmail: email,
		Amount:     Money{Cents: cents},
		CreatedAt:  createdAt,
	}
}

func TestLifetimeStatsEmpty(t *testing.T) {
	stats := LifetimeStats(nil)
	if stats.TotalCents != 0 || stats.DonationCount != 0 || stats.DistinctDonors != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestLifetimeStats(t *testing.T) {
	now := time.Now().UTC()
	donations := []Donation{
		donationAt("a@example.com", 1050, now), // 10.50
		donationAt("a@example.com", 2025, now), // 20.25
		donationAt("b@example.com", 100, now),
	}
	stats := LifetimeStats(donations)

	if stats.TotalCents != 3175 {
		t.Errorf("expected 3175 cents, got %d", stats.TotalCents)
	}
	if stats.DonationCount != 3 {
		t.Errorf("expected 3 donations, got %d", stats.DonationCount)
	}
	if stats.DistinctDonors != 2 {
		t.Errorf("expected 2 distinct donors, got %d", stats.DistinctDonors)
	}
}

func TestLifetimeStatsOrderIndependent(t *testing.T) {
	now := time.Now().UTC()
	a := []Donation{
		donationAt("a@example.com", 1, now),
		donationAt("b@example.com", 2, now),
		donationAt("c@example.com", 3, now),
	}
	b := []Donation{a[2], a[0], a[1]}

	if LifetimeStats(a) != LifetimeStats(b) {
		t.Error("stats changed with input order")
	}
}

func TestLifetimeStatsIgnoresEmptyEmailForDonorCount(t *testing.T) {
	now := time.Now().UTC()
	donations := []Donation{
		donationAt("", 100, now),
		donationAt("", 100, now),
	}
	stats := LifetimeStats(donations)
	if stats.DistinctDonors != 0 {
		t.Errorf("expected 0 distinct donors, got %d", stats.DistinctDonors)
	}
	if stats.DonationCount != 2 {
		t.Errorf("expected 2 donations, got %d", stats.DonationCount)
	}
}

func TestMonthKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// Local time is already February, UTC still January.
	local := time.Date(2025, 2, 1, 5, 0, 0, 0, loc)
	if got := MonthKey(local); got != "2025-01" {
		t.Fatalf("expected 2025-01, got %s", got)
	}
}

func TestMonthlySeries(t *testing.T) {
	jan := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	donations := []Donation{
		donationAt("a@example.com", 1000, feb),
		donationAt("b@example.com", 500, jan),
		donationAt("c@example.com", 250, jan),
	}

	series := MonthlySeries(donations, 0)
	if len(series) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(series))
	}
	if series[0].Month != "2025-01" || series[0].TotalCents != 750 {
		t.Errorf("unexpected first bucket: %+v", series[0])
	}
	if series[1].Month != "2025-02" || series[1].TotalCents != 1000 {
		t.Errorf("unexpected second bucket: %+v", series[1])
	}
}

func TestMonthlySeriesWindow(t *testing.T) {
	donations := []Donation{
		donationAt("a@example.com", 100, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)),
		donationAt("b@example.com", 200, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		donationAt("c@example.com", 300, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
	}

	series := MonthlySeries(donations, 2)
	if len(series) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(series))
	}
	// Most recent two months that contain data; the gap months don't count.
	if series[0].Month != "2025-01" || series[1].Month != "2025-03" {
		t.Errorf("unexpected window: %+v", series)
	}

	if got := MonthlySeries(donations, 10); len(got) != 3 {
		t.Errorf("oversized window expected full series, got %+v", got)
	}
}

func TestMonthlySeriesEmpty(t *testing.T) {
	if series := MonthlySeries(nil, 6); len(series) != 0 {
		t.Fatalf("expected empty series, got %+v", series)
	}
}

func TestMonthlySeriesMatchesLifetimeTotal(t *testing.T) {
	donations := []Donation{
		donationAt("a@example.com", 1234, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
		donationAt("b@example.com", 5678, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
		donationAt("c@example.com", 9, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)),
	}
	var seriesTotal int64
	for _, b := range MonthlySeries(donations, 0) {
		seriesTotal += b.TotalCents
	}
	if lifetime := LifetimeStats(donations).TotalCents; seriesTotal != lifetime {
		t.Fatalf("series total %d != lifetime total %d", seriesTotal, lifetime)
	}
}
