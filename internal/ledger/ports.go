package ledger

import (
	"context"
	"errors"

	"donatrack/internal/core"
)

// ErrNotFound is returned when a donation id has no row behind it.
var ErrNotFound = errors.New("donation not found")

// Ports for the donation ledger. The service depends on Store; the
// aggregator port is optional and discovered by type assertion so a
// SQL-backed store can push the aggregation into the database.
type (
	DonationWriter interface {
		// Insert persists the donation. An empty ID and zero CreatedAt
		// are filled in by the store; EmailSent always starts false.
		Insert(ctx context.Context, d *core.Donation) error
	}

	DonationReader interface {
		ListDonations(ctx context.Context) ([]core.Donation, error)
		GetDonation(ctx context.Context, id string) (*core.Donation, error)
	}

	// NotificationTracker records the thank-you email lifecycle.
	NotificationTracker interface {
		// MarkEmailSent is the only mutation allowed after insert.
		MarkEmailSent(ctx context.Context, id string) error
		// ListUnnotified returns donations still waiting for their
		// thank-you email, oldest first.
		ListUnnotified(ctx context.Context, limit int) ([]core.Donation, error)
	}

	// StatsAggregator computes the read views natively instead of
	// listing every row.
	StatsAggregator interface {
		LifetimeStats(ctx context.Context) (core.PublicStats, error)
		MonthlySeries(ctx context.Context, windowMonths int) ([]core.MonthlyBucket, error)
	}

	Store interface {
		DonationWriter
		DonationReader
		NotificationTracker
	}
)
