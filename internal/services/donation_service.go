// Package services orchestrates the donation workflow across the
// ledger store and the event queue.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"donatrack/internal/core"
	"donatrack/internal/ledger"
)

// EventPublisher pushes donation-created events to the notification
// worker. The AMQP client satisfies it; tests use a fake.
type EventPublisher interface {
	PublishDonationCreated(ctx context.Context, donationID string) error
}

// DonationService owns the create path and the two dashboard reads.
type DonationService struct {
	store  ledger.Store
	events EventPublisher
	rates  core.ImpactRates
}

func NewDonationService(store ledger.Store, events EventPublisher, rates core.ImpactRates) *DonationService {
	return &DonationService{
		store:  store,
		events: events,
		rates:  rates,
	}
}

// Create validates and persists a donation, then publishes the
// created event. Publish failure is logged and swallowed: the
// donation is already on disk and the worker's backup pass will pick
// it up.
func (s *DonationService) Create(ctx context.Context, d *core.Donation) error {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return err
	}

	if err := s.store.Insert(ctx, d); err != nil {
		return fmt.Errorf("save donation: %w", err)
	}

	if err := s.publishCreated(ctx, d.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish donation created message",
			"donation_id", d.ID, "error", err)
		// Don't fail the request - the donation is saved locally
	}
	return nil
}

// PublicStats returns the lifetime aggregate plus impact figures.
// A store that aggregates natively is preferred; otherwise the whole
// ledger is folded in memory.
func (s *DonationService) PublicStats(ctx context.Context) (core.PublicStats, core.Impact, error) {
	var (
		stats core.PublicStats
		err   error
	)
	if agg, ok := s.store.(ledger.StatsAggregator); ok {
		stats, err = agg.LifetimeStats(ctx)
	} else {
		var donations []core.Donation
		donations, err = s.store.ListDonations(ctx)
		if err == nil {
			stats = core.LifetimeStats(donations)
		}
	}
	if err != nil {
		return core.PublicStats{}, core.Impact{}, fmt.Errorf("load stats: %w", err)
	}
	return stats, s.rates.Impact(stats.TotalCents), nil
}

// MonthlySeries returns the ascending per-month totals, optionally
// windowed to the most recent months that contain data.
func (s *DonationService) MonthlySeries(ctx context.Context, windowMonths int) ([]core.MonthlyBucket, error) {
	if agg, ok := s.store.(ledger.StatsAggregator); ok {
		series, err := agg.MonthlySeries(ctx, windowMonths)
		if err != nil {
			return nil, fmt.Errorf("load monthly series: %w", err)
		}
		return series, nil
	}

	donations, err := s.store.ListDonations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load monthly series: %w", err)
	}
	return core.MonthlySeries(donations, windowMonths), nil
}

// Ready reports whether the backing store answers queries, for the
// readiness endpoint.
func (s *DonationService) Ready(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.store.(pinger); ok {
		return p.Ping(ctx)
	}
	_, _, err := s.PublicStats(ctx)
	return err
}

func (s *DonationService) publishCreated(ctx context.Context, donationID string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping donation created message")
		return nil
	}
	return s.events.PublishDonationCreated(ctx, donationID)
}

// Close releases the store and publisher when they hold resources.
func (s *DonationService) Close() error {
	var errs []error

	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if closer, ok := s.events.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close donation service: %v", errs)
	}
	return nil
}
