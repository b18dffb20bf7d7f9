package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"donatrack/internal/amqp"
	"donatrack/internal/core"
	"donatrack/internal/ledger"
)

// LedgerMirror copies a donation into an external ledger view, such
// as the Google Sheets export. Mirror failures never block the
// notification.
type LedgerMirror interface {
	AppendDonation(ctx context.Context, d core.Donation) (string, error)
}

// Worker processes donation-created events. The AMQP consumer is the
// fast path; ProcessPending is the backup pass for messages that were
// lost or nacked past their welcome.
type Worker struct {
	store     ledger.Store
	mailer    Mailer
	mirror    LedgerMirror // optional
	batchSize int
}

func NewWorker(store ledger.Store, mailer Mailer, mirror LedgerMirror, batchSize int) *Worker {
	return &Worker{
		store:     store,
		mailer:    mailer,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleDonationCreated processes a single donation-created message.
// Returning an error requeues the message, so only mail delivery
// failures do; everything after the send is logged and swallowed.
func (w *Worker) HandleDonationCreated(ctx context.Context, msg *amqp.DonationCreatedMessage) error {
	donation, err := w.store.GetDonation(ctx, msg.DonationID)
	if errors.Is(err, ledger.ErrNotFound) {
		// Nothing to retry against; drop the message.
		slog.WarnContext(ctx, "Donation in message no longer exists",
			"donation_id", msg.DonationID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get donation: %w", err)
	}

	return w.notify(ctx, *donation)
}

// ProcessPending re-sends notifications for donations still flagged
// unnotified. Failures are logged per donation so one bad address
// does not stall the batch.
func (w *Worker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListUnnotified(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unnotified donations: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing unnotified donations", "count", len(pending))

	for _, d := range pending {
		if err := w.notify(ctx, d); err != nil {
			slog.ErrorContext(ctx, "Failed to notify donation",
				"donation_id", d.ID, "error", err)
			continue
		}
	}
	return nil
}

func (w *Worker) notify(ctx context.Context, d core.Donation) error {
	if d.EmailSent {
		// Redelivered message; the email already went out.
		slog.DebugContext(ctx, "Donation already notified", "donation_id", d.ID)
		return nil
	}

	if err := w.mailer.SendThankYou(ctx, d); err != nil {
		return fmt.Errorf("send thank-you email: %w", err)
	}

	if err := w.store.MarkEmailSent(ctx, d.ID); err != nil {
		// The mail went out; retrying would double-send.
		slog.ErrorContext(ctx, "Failed to mark email sent",
			"donation_id", d.ID, "error", err)
	}

	if w.mirror != nil {
		ref, err := w.mirror.AppendDonation(ctx, d)
		if err != nil {
			slog.WarnContext(ctx, "Failed to mirror donation",
				"donation_id", d.ID, "error", err)
		} else {
			slog.InfoContext(ctx, "Donation mirrored",
				"donation_id", d.ID, "ref", ref)
		}
	}

	slog.InfoContext(ctx, "Donation notified",
		"donation_id", d.ID,
		"amount_cents", d.Amount.Cents)
	return nil
}
