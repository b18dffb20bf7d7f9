// Package notify contains the thank-you notification worker: it
// reacts to donation-created events, sends the email through a
// pluggable mailer and flips the donation's emailSent flag.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"donatrack/internal/core"
)

// Mailer delivers the thank-you email for a donation.
type Mailer interface {
	SendThankYou(ctx context.Context, d core.Donation) error
}

// LogMailer writes the email to the log instead of sending it. It is
// the default until an SMTP provider is wired in.
type LogMailer struct{}

func (LogMailer) SendThankYou(ctx context.Context, d core.Donation) error {
	slog.InfoContext(ctx, "Thank-you email",
		"donation_id", d.ID,
		"to", d.DonorEmail,
		"subject", thankYouSubject(d))
	return nil
}

func thankYouSubject(d core.Donation) string {
	if d.Amount.Cents == 0 {
		return "Thank you for your donation!"
	}
	return fmt.Sprintf("Thank you for your $%.2f donation!", d.Amount.Dollars())
}
