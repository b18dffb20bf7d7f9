package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// DefaultDonationType is applied when a donation arrives without a type.
// Observed values are "monetary", "in-kind" and "equipment", but the set
// is open: new categories must not require a schema change.
const DefaultDonationType = "monetary"

type (
	Money struct {
		Cents int64
	}

	Donation struct {
		ID            string
		DonorName     string
		DonorEmail    string
		Amount        Money
		DonationType  string
		DonorPhone    string // optional
		DonorAddress  string // optional
		PublicMessage string // optional
		IsAnonymous   bool
		EmailSent     bool
		CreatedAt     time.Time // assigned by the store, UTC
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyDonorName  = errors.New("empty donor name")
	ErrEmptyDonorEmail = errors.New("empty donor email")
	ErrInvalidEmail    = errors.New("invalid donor email")
	ErrDonorNameTooLong = errors.New("donor name too long (max 200 characters)")
)

var validationErrors = []error{
	ErrInvalidAmount,
	ErrEmptyDonorName,
	ErrEmptyDonorEmail,
	ErrInvalidEmail,
	ErrDonorNameTooLong,
}

// IsValidationError reports whether err stems from rejected input rather
// than from infrastructure. Callers map these to a 400 response.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize trims the user-supplied fields and applies defaults.
// It must run before Validate.
func (d *Donation) Normalize() {
	d.DonorName = strings.TrimSpace(d.DonorName)
	d.DonorEmail = strings.TrimSpace(d.DonorEmail)
	d.DonationType = strings.TrimSpace(d.DonationType)
	if d.DonationType == "" {
		d.DonationType = DefaultDonationType
	}
	d.DonorPhone = strings.TrimSpace(d.DonorPhone)
	d.DonorAddress = strings.TrimSpace(d.DonorAddress)
	d.PublicMessage = strings.TrimSpace(d.PublicMessage)
}

func (d Donation) Validate() error {
	if d.DonorName == "" {
		return ErrEmptyDonorName
	}
	if len(d.DonorName) > 200 {
		return ErrDonorNameTooLong
	}
	if d.DonorEmail == "" {
		return ErrEmptyDonorEmail
	}
	if addr, err := mail.ParseAddress(d.DonorEmail); err != nil || addr.Address != d.DonorEmail {
		return ErrInvalidEmail
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
