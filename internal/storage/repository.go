// Package storage is the SQLite-backed donation ledger. Aggregation
// queries run in SQL so the dashboard does not page the whole table
// through Go.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"donatrack/internal/core"
	"donatrack/internal/ledger"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable, for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const insertDonationSQL = `
INSERT INTO donations (
	id, donor_name, donor_email, amount_cents, donation_type,
	donor_phone, donor_address, public_message, is_anonymous,
	email_sent, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`

// Insert implements ledger.DonationWriter. ID and CreatedAt are
// assigned here when the caller leaves them empty; EmailSent always
// starts false.
func (r *SQLiteRepository) Insert(ctx context.Context, d *core.Donation) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.EmailSent = false

	_, err := r.db.ExecContext(ctx, insertDonationSQL,
		d.ID, d.DonorName, d.DonorEmail, d.Amount.Cents, d.DonationType,
		nullString(d.DonorPhone), nullString(d.DonorAddress), nullString(d.PublicMessage),
		boolToInt(d.IsAnonymous), d.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}

	slog.InfoContext(ctx, "Donation saved",
		"id", d.ID,
		"amount_cents", d.Amount.Cents,
		"donation_type", d.DonationType)
	return nil
}

const selectDonationSQL = `
SELECT id, donor_name, donor_email, amount_cents, donation_type,
       donor_phone, donor_address, public_message, is_anonymous,
       email_sent, created_at
FROM donations`

// ListDonations implements ledger.DonationReader.
func (r *SQLiteRepository) ListDonations(ctx context.Context) ([]core.Donation, error) {
	rows, err := r.db.QueryContext(ctx, selectDonationSQL)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var out []core.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

// GetDonation implements ledger.DonationReader.
func (r *SQLiteRepository) GetDonation(ctx context.Context, id string) (*core.Donation, error) {
	row := r.db.QueryRowContext(ctx, selectDonationSQL+" WHERE id = ?", id)
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	return &d, nil
}

// MarkEmailSent implements ledger.NotificationTracker.
func (r *SQLiteRepository) MarkEmailSent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE donations SET email_sent = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// ListUnnotified implements ledger.NotificationTracker.
func (r *SQLiteRepository) ListUnnotified(ctx context.Context, limit int) ([]core.Donation, error) {
	rows, err := r.db.QueryContext(ctx,
		selectDonationSQL+" WHERE email_sent = 0 ORDER BY created_at ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list unnotified donations: %w", err)
	}
	defer rows.Close()

	var out []core.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return out, nil
}

// LifetimeStats implements ledger.StatsAggregator in SQL. Totals stay
// in integer cents end to end.
func (r *SQLiteRepository) LifetimeStats(ctx context.Context) (core.PublicStats, error) {
	const q = `
SELECT COALESCE(SUM(amount_cents), 0),
       COUNT(*),
       COUNT(DISTINCT CASE WHEN TRIM(donor_email) != '' THEN donor_email END)
FROM donations`

	var stats core.PublicStats
	err := r.db.QueryRowContext(ctx, q).Scan(&stats.TotalCents, &stats.DonationCount, &stats.DistinctDonors)
	if err != nil {
		return core.PublicStats{}, fmt.Errorf("lifetime stats: %w", err)
	}
	return stats, nil
}

// MonthlySeries implements ledger.StatsAggregator. Buckets are UTC
// calendar months, ascending; a positive window keeps only the most
// recent months that contain data.
func (r *SQLiteRepository) MonthlySeries(ctx context.Context, windowMonths int) ([]core.MonthlyBucket, error) {
	const base = `
SELECT strftime('%Y-%m', created_at, 'unixepoch') AS month,
       SUM(amount_cents)
FROM donations
GROUP BY month`

	var (
		rows *sql.Rows
		err  error
	)
	if windowMonths > 0 {
		rows, err = r.db.QueryContext(ctx, base+" ORDER BY month DESC LIMIT ?", windowMonths)
	} else {
		rows, err = r.db.QueryContext(ctx, base+" ORDER BY month ASC")
	}
	if err != nil {
		return nil, fmt.Errorf("monthly series: %w", err)
	}
	defer rows.Close()

	var series []core.MonthlyBucket
	for rows.Next() {
		var b core.MonthlyBucket
		if err := rows.Scan(&b.Month, &b.TotalCents); err != nil {
			return nil, fmt.Errorf("scan monthly bucket: %w", err)
		}
		series = append(series, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly series: %w", err)
	}

	if windowMonths > 0 {
		// The window query returns newest first; flip to ascending.
		for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
			series[i], series[j] = series[j], series[i]
		}
	}
	return series, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row rowScanner) (core.Donation, error) {
	var (
		d           core.Donation
		phone       sql.NullString
		address     sql.NullString
		message     sql.NullString
		isAnonymous int
		emailSent   int
		createdAt   int64
	)
	err := row.Scan(&d.ID, &d.DonorName, &d.DonorEmail, &d.Amount.Cents, &d.DonationType,
		&phone, &address, &message, &isAnonymous, &emailSent, &createdAt)
	if err != nil {
		return core.Donation{}, err
	}
	d.DonorPhone = phone.String
	d.DonorAddress = address.String
	d.PublicMessage = message.String
	d.IsAnonymous = isAnonymous != 0
	d.EmailSent = emailSent != 0
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	return d, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
