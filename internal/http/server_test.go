package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"donatrack/internal/core"
	"donatrack/internal/ledger/memory"
	"donatrack/internal/log"
	"donatrack/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	svc := services.NewDonationService(store, nil, core.DefaultImpactRates())
	logger := log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})

	srv := NewServer(":0", svc, logger, time.Minute, 0)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, store
}

func doRequest(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func seedDonation(t *testing.T, store *memory.Store, name, email string, cents int64, createdAt time.Time) {
	t.Helper()
	d := &core.Donation{
		DonorName:    name,
		DonorEmail:   email,
		Amount:       core.Money{Cents: cents},
		DonationType: core.DefaultDonationType,
		CreatedAt:    createdAt,
	}
	if err := store.Insert(context.Background(), d); err != nil {
		t.Fatalf("seed donation: %v", err)
	}
}

func TestCreateDonation(t *testing.T) {
	t.Run("valid donation returns 201 with id", func(t *testing.T) {
		srv, store := newTestServer(t)

		rec := doRequest(srv, http.MethodPost, "/api/donations",
			`{"donorName":"Jane Hunter","donorEmail":"jane@example.com","amount":"25.50"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var resp createResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Success {
			t.Error("expected success true")
		}
		if resp.ID == "" {
			t.Error("expected non-empty donation id")
		}
		if _, err := time.Parse(time.RFC3339, resp.CreatedAt); err != nil {
			t.Errorf("createdAt %q is not RFC3339: %v", resp.CreatedAt, err)
		}

		stored, err := store.GetDonation(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("stored donation not found: %v", err)
		}
		if stored.Amount.Cents != 2550 {
			t.Errorf("stored amount = %d cents, want 2550", stored.Amount.Cents)
		}
		if stored.DonationType != core.DefaultDonationType {
			t.Errorf("donation type = %q, want default", stored.DonationType)
		}
	})

	t.Run("amount as JSON number", func(t *testing.T) {
		srv, store := newTestServer(t)

		rec := doRequest(srv, http.MethodPost, "/api/donations",
			`{"donorName":"Bob","donorEmail":"bob@example.com","amount":100}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp createResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		stored, err := store.GetDonation(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("stored donation not found: %v", err)
		}
		if stored.Amount.Cents != 10000 {
			t.Errorf("stored amount = %d cents, want 10000", stored.Amount.Cents)
		}
	})

	t.Run("invalid payloads return 400 with fixed message", func(t *testing.T) {
		payloads := []struct {
			name string
			body string
		}{
			{"malformed json", `{"donorName":`},
			{"missing amount", `{"donorName":"Jane","donorEmail":"jane@example.com"}`},
			{"negative amount", `{"donorName":"Jane","donorEmail":"jane@example.com","amount":"-5"}`},
			{"unparseable amount", `{"donorName":"Jane","donorEmail":"jane@example.com","amount":"abc"}`},
			{"missing name", `{"donorEmail":"jane@example.com","amount":"10"}`},
			{"bad email", `{"donorName":"Jane","donorEmail":"not-an-email","amount":"10"}`},
		}

		for _, tt := range payloads {
			t.Run(tt.name, func(t *testing.T) {
				srv, store := newTestServer(t)

				rec := doRequest(srv, http.MethodPost, "/api/donations", tt.body)
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
				}

				var resp errorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Success {
					t.Error("expected success false")
				}
				if resp.Message != msgInvalidFields {
					t.Errorf("message = %q, want %q", resp.Message, msgInvalidFields)
				}

				donations, err := store.ListDonations(context.Background())
				if err != nil {
					t.Fatalf("list donations: %v", err)
				}
				if len(donations) != 0 {
					t.Errorf("store has %d donations, want 0", len(donations))
				}
			})
		}
	})

	t.Run("wrong method returns 405", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(srv, http.MethodGet, "/api/donations", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestPublicStats(t *testing.T) {
	t.Run("empty store returns zeros", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(srv, http.MethodGet, "/api/public-stats", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp statsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Success {
			t.Error("expected success true")
		}
		if resp.TotalAmount != 0 || resp.TotalDonations != 0 || resp.TotalDonors != 0 {
			t.Errorf("expected zero stats, got %+v", resp)
		}
		if resp.MealsProvided != 0 || resp.DeerProcessed != 0 {
			t.Errorf("expected zero impact, got %+v", resp)
		}
	})

	t.Run("aggregates and converts to dollars", func(t *testing.T) {
		srv, store := newTestServer(t)
		now := time.Now().UTC()

		seedDonation(t, store, "Jane", "jane@example.com", 10000, now)
		seedDonation(t, store, "Bob", "bob@example.com", 2550, now)
		seedDonation(t, store, "Jane again", "jane@example.com", 450, now)

		rec := doRequest(srv, http.MethodGet, "/api/public-stats", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp statsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.TotalAmount != 130.00 {
			t.Errorf("totalAmount = %v, want 130.00", resp.TotalAmount)
		}
		if resp.TotalDonations != 3 {
			t.Errorf("totalDonations = %d, want 3", resp.TotalDonations)
		}
		if resp.TotalDonors != 2 {
			t.Errorf("totalDonors = %d, want 2", resp.TotalDonors)
		}
		// 130 dollars at 3 meals per dollar, 37.5 meals per deer
		if resp.MealsProvided != 390 {
			t.Errorf("mealsProvided = %d, want 390", resp.MealsProvided)
		}
		if resp.DeerProcessed != 10 {
			t.Errorf("deerProcessed = %d, want 10", resp.DeerProcessed)
		}
	})

	t.Run("create purges the cached view", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(srv, http.MethodGet, "/api/public-stats", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		rec = doRequest(srv, http.MethodPost, "/api/donations",
			`{"donorName":"Jane","donorEmail":"jane@example.com","amount":"10"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d, want %d", rec.Code, http.StatusCreated)
		}

		rec = doRequest(srv, http.MethodGet, "/api/public-stats", "")
		var resp statsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.TotalDonations != 1 {
			t.Errorf("totalDonations = %d after create, want 1", resp.TotalDonations)
		}
	})
}

func TestMonthlySeries(t *testing.T) {
	t.Run("buckets by month in ascending order", func(t *testing.T) {
		srv, store := newTestServer(t)

		seedDonation(t, store, "Jane", "jane@example.com", 1000,
			time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
		seedDonation(t, store, "Bob", "bob@example.com", 2000,
			time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC))
		seedDonation(t, store, "Ann", "ann@example.com", 500,
			time.Date(2026, 1, 28, 23, 0, 0, 0, time.UTC))

		rec := doRequest(srv, http.MethodGet, "/api/monthly-donations", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp seriesResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		want := []monthlyPoint{
			{Month: "2026-01", Total: 25.00},
			{Month: "2026-03", Total: 10.00},
		}
		if len(resp.Series) != len(want) {
			t.Fatalf("series length = %d, want %d", len(resp.Series), len(want))
		}
		for i, point := range want {
			if resp.Series[i] != point {
				t.Errorf("series[%d] = %+v, want %+v", i, resp.Series[i], point)
			}
		}
	})

	t.Run("months param limits window", func(t *testing.T) {
		srv, store := newTestServer(t)

		for month := 1; month <= 6; month++ {
			seedDonation(t, store, "Jane", "jane@example.com", 1000,
				time.Date(2026, time.Month(month), 10, 0, 0, 0, 0, time.UTC))
		}

		rec := doRequest(srv, http.MethodGet, "/api/monthly-donations?months=2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp seriesResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp.Series) != 2 {
			t.Fatalf("series length = %d, want 2", len(resp.Series))
		}
		if resp.Series[0].Month != "2026-05" || resp.Series[1].Month != "2026-06" {
			t.Errorf("window = [%s, %s], want [2026-05, 2026-06]",
				resp.Series[0].Month, resp.Series[1].Month)
		}
	})

	t.Run("invalid months param falls back to default", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedDonation(t, store, "Jane", "jane@example.com", 1000,
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

		for _, target := range []string{
			"/api/monthly-donations?months=abc",
			"/api/monthly-donations?months=-3",
			"/api/monthly-donations?months=0",
		} {
			rec := doRequest(srv, http.MethodGet, target, "")
			if rec.Code != http.StatusOK {
				t.Errorf("%s: status = %d, want %d", target, rec.Code, http.StatusOK)
				continue
			}
			var resp seriesResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Errorf("%s: decode response: %v", target, err)
				continue
			}
			if len(resp.Series) != 1 {
				t.Errorf("%s: series length = %d, want 1", target, len(resp.Series))
			}
		}
	})

	t.Run("empty store returns empty series", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doRequest(srv, http.MethodGet, "/api/monthly-donations", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var resp seriesResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp.Series) != 0 {
			t.Errorf("series length = %d, want 0", len(resp.Series))
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("healthz body = %q, want ok", rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ready" {
		t.Errorf("readyz body = %q, want ready", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/public-stats", "")
	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestRateLimiting(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"donorName":"Jane","donorEmail":"jane@example.com","amount":"1"}`

	var lastCode int
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/donations", strings.NewReader(body))
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("request 61 status = %d, want %d", lastCode, http.StatusTooManyRequests)
	}

	// A different client is not affected
	req := httptest.NewRequest(http.MethodPost, "/api/donations", strings.NewReader(body))
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("other client status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	doRequest(srv, http.MethodGet, "/api/public-stats", "")
	doRequest(srv, http.MethodPost, "/api/donations",
		`{"donorName":"Jane","donorEmail":"jane@example.com","amount":"5"}`)

	rec := doRequest(srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, metric := range []string{
		"donatrack_http_requests_total",
		"donatrack_donations_created_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}

func TestAmountValueUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantRaw string
		wantSet bool
	}{
		{"number", `{"amount":25.5}`, "25.5", true},
		{"integer", `{"amount":100}`, "100", true},
		{"string", `{"amount":"25.50"}`, "25.50", true},
		{"null", `{"amount":null}`, "", false},
		{"absent", `{}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req donationRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.Amount.set != tt.wantSet {
				t.Errorf("set = %v, want %v", req.Amount.set, tt.wantSet)
			}
			if req.Amount.raw != tt.wantRaw {
				t.Errorf("raw = %q, want %q", req.Amount.raw, tt.wantRaw)
			}
		})
	}
}

func TestConcurrentReads(t *testing.T) {
	srv, store := newTestServer(t)
	seedDonation(t, store, "Jane", "jane@example.com", 1000, time.Now().UTC())

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			rec := doRequest(srv, http.MethodGet, "/api/public-stats", "")
			if rec.Code != http.StatusOK {
				done <- fmt.Errorf("status = %d", rec.Code)
				return
			}
			done <- nil
		}()
	}
	for i := 0; i < 20; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent read: %v", err)
		}
	}
}
