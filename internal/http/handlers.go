package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"donatrack/internal/core"
	"donatrack/internal/log"
)

const handlerTimeout = 7 * time.Second

// maxBodyBytes caps create request bodies. Donation payloads are a
// few hundred bytes; anything near the cap is not a donation.
const maxBodyBytes = 1 << 20

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), handlerTimeout)
}

func decodeDonationRequest(r *http.Request) (*donationRequest, error) {
	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Server) handleCreateDonation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req, err := decodeDonationRequest(r)
	if err != nil {
		logger.WarnContext(ctx, "Malformed donation payload", log.FieldError, err.Error())
		writeError(w, http.StatusBadRequest, msgInvalidFields)
		return
	}

	donation, err := req.toDonation()
	if err != nil {
		logger.WarnContext(ctx, "Donation rejected", log.FieldError, err.Error())
		writeError(w, http.StatusBadRequest, msgInvalidFields)
		return
	}

	if err := s.service.Create(ctx, donation); err != nil {
		if core.IsValidationError(err) {
			logger.WarnContext(ctx, "Donation rejected", log.FieldError, err.Error())
			writeError(w, http.StatusBadRequest, msgInvalidFields)
			return
		}
		logger.ErrorContext(ctx, "Failed to save donation", log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, msgSaveFailed)
		return
	}

	s.invalidateReadViews()
	s.metrics.donationCreated(donation.DonationType)

	logger.InfoContext(ctx, "Donation created",
		log.FieldDonationID, donation.ID,
		log.FieldDonationType, donation.DonationType,
		log.FieldAmountCents, donation.Amount.Cents)

	writeJSON(w, http.StatusCreated, createResponse{
		Success:   true,
		ID:        donation.ID,
		CreatedAt: donation.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handlePublicStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	logger := log.FromContext(ctx)

	if cached, ok := s.statsCache.Get("stats"); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	stats, impact, err := s.service.PublicStats(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load stats", log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, msgStatsFailed)
		return
	}

	resp := statsResponse{
		Success:        true,
		TotalAmount:    core.Money{Cents: stats.TotalCents}.Dollars(),
		TotalDonations: stats.DonationCount,
		TotalDonors:    stats.DistinctDonors,
		MealsProvided:  impact.MealsProvided,
		DeerProcessed:  impact.DeerProcessed,
	}
	s.statsCache.Set("stats", resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMonthlySeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	logger := log.FromContext(ctx)

	// A missing or unusable months param falls back to the configured
	// default window rather than erroring.
	windowMonths := s.defaultWindowMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			windowMonths = n
		}
	}

	key := s.seriesCacheKey(windowMonths)
	if cached, ok := s.seriesCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	buckets, err := s.service.MonthlySeries(ctx, windowMonths)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load monthly data",
			log.FieldError, err.Error(), "window_months", windowMonths)
		writeError(w, http.StatusInternalServerError, msgMonthlyFailed)
		return
	}

	series := make([]monthlyPoint, 0, len(buckets))
	for _, bucket := range buckets {
		series = append(series, monthlyPoint{
			Month: bucket.Month,
			Total: core.Money{Cents: bucket.TotalCents}.Dollars(),
		})
	}

	resp := seriesResponse{Success: true, Series: series}
	s.seriesCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := s.service.Ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
