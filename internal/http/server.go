// Package http serves the donation API: the write endpoint and the
// two public dashboard reads, plus health and metrics. Read views are
// cached in a small LRU that is purged on every successful create.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"donatrack/internal/cache"
	"donatrack/internal/log"
	"donatrack/internal/services"
)

type Server struct {
	http.Server
	service *services.DonationService
	logger  *log.Logger

	rateLimiter *rateLimiter
	metrics     *metrics

	// Default series window when the request does not pass ?months=N.
	defaultWindowMonths int

	statsCache  *cache.LRUCache[statsResponse]
	seriesCache *cache.LRUCache[seriesResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run
// server. cacheTTL bounds how stale a cached aggregate can get when
// another process writes to the same database.
func NewServer(addr string, service *services.DonationService, logger *log.Logger, cacheTTL time.Duration, defaultWindowMonths int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:             service,
		logger:              logger.WithComponent(log.ComponentHTTP),
		rateLimiter:         newRateLimiter(),
		metrics:             newMetrics(),
		defaultWindowMonths: defaultWindowMonths,
		statsCache:          cache.NewLRUCache[statsResponse](4, cacheTTL),
		seriesCache:         cache.NewLRUCache[seriesResponse](16, cacheTTL),
		stopCacheCleanup:    make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/api/donations", s.withCommon(s.handleCreateDonation))
	mux.HandleFunc("/api/public-stats", s.withCommon(s.handlePublicStats))
	mux.HandleFunc("/api/monthly-donations", s.withCommon(s.handleMonthlySeries))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", s.metrics.handler())

	return s
}

// withCommon adds request id, security headers, rate limiting on
// writes, request logging and metrics to a handler.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := log.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit only writes; the dashboard reads are cached anyway
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			s.metrics.observe(r.Method, r.URL.Path, http.StatusTooManyRequests, time.Since(start))
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
		s.metrics.observe(r.Method, r.URL.Path, rw.statusCode, duration)
	}
}

// invalidateReadViews purges both dashboard caches. Called after
// every successful create so the views never serve a total that
// excludes a local write.
func (s *Server) invalidateReadViews() {
	s.statsCache.Purge()
	s.seriesCache.Purge()
}

func (s *Server) seriesCacheKey(windowMonths int) string {
	return "series:" + strconv.Itoa(windowMonths)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			statsCleaned := s.statsCache.CleanExpired()
			seriesCleaned := s.seriesCache.CleanExpired()
			if statsCleaned > 0 || seriesCleaned > 0 {
				s.logger.Debug("Cache cleanup completed",
					"stats_entries_removed", statsCleaned,
					"series_entries_removed", seriesCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
