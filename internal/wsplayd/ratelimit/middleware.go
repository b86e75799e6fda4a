package ratelimit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

// Middleware rejects requests over the limitType limit with 429. A failing
// store lets requests through.
func Middleware(service *Service, limitType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := LimitKey{
				Type:     limitType,
				RemoteIP: remoteHost(r),
			}

			d, err := service.Allow(r.Context(), key)
			switch {
			case errors.Is(err, ErrLimitExceeded):
				setRateLimitHeaders(w, d)
				handleLimitExceeded(w, r, d, service)
				return
			case err != nil:
				service.logger.Warn("rate limit store unavailable, allowing request",
					"requestId", middleware.GetReqID(r.Context()),
					"type", limitType,
					"error", err,
				)
			case !d.Unlimited:
				setRateLimitHeaders(w, d)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders adds the RateLimit-* response headers
func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit.Rate))
	w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if d.Limit.BurstSize > 0 {
		w.Header().Set("RateLimit-Burst", strconv.Itoa(d.Limit.BurstSize))
	}
}

// handleLimitExceeded sends a 429 with a Retry-After of one window
func handleLimitExceeded(w http.ResponseWriter, r *http.Request, d Decision, service *Service) {
	retryAfter := int(math.Ceil(d.Limit.Period.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	service.logger.Warn("rate limit exceeded",
		"requestId", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"method", r.Method,
		"remoteIP", remoteHost(r),
		"retryAfter", retryAfter,
	)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(v1alpha1.Error{
		Code:    ErrLimitExceeded.Code,
		Message: fmt.Sprintf("too many requests, retry after %d seconds", retryAfter),
	})
}

// remoteHost strips the port from the request's remote address. chi's RealIP
// middleware has already applied X-Real-IP and X-Forwarded-For.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
