package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"agora/core"

	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterIdleTTL is how long an unused limiter is kept
const rateLimiterIdleTTL = time.Hour

// clientIP returns the direct peer address of the request
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// rateLimitMiddleware provides rate limiting per client IP
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		a.rateLimitersMu.Lock()
		entry, exists := a.rateLimiters[ip]
		if !exists {
			entry = &rateLimiterEntry{
				limiter: rate.NewLimiter(rate.Limit(a.config.API.RateLimit.RequestsPerSecond), a.config.API.RateLimit.Burst),
			}
			a.rateLimiters[ip] = entry
		}
		entry.lastSeen = time.Now()
		// capture under the lock; cleanup may delete the entry
		limiter := entry.limiter
		a.rateLimitersMu.Unlock()

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, "Too many requests", nil, a.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupRateLimiters periodically removes idle rate limiters
func (a *API) cleanupRateLimiters(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.pruneRateLimiters(time.Now())
		case <-a.stopCh:
			return
		}
	}
}

func (a *API) pruneRateLimiters(now time.Time) int {
	a.rateLimitersMu.Lock()
	defer a.rateLimitersMu.Unlock()
	removed := 0
	for ip, entry := range a.rateLimiters {
		if now.Sub(entry.lastSeen) > rateLimiterIdleTTL {
			delete(a.rateLimiters, ip)
			removed++
		}
	}
	return removed
}

// corsMiddleware adds CORS headers and answers preflight requests
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range a.config.API.AllowedOrigins {
			if origin != "" && (origin == allowed || allowed == "*") {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the identity token. The query parameter is accepted
// because browsers cannot set headers on websocket upgrades.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return "", true
		}
		return strings.TrimSpace(token), true
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, true
	}
	return "", false
}

// identityMiddleware resolves the bearer token to a core.Actor. Requests
// without a token proceed anonymously; writes are then refused by the
// services. Banned users are rejected here.
func (a *API) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "Malformed Authorization header", nil, a.logger)
			return
		}

		claims, err := validateJWT(token, a.config)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Invalid or expired token", err, a.logger)
			return
		}

		user, err := a.lookupUser(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, "Unknown user", err, a.logger)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "Failed to resolve identity", err, a.logger)
			return
		}
		if user.IsBanned {
			writeError(w, r, http.StatusForbidden, "Account is banned", nil, a.logger)
			return
		}

		actor := &core.Actor{UserID: user.ID, Role: user.Role, Banned: user.IsBanned}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// lookupUser reads through the identity cache. The role and ban flag come from
// storage, not from the token, so a ban takes effect within the cache TTL.
func (a *API) lookupUser(ctx context.Context, userID string) (*core.User, error) {
	if user, ok := a.identities.Get(userID); ok {
		return user, nil
	}
	user, err := a.services.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.identities.Add(userID, user)
	return user, nil
}

// forgetIdentity drops a cached user so role or ban changes apply immediately
func (a *API) forgetIdentity(userID string) {
	a.identities.Remove(userID)
}
