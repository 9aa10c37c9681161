package api

import (
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window per-client limiter on redis INCR+EXPIRE.
// The client key is the authenticated Telegram id when present, else the
// remote IP. Redis being down must never take the API down with it, so the
// limiter fails open on errors.
func RateLimit(rdb *redis.Client, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil || perMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := "rl:" + clientKey(r) + ":" + time.Now().UTC().Format("200601021504")

			n, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				log.Printf("rate limit degraded err=%v", err)
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				// First hit opens the window.
				_ = rdb.Expire(r.Context(), key, time.Minute).Err()
			}
			if n > int64(perMinute) {
				WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id := IdentityFromContext(r.Context()); id != nil {
		return "u:" + id.Session.TelegramID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
