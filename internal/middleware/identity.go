package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"clipsheet/internal/infra/geoip"
)

type contextKey string

const (
	clientIPKey  contextKey = "client_ip"
	countryKey   contextKey = "country"
	accountIDKey contextKey = "account_id"
	localeKey    contextKey = "locale"
)

// Identify resolves the caller's network identity and, when a GeoIP database
// is configured, its country code. It never fails a request; identity
// resolution always produces at least the peer address.
func Identify(lookup geoip.Lookup) func(http.Handler) http.Handler {
	if lookup == nil {
		lookup = geoip.Disabled
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			ctx := context.WithValue(r.Context(), clientIPKey, ip)
			if country, err := lookup(ip); err == nil && country != "" {
				ctx = context.WithValue(ctx, countryKey, strings.ToUpper(country))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the best-effort client address: the first valid entry of
// any forwarded chain, else the direct peer address.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}

// RateLimitIdentity picks the identity a limiter should key on: the
// authenticated account when one has been resolved, else the network address.
func RateLimitIdentity(ctx context.Context) string {
	if id := AccountIDFromContext(ctx); id != "" {
		return "acct:" + id
	}
	return "ip:" + ClientIPFromContext(ctx)
}

// ClientIPFromContext returns the address stored by Identify.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok {
		return v
	}
	return ""
}

// CountryFromContext returns the ISO country code stored by Identify, if any.
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(countryKey).(string); ok {
		return v
	}
	return ""
}
