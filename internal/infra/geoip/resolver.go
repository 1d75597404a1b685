package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when no GeoIP database is configured.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// Lookup resolves an ISO country code for an IP address. Used by the identity
// middleware to tag request logs; never load-bearing for authorization.
type Lookup func(ip string) (string, error)

// Disabled is a Lookup that always reports the resolver as unavailable.
func Disabled(string) (string, error) { return "", ErrUnavailable }

// NewLookup opens the MaxMind database at path and returns a Lookup backed by
// it plus a close function. An empty path yields Disabled and a no-op closer.
func NewLookup(path string) (Lookup, func() error, error) {
	if strings.TrimSpace(path) == "" {
		return Disabled, func() error { return nil }, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("geoip: open database: %w", err)
	}

	lookup := func(ip string) (string, error) {
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return "", fmt.Errorf("geoip: invalid ip %q", ip)
		}
		record, err := reader.Country(parsed)
		if err != nil {
			return "", fmt.Errorf("geoip: lookup country: %w", err)
		}
		if record == nil {
			return "", nil
		}
		return record.Country.IsoCode, nil
	}

	return lookup, reader.Close, nil
}
