package cache

import (
	"fmt"
	"strings"
	"time"
)

// InvalidationMode selects how item writes reach cached pages.
type InvalidationMode string

const (
	// InvalidationPrecise evicts every cached page on an item change.
	InvalidationPrecise InvalidationMode = "precise"
	// InvalidationTTLOnly leaves cached pages to expire on their own after
	// an item change. Brand and type changes still evict pages.
	InvalidationTTLOnly InvalidationMode = "ttl-only"
)

// ParseInvalidationMode accepts "precise" or "ttl-only".
func ParseInvalidationMode(s string) (InvalidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "precise", "":
		return InvalidationPrecise, nil
	case "ttl-only", "ttlonly", "ttl":
		return InvalidationTTLOnly, nil
	default:
		return "", fmt.Errorf("unknown invalidation mode %q", s)
	}
}

// Options is the cache policy.
type Options struct {
	// ItemsTTL bounds how long a page of items may be served from cache.
	ItemsTTL time.Duration
	// ListsTTL bounds how long the brand and type lists may be served.
	ListsTTL time.Duration
	// InvalidationMode is Precise or TTLOnly.
	InvalidationMode InvalidationMode
}

// DefaultOptions returns the production policy.
func DefaultOptions() Options {
	return Options{
		ItemsTTL:         30 * time.Second,
		ListsTTL:         2 * time.Minute,
		InvalidationMode: InvalidationPrecise,
	}
}

// Validate checks that both TTLs are positive and the mode is known.
func (o Options) Validate() error {
	if o.ItemsTTL <= 0 {
		return fmt.Errorf("items TTL must be positive, got %s", o.ItemsTTL)
	}
	if o.ListsTTL <= 0 {
		return fmt.Errorf("lists TTL must be positive, got %s", o.ListsTTL)
	}
	switch o.InvalidationMode {
	case InvalidationPrecise, InvalidationTTLOnly:
	default:
		return fmt.Errorf("unknown invalidation mode %q", o.InvalidationMode)
	}
	return nil
}
