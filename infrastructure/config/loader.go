package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"catalog-backend/infrastructure/persistence/cache"
)

// CachePolicyFile is the YAML overlay for the cache policy:
//
//	cache:
//	  items_ttl: 30s
//	  lists_ttl: 2m
//	  invalidation_mode: precise
//
// Missing fields keep the base value.
type CachePolicyFile struct {
	Cache struct {
		ItemsTTL         string `yaml:"items_ttl"`
		ListsTTL         string `yaml:"lists_ttl"`
		InvalidationMode string `yaml:"invalidation_mode"`
	} `yaml:"cache"`
}

// LoadCachePolicy reads path and overlays it on base.
func LoadCachePolicy(path string, base cache.Options) (cache.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cache.Options{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseCachePolicy(data, base)
}

// ParseCachePolicy overlays a YAML document on base and validates the result.
func ParseCachePolicy(data []byte, base cache.Options) (cache.Options, error) {
	var file CachePolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cache.Options{}, fmt.Errorf("failed to parse cache policy: %w", err)
	}

	opts := base
	if v := file.Cache.ItemsTTL; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cache.Options{}, fmt.Errorf("items_ttl: %w", err)
		}
		opts.ItemsTTL = d
	}
	if v := file.Cache.ListsTTL; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cache.Options{}, fmt.Errorf("lists_ttl: %w", err)
		}
		opts.ListsTTL = d
	}
	if v := file.Cache.InvalidationMode; v != "" {
		mode, err := cache.ParseInvalidationMode(v)
		if err != nil {
			return cache.Options{}, err
		}
		opts.InvalidationMode = mode
	}

	if err := opts.Validate(); err != nil {
		return cache.Options{}, err
	}
	return opts, nil
}
