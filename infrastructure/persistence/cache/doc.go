// Package cache implements the catalog caching policy.
//
// CatalogCache decorates a ports.CatalogStore and serves the three catalog
// reads from an expiring in-process store:
//
//	reader → CatalogCache.GetPage → KeyForPage → Store.GetOrPopulate → CatalogStore.QueryPage
//
// # Keys
//
// Every paged read is keyed by all four query fields, with explicit field
// tags and a reserved token for "no filter":
//
//	catalog:items:page=0:size=10:brand=any:type=3
//	catalog:brands
//	catalog:types
//
// # Invalidation
//
// The write path calls OnCatalogChanged after a change commits. What gets
// evicted depends on the scope and on the configured InvalidationMode:
//
//	scope          Precise                      TTLOnly
//	ItemsOnly      all page keys                nothing (bounded by ItemsTTL)
//	BrandsChanged  brands key + all page keys   brands key + all page keys
//	TypesChanged   types key + all page keys    types key + all page keys
//	All            everything                   everything
//
// Page keys are found by prefix in the store itself, so a page that is
// being loaded when the invalidation runs is covered as well.
package cache
