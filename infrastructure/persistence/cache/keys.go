package cache

import (
	"strconv"
	"strings"
)

const (
	keyNamespace = "catalog"

	// PageKeyPrefix starts every paged-item key.
	PageKeyPrefix = keyNamespace + ":items:"

	// noFilter encodes an absent brand or type filter. It is not a decimal
	// number, so it cannot collide with a rendered id.
	noFilter = "any"
)

// KeyForPage returns the cache key for one page of items. Distinct
// argument tuples always produce distinct keys.
func KeyForPage(pageIndex, pageSize int, brandID, typeID *int) string {
	var b strings.Builder
	b.Grow(len(PageKeyPrefix) + 40)
	b.WriteString(PageKeyPrefix)
	b.WriteString("page=")
	b.WriteString(strconv.Itoa(pageIndex))
	b.WriteString(":size=")
	b.WriteString(strconv.Itoa(pageSize))
	b.WriteString(":brand=")
	b.WriteString(filterToken(brandID))
	b.WriteString(":type=")
	b.WriteString(filterToken(typeID))
	return b.String()
}

// KeyForBrands returns the key of the brand list.
func KeyForBrands() string {
	return keyNamespace + ":brands"
}

// KeyForTypes returns the key of the type list.
func KeyForTypes() string {
	return keyNamespace + ":types"
}

func filterToken(id *int) string {
	if id == nil {
		return noFilter
	}
	return strconv.Itoa(*id)
}
