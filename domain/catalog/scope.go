package catalog

import (
	"fmt"
	"strings"
)

// ChangeScope names which part of the catalog a write touched.
type ChangeScope int

const (
	// ItemsOnly means item rows changed; brand and type lists did not.
	ItemsOnly ChangeScope = iota
	// BrandsChanged means brand rows changed.
	BrandsChanged
	// TypesChanged means type rows changed.
	TypesChanged
	// All means anything may have changed.
	All
)

func (s ChangeScope) String() string {
	switch s {
	case ItemsOnly:
		return "items"
	case BrandsChanged:
		return "brands"
	case TypesChanged:
		return "types"
	case All:
		return "all"
	default:
		return fmt.Sprintf("ChangeScope(%d)", int(s))
	}
}

// ParseChangeScope is the inverse of String.
func ParseChangeScope(s string) (ChangeScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "items", "itemsonly":
		return ItemsOnly, nil
	case "brands", "brandschanged":
		return BrandsChanged, nil
	case "types", "typeschanged":
		return TypesChanged, nil
	case "all", "":
		return All, nil
	default:
		return All, fmt.Errorf("unknown change scope %q", s)
	}
}

func (s ChangeScope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ChangeScope) UnmarshalText(text []byte) error {
	parsed, err := ParseChangeScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
