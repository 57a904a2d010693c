package commands

import (
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

// CreateCatalogItemCommand adds an item. The store assigns the id.
type CreateCatalogItemCommand struct {
	Item catalog.CatalogItem
}

func (c CreateCatalogItemCommand) Validate() error {
	return c.Item.Validate()
}

// UpdateCatalogItemCommand replaces an existing item.
type UpdateCatalogItemCommand struct {
	Item catalog.CatalogItem
}

func (c UpdateCatalogItemCommand) Validate() error {
	if err := validateID(c.Item.ID); err != nil {
		return err
	}
	return c.Item.Validate()
}

// DeleteCatalogItemCommand removes an item.
type DeleteCatalogItemCommand struct {
	ID int
}

func (c DeleteCatalogItemCommand) Validate() error { return validateID(c.ID) }

// CreateCatalogBrandCommand adds a brand.
type CreateCatalogBrandCommand struct {
	Brand catalog.CatalogBrand
}

func (c CreateCatalogBrandCommand) Validate() error {
	return c.Brand.Validate()
}

// UpdateCatalogBrandCommand renames a brand.
type UpdateCatalogBrandCommand struct {
	Brand catalog.CatalogBrand
}

func (c UpdateCatalogBrandCommand) Validate() error {
	if err := validateID(c.Brand.ID); err != nil {
		return err
	}
	return c.Brand.Validate()
}

// DeleteCatalogBrandCommand removes a brand no item references.
type DeleteCatalogBrandCommand struct {
	ID int
}

func (c DeleteCatalogBrandCommand) Validate() error { return validateID(c.ID) }

// CreateCatalogTypeCommand adds a type.
type CreateCatalogTypeCommand struct {
	Type catalog.CatalogType
}

func (c CreateCatalogTypeCommand) Validate() error {
	return c.Type.Validate()
}

// UpdateCatalogTypeCommand renames a type.
type UpdateCatalogTypeCommand struct {
	Type catalog.CatalogType
}

func (c UpdateCatalogTypeCommand) Validate() error {
	if err := validateID(c.Type.ID); err != nil {
		return err
	}
	return c.Type.Validate()
}

// DeleteCatalogTypeCommand removes a type no item references.
type DeleteCatalogTypeCommand struct {
	ID int
}

func (c DeleteCatalogTypeCommand) Validate() error { return validateID(c.ID) }

// InvalidateCacheCommand lets an operator evict cached catalog data
// without writing anything.
type InvalidateCacheCommand struct {
	Scope catalog.ChangeScope
}

func (c InvalidateCacheCommand) Validate() error {
	if c.Scope < catalog.ItemsOnly || c.Scope > catalog.All {
		return apperrors.NewValidationError("unknown change scope").WithDetail("scope", int(c.Scope))
	}
	return nil
}

func validateID(id int) error {
	if id <= 0 {
		return apperrors.NewValidationError("id must be positive").WithCode(apperrors.CodeInvalidEntity)
	}
	return nil
}
