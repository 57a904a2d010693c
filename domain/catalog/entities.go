package catalog

import (
	"strings"

	"catalog-backend/pkg/utils"
)

// CatalogItem is a purchasable product.
type CatalogItem struct {
	ID             int    `json:"id" dynamodbav:"ID"`
	Name           string `json:"name" dynamodbav:"Name" validate:"required,max=50"`
	Description    string `json:"description" dynamodbav:"Description"`
	Price          Money  `json:"price" dynamodbav:"Price" validate:"gt=0"`
	PictureURI     string `json:"pictureUri,omitempty" dynamodbav:"PictureURI,omitempty" validate:"omitempty,max=2048"`
	CatalogBrandID int    `json:"catalogBrandId" dynamodbav:"CatalogBrandID" validate:"gt=0"`
	CatalogTypeID  int    `json:"catalogTypeId" dynamodbav:"CatalogTypeID" validate:"gt=0"`
}

// Validate checks the item's field constraints.
func (i CatalogItem) Validate() error {
	return utils.ValidateStruct(i)
}

// CatalogBrand is a manufacturer or label items can be filtered by.
type CatalogBrand struct {
	ID    int    `json:"id" dynamodbav:"ID"`
	Brand string `json:"brand" dynamodbav:"Brand" validate:"required,max=100"`
}

func (b CatalogBrand) Validate() error {
	return utils.ValidateStruct(b)
}

// CatalogType is an item category.
type CatalogType struct {
	ID   int    `json:"id" dynamodbav:"ID"`
	Type string `json:"type" dynamodbav:"Type" validate:"required,max=100"`
}

func (t CatalogType) Validate() error {
	return utils.ValidateStruct(t)
}

// Matches reports whether the item passes the optional brand and type filters.
func (i CatalogItem) Matches(brandID, typeID *int) bool {
	if brandID != nil && i.CatalogBrandID != *brandID {
		return false
	}
	if typeID != nil && i.CatalogTypeID != *typeID {
		return false
	}
	return true
}

// CompareBrands orders brands by name, then id.
func CompareBrands(a, b CatalogBrand) int {
	if c := strings.Compare(a.Brand, b.Brand); c != 0 {
		return c
	}
	return a.ID - b.ID
}

// CompareTypes orders types by name, then id.
func CompareTypes(a, b CatalogType) int {
	if c := strings.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	return a.ID - b.ID
}
