package memory

import (
	"strconv"

	"catalog-backend/domain/catalog"
)

const pictureBaseURI = "http://catalogbaseurltobereplaced/images/products/"

// SeedBrands are the brands a fresh store starts with.
func SeedBrands() []catalog.CatalogBrand {
	return []catalog.CatalogBrand{
		{ID: 1, Brand: "Azure"},
		{ID: 2, Brand: ".NET"},
		{ID: 3, Brand: "Visual Studio"},
		{ID: 4, Brand: "SQL Server"},
		{ID: 5, Brand: "Other"},
	}
}

// SeedTypes are the types a fresh store starts with.
func SeedTypes() []catalog.CatalogType {
	return []catalog.CatalogType{
		{ID: 1, Type: "Mug"},
		{ID: 2, Type: "T-Shirt"},
		{ID: 3, Type: "Sheet"},
		{ID: 4, Type: "USB Memory Stick"},
	}
}

// SeedItems are the items a fresh store starts with.
func SeedItems() []catalog.CatalogItem {
	item := func(id, typeID, brandID int, name string, price catalog.Money) catalog.CatalogItem {
		return catalog.CatalogItem{
			ID:             id,
			Name:           name,
			Description:    name,
			Price:          price,
			PictureURI:     pictureBaseURI + strconv.Itoa(id) + ".png",
			CatalogBrandID: brandID,
			CatalogTypeID:  typeID,
		}
	}
	return []catalog.CatalogItem{
		item(1, 2, 2, ".NET Bot Black Sweatshirt", 1950),
		item(2, 1, 2, ".NET Black & White Mug", 850),
		item(3, 2, 5, "Prism White T-Shirt", 1200),
		item(4, 2, 2, ".NET Foundation Sweatshirt", 1200),
		item(5, 3, 5, "Roslyn Red Sheet", 850),
		item(6, 2, 2, ".NET Blue Sweatshirt", 1200),
		item(7, 2, 5, "Roslyn Red T-Shirt", 1200),
		item(8, 2, 5, "Kudu Purple Sweatshirt", 850),
		item(9, 1, 5, "Cup<T> White Mug", 1200),
		item(10, 3, 2, ".NET Foundation Sheet", 1200),
		item(11, 3, 2, "Cup<T> Sheet", 850),
		item(12, 2, 5, "Prism White TShirt", 1200),
	}
}
