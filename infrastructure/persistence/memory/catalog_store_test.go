package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

func intPtr(v int) *int { return &v }

func sevenItemStore(t *testing.T) *CatalogStore {
	t.Helper()
	s := NewCatalogStore(zap.NewNop())
	items := make([]catalog.CatalogItem, 7)
	for i := range items {
		items[i] = catalog.CatalogItem{ID: i + 1, Name: "item", Price: 100, CatalogBrandID: 1, CatalogTypeID: 1}
	}
	s.Load([]catalog.CatalogBrand{{ID: 1, Brand: "Acme"}}, []catalog.CatalogType{{ID: 1, Type: "Mug"}}, items)
	return s
}

func TestQueryPage_PaginationBoundary(t *testing.T) {
	s := sevenItemStore(t)
	ctx := context.Background()

	items, total, err := s.QueryPage(ctx, catalog.NewPageQuery(1, 5, nil, nil))
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 7, total)
	assert.Equal(t, 6, items[0].ID)

	items, total, err = s.QueryPage(ctx, catalog.NewPageQuery(2, 5, nil, nil))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 7, total)
}

func TestQueryPage_FiltersAndOrders(t *testing.T) {
	s := NewSeededCatalogStore(zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name      string
		brandID   *int
		typeID    *int
		wantTotal int
	}{
		{"unfiltered", nil, nil, 12},
		{".NET brand", intPtr(2), nil, 6},
		{"T-Shirt type", nil, intPtr(2), 7},
		{".NET mugs", intPtr(2), intPtr(1), 1},
		{"USB sticks", nil, intPtr(4), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := s.QueryPage(ctx, catalog.NewPageQuery(0, 100, tt.brandID, tt.typeID))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			for i := 1; i < len(items); i++ {
				assert.Less(t, items[i-1].ID, items[i].ID)
			}
			for _, item := range items {
				assert.True(t, item.Matches(tt.brandID, tt.typeID))
			}
		})
	}
}

func TestQueryPage_RejectsInvalidQuery(t *testing.T) {
	s := NewSeededCatalogStore(zap.NewNop())

	_, _, err := s.QueryPage(context.Background(), catalog.NewPageQuery(0, 0, nil, nil))

	assert.True(t, apperrors.IsInvalidQuery(err))
}

func TestAllBrandsAndTypes_SortedByName(t *testing.T) {
	s := NewSeededCatalogStore(zap.NewNop())

	brands, err := s.AllBrands(context.Background())
	require.NoError(t, err)
	require.Len(t, brands, 5)
	assert.Equal(t, ".NET", brands[0].Brand)
	assert.Equal(t, "Visual Studio", brands[4].Brand)

	types, err := s.AllTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 4)
	assert.Equal(t, "Mug", types[0].Type)
}

func TestItemWrites(t *testing.T) {
	s := NewSeededCatalogStore(zap.NewNop())
	ctx := context.Background()

	created, err := s.CreateItem(ctx, catalog.CatalogItem{Name: "Azure Mug", Price: 990, CatalogBrandID: 1, CatalogTypeID: 1})
	require.NoError(t, err)
	assert.Equal(t, 13, created.ID)

	created.Price = 1090
	require.NoError(t, s.UpdateItem(ctx, created))
	got, err := s.GetItem(ctx, 13)
	require.NoError(t, err)
	assert.Equal(t, catalog.Money(1090), got.Price)

	require.NoError(t, s.DeleteItem(ctx, 13))
	_, err = s.GetItem(ctx, 13)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = s.CreateItem(ctx, catalog.CatalogItem{Name: "Orphan", Price: 100, CatalogBrandID: 99, CatalogTypeID: 1})
	assert.True(t, apperrors.IsValidation(err))

	assert.True(t, apperrors.IsNotFound(s.UpdateItem(ctx, catalog.CatalogItem{ID: 404, CatalogBrandID: 1, CatalogTypeID: 1})))
	assert.True(t, apperrors.IsNotFound(s.DeleteItem(ctx, 404)))
}

func TestBrandAndTypeWrites(t *testing.T) {
	s := NewSeededCatalogStore(zap.NewNop())
	ctx := context.Background()

	brand, err := s.CreateBrand(ctx, catalog.CatalogBrand{Brand: "GitHub"})
	require.NoError(t, err)
	assert.Equal(t, 6, brand.ID)
	require.NoError(t, s.UpdateBrand(ctx, catalog.CatalogBrand{ID: 6, Brand: "GitHub Inc"}))
	require.NoError(t, s.DeleteBrand(ctx, 6))

	err = s.DeleteBrand(ctx, 2)
	assert.True(t, apperrors.IsConflict(err), ".NET brand is referenced by items")

	typ, err := s.CreateType(ctx, catalog.CatalogType{Type: "Hoodie"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateType(ctx, catalog.CatalogType{ID: typ.ID, Type: "Hoodies"}))
	require.NoError(t, s.DeleteType(ctx, 4), "USB Memory Stick has no items")
	assert.True(t, apperrors.IsConflict(s.DeleteType(ctx, 1)))
	assert.True(t, apperrors.IsNotFound(s.UpdateType(ctx, catalog.CatalogType{ID: 4, Type: "gone"})))
}

func TestQueryPage_CancelledContext(t *testing.T) {
	s := NewSeededCatalogStore(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.QueryPage(ctx, catalog.NewPageQuery(0, 10, nil, nil))

	assert.ErrorIs(t, err, context.Canceled)
}
