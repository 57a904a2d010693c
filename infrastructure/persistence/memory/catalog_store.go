// Package memory provides an in-process CatalogRepository used for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

// CatalogStore keeps the catalog in maps guarded by a RWMutex.
type CatalogStore struct {
	mu     sync.RWMutex
	items  map[int]catalog.CatalogItem
	brands map[int]catalog.CatalogBrand
	types  map[int]catalog.CatalogType

	nextItemID  int
	nextBrandID int
	nextTypeID  int

	logger *zap.Logger
}

var _ ports.CatalogRepository = (*CatalogStore)(nil)

// NewCatalogStore creates an empty store.
func NewCatalogStore(logger *zap.Logger) *CatalogStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogStore{
		items:       make(map[int]catalog.CatalogItem),
		brands:      make(map[int]catalog.CatalogBrand),
		types:       make(map[int]catalog.CatalogType),
		nextItemID:  1,
		nextBrandID: 1,
		nextTypeID:  1,
		logger:      logger,
	}
}

// NewSeededCatalogStore creates a store holding the seed catalog.
func NewSeededCatalogStore(logger *zap.Logger) *CatalogStore {
	s := NewCatalogStore(logger)
	s.Load(SeedBrands(), SeedTypes(), SeedItems())
	return s
}

// Load replaces the store contents. IDs are kept as given.
func (s *CatalogStore) Load(brands []catalog.CatalogBrand, types []catalog.CatalogType, items []catalog.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.brands = make(map[int]catalog.CatalogBrand, len(brands))
	s.types = make(map[int]catalog.CatalogType, len(types))
	s.items = make(map[int]catalog.CatalogItem, len(items))
	s.nextBrandID, s.nextTypeID, s.nextItemID = 1, 1, 1

	for _, b := range brands {
		s.brands[b.ID] = b
		s.nextBrandID = max(s.nextBrandID, b.ID+1)
	}
	for _, t := range types {
		s.types[t.ID] = t
		s.nextTypeID = max(s.nextTypeID, t.ID+1)
	}
	for _, i := range items {
		s.items[i.ID] = i
		s.nextItemID = max(s.nextItemID, i.ID+1)
	}

	s.logger.Info("Catalog loaded",
		zap.Int("brands", len(brands)),
		zap.Int("types", len(types)),
		zap.Int("items", len(items)),
	)
}

// QueryPage filters, orders by id and slices the requested page.
func (s *CatalogStore) QueryPage(ctx context.Context, q catalog.PageQuery) ([]catalog.CatalogItem, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	matching := make([]catalog.CatalogItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Matches(q.BrandID, q.TypeID) {
			matching = append(matching, item)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matching, func(a, b catalog.CatalogItem) int { return a.ID - b.ID })
	page := catalog.Paginate(matching, q)
	return page.Items, page.TotalCount, nil
}

func (s *CatalogStore) AllBrands(ctx context.Context) ([]catalog.CatalogBrand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	brands := make([]catalog.CatalogBrand, 0, len(s.brands))
	for _, b := range s.brands {
		brands = append(brands, b)
	}
	slices.SortFunc(brands, catalog.CompareBrands)
	return brands, nil
}

func (s *CatalogStore) AllTypes(ctx context.Context) ([]catalog.CatalogType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]catalog.CatalogType, 0, len(s.types))
	for _, t := range s.types {
		types = append(types, t)
	}
	slices.SortFunc(types, catalog.CompareTypes)
	return types, nil
}

func (s *CatalogStore) GetItem(ctx context.Context, id int) (catalog.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return catalog.CatalogItem{}, apperrors.NewNotFoundError("catalog item " + strconv.Itoa(id))
	}
	return item, nil
}

func (s *CatalogStore) CreateItem(ctx context.Context, item catalog.CatalogItem) (catalog.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReferencesLocked(item); err != nil {
		return catalog.CatalogItem{}, err
	}
	item.ID = s.nextItemID
	s.nextItemID++
	s.items[item.ID] = item
	return item, nil
}

func (s *CatalogStore) UpdateItem(ctx context.Context, item catalog.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return apperrors.NewNotFoundError("catalog item " + strconv.Itoa(item.ID))
	}
	if err := s.checkReferencesLocked(item); err != nil {
		return err
	}
	s.items[item.ID] = item
	return nil
}

func (s *CatalogStore) DeleteItem(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apperrors.NewNotFoundError("catalog item " + strconv.Itoa(id))
	}
	delete(s.items, id)
	return nil
}

func (s *CatalogStore) CreateBrand(ctx context.Context, brand catalog.CatalogBrand) (catalog.CatalogBrand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	brand.ID = s.nextBrandID
	s.nextBrandID++
	s.brands[brand.ID] = brand
	return brand, nil
}

func (s *CatalogStore) UpdateBrand(ctx context.Context, brand catalog.CatalogBrand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.brands[brand.ID]; !ok {
		return apperrors.NewNotFoundError("catalog brand " + strconv.Itoa(brand.ID))
	}
	s.brands[brand.ID] = brand
	return nil
}

func (s *CatalogStore) DeleteBrand(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.brands[id]; !ok {
		return apperrors.NewNotFoundError("catalog brand " + strconv.Itoa(id))
	}
	for _, item := range s.items {
		if item.CatalogBrandID == id {
			return apperrors.NewConflictError(fmt.Sprintf("catalog brand %d is used by item %d", id, item.ID)).
				WithCode(apperrors.CodeInUse)
		}
	}
	delete(s.brands, id)
	return nil
}

func (s *CatalogStore) CreateType(ctx context.Context, t catalog.CatalogType) (catalog.CatalogType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.nextTypeID
	s.nextTypeID++
	s.types[t.ID] = t
	return t, nil
}

func (s *CatalogStore) UpdateType(ctx context.Context, t catalog.CatalogType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.types[t.ID]; !ok {
		return apperrors.NewNotFoundError("catalog type " + strconv.Itoa(t.ID))
	}
	s.types[t.ID] = t
	return nil
}

func (s *CatalogStore) DeleteType(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.types[id]; !ok {
		return apperrors.NewNotFoundError("catalog type " + strconv.Itoa(id))
	}
	for _, item := range s.items {
		if item.CatalogTypeID == id {
			return apperrors.NewConflictError(fmt.Sprintf("catalog type %d is used by item %d", id, item.ID)).
				WithCode(apperrors.CodeInUse)
		}
	}
	delete(s.types, id)
	return nil
}

func (s *CatalogStore) checkReferencesLocked(item catalog.CatalogItem) error {
	if _, ok := s.brands[item.CatalogBrandID]; !ok {
		return apperrors.NewValidationError(fmt.Sprintf("catalog brand %d does not exist", item.CatalogBrandID)).
			WithCode(apperrors.CodeInvalidEntity)
	}
	if _, ok := s.types[item.CatalogTypeID]; !ok {
		return apperrors.NewValidationError(fmt.Sprintf("catalog type %d does not exist", item.CatalogTypeID)).
			WithCode(apperrors.CodeInvalidEntity)
	}
	return nil
}
