// Package dynamodb stores the catalog in a single DynamoDB table.
//
// Every row has PK = <KIND>#<id> and SK = METADATA, plus an EntityType
// attribute. Id sequences live in COUNTER#<KIND> rows incremented with an
// atomic ADD.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

const (
	entityItem  = "ITEM"
	entityBrand = "BRAND"
	entityType  = "TYPE"

	metadataSK = "METADATA"
)

type record struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
}

type itemRecord struct {
	record
	catalog.CatalogItem
}

type brandRecord struct {
	record
	catalog.CatalogBrand
}

type typeRecord struct {
	record
	catalog.CatalogType
}

type counterRecord struct {
	Value int `dynamodbav:"Value"`
}

func pk(entity string, id int) string {
	return entity + "#" + strconv.Itoa(id)
}

func key(entity string, id int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk(entity, id)},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

// CatalogStore implements ports.CatalogRepository on DynamoDB.
type CatalogStore struct {
	client    API
	tableName string
	logger    *zap.Logger
}

var _ ports.CatalogRepository = (*CatalogStore)(nil)

// NewCatalogStore creates a store backed by tableName.
func NewCatalogStore(client API, tableName string, logger *zap.Logger) *CatalogStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogStore{client: client, tableName: tableName, logger: logger}
}

// QueryPage scans matching items, orders them by id and slices the page.
// The filter expression trims the scan server side; rows are re-checked
// after unmarshalling.
func (s *CatalogStore) QueryPage(ctx context.Context, q catalog.PageQuery) ([]catalog.CatalogItem, int, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	filter := expression.Name("EntityType").Equal(expression.Value(entityItem))
	if q.BrandID != nil {
		filter = filter.And(expression.Name("CatalogBrandID").Equal(expression.Value(*q.BrandID)))
	}
	if q.TypeID != nil {
		filter = filter.And(expression.Name("CatalogTypeID").Equal(expression.Value(*q.TypeID)))
	}

	var matching []catalog.CatalogItem
	err := s.scan(ctx, "QueryPage", filter, func(raw map[string]types.AttributeValue) (bool, error) {
		var rec itemRecord
		if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
			return false, err
		}
		if rec.EntityType == entityItem && rec.Matches(q.BrandID, q.TypeID) {
			matching = append(matching, rec.CatalogItem)
		}
		return true, nil
	})
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(matching, func(a, b catalog.CatalogItem) int { return a.ID - b.ID })
	page := catalog.Paginate(matching, q)

	s.logger.Debug("Queried catalog page",
		zap.Int("page_index", q.PageIndex),
		zap.Int("page_size", q.PageSize),
		zap.Int("total", page.TotalCount),
	)
	return page.Items, page.TotalCount, nil
}

func (s *CatalogStore) AllBrands(ctx context.Context) ([]catalog.CatalogBrand, error) {
	var brands []catalog.CatalogBrand
	filter := expression.Name("EntityType").Equal(expression.Value(entityBrand))
	err := s.scan(ctx, "AllBrands", filter, func(raw map[string]types.AttributeValue) (bool, error) {
		var rec brandRecord
		if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
			return false, err
		}
		if rec.EntityType == entityBrand {
			brands = append(brands, rec.CatalogBrand)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(brands, catalog.CompareBrands)
	return brands, nil
}

func (s *CatalogStore) AllTypes(ctx context.Context) ([]catalog.CatalogType, error) {
	var out []catalog.CatalogType
	filter := expression.Name("EntityType").Equal(expression.Value(entityType))
	err := s.scan(ctx, "AllTypes", filter, func(raw map[string]types.AttributeValue) (bool, error) {
		var rec typeRecord
		if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
			return false, err
		}
		if rec.EntityType == entityType {
			out = append(out, rec.CatalogType)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, catalog.CompareTypes)
	return out, nil
}

func (s *CatalogStore) GetItem(ctx context.Context, id int) (catalog.CatalogItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key(entityItem, id),
	})
	if err != nil {
		return catalog.CatalogItem{}, classifyError("GetItem", err)
	}
	if len(out.Item) == 0 {
		return catalog.CatalogItem{}, apperrors.NewNotFoundError("catalog item " + strconv.Itoa(id))
	}
	var rec itemRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return catalog.CatalogItem{}, apperrors.NewDatabaseError("GetItem", err)
	}
	return rec.CatalogItem, nil
}

func (s *CatalogStore) CreateItem(ctx context.Context, item catalog.CatalogItem) (catalog.CatalogItem, error) {
	if err := s.checkReferences(ctx, item); err != nil {
		return catalog.CatalogItem{}, err
	}
	id, err := s.nextID(ctx, entityItem)
	if err != nil {
		return catalog.CatalogItem{}, err
	}
	item.ID = id
	rec := itemRecord{record: record{PK: pk(entityItem, id), SK: metadataSK, EntityType: entityItem}, CatalogItem: item}
	if err := s.put(ctx, "CreateItem", rec, "attribute_not_exists(PK)"); err != nil {
		return catalog.CatalogItem{}, createError(err, "catalog item", id)
	}
	return item, nil
}

func (s *CatalogStore) UpdateItem(ctx context.Context, item catalog.CatalogItem) error {
	if err := s.checkReferences(ctx, item); err != nil {
		return err
	}
	rec := itemRecord{record: record{PK: pk(entityItem, item.ID), SK: metadataSK, EntityType: entityItem}, CatalogItem: item}
	err := s.put(ctx, "UpdateItem", rec, "attribute_exists(PK)")
	if errors.Is(err, errConditionFailed) {
		return apperrors.NewNotFoundError("catalog item " + strconv.Itoa(item.ID))
	}
	return err
}

func (s *CatalogStore) DeleteItem(ctx context.Context, id int) error {
	return s.delete(ctx, entityItem, id, "catalog item")
}

func (s *CatalogStore) CreateBrand(ctx context.Context, brand catalog.CatalogBrand) (catalog.CatalogBrand, error) {
	id, err := s.nextID(ctx, entityBrand)
	if err != nil {
		return catalog.CatalogBrand{}, err
	}
	brand.ID = id
	rec := brandRecord{record: record{PK: pk(entityBrand, id), SK: metadataSK, EntityType: entityBrand}, CatalogBrand: brand}
	if err := s.put(ctx, "CreateBrand", rec, "attribute_not_exists(PK)"); err != nil {
		return catalog.CatalogBrand{}, createError(err, "catalog brand", id)
	}
	return brand, nil
}

func (s *CatalogStore) UpdateBrand(ctx context.Context, brand catalog.CatalogBrand) error {
	rec := brandRecord{record: record{PK: pk(entityBrand, brand.ID), SK: metadataSK, EntityType: entityBrand}, CatalogBrand: brand}
	err := s.put(ctx, "UpdateBrand", rec, "attribute_exists(PK)")
	if errors.Is(err, errConditionFailed) {
		return apperrors.NewNotFoundError("catalog brand " + strconv.Itoa(brand.ID))
	}
	return err
}

func (s *CatalogStore) DeleteBrand(ctx context.Context, id int) error {
	if err := s.ensureUnreferenced(ctx, "CatalogBrandID", id, "catalog brand"); err != nil {
		return err
	}
	return s.delete(ctx, entityBrand, id, "catalog brand")
}

func (s *CatalogStore) CreateType(ctx context.Context, t catalog.CatalogType) (catalog.CatalogType, error) {
	id, err := s.nextID(ctx, entityType)
	if err != nil {
		return catalog.CatalogType{}, err
	}
	t.ID = id
	rec := typeRecord{record: record{PK: pk(entityType, id), SK: metadataSK, EntityType: entityType}, CatalogType: t}
	if err := s.put(ctx, "CreateType", rec, "attribute_not_exists(PK)"); err != nil {
		return catalog.CatalogType{}, createError(err, "catalog type", id)
	}
	return t, nil
}

func (s *CatalogStore) UpdateType(ctx context.Context, t catalog.CatalogType) error {
	rec := typeRecord{record: record{PK: pk(entityType, t.ID), SK: metadataSK, EntityType: entityType}, CatalogType: t}
	err := s.put(ctx, "UpdateType", rec, "attribute_exists(PK)")
	if errors.Is(err, errConditionFailed) {
		return apperrors.NewNotFoundError("catalog type " + strconv.Itoa(t.ID))
	}
	return err
}

func (s *CatalogStore) DeleteType(ctx context.Context, id int) error {
	if err := s.ensureUnreferenced(ctx, "CatalogTypeID", id, "catalog type"); err != nil {
		return err
	}
	return s.delete(ctx, entityType, id, "catalog type")
}

// scan walks every page of a filtered table scan. visit returns false to
// stop early.
func (s *CatalogStore) scan(ctx context.Context, operation string, filter expression.ConditionBuilder, visit func(map[string]types.AttributeValue) (bool, error)) error {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build scan expression").WithCause(err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classifyError(operation, err)
		}
		for _, raw := range page.Items {
			more, err := visit(raw)
			if err != nil {
				return apperrors.NewDatabaseError(operation, err)
			}
			if !more {
				return nil
			}
		}
	}
	return nil
}

// errConditionFailed reports that a put's existence condition did not hold.
var errConditionFailed = errors.New("condition check failed")

func (s *CatalogStore) put(ctx context.Context, operation string, rec interface{}, condition string) error {
	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal catalog record").WithCause(err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String(condition),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("%s: %w", operation, errConditionFailed)
		}
		return classifyError(operation, err)
	}
	return nil
}

func createError(err error, resource string, id int) error {
	if errors.Is(err, errConditionFailed) {
		return apperrors.NewConflictError(fmt.Sprintf("%s %d already exists", resource, id)).WithCause(err)
	}
	return err
}

func (s *CatalogStore) delete(ctx context.Context, entity string, id int, resource string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 key(entity, id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return apperrors.NewNotFoundError(resource + " " + strconv.Itoa(id))
		}
		return classifyError("Delete"+entity, err)
	}
	return nil
}

// nextID atomically increments the id counter for entity.
func (s *CatalogStore) nextID(ctx context.Context, entity string) (int, error) {
	update := expression.Add(expression.Name("Value"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build counter expression").WithCause(err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "COUNTER#" + entity},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, classifyError("NextID", err)
	}

	var counter counterRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil {
		return 0, apperrors.NewDatabaseError("NextID", err)
	}
	return counter.Value, nil
}

func (s *CatalogStore) checkReferences(ctx context.Context, item catalog.CatalogItem) error {
	checks := []struct {
		entity   string
		id       int
		resource string
	}{
		{entityBrand, item.CatalogBrandID, "catalog brand"},
		{entityType, item.CatalogTypeID, "catalog type"},
	}
	for _, c := range checks {
		out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:            aws.String(s.tableName),
			Key:                  key(c.entity, c.id),
			ProjectionExpression: aws.String("PK"),
		})
		if err != nil {
			return classifyError("CheckReferences", err)
		}
		if len(out.Item) == 0 {
			return apperrors.NewValidationError(fmt.Sprintf("%s %d does not exist", c.resource, c.id)).
				WithCode(apperrors.CodeInvalidEntity)
		}
	}
	return nil
}

func (s *CatalogStore) ensureUnreferenced(ctx context.Context, attribute string, id int, resource string) error {
	filter := expression.Name("EntityType").Equal(expression.Value(entityItem)).
		And(expression.Name(attribute).Equal(expression.Value(id)))

	var user *catalog.CatalogItem
	err := s.scan(ctx, "EnsureUnreferenced", filter, func(raw map[string]types.AttributeValue) (bool, error) {
		var rec itemRecord
		if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
			return false, err
		}
		if rec.EntityType != entityItem {
			return true, nil
		}
		if (attribute == "CatalogBrandID" && rec.CatalogBrandID == id) ||
			(attribute == "CatalogTypeID" && rec.CatalogTypeID == id) {
			user = &rec.CatalogItem
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if user != nil {
		return apperrors.NewConflictError(fmt.Sprintf("%s %d is used by item %d", resource, id, user.ID)).
			WithCode(apperrors.CodeInUse)
	}
	return nil
}
