package repositories

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/configs"
	"github.com/Affo25/Ecoomerce-apis/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productNotFound  = "Product not found"
	productDuplicate = "Product with this slug already exists"
)

type ProductRepository struct {
	db *configs.Database
}

func NewProductRepository(db *configs.Database) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	return r.db.Collection(ctx, productsCollection)
}

func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "categories", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return mapError(err, productNotFound, productDuplicate)
}

// productFilter compiles the store-independent predicate into a query document.
func productFilter(f models.ProductFilter) bson.D {
	filter := bson.D{}

	if f.ActiveOnly {
		filter = append(filter, bson.E{Key: "is_active", Value: true})
	} else if f.Active != nil {
		filter = append(filter, bson.E{Key: "is_active", Value: *f.Active})
	}

	if f.Category != "" {
		filter = append(filter, bson.E{Key: "categories", Value: f.Category})
	}

	price := bson.D{}
	if f.MinPrice != nil {
		price = append(price, bson.E{Key: "$gte", Value: *f.MinPrice})
	}
	if f.MaxPrice != nil {
		price = append(price, bson.E{Key: "$lte", Value: *f.MaxPrice})
	}
	if len(price) > 0 {
		filter = append(filter, bson.E{Key: "price", Value: price})
	}

	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
			bson.D{{Key: "categories", Value: pattern}},
		}})
	}

	return filter
}

// productSort always ends with _id so equal keys keep creation order across pages.
func productSort(s models.ProductSort) bson.D {
	switch s {
	case models.SortPriceLow:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case models.SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case models.SortName:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func (r *ProductRepository) Find(ctx context.Context, filter models.ProductFilter, sort models.ProductSort, skip, limit int64) ([]models.Product, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find().
		SetSort(productSort(sort)).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := coll.Find(ctx, productFilter(filter), findOptions)
	if err != nil {
		return nil, mapError(err, productNotFound, productDuplicate)
	}

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, mapError(err, productNotFound, productDuplicate)
	}
	return products, nil
}

func (r *ProductRepository) Count(ctx context.Context, filter models.ProductFilter) (int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, productFilter(filter))
	return n, mapError(err, productNotFound, productDuplicate)
}

func (r *ProductRepository) DistinctCategories(ctx context.Context, filter models.ProductFilter) ([]string, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	values, err := coll.Distinct(ctx, "categories", productFilter(filter))
	if err != nil {
		return nil, mapError(err, productNotFound, productDuplicate)
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var product models.Product
	if err := coll.FindOne(ctx, filter).Decode(&product); err != nil {
		return nil, mapError(err, productNotFound, productDuplicate)
	}
	return &product, nil
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err = coll.InsertOne(ctx, p)
	return mapError(err, productNotFound, productDuplicate)
}

// Update writes the product with $set and decodes the stored result back into p.
// quantity_in_stock and stock_status are written only when selected in stock.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product, stock models.StockFields) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	update, err := productUpdate(p, stock)
	if err != nil {
		return apperrors.Internal(err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, update, opts).Decode(p); err != nil {
		return mapError(err, productNotFound, productDuplicate)
	}
	return nil
}

func productUpdate(p *models.Product, stock models.StockFields) (bson.M, error) {
	raw, err := bson.Marshal(p)
	if err != nil {
		return nil, err
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	delete(set, "_id")
	delete(set, "created_at")
	if !stock.Quantity {
		delete(set, "quantity_in_stock")
	}
	if !stock.Status {
		delete(set, "stock_status")
	}
	return bson.M{"$set": set}, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err, productNotFound, productDuplicate)
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound(productNotFound)
	}
	return nil
}

// ReserveStock decrements quantity_in_stock only if enough units remain.
func (r *ProductRepository) ReserveStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := coll.UpdateOne(ctx,
		bson.M{"_id": id, "quantity_in_stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"quantity_in_stock": -qty}, "$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		return mapError(err, productNotFound, productDuplicate)
	}

	if result.MatchedCount == 0 {
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return mapError(err, productNotFound, productDuplicate)
		}
		if n == 0 {
			return apperrors.NotFound(fmt.Sprintf("Product %s not found", id.Hex()))
		}
		return apperrors.Conflict(fmt.Sprintf("Insufficient stock for product %s", id.Hex()), nil)
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{"_id": id, "quantity_in_stock": bson.M{"$lte": 0}, "stock_status": models.InStock},
		bson.M{"$set": bson.M{"stock_status": models.OutOfStock}},
	)
	return mapError(err, productNotFound, productDuplicate)
}

func (r *ProductRepository) ReleaseStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"quantity_in_stock": qty}, "$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		return mapError(err, productNotFound, productDuplicate)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound(fmt.Sprintf("Product %s not found", id.Hex()))
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{"_id": id, "quantity_in_stock": bson.M{"$gt": 0}, "stock_status": models.OutOfStock},
		bson.M{"$set": bson.M{"stock_status": models.InStock}},
	)
	return mapError(err, productNotFound, productDuplicate)
}
