package repositories

import (
	"context"
	"time"

	"github.com/Affo25/Ecoomerce-apis/configs"
	"github.com/Affo25/Ecoomerce-apis/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	orderNotFound  = "Order not found"
	orderDuplicate = "Order number already assigned"
)

type OrderRepository struct {
	db *configs.Database
}

func NewOrderRepository(db *configs.Database) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	return r.db.Collection(ctx, ordersCollection)
}

func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return mapError(err, orderNotFound, orderDuplicate)
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err = coll.InsertOne(ctx, o)
	return mapError(err, orderNotFound, orderDuplicate)
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *OrderRepository) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"orderNumber": number})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var order models.Order
	if err := coll.FindOne(ctx, filter).Decode(&order); err != nil {
		return nil, mapError(err, orderNotFound, orderDuplicate)
	}
	return &order, nil
}

func orderFilter(status models.OrderStatus) bson.M {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return filter
}

func (r *OrderRepository) Count(ctx context.Context, status models.OrderStatus) (int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, orderFilter(status))
	return n, mapError(err, orderNotFound, orderDuplicate)
}

func (r *OrderRepository) List(ctx context.Context, status models.OrderStatus, skip, limit int64) ([]models.Order, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := coll.Find(ctx, orderFilter(status), findOptions)
	if err != nil {
		return nil, mapError(err, orderNotFound, orderDuplicate)
	}

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, mapError(err, orderNotFound, orderDuplicate)
	}
	return orders, nil
}

// UpdateStatus is a compare-and-swap on the current status. It reports
// NotFound when the order is missing or no longer in status from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) (*models.Order, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err != nil {
		return nil, mapError(err, orderNotFound, orderDuplicate)
	}
	return &order, nil
}
