package repositories

import (
	"context"
	"strings"

	"github.com/Affo25/Ecoomerce-apis/configs"
	"github.com/Affo25/Ecoomerce-apis/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	adminNotFound  = "Admin not found"
	adminDuplicate = "Username or email already registered"
)

type AdminRepository struct {
	db *configs.Database
}

func NewAdminRepository(db *configs.Database) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	return r.db.Collection(ctx, adminsCollection)
}

func (r *AdminRepository) EnsureIndexes(ctx context.Context) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return mapError(err, adminNotFound, adminDuplicate)
}

func (r *AdminRepository) Insert(ctx context.Context, a *models.Admin) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Email = strings.ToLower(a.Email)
	_, err = coll.InsertOne(ctx, a)
	return mapError(err, adminNotFound, adminDuplicate)
}

// FindByLogin matches either the username or the email address.
func (r *AdminRepository) FindByLogin(ctx context.Context, login string) (*models.Admin, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var admin models.Admin
	err = coll.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": login},
		bson.M{"email": strings.ToLower(login)},
	}}).Decode(&admin)
	if err != nil {
		return nil, mapError(err, adminNotFound, adminDuplicate)
	}
	return &admin, nil
}

func (r *AdminRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var admin models.Admin
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&admin); err != nil {
		return nil, mapError(err, adminNotFound, adminDuplicate)
	}
	return &admin, nil
}

func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{})
	return n, mapError(err, adminNotFound, adminDuplicate)
}
