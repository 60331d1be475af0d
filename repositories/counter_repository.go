package repositories

import (
	"context"

	"github.com/Affo25/Ecoomerce-apis/configs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CounterRepository hands out monotonically increasing numbers per named
// sequence using an atomic $inc upsert.
type CounterRepository struct {
	db *configs.Database
}

func NewCounterRepository(db *configs.Database) *CounterRepository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	coll, err := r.db.Collection(ctx, countersCollection)
	if err != nil {
		return 0, err
	}

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	// Two first-time upserts can race on _id; the loser retries against the
	// document the winner created.
	for attempt := 0; ; attempt++ {
		err = coll.FindOneAndUpdate(ctx,
			bson.M{"_id": name},
			bson.M{"$inc": bson.M{"seq": int64(1)}},
			opts,
		).Decode(&counter)
		if err == nil {
			return counter.Seq, nil
		}
		if !mongo.IsDuplicateKeyError(err) || attempt > 0 {
			return 0, mapError(err, "Counter not found", "Counter already exists")
		}
	}
}
