package configs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database is the process-wide MongoDB handle. The client is established on
// first use and shared by every repository; a failed attempt is retried on
// the next call instead of being cached.
type Database struct {
	uri  string
	name string

	mu     sync.Mutex
	client *mongo.Client
}

func NewDatabase(uri, name string) *Database {
	return &Database{uri: uri, name: name}
}

// connect dials once and caches the client. The mutex is held across dial and
// ping, so while MongoDB is down concurrent callers queue behind a single
// attempt (bounded by the caller's deadline or 30s) instead of dialing in
// parallel; each failed attempt leaves the client unset for the next caller.
func (d *Database) connect(ctx context.Context) (*mongo.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return d.client, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.uri))
	if err != nil {
		return nil, apperrors.Upstream("Database unavailable", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.Upstream("Database unavailable", err)
	}

	slog.Info("Connected to MongoDB", "database", d.name)
	d.client = client
	return client, nil
}

// Collection returns the named collection, connecting if needed.
func (d *Database) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(d.name).Collection(name), nil
}

func (d *Database) Ping(ctx context.Context) error {
	client, err := d.connect(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return apperrors.Upstream("Database unavailable", err)
	}
	return nil
}

func (d *Database) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}
	err := d.client.Disconnect(ctx)
	d.client = nil
	return err
}
