// Package datastore executes compiled pipelines against MongoDB.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config selects the deployment and database.
type Config struct {
	URI      string
	Database string
	// Timeout bounds connecting and every aggregation. Zero disables it.
	Timeout time.Duration
}

// MongoExecutor runs aggregations read-only against one database.
type MongoExecutor struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// Connect dials cfg.URI and pings the primary before returning.
func Connect(ctx context.Context, cfg Config) (*MongoExecutor, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo database is required")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoExecutor{client: client, db: client.Database(cfg.Database), timeout: cfg.Timeout}, nil
}

// Aggregate runs p on collection and decodes every row.
func (m *MongoExecutor) Aggregate(ctx context.Context, collection string, p mongo.Pipeline) ([]bson.M, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	cur, err := m.db.Collection(collection).Aggregate(ctx, p, options.Aggregate().SetAllowDiskUse(true))
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	rows := []bson.M{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("read %s results: %w", collection, err)
	}
	return rows, nil
}

// Close disconnects the client.
func (m *MongoExecutor) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// IsTimeout reports whether err is a deadline, server selection or
// MaxTimeMS expiry, however deeply wrapped.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err)
}
