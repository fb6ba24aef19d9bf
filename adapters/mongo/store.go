// Package mongo backs the document store and permission oracle ports with
// MongoDB. Activities live as array fields on user and email documents; a
// single $push keeps the append atomic.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fabienmoyon/socialInbox/ports/store"
)

// Connect opens a client and returns the database handle plus a close func.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, func(), error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo: ping: %w", err)
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }
	return client.Database(dbName), closeFn, nil
}

// Store implements the ActivityStore port.
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store { return &Store{db: db} }

func (s *Store) AppendToArray(ctx context.Context, collection, id, field string, value any) (store.AppendResult, error) {
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{field: value}},
	)
	if err != nil {
		return store.AppendResult{}, fmt.Errorf("mongo: push to %s/%s: %w", collection, id, err)
	}
	return store.AppendResult{Modified: res.ModifiedCount}, nil
}

var _ store.ActivityStore = (*Store)(nil)
