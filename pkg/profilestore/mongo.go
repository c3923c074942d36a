package profilestore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const DefaultCollection = "users"

// MongoStore keeps one document per uid with _id set to the uid.
type MongoStore struct {
	coll *mongo.Collection
}

// MongoOption configures a MongoStore.
type MongoOption func(*mongoOptions)

type mongoOptions struct {
	collection string
}

// WithCollection overrides the collection name.
func WithCollection(name string) MongoOption {
	return func(o *mongoOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

// NewMongoStore keeps profiles in the users collection of db, keyed by _id.
func NewMongoStore(db *mongo.Database, opts ...MongoOption) *MongoStore {
	o := mongoOptions{collection: DefaultCollection}
	for _, opt := range opts {
		opt(&o)
	}
	return &MongoStore{coll: db.Collection(o.collection)}
}

type mongoDoc struct {
	ID      string `bson:"_id"`
	Profile `bson:",inline"`
}

// Get returns the profile for uid or ErrNotFound.
func (s *MongoStore) Get(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, ErrEmptyUID
	}

	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: uid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profilestore: mongo find %s: %w", uid, err)
	}

	return &doc.Profile, nil
}

// Set replaces the profile for uid, inserting it when absent.
func (s *MongoStore) Set(ctx context.Context, uid string, p Profile) error {
	if uid == "" {
		return ErrEmptyUID
	}
	p.UID = uid

	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: uid}},
		mongoDoc{ID: uid, Profile: p},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("profilestore: mongo replace %s: %w", uid, err)
	}
	return nil
}
