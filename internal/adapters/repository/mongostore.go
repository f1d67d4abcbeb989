package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/okian/sentinel/internal/domain/model"
)

// MongoStore keeps scored events in one MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongo connects to uri, pings the server and ensures the listing and
// fingerprint indexes exist.
func OpenMongo(ctx context.Context, uri string, opts ...Option) (*MongoStore, error) {
	o := newOptions(opts)
	if o.database == "" {
		o.database = defaultDatabase
		if cs, err := connstring.ParseAndValidate(uri); err == nil && cs.Database != "" {
			o.database = cs.Database
		}
	}

	clientOpts := mongoopts.Client().
		ApplyURI(uri).
		SetConnectTimeout(o.timeout).
		SetServerSelectionTimeout(o.timeout).
		SetRegistry(eventRegistry())

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(o.database).Collection(o.collection)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event.wallet", Value: 1}}},
		{Keys: bson.D{{Key: "event.fingerprint", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	idxCtx, cancelIdx := context.WithTimeout(ctx, o.timeout)
	defer cancelIdx()
	if _, err := coll.Indexes().CreateMany(idxCtx, indexes); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	return &MongoStore{client: client, collection: coll}, nil
}

// eventRegistry decodes embedded documents under interface-typed fields,
// such as nested event metadata, as bson.M so they render as JSON objects.
func eventRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeMapEntry(bson.TypeEmbeddedDocument, reflect.TypeOf(bson.M{}))
	return reg
}

func (s *MongoStore) Insert(ctx context.Context, ev *model.ScoredEvent) error {
	if _, err := s.collection.InsertOne(ctx, ev); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, ev.ID)
		}
		return fmt.Errorf("insert scored event: %w", err)
	}
	return nil
}

func (s *MongoStore) Recent(ctx context.Context, limit int) ([]model.ScoredEvent, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	findOpts := mongoopts.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.collection.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find recent events: %w", err)
	}
	out := make([]model.ScoredEvent, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode recent events: %w", err)
	}
	return out, nil
}

func (s *MongoStore) CountByFingerprint(ctx context.Context, fp string) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"event.fingerprint": fp})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("count fingerprint: %w", err)
	}
	return n, nil
}

func (s *MongoStore) Backend() string { return BackendMongo }

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
