// Package mongodb stores checkpoints as MongoDB documents keyed by stream.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/errors"
)

func init() {
	checkpoint.RegisterStore(config.StoreMongoDB, func(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
		return Open(ctx, cfg.MongoDB)
	})
}

type document struct {
	Stream    string    `bson:"_id"`
	State     []byte    `bson:"state"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps {_id: stream, state: <binary>, updated_at} documents.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Open connects to cfg.URI and verifies the connection.
func Open(ctx context.Context, cfg config.MongoStoreConfig) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping mongodb")
	}

	database := cfg.Database
	if database == "" {
		database = "partsync"
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(cfg.Collection),
	}, nil
}

func (s *Store) Name() string { return config.StoreMongoDB }

func (s *Store) Save(ctx context.Context, stream string, data []byte) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": stream},
		document{Stream: stream, State: data, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to save checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, stream string) ([]byte, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": stream}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, checkpoint.NewNotFoundError(s.Name(), stream)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to load checkpoint").WithDetail("stream", stream)
	}
	return doc.State, nil
}

func (s *Store) Delete(ctx context.Context, stream string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": stream}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to delete checkpoint").WithDetail("stream", stream)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	cursor, err := s.collection.Find(ctx, bson.D{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to list checkpoints")
	}

	var docs []struct {
		Stream string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read checkpoint list")
	}
	streams := make([]string, 0, len(docs))
	for _, d := range docs {
		streams = append(streams, d.Stream)
	}
	return streams, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
