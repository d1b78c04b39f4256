package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/debtower/pkg/errors"
	"github.com/matzehuels/debtower/pkg/refcount"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "debtower"

const runsCollection = "runs"

// MongoSink stores each run as one document in the "runs" collection.
type MongoSink struct {
	client *mongo.Client
	runs   *mongo.Collection
}

type runDocument struct {
	Run     `bson:",inline"`
	Entries []refcount.Entry `bson:"entries"`
}

// NewMongoSink connects to uri and verifies the connection.
func NewMongoSink(ctx context.Context, uri, database string) (*MongoSink, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect mongodb")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb")
	}
	return &MongoSink{client: client, runs: client.Database(database).Collection(runsCollection)}, nil
}

// WriteCounts inserts or replaces the run's document.
func (s *MongoSink) WriteCounts(ctx context.Context, run Run, entries []refcount.Entry) error {
	if entries == nil {
		entries = []refcount.Entry{}
	}
	doc := runDocument{Run: run, Entries: entries}
	_, err := s.runs.ReplaceOne(ctx, bson.M{"_id": run.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "store run %s", run.ID)
	}
	return nil
}

// ReadRun loads a run document.
func (s *MongoSink) ReadRun(ctx context.Context, id string) (Run, []refcount.Entry, error) {
	var doc runDocument
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Run{}, nil, errors.New(errors.ErrCodeNotFound, "run %s not found", id)
	}
	if err != nil {
		return Run{}, nil, errors.Wrap(errors.ErrCodeStorage, err, "load run %s", id)
	}
	return doc.Run, doc.Entries, nil
}

// Close disconnects from the server.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Sink = (*MongoSink)(nil)
