package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names
const (
	QuestionsCollection     = "questions"
	AnswersCollection       = "answers"
	UsersCollection         = "users"
	NotificationsCollection = "notifications"
)

// Cursor interface for mocking
type Cursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
	Err() error
	Next(ctx context.Context) bool
	Decode(v interface{}) error
}

// SingleResult interface for mocking
type SingleResult interface {
	Decode(v interface{}) error
}

// Collection interface for mocking
type Collection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Indexes() mongo.IndexView
}

// mongoCursor adapts *mongo.Cursor to Cursor
type mongoCursor struct {
	*mongo.Cursor
}

func (m *mongoCursor) All(ctx context.Context, results interface{}) error {
	return m.Cursor.All(ctx, results)
}

func (m *mongoCursor) Close(ctx context.Context) error {
	return m.Cursor.Close(ctx)
}

func (m *mongoCursor) Err() error {
	return m.Cursor.Err()
}

func (m *mongoCursor) Next(ctx context.Context) bool {
	return m.Cursor.Next(ctx)
}

func (m *mongoCursor) Decode(v interface{}) error {
	return m.Cursor.Decode(v)
}

// mongoSingleResult adapts *mongo.SingleResult to SingleResult
type mongoSingleResult struct {
	*mongo.SingleResult
}

func (m *mongoSingleResult) Decode(v interface{}) error {
	return m.SingleResult.Decode(v)
}

// mongoCollection adapts *mongo.Collection to Collection
type mongoCollection struct {
	*mongo.Collection
}

func (m *mongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error) {
	cursor, err := m.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoCursor{Cursor: cursor}, nil
}

func (m *mongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult {
	return &mongoSingleResult{SingleResult: m.Collection.FindOne(ctx, filter, opts...)}
}

func (m *mongoCollection) Indexes() mongo.IndexView {
	return m.Collection.Indexes()
}

// MongoDB holds the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(uri, dbName string, maxPoolSize uint64, logger *zap.SugaredLogger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetMaxPoolSize(maxPoolSize)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Infow("Connected to MongoDB", "database", dbName)

	return &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

// HealthCheck performs a health check on the MongoDB connection
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// MongoStore persists every entity in its own collection. Multi-step
// operations are sequences of single-document conditional updates; no
// multi-document transactions are used.
type MongoStore struct {
	mongoDB       *MongoDB
	questions     Collection
	answers       Collection
	users         Collection
	notifications Collection
	timeout       time.Duration
	logger        *zap.SugaredLogger
}

// NewMongoStore creates a store over an open connection
func NewMongoStore(mongoDB *MongoDB, timeout time.Duration, logger *zap.SugaredLogger) *MongoStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoStore{
		mongoDB:       mongoDB,
		questions:     &mongoCollection{Collection: mongoDB.Database.Collection(QuestionsCollection)},
		answers:       &mongoCollection{Collection: mongoDB.Database.Collection(AnswersCollection)},
		users:         &mongoCollection{Collection: mongoDB.Database.Collection(UsersCollection)},
		notifications: &mongoCollection{Collection: mongoDB.Database.Collection(NotificationsCollection)},
		timeout:       timeout,
		logger:        logger,
	}
}

// withTimeout bounds a single store call
func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// EnsureIndexes creates the indexes listings and lookups rely on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	specs := []struct {
		coll    Collection
		name    string
		indexes []mongo.IndexModel
	}{
		{s.questions, QuestionsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "voteScore", Value: -1}}},
			{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "answerCount", Value: -1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
		}},
		{s.answers, AnswersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "question", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "isAccepted", Value: 1}}},
			{Keys: bson.D{{Key: "isDeleted", Value: 1}}},
		}},
		{s.users, UsersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.notifications, NotificationsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "isRead", Value: 1}}},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", spec.name, err)
		}
	}

	s.logger.Infow("MongoDB indexes ensured")
	return nil
}

// Close closes the underlying connection
func (s *MongoStore) Close(ctx context.Context) error {
	return s.mongoDB.Close(ctx)
}

// insertErr maps insert failures onto storage sentinels
func insertErr(entity string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to insert %s: %w", entity, ErrDuplicateKey)
	}
	return fmt.Errorf("failed to insert %s: %w", entity, err)
}

// findOne decodes a single document, mapping ErrNoDocuments to notFound
func findOne(ctx context.Context, coll Collection, filter bson.M, dest interface{}, notFound error) error {
	err := coll.FindOne(ctx, filter).Decode(dest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound
		}
		return err
	}
	return nil
}

// findPage runs a paged query plus its total count
func findPage(ctx context.Context, coll Collection, filter bson.M, sort bson.D, offset, limit int, results interface{}) (int64, error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	opts := options.Find().SetSort(sort)
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find documents: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return 0, fmt.Errorf("failed to decode documents: %w", err)
	}
	return total, nil
}

// updateOne applies a conditional update and returns onMiss when nothing matched
func updateOne(ctx context.Context, coll Collection, filter, update bson.M, onMiss error) error {
	result, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 && onMiss != nil {
		return onMiss
	}
	return nil
}
