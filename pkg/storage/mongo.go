package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/logging"
)

// URIEnv names the environment variable read by ConnectFromEnv.
const URIEnv = "MONGODB_URI"

// DefaultDatabase is used when the URI names no database.
const DefaultDatabase = "eemetrics"

// ErrMissingURI is returned by ConnectFromEnv when URIEnv is unset.
var ErrMissingURI = errors.New("MONGODB_URI environment variable not set")

// MongoStore is a metrics.Store backed by MongoDB, one collection per
// metric family.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logging.Logger
	now    func() time.Time
}

type mongoOptions struct {
	database               string
	logger                 *logging.Logger
	serverSelectionTimeout time.Duration
	retryConfig            retry.Config
}

// MongoOption configures ConnectMongo.
type MongoOption func(*mongoOptions)

// WithDatabase overrides the database named in the URI.
func WithDatabase(name string) MongoOption {
	return func(o *mongoOptions) { o.database = name }
}

func WithMongoLogger(l *logging.Logger) MongoOption {
	return func(o *mongoOptions) { o.logger = l }
}

func WithServerSelectionTimeout(d time.Duration) MongoOption {
	return func(o *mongoOptions) { o.serverSelectionTimeout = d }
}

func defaultMongoOptions() mongoOptions {
	return mongoOptions{
		serverSelectionTimeout: 5 * time.Second,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  100 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// ConnectFromEnv connects using the URI in MONGODB_URI. TLS settings such
// as tlsCAFile are taken from the URI.
func ConnectFromEnv(ctx context.Context, opts ...MongoOption) (*MongoStore, error) {
	uri := os.Getenv(URIEnv)
	if uri == "" {
		o := defaultMongoOptions()
		for _, fn := range opts {
			fn(&o)
		}
		mongoLogger(o).Error("ENGEXPUTILS006", logging.Fields{"error": ErrMissingURI.Error()})
		return nil, ErrMissingURI
	}
	return ConnectMongo(ctx, uri, opts...)
}

// ConnectMongo connects to uri and pings the primary, retrying the ping.
func ConnectMongo(ctx context.Context, uri string, opts ...MongoOption) (*MongoStore, error) {
	o := defaultMongoOptions()
	for _, fn := range opts {
		fn(&o)
	}
	logger := mongoLogger(o)

	database := o.database
	if database == "" {
		cs, err := connstring.ParseAndValidate(uri)
		if err != nil {
			logger.Error("ENGEXPUTILS008", logging.Fields{"error": err.Error()})
			return nil, fmt.Errorf("parse mongodb uri: %w", err)
		}
		database = cs.Database
	}
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(o.serverSelectionTimeout))
	if err != nil {
		logger.Error("ENGEXPUTILS008", logging.Fields{"error": err.Error()})
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	logger.Info("ENGEXPUTILS012", logging.Fields{"database": database})

	pinger := retry.New[struct{}](o.retryConfig)
	if _, err := pinger.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, client.Ping(ctx, readpref.Primary())
	}); err != nil {
		logger.Error("ENGEXPUTILS008", logging.Fields{"error": err.Error()})
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	logger.Info("ENGEXPUTILS007", logging.Fields{"database": database})

	return &MongoStore{
		client: client,
		db:     client.Database(database),
		logger: logger,
		now:    time.Now,
	}, nil
}

func mongoLogger(o mongoOptions) *logging.Logger {
	if o.logger != nil {
		return o.logger
	}
	return logging.New("eemetrics/mongodb", logging.Catalog)
}

// Database returns the underlying database handle.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

// EnsureIndexes creates an ascending index on the key field of every
// collection.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, collection := range metrics.Collections() {
		model := mongo.IndexModel{Keys: bson.D{{Key: metrics.KeyField(collection), Value: 1}}}
		if _, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", collection, err)
		}
	}
	return nil
}

// Insert validates every document, stamps them with one timestamp and
// inserts them grouped by collection.
func (s *MongoStore) Insert(ctx context.Context, docs ...metrics.Document) error {
	if err := metrics.ValidateAll(docs...); err != nil {
		return err
	}

	now := s.now()
	grouped := make(map[string][]interface{})
	var order []string
	for _, doc := range docs {
		doc.Stamp(now)
		c := doc.Collection()
		if _, ok := grouped[c]; !ok {
			order = append(order, c)
		}
		grouped[c] = append(grouped[c], doc)
	}

	for _, c := range order {
		if _, err := s.db.Collection(c).InsertMany(ctx, grouped[c]); err != nil {
			return fmt.Errorf("insert into %s: %w", c, err)
		}
	}
	return nil
}

// Latest decodes the newest document of collection with the given key.
func (s *MongoStore) Latest(ctx context.Context, collection, key string, out metrics.Document) error {
	field := metrics.KeyField(collection)
	if field == "" {
		return fmt.Errorf("unknown collection: %s", collection)
	}

	opts := options.FindOne().SetSort(bson.D{
		{Key: "document_created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: field, Value: key}}, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s=%s: %w", collection, field, key, metrics.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Error("ENGEXPUTILS010", logging.Fields{"error": err.Error()})
		return fmt.Errorf("disconnect from mongodb: %w", err)
	}
	s.logger.Info("ENGEXPUTILS009", nil)
	return nil
}
