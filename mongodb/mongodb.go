package mongodb

import (
	"context"
	"errors"

	"github.com/elvinchan/dbfixture"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config holds what is needed to reach the fixture database.
// ConnectOptions and DatabaseOptions are optional.
type Config struct {
	ConnectURI      string
	ConnectOptions  *options.ClientOptions
	DatabaseName    string
	DatabaseOptions *options.DatabaseOptions
}

// collection is the part of *mongo.Collection used for fixtures.
type collection interface {
	DeleteMany(ctx context.Context, filter interface{},
		opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	InsertMany(ctx context.Context, documents []interface{},
		opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

type client interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Database(name string, opts ...*options.DatabaseOptions) *mongo.Database
	Disconnect(ctx context.Context) error
}

// connect is replaced in tests.
var connect = func(ctx context.Context, opts ...*options.ClientOptions,
) (client, error) {
	return mongo.Connect(ctx, opts...)
}

type mongoDB struct {
	option     *dbfixture.Options
	client     client
	collection func(name string) collection
}

// NewDriver connects to cfg.ConnectURI, checks the primary is reachable and
// binds the returned driver to cfg.DatabaseName. Connection errors are
// returned as the mongo driver reports them; nothing is retried.
func NewDriver(cfg Config, opts ...dbfixture.Option) (dbfixture.Driver, error) {
	o := dbfixture.InitOptions()
	for _, opt := range opts {
		opt(o)
	}
	clientOpts := []*options.ClientOptions{
		options.Client().ApplyURI(cfg.ConnectURI),
	}
	if cfg.ConnectOptions != nil {
		clientOpts = append(clientOpts, cfg.ConnectOptions)
	}
	c, err := connect(context.TODO(), clientOpts...)
	if err != nil {
		return nil, err
	}
	if err = c.Ping(context.TODO(), readpref.Primary()); err != nil {
		_ = c.Disconnect(context.TODO())
		return nil, err
	}
	var dbOpts []*options.DatabaseOptions
	if cfg.DatabaseOptions != nil {
		dbOpts = append(dbOpts, cfg.DatabaseOptions)
	}
	db := c.Database(cfg.DatabaseName, dbOpts...)
	o.Logger.Debug("connected fixture database",
		"database", cfg.DatabaseName)
	return &mongoDB{
		option: o,
		client: c,
		collection: func(name string) collection {
			return db.Collection(name)
		},
	}, nil
}

func (m *mongoDB) Truncate(collections []string) error {
	return dbfixture.TruncateAll(collections, m.deleteAll, m.option)
}

func (m *mongoDB) deleteAll(name string) (dbfixture.Outcome, error) {
	res, err := m.collection(name).DeleteMany(context.TODO(), bson.D{})
	var n int64
	if res != nil {
		n = res.DeletedCount
	}
	if err != nil {
		if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
			return dbfixture.Outcome{Acknowledged: false, Count: n}, nil
		}
		return dbfixture.Outcome{}, err
	}
	m.option.Logger.Debug("truncated collection",
		"collection", name, "deleted", n)
	return dbfixture.Outcome{Acknowledged: true, Count: n}, nil
}

func (m *mongoDB) InsertFixtures(name string, docs []interface{}) error {
	// InsertMany refuses an empty batch, there is nothing to acknowledge.
	if len(docs) == 0 {
		return nil
	}
	res, err := m.collection(name).InsertMany(context.TODO(), docs)
	var n int64
	if res != nil {
		n = int64(len(res.InsertedIDs))
	}
	if err != nil {
		if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
			return dbfixture.CheckInsert(name,
				dbfixture.Outcome{Acknowledged: false, Count: n})
		}
		return err
	}
	m.option.Logger.Debug("inserted fixtures",
		"collection", name, "inserted", n)
	return dbfixture.CheckInsert(name,
		dbfixture.Outcome{Acknowledged: true, Count: n})
}

func (m *mongoDB) Close() error {
	return m.client.Disconnect(context.TODO())
}
