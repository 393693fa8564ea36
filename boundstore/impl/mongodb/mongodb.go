package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/leisurelyrcxf/tsoracle/boundstore"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
)

const (
	defaultDatabase   = "tsoracle_db"
	collectionBounds  = "timestamp_bounds"
	attrId            = "_id"
	attrLimit         = "limit"
	attrLastUpdatedAt = "updated_at"
)

type boundDoc struct {
	Id    string `bson:"_id"`
	Limit int64  `bson:"limit"`
}

func NewClient(addr string, credential *options.Credential, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = consts.DefaultBoundStoreTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opt := options.Client().
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetWriteConcern(writeconcern.Majority())
	if credential != nil {
		opt.SetAuth(*credential)
	}
	client, err := mongo.Connect(ctx, opt.ApplyURI(fmt.Sprintf("mongodb://%s", addr)))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Trace(err)
	}
	return client, nil
}

type Backend struct {
	cli         *mongo.Client
	coll        *mongo.Collection
	key         string
	closeClient bool
}

func NewBackend(cli *mongo.Client, key string) *Backend {
	return &Backend{
		cli:  cli,
		coll: cli.Database(defaultDatabase).Collection(collectionBounds),
		key:  key,
	}
}

func NewStore(addr string, credential *options.Credential, key string, timeout time.Duration) (*boundstore.Store, error) {
	cli, err := NewClient(addr, credential, timeout)
	if err != nil {
		return nil, err
	}
	b := NewBackend(cli, key)
	b.closeClient = true
	return boundstore.NewStore(fmt.Sprintf("mongodb:%s%s", addr, key), b), nil
}

func (b *Backend) Load(ctx context.Context) (boundstore.Observed, error) {
	var doc boundDoc
	if err := b.coll.FindOne(ctx, bson.D{{Key: attrId, Value: b.key}}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return boundstore.Observed{}, nil
		}
		glog.Warningf("mongodb find %s failed: %v", b.key, err)
		return boundstore.Observed{}, errors.Trace(err)
	}
	return boundstore.Observed{Limit: doc.Limit, Exists: true}, nil
}

func (b *Backend) CompareAndSwap(ctx context.Context, expected boundstore.Observed, limit int64) (boundstore.Observed, bool, error) {
	if !expected.Exists {
		_, err := b.coll.InsertOne(ctx, bson.D{
			{Key: attrId, Value: b.key},
			{Key: attrLimit, Value: limit},
			{Key: attrLastUpdatedAt, Value: time.Now()},
		})
		if err == nil {
			return boundstore.Observed{Limit: limit, Exists: true}, true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			glog.Warningf("mongodb insert %s failed: %v", b.key, err)
			return boundstore.Observed{}, false, errors.Trace(err)
		}
		actual, err := b.Load(ctx)
		return actual, false, err
	}

	res, err := b.coll.UpdateOne(ctx,
		bson.D{{Key: attrId, Value: b.key}, {Key: attrLimit, Value: expected.Limit}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: attrLimit, Value: limit},
			{Key: attrLastUpdatedAt, Value: time.Now()},
		}}})
	if err != nil {
		glog.Warningf("mongodb update %s to %d failed: %v", b.key, limit, err)
		return boundstore.Observed{}, false, errors.Trace(err)
	}
	if res.MatchedCount == 1 {
		return boundstore.Observed{Limit: limit, Exists: true}, true, nil
	}
	actual, err := b.Load(ctx)
	return actual, false, err
}

func (b *Backend) Close() error {
	if b.closeClient {
		return b.cli.Disconnect(context.Background())
	}
	return nil
}
