// Package mongostore is a core.DocStore backed by MongoDB.
// Documents keep their `id` field and are also keyed by `_id`.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/darasa/core"
)

type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

var _ core.DocStore = (*Store)(nil)

// Open connects to the server at conf.Database.URI and pings it.
func Open(ctx context.Context, conf *core.Config) (*Store, error) {
	opts := options.Client().
		ApplyURI(conf.Database.URI).
		SetAppName(conf.AppName).
		SetConnectTimeout(conf.Database.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	s := New(client, conf.Database.Name, conf.Database.Timeout)
	if err = s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func New(client *mongo.Client, dbName string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{client: client, db: client.Database(dbName), timeout: timeout}
}

// EnsureIndexes creates a center_id index on every collection.
func (s *Store) EnsureIndexes(ctx context.Context, colls ...string) error {
	for _, coll := range colls {
		_, err := s.db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "center_id", Value: 1}},
		})
		if err != nil {
			return errors.Wrapf(err, "indexing %s", coll)
		}
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Insert(ctx context.Context, coll, id string, doc interface{}) error {
	m, err := toBSON(id, doc)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err = s.db.Collection(coll).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.ErrDuplicateDocument
		}
		return errors.Wrapf(err, "inserting into %s", coll)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, coll, id string, out interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return core.ErrNoDocument
	}
	return errors.Wrapf(err, "finding %s/%s", coll, id)
}

func (s *Store) Find(ctx context.Context, coll string, filter core.Filter, out interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(coll).Find(ctx, ToBSONFilter(filter), findOptions)
	if err != nil {
		return errors.Wrapf(err, "querying %s", coll)
	}
	return errors.Wrapf(cursor.All(ctx, out), "decoding %s", coll)
}

func (s *Store) Count(ctx context.Context, coll string, filter core.Filter) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.db.Collection(coll).CountDocuments(ctx, ToBSONFilter(filter))
	return n, errors.Wrapf(err, "counting %s", coll)
}

func (s *Store) Replace(ctx context.Context, coll, id string, doc interface{}) error {
	m, err := toBSON(id, doc)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, m)
	if err != nil {
		return errors.Wrapf(err, "replacing %s/%s", coll, id)
	}
	if res.MatchedCount == 0 {
		return core.ErrNoDocument
	}
	return nil
}

func (s *Store) Update(ctx context.Context, coll, id string, fields map[string]interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return errors.Wrapf(err, "updating %s/%s", coll, id)
	}
	if res.MatchedCount == 0 {
		return core.ErrNoDocument
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, coll string, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.Collection(coll).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", coll)
	}
	return res.DeletedCount, nil
}

// WriteBatch sends consecutive ops on the same collection as one ordered BulkWrite.
// Batches spanning several collections are not atomic.
func (s *Store) WriteBatch(ctx context.Context, ops []core.WriteOp) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	for start := 0; start < len(ops); {
		coll := ops[start].Collection
		end := start
		models := make([]mongo.WriteModel, 0, len(ops)-start)
		for ; end < len(ops) && ops[end].Collection == coll; end++ {
			model, err := toWriteModel(ops[end])
			if err != nil {
				return err
			}
			models = append(models, model)
		}

		_, err := s.db.Collection(coll).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errors.Wrapf(core.ErrDuplicateDocument, "bulk writing %s", coll)
			}
			return errors.Wrapf(err, "bulk writing %s", coll)
		}
		start = end
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return errors.Wrap(s.client.Ping(ctx, readpref.Primary()), "pinging mongodb")
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toWriteModel(op core.WriteOp) (mongo.WriteModel, error) {
	switch op.Kind {
	case core.OpInsert:
		m, err := toBSON(op.ID, op.Doc)
		if err != nil {
			return nil, err
		}
		return mongo.NewInsertOneModel().SetDocument(m), nil
	case core.OpReplace:
		m, err := toBSON(op.ID, op.Doc)
		if err != nil {
			return nil, err
		}
		return mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": op.ID}).SetReplacement(m), nil
	case core.OpUpdate:
		return mongo.NewUpdateOneModel().SetFilter(bson.M{"_id": op.ID}).SetUpdate(bson.M{"$set": op.Fields}), nil
	case core.OpDelete:
		return mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.ID}), nil
	}
	return nil, errors.Errorf("unknown write op %d", op.Kind)
}

// toBSON encodes doc through its bson tags and keys it by id.
func toBSON(id string, doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding document")
	}
	var m bson.M
	if err = bson.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "decoding document")
	}
	m["_id"] = id
	return m, nil
}

// ToBSONFilter turns an equality filter into a mongo query; []string values become $in.
func ToBSONFilter(filter core.Filter) bson.M {
	q := make(bson.M, len(filter))
	for field, val := range filter {
		if field == "id" {
			field = "_id"
		}
		if vals, ok := val.([]string); ok {
			q[field] = bson.M{"$in": vals}
			continue
		}
		q[field] = val
	}
	return q
}
