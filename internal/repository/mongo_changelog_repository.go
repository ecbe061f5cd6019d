package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kaizen-ngo/backend/internal/model"
)

// MongoChangeLogStore は changelogs コレクションへの追記専用ストア
type MongoChangeLogStore struct {
	coll *mongo.Collection
}

func NewMongoChangeLogStore(db *mongo.Database) *MongoChangeLogStore {
	return &MongoChangeLogStore{coll: db.Collection(MongoChangeLogsCollection)}
}

func (s *MongoChangeLogStore) Append(ctx context.Context, e *model.ChangeLogEntry) error {
	_, err := s.coll.InsertOne(ctx, bson.M{
		"action":    string(e.Action),
		"entity":    e.Entity,
		"title":     e.Title,
		"timestamp": e.Timestamp.UTC(),
	})
	return opErr("append", "changelog", "", mongoErr(err))
}

func (s *MongoChangeLogStore) Recent(ctx context.Context, entity string, limit int) ([]*model.ChangeLogEntry, error) {
	opts := options.Find().SetSort(bsonD("timestamp", -1, "_id", -1))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{"entity": entity}, opts)
	if err != nil {
		return nil, opErr("recent", "changelog", "", mongoErr(err))
	}
	// model.ChangeLogEntry のフィールド名は driver 既定の小文字キーと一致する
	var out []*model.ChangeLogEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, opErr("recent", "changelog", "", mongoErr(err))
	}
	if out == nil {
		out = []*model.ChangeLogEntry{}
	}
	return out, nil
}
