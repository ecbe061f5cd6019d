package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kaizen-ngo/backend/internal/model"
)

// MongoPostStore は PostStore の MongoDB 実装
type MongoPostStore struct {
	coll *mongo.Collection
}

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{coll: db.Collection(MongoPostsCollection)}
}

func (s *MongoPostStore) ListAll(ctx context.Context) ([]*model.Post, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bsonD("date", -1)))
	if err != nil {
		return nil, opErr("list", model.EntityPost, "", mongoErr(err))
	}
	var recs []*postRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, opErr("list", model.EntityPost, "", mongoErr(err))
	}
	out := make([]*model.Post, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *MongoPostStore) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var rec postRecord
	if err := s.coll.FindOne(ctx, bson.M{"postId": id}).Decode(&rec); err != nil {
		return nil, opErr("find", model.EntityPost, id, mongoErr(err))
	}
	return rec.toModel(), nil
}

func (s *MongoPostStore) Upsert(ctx context.Context, p *model.Post) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"postId": p.ID}, toPostRecord(p), options.Replace().SetUpsert(true))
	return opErr("upsert", model.EntityPost, p.ID, mongoErr(err))
}

func (s *MongoPostStore) Remove(ctx context.Context, id string) (*model.Post, error) {
	var rec postRecord
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"postId": id}).Decode(&rec); err != nil {
		return nil, opErr("remove", model.EntityPost, id, mongoErr(err))
	}
	return rec.toModel(), nil
}

func (s *MongoPostStore) Clear(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.D{})
	return opErr("clear", model.EntityPost, "", mongoErr(err))
}
