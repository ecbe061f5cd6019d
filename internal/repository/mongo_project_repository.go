package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kaizen-ngo/backend/internal/model"
)

func bsonD(kv ...any) bson.D {
	d := make(bson.D, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		d = append(d, bson.E{Key: kv[i].(string), Value: kv[i+1]})
	}
	return d
}

// MongoProjectStore は ProjectStore の MongoDB 実装（DocumentStore）
type MongoProjectStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoProjectStore は db の projects コレクションを使うストアを生成する
func NewMongoProjectStore(db *mongo.Database) *MongoProjectStore {
	return &MongoProjectStore{coll: db.Collection(MongoProjectsCollection), now: time.Now}
}

// ListAll は date の降順で全件を返す
func (s *MongoProjectStore) ListAll(ctx context.Context) ([]*model.Project, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bsonD("date", -1)))
	if err != nil {
		return nil, opErr("list", model.EntityProject, "", mongoErr(err))
	}
	var recs []*projectRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, opErr("list", model.EntityProject, "", mongoErr(err))
	}
	out := make([]*model.Project, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *MongoProjectStore) FindByID(ctx context.Context, id string) (*model.Project, error) {
	var rec projectRecord
	if err := s.coll.FindOne(ctx, bson.M{"projectId": id}).Decode(&rec); err != nil {
		return nil, opErr("find", model.EntityProject, id, mongoErr(err))
	}
	return rec.toModel(), nil
}

func (s *MongoProjectStore) Upsert(ctx context.Context, p *model.Project) error {
	rec := toProjectRecord(p, s.now())
	_, err := s.coll.ReplaceOne(ctx, bson.M{"projectId": p.ID}, rec, options.Replace().SetUpsert(true))
	return opErr("upsert", model.EntityProject, p.ID, mongoErr(err))
}

func (s *MongoProjectStore) Remove(ctx context.Context, id string) (*model.Project, error) {
	var rec projectRecord
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"projectId": id}).Decode(&rec); err != nil {
		return nil, opErr("remove", model.EntityProject, id, mongoErr(err))
	}
	return rec.toModel(), nil
}

func (s *MongoProjectStore) Clear(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.D{})
	return opErr("clear", model.EntityProject, "", mongoErr(err))
}
