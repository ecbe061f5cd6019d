package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo のコレクション名
const (
	MongoProjectsCollection   = "projects"
	MongoPostsCollection      = "posts"
	MongoChangeLogsCollection = "changelogs"
)

// ConnectMongo は MongoDB に接続して疎通確認したクライアントを返す。
// クライアントは呼び出し側が保持し、終了時に Disconnect する。
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, unavailable(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable(err)
	}
	return client, nil
}

// MongoDB は Ping 用に mongo.Database を DB インターフェースへ合わせる
type MongoDB struct {
	db *mongo.Database
}

func NewMongoDB(db *mongo.Database) *MongoDB {
	return &MongoDB{db: db}
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, nil)
}

// EnsureMongoIndexes はビジネスキーの一意インデックスと一覧用の date インデックスを作成する
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		MongoProjectsCollection: {
			{Keys: bsonD("projectId", 1), Options: options.Index().SetUnique(true)},
			{Keys: bsonD("date", -1)},
		},
		MongoPostsCollection: {
			{Keys: bsonD("postId", 1), Options: options.Index().SetUnique(true)},
			{Keys: bsonD("date", -1)},
		},
		MongoChangeLogsCollection: {
			{Keys: bsonD("entity", 1, "timestamp", -1)},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return unavailable(err)
		}
	}
	return nil
}

// mongoErr は driver のエラーを分類する
func mongoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return conflict(err)
	}
	return unavailable(err)
}
