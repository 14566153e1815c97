package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type IntentSyncRepository struct {
	col *mongo.Collection
}

func NewIntentSyncRepository(db *mongo.Database) *IntentSyncRepository {
	return &IntentSyncRepository{col: db.Collection("intent_syncs")}
}

// MarkSynced 는 fingerprint 의 last_synced_at 을 현재 시각으로 upsert 한다.
// fingerprint 유니크 인덱스가 직렬화 지점이므로 동시 호출은 단일 행으로 수렴한다.
func (r *IntentSyncRepository) MarkSynced(ctx context.Context, fingerprint string) error {
	update := bson.M{
		"$set":         bson.M{"last_synced_at": time.Now().UTC()},
		"$setOnInsert": bson.M{"fingerprint": fingerprint},
	}
	_, err := r.col.UpdateOne(ctx,
		bson.M{"fingerprint": fingerprint},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

// LastSyncedAt 은 fingerprint 의 마지막 동기화 시각을 돌려준다. 기록이 없으면 zero time.
func (r *IntentSyncRepository) LastSyncedAt(ctx context.Context, fingerprint string) (time.Time, error) {
	var row struct {
		LastSyncedAt time.Time `bson:"last_synced_at"`
	}
	err := r.col.FindOne(ctx,
		bson.M{"fingerprint": fingerprint},
		options.FindOne().SetProjection(bson.M{"last_synced_at": 1}),
	).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return row.LastSyncedAt, nil
}
