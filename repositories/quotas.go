package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"place-scout/models"
)

type QuotaRepository struct {
	col *mongo.Collection
}

func NewQuotaRepository(db *mongo.Database) *QuotaRepository {
	return &QuotaRepository{col: db.Collection("user_quotas")}
}

// GetOrCreateToday 는 (user_id, 오늘) 카운터 행을 멱등하게 확보한다.
// 유니크 인덱스 (user_id, date) 덕분에 동시 호출이 겹쳐도 행은 하나만 만들어진다.
func (r *QuotaRepository) GetOrCreateToday(ctx context.Context, userID string) (*models.UserQuota, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID, "date": models.QuotaDateKey(now)}
	update := bson.M{
		"$setOnInsert": bson.M{
			"deep_search_count": 0,
			"detail_view_count": 0,
			"created_at":        now,
		},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var q models.UserQuota
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&q); err != nil {
		return nil, err
	}
	return &q, nil
}

// IncrementDeepSearch 는 get-or-create + $inc 를 단일 원자 연산으로 수행한다.
// 분리된 read-then-write 로 구현하면 동시 요청에서 증가가 유실될 수 있다.
func (r *QuotaRepository) IncrementDeepSearch(ctx context.Context, userID string) (*models.UserQuota, error) {
	return r.increment(ctx, userID, "deep_search_count")
}

// IncrementDetailView 는 detail_view_count 를 원자적으로 1 증가시킨다.
func (r *QuotaRepository) IncrementDetailView(ctx context.Context, userID string) (*models.UserQuota, error) {
	return r.increment(ctx, userID, "detail_view_count")
}

func (r *QuotaRepository) increment(ctx context.Context, userID, field string) (*models.UserQuota, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID, "date": models.QuotaDateKey(now)}
	update := bson.M{
		"$inc":         bson.M{field: 1},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var q models.UserQuota
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&q); err != nil {
		return nil, err
	}
	return &q, nil
}
