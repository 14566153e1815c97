package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"place-scout/models"
)

type CostLogRepository struct {
	col *mongo.Collection
}

func NewCostLogRepository(db *mongo.Database) *CostLogRepository {
	return &CostLogRepository{col: db.Collection("api_cost_logs")}
}

// Insert 는 과금 로그 1건을 추가한다. 로그는 append-only 이며 수정/삭제 메서드를 두지 않는다.
func (r *CostLogRepository) Insert(ctx context.Context, entry models.APICostLog) (*mongo.InsertOneResult, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return r.col.InsertOne(ctx, entry)
}

// dayRange 는 주어진 시각이 속한 UTC 달력일의 [시작, 끝) 범위를 돌려준다.
func dayRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// UserDailyCost 는 해당 사용자의 당일 추정 비용 합계를 돌려준다.
func (r *CostLogRepository) UserDailyCost(ctx context.Context, userID string, now time.Time) (float64, error) {
	start, end := dayRange(now)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":   userID,
			"timestamp": bson.M{"$gte": start, "$lt": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$estimated_cost"},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// UserDailySearchCount 는 당일 text_search 호출 수를 돌려준다.
// 쿼터 강제는 user_quotas 의 원자 카운터가 담당하고, 이 값은 표시/모니터링 용도다.
func (r *CostLogRepository) UserDailySearchCount(ctx context.Context, userID string, now time.Time) (int, error) {
	start, end := dayRange(now)
	n, err := r.col.CountDocuments(ctx, bson.M{
		"user_id":   userID,
		"endpoint":  models.EndpointTextSearch,
		"timestamp": bson.M{"$gte": start, "$lt": end},
	})
	return int(n), err
}
