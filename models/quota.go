package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserQuota 는 (user_id, date) 당 정확히 1행 존재하는 일일 사용량 카운터다.
// 카운트는 하루 안에서 단조 증가하며, 날짜 키가 바뀌는 것으로 암묵적으로 리셋된다.
// Collection: user_quotas
type UserQuota struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"user_id" json:"user_id"`
	Date            string             `bson:"date" json:"date"`
	DeepSearchCount int                `bson:"deep_search_count" json:"deep_search_count"`
	DetailViewCount int                `bson:"detail_view_count" json:"detail_view_count"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// QuotaDateKey 는 일일 카운터의 날짜 키(UTC 기준)를 만든다.
func QuotaDateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
