package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CostEndpoint 는 과금 대상 외부 호출의 종류다.
type CostEndpoint string

const (
	EndpointTextSearch   CostEndpoint = "text_search"
	EndpointPlaceDetails CostEndpoint = "place_details"
	EndpointAIIntent     CostEndpoint = "ai_intent"
	EndpointAIRecommend  CostEndpoint = "ai_recommend"
)

// APICostLog stores billable external call records (append-only)
// Collection: api_cost_logs
//
// 과금이 발생한 외부 호출 1건당 정확히 1건을 기록하며, 수정/삭제하지 않는다.
type APICostLog struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	Endpoint      CostEndpoint       `bson:"endpoint" json:"endpoint"`
	EstimatedCost float64            `bson:"estimated_cost" json:"estimated_cost"`
	PlaceCount    *int               `bson:"place_count,omitempty" json:"place_count,omitempty"`
	FieldMask     *string            `bson:"field_mask,omitempty" json:"field_mask,omitempty"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
}
