package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxAITags 는 생성 시점에 한 장소가 가질 수 있는 AI 태그 수의 상한이다.
const MaxAITags = 2

// MaxDisplayTags 는 카테고리를 포함한 표시용 태그 수의 상한이다.
const MaxDisplayTags = 3

type AITagKind string

const (
	TagKindFacet     AITagKind = "facet"
	TagKindPerson    AITagKind = "person"
	TagKindArchitect AITagKind = "architect"
)

// AITagElement 는 AI 가 생성한 다국어 태그 요소다.
// 언어별 표기가 비어 있으면 en → id 순서로 폴백한다.
type AITagElement struct {
	Kind     AITagKind `bson:"kind" json:"kind"`
	ID       string    `bson:"id" json:"id"`
	EN       string    `bson:"en" json:"en"`
	ZH       string    `bson:"zh,omitempty" json:"zh,omitempty"`
	Priority int       `bson:"priority,omitempty" json:"priority,omitempty"`
}

// Render 는 요청 언어에 맞는 표기를 돌려준다. (tag[lang] → en → id)
func (t AITagElement) Render(lang string) string {
	if lang == "zh" && t.ZH != "" {
		return t.ZH
	}
	if t.EN != "" {
		return t.EN
	}
	return t.ID
}

// GeoPoint 는 WGS84 좌표다.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Place represents a cached, deduplicated place document
// Collection: places
//
// ExternalID 는 업스트림 Places API 가 부여한 전역 고유 식별자이며,
// 수동 입력 레코드에서만 nil 이 될 수 있다. non-nil 값은 컬렉션 내에서 유일하다.
type Place struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	ExternalID *string  `bson:"external_id,omitempty" json:"external_id,omitempty"`
	Name       string   `bson:"name" json:"name"`
	Location   GeoPoint `bson:"location" json:"location"`
	Address    string   `bson:"address" json:"address"`

	// Category 는 언어 중립 코드("museum" 등), CategoryNames 는 언어별 표기다.
	Category      string            `bson:"category" json:"category"`
	CategoryNames map[string]string `bson:"category_names,omitempty" json:"category_names,omitempty"`

	AITags []AITagElement `bson:"ai_tags,omitempty" json:"ai_tags,omitempty"`

	// LegacyTags 는 다국어 구조 도입 전의 평문 태그로, 모든 언어에서 그대로 노출한다.
	LegacyTags []string `bson:"legacy_tags,omitempty" json:"legacy_tags,omitempty"`

	CoverImageURL string   `bson:"cover_image_url" json:"cover_image_url"`
	ImageURLs     []string `bson:"image_urls,omitempty" json:"image_urls,omitempty"`

	// 아래 필드들은 상세 조회가 일어나기 전까지 비어 있을 수 있다.
	Rating          *float64 `bson:"rating,omitempty" json:"rating,omitempty"`
	UserRatingCount *int     `bson:"user_rating_count,omitempty" json:"user_rating_count,omitempty"`
	OpeningHours    []string `bson:"opening_hours,omitempty" json:"opening_hours,omitempty"`
	Phone           *string  `bson:"phone,omitempty" json:"phone,omitempty"`
	Website         *string  `bson:"website,omitempty" json:"website,omitempty"`
	PriceLevel      *int     `bson:"price_level,omitempty" json:"price_level,omitempty"`

	LastSyncedAt time.Time `bson:"last_synced_at" json:"last_synced_at"`
}

// HasDetails 는 상세 조회(rich field mask)가 이미 반영됐는지 여부다.
func (p *Place) HasDetails() bool {
	return p.Rating != nil || len(p.OpeningHours) > 0 || p.Phone != nil || p.Website != nil
}
