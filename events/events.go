package events

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	// PlaceSynced 는 장소가 업스트림에서 받아와 캐시에 업서트된 직후 발행된다.
	// 이미지 저장/변환 모듈이 원본 이미지 참조를 영속 URL 로 바꾸는 트리거로 쓴다.
	PlaceSynced EventType = "place.synced"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// PlaceSyncedEvent 장소 캐시 반영 완료 이벤트
type PlaceSyncedEvent struct {
	BaseEvent
	PlaceID       primitive.ObjectID `json:"place_id"`
	ExternalID    string             `json:"external_id"`
	Name          string             `json:"name"`
	CoverImageURL string             `json:"cover_image_url"`
	ImageRefs     []string           `json:"image_refs"`
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    "place-scout",
		Version:   "1.0",
	}
}

// NewPlaceSyncedEvent 는 업서트 결과로부터 이벤트를 만든다.
func NewPlaceSyncedEvent(placeID primitive.ObjectID, externalID, name, coverImageURL string, imageRefs []string) PlaceSyncedEvent {
	return PlaceSyncedEvent{
		BaseEvent:     newBase(PlaceSynced),
		PlaceID:       placeID,
		ExternalID:    externalID,
		Name:          name,
		CoverImageURL: coverImageURL,
		ImageRefs:     imageRefs,
	}
}
