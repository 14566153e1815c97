package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchIntent 는 자유 질의를 구조화한 검색 의도다.
type SearchIntent struct {
	// Category 는 언어 중립 카테고리 코드("museum" 등). 비어 있을 수 있다.
	Category string `json:"category,omitempty"`
	// Locality 는 도시/지역 이름. 비어 있을 수 있다.
	Locality string `json:"locality,omitempty"`
	// FreeText 는 카테고리/지역으로 해석되지 않은 나머지 질의다.
	FreeText string `json:"free_text,omitempty"`
}

// IsEmpty 는 캐시 조회에 쓸 수 있는 단서가 전혀 없는 경우 true 를 반환한다.
func (i SearchIntent) IsEmpty() bool {
	return i.Category == "" && i.Locality == "" && strings.TrimSpace(i.FreeText) == ""
}

// Fingerprint 는 의도 단위 동기화 기록의 키다. 대소문자와 공백 차이를 흡수하므로
// "Design Museums in Copenhagen" 과 "design museums in copenhagen" 은 같은 키가 된다.
func (i SearchIntent) Fingerprint() string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return norm(i.Category) + "|" + norm(i.Locality) + "|" + norm(i.FreeText)
}

// IntentSync 는 "이 의도로 업스트림을 마지막으로 조회한 시각" 기록이다.
// Collection: intent_syncs
//
// 캐시 결과가 limit 에 못 미쳐도 의도가 최근에 동기화됐다면 업스트림이
// 더 줄 것이 없다는 뜻이므로, 반복 질의를 캐시 전용으로 처리하는 근거가 된다.
type IntentSync struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Fingerprint  string             `bson:"fingerprint" json:"fingerprint"`
	LastSyncedAt time.Time          `bson:"last_synced_at" json:"last_synced_at"`
}

// UpstreamQuery 는 업스트림 텍스트 검색에 보낼 질의 문자열을 만든다.
func (i SearchIntent) UpstreamQuery() string {
	parts := make([]string, 0, 3)
	if i.FreeText != "" {
		parts = append(parts, i.FreeText)
	}
	if i.Category != "" && i.FreeText == "" {
		parts = append(parts, i.Category)
	}
	if i.Locality != "" {
		parts = append(parts, "in "+i.Locality)
	}
	return strings.Join(parts, " ")
}
