package dto

import (
	"time"

	"place-scout/models"
	"place-scout/services"
)

// PlaceDTO 는 검색/상세 응답의 단일 장소 표현이다.
// 상세 필드는 캐시에 채워진 경우에만 내려간다 (omitempty).
type PlaceDTO struct {
	ID            string   `json:"id"`
	ExternalID    *string  `json:"external_id,omitempty"`
	Name          string   `json:"name"`
	Lat           float64  `json:"lat"`
	Lng           float64  `json:"lng"`
	Address       string   `json:"address,omitempty"`
	Category      string   `json:"category,omitempty"`
	DisplayTags   []string `json:"display_tags"`
	CoverImageURL string   `json:"cover_image_url,omitempty"`
	ImageURLs     []string `json:"image_urls,omitempty"`

	Rating          *float64 `json:"rating,omitempty"`
	UserRatingCount *int     `json:"user_rating_count,omitempty"`
	OpeningHours    []string `json:"opening_hours,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	Website         *string  `json:"website,omitempty"`
	PriceLevel      *int     `json:"price_level,omitempty"`

	Source       string     `json:"source,omitempty" example:"cache"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// PlaceDetailDTO 는 상세 조회 응답이다.
type PlaceDetailDTO struct {
	Place          PlaceDTO `json:"place"`
	Detailed       bool     `json:"detailed"`
	Stage          string   `json:"stage" example:"live"`
	QuotaRemaining int      `json:"quota_remaining"`
	EstimatedCost  float64  `json:"estimated_cost"`
}

func FromPlace(p models.Place, displayTags []string, source string) PlaceDTO {
	dto := PlaceDTO{
		ID:            p.ID.Hex(),
		ExternalID:    p.ExternalID,
		Name:          p.Name,
		Lat:           p.Location.Lat,
		Lng:           p.Location.Lng,
		Address:       p.Address,
		Category:      p.Category,
		DisplayTags:   displayTags,
		CoverImageURL: p.CoverImageURL,
		ImageURLs:     p.ImageURLs,

		Rating:          p.Rating,
		UserRatingCount: p.UserRatingCount,
		OpeningHours:    p.OpeningHours,
		Phone:           p.Phone,
		Website:         p.Website,
		PriceLevel:      p.PriceLevel,

		Source: source,
	}
	if !p.LastSyncedAt.IsZero() {
		t := p.LastSyncedAt
		dto.LastSyncedAt = &t
	}
	return dto
}

func FromDetailOutput(out *services.DetailOutput) PlaceDetailDTO {
	return PlaceDetailDTO{
		Place:          FromPlace(out.Place, out.DisplayTags, ""),
		Detailed:       out.Detailed,
		Stage:          out.Stage,
		QuotaRemaining: out.QuotaRemaining,
		EstimatedCost:  out.EstimatedCost,
	}
}
