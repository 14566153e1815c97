package dto

import "place-scout/services"

// SearchResponseDTO 는 검색 응답이다. stage 는 응답이 만들어진 경로를 나타낸다:
// cache | live | quota_limited | text_fallback.
type SearchResponseDTO struct {
	Places         []PlaceDTO `json:"places"`
	FromCache      int        `json:"from_cache"`
	FromUpstream   int        `json:"from_upstream"`
	EstimatedCost  float64    `json:"estimated_cost"`
	QuotaRemaining int        `json:"quota_remaining"`
	Stage          string     `json:"stage" example:"live"`

	// FallbackText 는 stage=text_fallback 일 때만 채워지는 평문 추천이다.
	FallbackText string `json:"fallback_text,omitempty"`
}

func FromSearchOutput(out *services.SearchOutput) SearchResponseDTO {
	places := make([]PlaceDTO, 0, len(out.Places))
	for _, r := range out.Places {
		places = append(places, FromPlace(r.Place, r.DisplayTags, r.Source))
	}
	return SearchResponseDTO{
		Places:         places,
		FromCache:      out.FromCache,
		FromUpstream:   out.FromUpstream,
		EstimatedCost:  out.EstimatedCost,
		QuotaRemaining: out.QuotaRemaining,
		Stage:          out.Stage,
		FallbackText:   out.FallbackText,
	}
}
