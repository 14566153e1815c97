package dto

import "place-scout/services"

// UsageDTO 는 호출자의 당일 과금/사용량 요약이다.
// EstimatedCostToday 는 과금 로그 합계라서 실패한 호출의 비용도 포함한다.
type UsageDTO struct {
	EstimatedCostToday float64        `json:"estimated_cost_today"`
	TextSearchCalls    int            `json:"text_search_calls"`
	DeepSearch         QuotaStatusDTO `json:"deep_search"`
}

func FromUsage(costToday float64, searchCalls int, status *services.QuotaStatus) UsageDTO {
	return UsageDTO{
		EstimatedCostToday: costToday,
		TextSearchCalls:    searchCalls,
		DeepSearch:         FromQuotaStatus(status),
	}
}
