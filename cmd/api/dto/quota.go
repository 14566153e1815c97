package dto

import (
	"time"

	"place-scout/services"
)

// QuotaStatusDTO 는 호출자의 당일 딥서치 쿼터 상태다.
type QuotaStatusDTO struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	ResetsAt  time.Time `json:"resets_at"`
}

func FromQuotaStatus(s *services.QuotaStatus) QuotaStatusDTO {
	return QuotaStatusDTO{
		Remaining: s.Remaining,
		Limit:     s.Limit,
		Used:      s.Used,
		ResetsAt:  s.ResetsAt,
	}
}
