package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"place-scout/config"
	"place-scout/models"
	"place-scout/repositories"
)

type costStore interface {
	Insert(ctx context.Context, entry models.APICostLog) (*mongo.InsertOneResult, error)
	UserDailyCost(ctx context.Context, userID string, now time.Time) (float64, error)
	UserDailySearchCount(ctx context.Context, userID string, now time.Time) (int, error)
}

// CostService 는 과금 외부 호출 1건당 로그 1건의 불변식을 책임진다.
// 로그 기록은 호출과 동기로 수행되며, 사용자에게 에러가 돌아가는 경로라도
// 외부 호출이 실제로 나갔다면 반드시 기록한다.
type CostService struct {
	repo  costStore
	costs config.CostConfig
}

func NewCostService(repo *repositories.CostLogRepository, costs config.CostConfig) *CostService {
	return &CostService{repo: repo, costs: costs}
}

func newCostServiceWithStore(repo costStore, costs config.CostConfig) *CostService {
	return &CostService{repo: repo, costs: costs}
}

// LogTextSearch 는 배치 텍스트 검색 1회를 기록하고 추정 비용을 돌려준다.
func (s *CostService) LogTextSearch(ctx context.Context, userID string, placeCount int, fieldMask string) (float64, error) {
	entry := models.APICostLog{
		UserID:        userID,
		Endpoint:      models.EndpointTextSearch,
		EstimatedCost: s.costs.TextSearch,
		PlaceCount:    &placeCount,
		FieldMask:     &fieldMask,
	}
	_, err := s.repo.Insert(ctx, entry)
	return s.costs.TextSearch, err
}

// LogPlaceDetails 는 단건 상세 조회 1회를 기록한다.
func (s *CostService) LogPlaceDetails(ctx context.Context, userID string, fieldMask string) (float64, error) {
	entry := models.APICostLog{
		UserID:        userID,
		Endpoint:      models.EndpointPlaceDetails,
		EstimatedCost: s.costs.PlaceDetails,
		FieldMask:     &fieldMask,
	}
	_, err := s.repo.Insert(ctx, entry)
	return s.costs.PlaceDetails, err
}

// LogAIIntent 는 성공한 AI 인텐트 호출 1회를 기록한다.
func (s *CostService) LogAIIntent(ctx context.Context, userID string) (float64, error) {
	_, err := s.repo.Insert(ctx, models.APICostLog{
		UserID:        userID,
		Endpoint:      models.EndpointAIIntent,
		EstimatedCost: s.costs.AIIntent,
	})
	return s.costs.AIIntent, err
}

// LogAIRecommend 는 성공한 AI 추천 호출 1회를 기록한다.
func (s *CostService) LogAIRecommend(ctx context.Context, userID string) (float64, error) {
	_, err := s.repo.Insert(ctx, models.APICostLog{
		UserID:        userID,
		Endpoint:      models.EndpointAIRecommend,
		EstimatedCost: s.costs.AIRecommend,
	})
	return s.costs.AIRecommend, err
}

// GetUserDailyCost 는 당일 추정 비용 합계를 돌려준다 (표시/모니터링 용도).
func (s *CostService) GetUserDailyCost(ctx context.Context, userID string) (float64, error) {
	return s.repo.UserDailyCost(ctx, userID, time.Now())
}

// GetUserDailySearchCount 는 당일 text_search 호출 수를 돌려준다.
// 쿼터 강제는 QuotaService 의 원자 카운터가 담당한다 (집계 읽기 경합 회피).
func (s *CostService) GetUserDailySearchCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UserDailySearchCount(ctx, userID, time.Now())
}
