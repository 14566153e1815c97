package services

import (
	"context"
	"time"

	"place-scout/config"
	"place-scout/models"
	"place-scout/repositories"
)

type quotaStore interface {
	GetOrCreateToday(ctx context.Context, userID string) (*models.UserQuota, error)
	IncrementDeepSearch(ctx context.Context, userID string) (*models.UserQuota, error)
	IncrementDetailView(ctx context.Context, userID string) (*models.UserQuota, error)
}

// QuotaService 는 사용자/일 단위 한도를 강제한다.
// 인메모리 카운터 대신 저장소의 원자 증가 연산 위에서 동작하므로
// 인스턴스가 여러 개여도 올바르다.
type QuotaService struct {
	repo quotaStore
	cfg  config.QuotaConfig
}

func NewQuotaService(repo *repositories.QuotaRepository, cfg config.QuotaConfig) *QuotaService {
	return &QuotaService{repo: repo, cfg: cfg}
}

func newQuotaServiceWithStore(repo quotaStore, cfg config.QuotaConfig) *QuotaService {
	return &QuotaService{repo: repo, cfg: cfg}
}

// DeepSearchLimit 은 티어의 일일 딥서치 한도다. 모르는 티어는 익명 티어로 취급한다.
func (s *QuotaService) DeepSearchLimit(tier string) int {
	if limit, ok := s.cfg.DeepSearchTiers[tier]; ok {
		return limit
	}
	return s.cfg.DeepSearchTiers[s.cfg.AnonymousTier]
}

// DetailViewLimit 은 티어의 일일 상세 조회 한도다.
func (s *QuotaService) DetailViewLimit(tier string) int {
	if limit, ok := s.cfg.DetailViewTiers[tier]; ok {
		return limit
	}
	return s.cfg.DetailViewTiers[s.cfg.AnonymousTier]
}

// TodayQuota 는 (user, 오늘) 카운터를 멱등하게 확보해 돌려준다.
func (s *QuotaService) TodayQuota(ctx context.Context, userID string) (*models.UserQuota, error) {
	return s.repo.GetOrCreateToday(ctx, userID)
}

// CanSearch 는 현재 deep_search_count 를 티어 한도와 비교한다.
func (s *QuotaService) CanSearch(ctx context.Context, userID, tier string) (bool, error) {
	q, err := s.repo.GetOrCreateToday(ctx, userID)
	if err != nil {
		return false, err
	}
	return q.DeepSearchCount < s.DeepSearchLimit(tier), nil
}

// CanViewDetail 은 현재 detail_view_count 를 티어 한도와 비교한다.
func (s *QuotaService) CanViewDetail(ctx context.Context, userID, tier string) (bool, error) {
	q, err := s.repo.GetOrCreateToday(ctx, userID)
	if err != nil {
		return false, err
	}
	return q.DetailViewCount < s.DetailViewLimit(tier), nil
}

// ConsumeDeepSearch 는 get-or-create-then-increment 를 단일 원자 연산으로 수행한다.
// 동시 요청이 겹치면 한도를 "동시 진행 중 요청 수" 만큼 일시 초과할 수 있고,
// 이는 허용된 상한이다 (증가 유실은 허용되지 않는다).
func (s *QuotaService) ConsumeDeepSearch(ctx context.Context, userID string) (*models.UserQuota, error) {
	return s.repo.IncrementDeepSearch(ctx, userID)
}

// ConsumeDetailView 는 detail_view_count 를 원자적으로 1 증가시킨다.
func (s *QuotaService) ConsumeDetailView(ctx context.Context, userID string) (*models.UserQuota, error) {
	return s.repo.IncrementDetailView(ctx, userID)
}

// RemainingDeepSearch 는 남은 딥서치 횟수를 돌려준다 (음수는 0 으로 자른다).
func (s *QuotaService) RemainingDeepSearch(ctx context.Context, userID, tier string) (int, error) {
	q, err := s.repo.GetOrCreateToday(ctx, userID)
	if err != nil {
		return 0, err
	}
	return remaining(s.DeepSearchLimit(tier), q.DeepSearchCount), nil
}

func remaining(limit, used int) int {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}

// QuotaStatus 는 쿼터 상태 조회 응답이다.
type QuotaStatus struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	ResetsAt  time.Time `json:"resets_at"`
}

// Status 는 티어 한도 기준의 딥서치 쿼터 상태를 돌려준다.
func (s *QuotaService) Status(ctx context.Context, userID, tier string) (*QuotaStatus, error) {
	q, err := s.repo.GetOrCreateToday(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit := s.DeepSearchLimit(tier)
	return &QuotaStatus{
		Remaining: remaining(limit, q.DeepSearchCount),
		Limit:     limit,
		Used:      q.DeepSearchCount,
		ResetsAt:  NextUTCMidnight(time.Now()),
	}, nil
}

// NextUTCMidnight 는 일일 카운터가 암묵적으로 리셋되는 시각이다.
func NextUTCMidnight(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
