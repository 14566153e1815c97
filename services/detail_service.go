package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"place-scout/logger"
	"place-scout/models"
	"place-scout/placeapi"
)

type detailCache interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error)
	UpsertPlace(ctx context.Context, p *models.Place) (*models.Place, error)
}

type detailQuota interface {
	CanViewDetail(ctx context.Context, userID, tier string) (bool, error)
	ConsumeDetailView(ctx context.Context, userID string) (*models.UserQuota, error)
	DetailViewLimit(tier string) int
}

type detailCosts interface {
	LogPlaceDetails(ctx context.Context, userID string, fieldMask string) (float64, error)
}

type DetailFetcher interface {
	GetPlaceDetails(ctx context.Context, externalID string, fieldMask string) (*placeapi.PlaceDetails, error)
}

// DetailOutput 은 상세 조회 응답이다. Detailed=false 면 쿼터 제한 등으로
// 기본 필드만 채워진 상태다.
type DetailOutput struct {
	Place          models.Place
	DisplayTags    []string
	Detailed       bool
	Stage          string
	QuotaRemaining int
	EstimatedCost  float64
}

// DetailService 는 장소 상세 조회 경로다. 상세 필드가 이미 캐시에 있으면
// 업스트림 호출도 쿼터 소비도 없다. 없을 때에만 단건 상세 조회를 수행한다.
type DetailService struct {
	cache   detailCache
	quota   detailQuota
	costs   detailCosts
	fetcher DetailFetcher
}

func NewDetailService(cache detailCache, quota detailQuota, costs detailCosts, fetcher DetailFetcher) *DetailService {
	return &DetailService{cache: cache, quota: quota, costs: costs, fetcher: fetcher}
}

// GetPlace 는 내부 id 로 캐시된 장소를 돌려준다 (과금/쿼터 없음).
func (s *DetailService) GetPlace(ctx context.Context, id primitive.ObjectID, lang string) (*DetailOutput, error) {
	p, err := s.cache.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DetailOutput{
		Place:       *p,
		DisplayTags: DisplayTags(p, lang),
		Detailed:    p.HasDetails(),
		Stage:       StageCache,
	}, nil
}

// GetPlaceDetail 은 상세 필드를 보장하려 시도한다.
//   - 캐시에 상세가 있으면 그대로 서빙 (쿼터 영향 없음)
//   - 수동 등록 장소(external id 없음)는 채울 방법이 없으므로 그대로 서빙
//   - 쿼터가 남아 있으면 단건 상세 조회 → 비용 기록 → 캐시 반영 → 쿼터 1 소비
//   - 쿼터 소진이면 기본 필드만으로 응답 (에러 아님)
func (s *DetailService) GetPlaceDetail(ctx context.Context, id primitive.ObjectID, userID, tier, lang string) (*DetailOutput, error) {
	p, err := s.cache.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.HasDetails() || p.ExternalID == nil {
		return &DetailOutput{
			Place:       *p,
			DisplayTags: DisplayTags(p, lang),
			Detailed:    p.HasDetails(),
			Stage:       StageCache,
		}, nil
	}

	can, err := s.quota.CanViewDetail(ctx, userID, tier)
	if err != nil {
		logger.ErrorWithFields("detail quota check failed, treating as denied", logger.Fields{
			"user_id": userID, "error": err.Error(),
		})
		can = false
	}
	if !can {
		return &DetailOutput{
			Place:       *p,
			DisplayTags: DisplayTags(p, lang),
			Stage:       StageQuotaLimited,
		}, nil
	}

	// 외부 호출과 그 부작용은 클라이언트 취소와 분리해 끝까지 수행한다.
	bgCtx := context.WithoutCancel(ctx)

	details, fetchErr := s.fetcher.GetPlaceDetails(bgCtx, *p.ExternalID, placeapi.FieldMaskDetails)

	// 호출은 발송되었으므로 성공/실패와 무관하게 비용을 기록한다.
	cost, logErr := s.costs.LogPlaceDetails(bgCtx, userID, placeapi.FieldMaskDetails)
	if logErr != nil {
		logger.ErrorWithFields("failed to log place_details cost", logger.Fields{"error": logErr.Error()})
	}

	if fetchErr != nil {
		if placeapi.IsUserFacing(fetchErr) {
			return nil, fetchErr
		}
		logger.WarnWithFields("place details fetch failed, serving basic fields", logger.Fields{
			"external_id": *p.ExternalID, "error": fetchErr.Error(),
		})
		return &DetailOutput{
			Place:         *p,
			DisplayTags:   DisplayTags(p, lang),
			Stage:         StageCache,
			EstimatedCost: cost,
		}, nil
	}

	merged := mergeDetails(p, details)
	if saved, err := s.cache.UpsertPlace(bgCtx, merged); err != nil {
		logger.ErrorWithFields("failed to persist place details", logger.Fields{
			"external_id": *p.ExternalID, "error": err.Error(),
		})
	} else {
		merged = saved
	}

	quotaRemaining := 0
	if q, err := s.quota.ConsumeDetailView(bgCtx, userID); err != nil {
		logger.ErrorWithFields("failed to consume detail view quota", logger.Fields{
			"user_id": userID, "error": err.Error(),
		})
	} else {
		quotaRemaining = remaining(s.quota.DetailViewLimit(tier), q.DetailViewCount)
	}

	return &DetailOutput{
		Place:          *merged,
		DisplayTags:    DisplayTags(merged, lang),
		Detailed:       true,
		Stage:          StageLive,
		QuotaRemaining: quotaRemaining,
		EstimatedCost:  cost,
	}, nil
}

// mergeDetails 는 캐시 행의 정체성(id, 태그 등)을 유지하면서 상세 필드만 덧씌운다.
func mergeDetails(p *models.Place, d *placeapi.PlaceDetails) *models.Place {
	merged := *p
	merged.Rating = d.Rating
	merged.UserRatingCount = d.UserRatingCount
	merged.OpeningHours = d.OpeningHours
	merged.Phone = d.Phone
	merged.Website = d.Website
	merged.PriceLevel = d.PriceLevel
	if merged.Name == "" {
		merged.Name = d.Name
	}
	if merged.Address == "" {
		merged.Address = d.Address
	}
	if len(merged.ImageURLs) == 0 {
		merged.ImageURLs = d.PhotoRefs
		if merged.CoverImageURL == "" && len(d.PhotoRefs) > 0 {
			merged.CoverImageURL = d.PhotoRefs[0]
		}
	}
	return &merged
}

// ParseObjectID 는 핸들러가 경로 파라미터를 검증하는 데 쓴다.
func ParseObjectID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid place id %q: %w", raw, err)
	}
	return id, nil
}
