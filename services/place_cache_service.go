package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"place-scout/models"
	"place-scout/placeapi"
	"place-scout/repositories"
)

// placeStore 는 PlaceCacheService 가 필요로 하는 저장소 연산이다.
// 구현은 repositories.PlaceRepository 가 제공한다.
type placeStore interface {
	UpsertByExternalID(ctx context.Context, p *models.Place) (*models.Place, error)
	UpsertMany(ctx context.Context, places []*models.Place) ([]*models.Place, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Place, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error)
	ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]struct{}, error)
	QueryByIntent(ctx context.Context, intent models.SearchIntent, limit int) ([]models.Place, error)
}

// intentSyncStore 는 의도 단위 동기화 시각의 저장소 연산이다.
// 구현은 repositories.IntentSyncRepository 가 제공한다.
type intentSyncStore interface {
	MarkSynced(ctx context.Context, fingerprint string) error
	LastSyncedAt(ctx context.Context, fingerprint string) (time.Time, error)
}

// PlaceCacheService 는 장소 캐시의 읽기/쓰기 경로다.
// Place 행의 쓰기는 이 서비스만 수행한다. 쿼터/비용에는 관여하지 않는다
// (비용 계상은 외부 호출을 일으킨 쪽의 책임이다).
type PlaceCacheService struct {
	repo  placeStore
	syncs intentSyncStore
}

func NewPlaceCacheService(repo *repositories.PlaceRepository, syncs *repositories.IntentSyncRepository) *PlaceCacheService {
	return &PlaceCacheService{repo: repo, syncs: syncs}
}

func newPlaceCacheServiceWithStore(repo placeStore, syncs intentSyncStore) *PlaceCacheService {
	return &PlaceCacheService{repo: repo, syncs: syncs}
}

// QueryByIntent 는 구조화된 의도로 캐시를 조회한다.
func (s *PlaceCacheService) QueryByIntent(ctx context.Context, intent models.SearchIntent, limit int) ([]models.Place, error) {
	return s.repo.QueryByIntent(ctx, intent, limit)
}

// GetByExternalID 는 업스트림 식별자로 캐시를 조회한다. 없으면 (nil, nil).
func (s *PlaceCacheService) GetByExternalID(ctx context.Context, externalID string) (*models.Place, error) {
	p, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// GetByID 는 내부 id 로 캐시를 조회한다.
func (s *PlaceCacheService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error) {
	return s.repo.FindByID(ctx, id)
}

// ExistingExternalIDs 는 주어진 집합 중 이미 캐시된 부분집합을 돌려준다.
// 불필요한 상세 조회를 피하는 데 쓴다.
func (s *PlaceCacheService) ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]struct{}, error) {
	return s.repo.ExistingExternalIDs(ctx, externalIDs)
}

// UpsertPlace 는 external id 를 키로 insert-or-update 한다.
func (s *PlaceCacheService) UpsertPlace(ctx context.Context, p *models.Place) (*models.Place, error) {
	return s.repo.UpsertByExternalID(ctx, p)
}

// UpsertPlaces 는 여러 장소를 업서트하고 수렴된 행들을 돌려준다.
func (s *PlaceCacheService) UpsertPlaces(ctx context.Context, places []*models.Place) ([]*models.Place, error) {
	return s.repo.UpsertMany(ctx, places)
}

// MarkIntentSynced 는 이 의도로 업스트림을 조회했음을 기록한다.
func (s *PlaceCacheService) MarkIntentSynced(ctx context.Context, intent models.SearchIntent) error {
	return s.syncs.MarkSynced(ctx, intent.Fingerprint())
}

// IntentLastSyncedAt 은 이 의도의 마지막 업스트림 동기화 시각을 돌려준다. 없으면 zero time.
func (s *PlaceCacheService) IntentLastSyncedAt(ctx context.Context, intent models.SearchIntent) (time.Time, error) {
	return s.syncs.LastSyncedAt(ctx, intent.Fingerprint())
}

// PlaceFromBasic 은 배치 검색 결과를 캐시 문서로 변환한다.
func PlaceFromBasic(b placeapi.PlaceBasic) *models.Place {
	externalID := b.ExternalID
	p := &models.Place{
		ExternalID: &externalID,
		Name:       b.Name,
		Location:   models.GeoPoint{Lat: b.Lat, Lng: b.Lng},
		Address:    b.Address,
		Category:   b.Category,
		ImageURLs:  b.PhotoRefs,
	}
	if len(b.PhotoRefs) > 0 {
		p.CoverImageURL = b.PhotoRefs[0]
	}
	return p
}

// PlaceFromDetails 는 상세 조회 결과를 캐시 문서로 변환한다.
func PlaceFromDetails(d *placeapi.PlaceDetails) *models.Place {
	p := PlaceFromBasic(d.PlaceBasic)
	p.Rating = d.Rating
	p.UserRatingCount = d.UserRatingCount
	p.OpeningHours = d.OpeningHours
	p.Phone = d.Phone
	p.Website = d.Website
	p.PriceLevel = d.PriceLevel
	return p
}
