package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"place-scout/models"
	"place-scout/placeapi"
)

type stubDetailCache struct {
	place     *models.Place
	getErr    error
	upserted  *models.Place
	upsertErr error
}

func (s *stubDetailCache) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.place, nil
}

func (s *stubDetailCache) UpsertPlace(ctx context.Context, p *models.Place) (*models.Place, error) {
	s.upserted = p
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	return p, nil
}

type stubDetailQuota struct {
	can      bool
	consumed int
	used     int
	limit    int
}

func (s *stubDetailQuota) CanViewDetail(ctx context.Context, userID, tier string) (bool, error) {
	return s.can, nil
}

func (s *stubDetailQuota) ConsumeDetailView(ctx context.Context, userID string) (*models.UserQuota, error) {
	s.consumed++
	s.used++
	return &models.UserQuota{UserID: userID, DetailViewCount: s.used}, nil
}

func (s *stubDetailQuota) DetailViewLimit(tier string) int { return s.limit }

type stubDetailCosts struct {
	logged int
}

func (s *stubDetailCosts) LogPlaceDetails(ctx context.Context, userID string, fieldMask string) (float64, error) {
	s.logged++
	return 0.017, nil
}

type stubFetcher struct {
	details *placeapi.PlaceDetails
	err     error
	calls   int
}

func (s *stubFetcher) GetPlaceDetails(ctx context.Context, externalID string, fieldMask string) (*placeapi.PlaceDetails, error) {
	s.calls++
	return s.details, s.err
}

func basicCachedPlace() *models.Place {
	id := "ext-1"
	return &models.Place{
		ID:         primitive.NewObjectID(),
		ExternalID: &id,
		Name:       "Design Museum",
		Category:   "museum",
	}
}

func detailedCachedPlace() *models.Place {
	p := basicCachedPlace()
	rating := 4.5
	p.Rating = &rating
	return p
}

func TestGetPlaceDetailServesCachedDetailsWithoutFetch(t *testing.T) {
	cache := &stubDetailCache{place: detailedCachedPlace()}
	quota := &stubDetailQuota{can: true, limit: 10}
	costs := &stubDetailCosts{}
	fetcher := &stubFetcher{}
	svc := NewDetailService(cache, quota, costs, fetcher)

	out, err := svc.GetPlaceDetail(context.Background(), cache.place.ID, "u1", "free", "en")
	require.NoError(t, err)

	assert.True(t, out.Detailed)
	assert.Equal(t, StageCache, out.Stage)
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 0, costs.logged)
	assert.Equal(t, 0, quota.consumed)
}

func TestGetPlaceDetailFetchesAndPersistsWhenQuotaAllows(t *testing.T) {
	cache := &stubDetailCache{place: basicCachedPlace()}
	quota := &stubDetailQuota{can: true, limit: 10}
	costs := &stubDetailCosts{}
	rating := 4.2
	phone := "+45 1234 5678"
	fetcher := &stubFetcher{details: &placeapi.PlaceDetails{
		PlaceBasic: placeapi.PlaceBasic{ExternalID: "ext-1", Name: "Design Museum"},
		Rating:     &rating,
		Phone:      &phone,
	}}
	svc := NewDetailService(cache, quota, costs, fetcher)

	out, err := svc.GetPlaceDetail(context.Background(), cache.place.ID, "u1", "free", "en")
	require.NoError(t, err)

	assert.True(t, out.Detailed)
	assert.Equal(t, StageLive, out.Stage)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, costs.logged)
	assert.Equal(t, 1, quota.consumed)
	assert.Equal(t, 9, out.QuotaRemaining)
	require.NotNil(t, cache.upserted)
	assert.Equal(t, &rating, cache.upserted.Rating)
	// 캐시 행의 정체성은 유지된다.
	assert.Equal(t, cache.place.ID, cache.upserted.ID)
}

func TestGetPlaceDetailQuotaDeniedServesBasicFields(t *testing.T) {
	cache := &stubDetailCache{place: basicCachedPlace()}
	quota := &stubDetailQuota{can: false, limit: 10}
	costs := &stubDetailCosts{}
	fetcher := &stubFetcher{}
	svc := NewDetailService(cache, quota, costs, fetcher)

	out, err := svc.GetPlaceDetail(context.Background(), cache.place.ID, "u1", "free", "en")
	require.NoError(t, err)

	assert.False(t, out.Detailed)
	assert.Equal(t, StageQuotaLimited, out.Stage)
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 0, costs.logged)
}

func TestGetPlaceDetailManualRecordServedAsIs(t *testing.T) {
	manual := &models.Place{ID: primitive.NewObjectID(), Name: "Local Favorite"}
	cache := &stubDetailCache{place: manual}
	fetcher := &stubFetcher{}
	svc := NewDetailService(cache, &stubDetailQuota{can: true, limit: 10}, &stubDetailCosts{}, fetcher)

	out, err := svc.GetPlaceDetail(context.Background(), manual.ID, "u1", "free", "en")
	require.NoError(t, err)

	assert.False(t, out.Detailed)
	assert.Equal(t, 0, fetcher.calls)
}

func TestGetPlaceDetailFetchFailureStillLogsCost(t *testing.T) {
	cache := &stubDetailCache{place: basicCachedPlace()}
	quota := &stubDetailQuota{can: true, limit: 10}
	costs := &stubDetailCosts{}
	fetcher := &stubFetcher{err: &placeapi.APIError{Kind: placeapi.KindTimeout}}
	svc := NewDetailService(cache, quota, costs, fetcher)

	out, err := svc.GetPlaceDetail(context.Background(), cache.place.ID, "u1", "free", "en")
	require.NoError(t, err)

	assert.False(t, out.Detailed)
	assert.Equal(t, 1, costs.logged)
	assert.Equal(t, 0, quota.consumed)
}

func TestGetPlaceDetailUserFacingFetchErrorSurfaces(t *testing.T) {
	cache := &stubDetailCache{place: basicCachedPlace()}
	fetcher := &stubFetcher{err: &placeapi.APIError{Kind: placeapi.KindRequestDenied}}
	svc := NewDetailService(cache, &stubDetailQuota{can: true, limit: 10}, &stubDetailCosts{}, fetcher)

	_, err := svc.GetPlaceDetail(context.Background(), cache.place.ID, "u1", "free", "en")
	require.Error(t, err)
	assert.Equal(t, placeapi.KindRequestDenied, placeapi.KindOf(err))
}

func TestGetPlaceNeverTouchesUpstream(t *testing.T) {
	cache := &stubDetailCache{place: basicCachedPlace()}
	fetcher := &stubFetcher{}
	svc := NewDetailService(cache, &stubDetailQuota{can: true, limit: 10}, &stubDetailCosts{}, fetcher)

	out, err := svc.GetPlace(context.Background(), cache.place.ID, "en")
	require.NoError(t, err)

	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, "Design Museum", out.Place.Name)
}

func TestGetPlaceNotFound(t *testing.T) {
	cache := &stubDetailCache{getErr: errors.New("mongo: no documents in result")}
	svc := NewDetailService(cache, &stubDetailQuota{}, &stubDetailCosts{}, &stubFetcher{})

	_, err := svc.GetPlace(context.Background(), primitive.NewObjectID(), "en")
	require.Error(t, err)
}
