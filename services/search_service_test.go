package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-scout/config"
	"place-scout/models"
	"place-scout/placeapi"
)

// --- fakes ---

type fakeCache struct {
	cached     []models.Place
	existing   map[string]struct{}
	syncedAt   time.Time
	lastIntent models.SearchIntent
	checkedIDs []string
	marked     []string
	upserted   []*models.Place
	upsertErr  error
}

func (f *fakeCache) QueryByIntent(ctx context.Context, intent models.SearchIntent, limit int) ([]models.Place, error) {
	f.lastIntent = intent
	if len(f.cached) > limit {
		return f.cached[:limit], nil
	}
	return f.cached, nil
}

func (f *fakeCache) ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]struct{}, error) {
	f.checkedIDs = append(f.checkedIDs, externalIDs...)
	out := make(map[string]struct{})
	for _, id := range externalIDs {
		if _, ok := f.existing[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeCache) UpsertPlaces(ctx context.Context, places []*models.Place) ([]*models.Place, error) {
	f.upserted = append(f.upserted, places...)
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return places, nil
}

func (f *fakeCache) MarkIntentSynced(ctx context.Context, intent models.SearchIntent) error {
	f.marked = append(f.marked, intent.Fingerprint())
	return nil
}

func (f *fakeCache) IntentLastSyncedAt(ctx context.Context, intent models.SearchIntent) (time.Time, error) {
	return f.syncedAt, nil
}

type fakeQuota struct {
	canSearch bool
	canErr    error
	limit     int
	used      int
	consumed  int
}

func (f *fakeQuota) CanSearch(ctx context.Context, userID, tier string) (bool, error) {
	return f.canSearch, f.canErr
}

func (f *fakeQuota) ConsumeDeepSearch(ctx context.Context, userID string) (*models.UserQuota, error) {
	f.consumed++
	f.used++
	return &models.UserQuota{UserID: userID, DeepSearchCount: f.used}, nil
}

func (f *fakeQuota) TodayQuota(ctx context.Context, userID string) (*models.UserQuota, error) {
	return &models.UserQuota{UserID: userID, DeepSearchCount: f.used}, nil
}

func (f *fakeQuota) DeepSearchLimit(tier string) int { return f.limit }

type fakeCosts struct {
	textSearch  int
	aiIntent    int
	aiRecommend int
}

func (f *fakeCosts) LogTextSearch(ctx context.Context, userID string, placeCount int, fieldMask string) (float64, error) {
	f.textSearch++
	return 0.032, nil
}

func (f *fakeCosts) LogAIIntent(ctx context.Context, userID string) (float64, error) {
	f.aiIntent++
	return 0.001, nil
}

func (f *fakeCosts) LogAIRecommend(ctx context.Context, userID string) (float64, error) {
	f.aiRecommend++
	return 0.002, nil
}

type fakeUpstream struct {
	batches  [][]placeapi.PlaceBasic
	errs     []error
	calls    int
	lastBias *placeapi.LocationBias
}

func (f *fakeUpstream) TextSearchBatch(ctx context.Context, query string, fieldMask string, bias *placeapi.LocationBias) ([]placeapi.PlaceBasic, error) {
	i := f.calls
	f.calls++
	f.lastBias = bias
	var batch []placeapi.PlaceBasic
	if i < len(f.batches) {
		batch = f.batches[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return batch, err
}

type fakeAI struct {
	recommendJSON string
	intentJSON    string
	fallbackText  string
	err           error
	calls         int
}

func (f *fakeAI) GenerateText(ctx context.Context, prompt, systemPrompt string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	switch {
	case systemPrompt == intentInstruction:
		return f.intentJSON, "gemini", nil
	case systemPrompt == textFallbackInstruction:
		return f.fallbackText, "gemini", nil
	default:
		return f.recommendJSON, "gemini", nil
	}
}

// fakeCovers 는 모든 후보를 첫 번째 URL 로 해석한다. 후보가 없으면 탈락시킨다.
type fakeCovers struct{}

func (fakeCovers) ResolveCovers(ctx context.Context, candidateSets [][]string) map[int]string {
	resolved := make(map[int]string, len(candidateSets))
	for i, set := range candidateSets {
		for _, url := range set {
			if url != "" {
				resolved[i] = url
				break
			}
		}
	}
	return resolved
}

type recordingProducer struct {
	published int
}

func (p *recordingProducer) PublishEvent(topic string, event interface{}) error {
	p.published++
	return nil
}

func (p *recordingProducer) Close() error { return nil }

// --- helpers ---

func testConfig() config.AppConfig {
	return config.AppConfig{
		Places: config.PlacesConfig{MaxBatchSize: 5},
		AI:     config.AIConfig{IntentWordThreshold: 6},
	}
}

func cachedPlace(externalID, name string) models.Place {
	id := externalID
	return models.Place{
		ExternalID:    &id,
		Name:          name,
		Category:      "museum",
		CoverImageURL: "https://img.example.com/" + externalID + ".jpg",
	}
}

func basicPlace(externalID, name string) placeapi.PlaceBasic {
	return placeapi.PlaceBasic{
		ExternalID: externalID,
		Name:       name,
		Category:   "museum",
		PhotoRefs:  []string{"https://img.example.com/" + externalID + ".jpg"},
	}
}

func newTestSearchService(cache *fakeCache, quota *fakeQuota, costs *fakeCosts, upstream *fakeUpstream, ai *fakeAI) (*SearchService, *recordingProducer) {
	producer := &recordingProducer{}
	svc := NewSearchService(cache, quota, costs, upstream, ai, fakeCovers{}, producer, testConfig())
	return svc, producer
}

// --- tests ---

func TestSearchServedEntirelyFromCache(t *testing.T) {
	cache := &fakeCache{cached: []models.Place{
		cachedPlace("ext-1", "Design Museum"),
		cachedPlace("ext-2", "Modern Art Museum"),
	}}
	quota := &fakeQuota{canSearch: true, limit: 3}
	costs := &fakeCosts{}
	upstream := &fakeUpstream{}
	ai := &fakeAI{}
	svc, _ := newTestSearchService(cache, quota, costs, upstream, ai)

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, StageCache, out.Stage)
	assert.Equal(t, 2, out.FromCache)
	assert.Equal(t, 0, out.FromUpstream)
	assert.Equal(t, 0, upstream.calls)
	assert.Equal(t, 0, quota.consumed)
	assert.Equal(t, 0, costs.textSearch)
	assert.Zero(t, out.EstimatedCost)
}

func TestSearchRepeatQueryWithFreshIntentIsCacheOnly(t *testing.T) {
	// 직전 딥서치가 3곳만 저장했더라도, 같은 의도의 반복 질의는 limit 미달과
	// 무관하게 캐시 전용이어야 한다. 업스트림 재호출도 쿼터 소비도 없다.
	cache := &fakeCache{
		cached: []models.Place{
			cachedPlace("ext-1", "Design Museum"),
			cachedPlace("ext-2", "Architecture Center"),
			cachedPlace("ext-3", "Glyptotek"),
		},
		syncedAt: time.Now(),
	}
	quota := &fakeQuota{canSearch: true, limit: 3, used: 1}
	costs := &fakeCosts{}
	upstream := &fakeUpstream{}
	svc, _ := newTestSearchService(cache, quota, costs, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free",
	})
	require.NoError(t, err)

	assert.Equal(t, StageCache, out.Stage)
	assert.Equal(t, 3, out.FromCache)
	assert.Equal(t, 0, out.FromUpstream)
	assert.Equal(t, 0, upstream.calls)
	assert.Equal(t, 0, quota.consumed)
	assert.Equal(t, 0, costs.textSearch)
	assert.Equal(t, 2, out.QuotaRemaining)
	assert.Zero(t, out.EstimatedCost)
}

func TestSearchStaleIntentSyncRunsDeepSearch(t *testing.T) {
	cache := &fakeCache{
		cached:   []models.Place{cachedPlace("ext-1", "Design Museum")},
		syncedAt: time.Now().Add(-48 * time.Hour),
	}
	quota := &fakeQuota{canSearch: true, limit: 3}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{basicPlace("ext-2", "Architecture Center")}}}
	svc, _ := newTestSearchService(cache, quota, &fakeCosts{}, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free",
	})
	require.NoError(t, err)

	assert.Equal(t, StageLive, out.Stage)
	assert.Equal(t, 1, upstream.calls)
	// 딥서치가 실제로 일어났으므로 의도가 다시 동기화 기록된다.
	require.Len(t, cache.marked, 1)
	assert.Equal(t, cache.lastIntent.Fingerprint(), cache.marked[0])
}

func TestSearchShortQuerySkipsAIIntent(t *testing.T) {
	cache := &fakeCache{cached: []models.Place{cachedPlace("ext-1", "Design Museum")}}
	quota := &fakeQuota{canSearch: true, limit: 3}
	costs := &fakeCosts{}
	svc, _ := newTestSearchService(cache, quota, costs, &fakeUpstream{}, &fakeAI{})

	_, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, costs.aiIntent)
	assert.Equal(t, "museum", cache.lastIntent.Category)
}

func TestSearchLongQueryRefinesIntentThroughAI(t *testing.T) {
	cache := &fakeCache{cached: []models.Place{cachedPlace("ext-1", "Design Museum Danmark")}}
	quota := &fakeQuota{canSearch: true, limit: 3}
	costs := &fakeCosts{}
	ai := &fakeAI{intentJSON: `{"category":"museum","locality":"copenhagen","free_text":"quiet design museum"}`}
	svc, _ := newTestSearchService(cache, quota, costs, &fakeUpstream{}, ai)

	_, err := svc.Search(context.Background(), SearchInput{
		Query: "somewhere quiet to look at danish design this afternoon",
		UserID: "u1", Tier: "free", Limit: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, costs.aiIntent)
	assert.Equal(t, "museum", cache.lastIntent.Category)
	assert.Equal(t, "copenhagen", cache.lastIntent.Locality)
}

func TestSearchAIIntentFailureFallsBackToHeuristic(t *testing.T) {
	cache := &fakeCache{cached: []models.Place{cachedPlace("ext-1", "Design Museum")}}
	quota := &fakeQuota{canSearch: true, limit: 3}
	costs := &fakeCosts{}
	ai := &fakeAI{err: errors.New("all providers down")}
	svc, _ := newTestSearchService(cache, quota, costs, &fakeUpstream{}, ai)

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "somewhere quiet to look at danish design museum today",
		UserID: "u1", Tier: "free", Limit: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, StageCache, out.Stage)
	assert.Equal(t, 0, costs.aiIntent)
	assert.Equal(t, "museum", cache.lastIntent.Category)
}

func TestSearchQuotaDeniedReturnsPartialCache(t *testing.T) {
	cache := &fakeCache{cached: []models.Place{cachedPlace("ext-1", "Design Museum")}}
	quota := &fakeQuota{canSearch: false, limit: 3, used: 3}
	costs := &fakeCosts{}
	upstream := &fakeUpstream{}
	svc, _ := newTestSearchService(cache, quota, costs, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, StageQuotaLimited, out.Stage)
	assert.Len(t, out.Places, 1)
	assert.Equal(t, 0, upstream.calls)
	assert.Equal(t, 0, quota.consumed)
	assert.Equal(t, 0, out.QuotaRemaining)
}

func TestSearchQuotaDeniedEmptyCacheFallsBackToText(t *testing.T) {
	quota := &fakeQuota{canSearch: false, limit: 3, used: 3}
	costs := &fakeCosts{}
	upstream := &fakeUpstream{}
	ai := &fakeAI{fallbackText: "Design Museum — worth a visit"}
	svc, _ := newTestSearchService(&fakeCache{}, quota, costs, upstream, ai)

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, StageTextFallback, out.Stage)
	assert.Empty(t, out.Places)
	assert.NotEmpty(t, out.FallbackText)
	assert.Equal(t, 0, upstream.calls)
	assert.Equal(t, 1, costs.aiRecommend)
}

func TestSearchQuotaDeniedEmptyCacheAllProvidersExhausted(t *testing.T) {
	quota := &fakeQuota{canSearch: false, limit: 3, used: 3}
	ai := &fakeAI{err: errors.New("all providers exhausted")}
	svc, _ := newTestSearchService(&fakeCache{}, quota, &fakeCosts{}, &fakeUpstream{}, ai)

	_, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestSearchLivePathLogsOneCostPerDispatchedCall(t *testing.T) {
	cache := &fakeCache{}
	quota := &fakeQuota{canSearch: true, limit: 3}
	costs := &fakeCosts{}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{
		basicPlace("ext-1", "Design Museum"),
		basicPlace("ext-2", "Architecture Center"),
	}}}
	ai := &fakeAI{recommendJSON: `{"places":[{"name":"Design Museum","category":"museum","locality":"copenhagen","description":"Danish design","tags":[{"kind":"facet","id":"design","en":"Design","priority":1}]}]}`}
	svc, producer := newTestSearchService(cache, quota, costs, upstream, ai)

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, StageLive, out.Stage)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, 1, costs.textSearch)
	assert.Equal(t, 1, costs.aiRecommend)
	assert.Equal(t, 1, quota.consumed)
	assert.Equal(t, 2, out.FromUpstream)
	assert.Equal(t, 2, out.QuotaRemaining)
	assert.Equal(t, 2, producer.published)
	assert.InDelta(t, 0.034, out.EstimatedCost, 1e-9)

	// AI 와 업스트림 양쪽에 등장한 장소는 한 번만, AI 태그가 붙어서 나온다.
	var designMuseum *PlaceResult
	for i := range out.Places {
		if out.Places[i].Place.Name == "Design Museum" {
			designMuseum = &out.Places[i]
		}
	}
	require.NotNil(t, designMuseum)
	require.Len(t, designMuseum.Place.AITags, 1)
	assert.Equal(t, "Design", designMuseum.Place.AITags[0].EN)
}

func TestSearchDeduplicatesUpstreamBatch(t *testing.T) {
	quota := &fakeQuota{canSearch: true, limit: 3}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{
		basicPlace("ext-1", "Design Museum"),
		basicPlace("ext-1", "Design Museum"),
		basicPlace("ext-2", "Architecture Center"),
	}}}
	svc, _ := newTestSearchService(&fakeCache{}, quota, &fakeCosts{}, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.FromUpstream)
}

func TestSearchExcludesAlreadyCachedExternalIDs(t *testing.T) {
	cache := &fakeCache{cached: []models.Place{cachedPlace("ext-1", "Design Museum")}}
	quota := &fakeQuota{canSearch: true, limit: 3}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{
		basicPlace("ext-1", "Design Museum"),
		basicPlace("ext-2", "Architecture Center"),
	}}}
	svc, _ := newTestSearchService(cache, quota, &fakeCosts{}, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, out.FromCache)
	assert.Equal(t, 1, out.FromUpstream)
	assert.Len(t, cache.upserted, 1)
	assert.Equal(t, "ext-2", *cache.upserted[0].ExternalID)
}

func TestSearchSkipsSyncEventForPlacesCachedUnderAnotherIntent(t *testing.T) {
	// ext-2 는 다른 의도의 검색이 이미 저장한 장소다. 행 갱신(업서트)은 하되
	// 이미지 파이프라인 이벤트는 신규인 ext-1 에 대해서만 발행한다.
	cache := &fakeCache{existing: map[string]struct{}{"ext-2": {}}}
	quota := &fakeQuota{canSearch: true, limit: 3}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{
		basicPlace("ext-1", "Design Museum"),
		basicPlace("ext-2", "Architecture Center"),
	}}}
	svc, producer := newTestSearchService(cache, quota, &fakeCosts{}, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out.FromUpstream)
	assert.Len(t, cache.upserted, 2)
	assert.ElementsMatch(t, []string{"ext-1", "ext-2"}, cache.checkedIDs)
	assert.Equal(t, 1, producer.published)
}

func TestSearchBiasesUpstreamWithCallerLocation(t *testing.T) {
	quota := &fakeQuota{canSearch: true, limit: 3}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{basicPlace("ext-1", "Design Museum")}}}
	svc, _ := newTestSearchService(&fakeCache{}, quota, &fakeCosts{}, upstream, &fakeAI{})

	lat, lng := 55.676, 12.568
	_, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
		UserLat: &lat, UserLng: &lng,
	})
	require.NoError(t, err)

	require.NotNil(t, upstream.lastBias)
	assert.InDelta(t, lat, upstream.lastBias.Lat, 1e-9)
	assert.InDelta(t, lng, upstream.lastBias.Lng, 1e-9)
}

func TestSearchNoCallerLocationMeansNoBias(t *testing.T) {
	quota := &fakeQuota{canSearch: true, limit: 3}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{basicPlace("ext-1", "Design Museum")}}}
	svc, _ := newTestSearchService(&fakeCache{}, quota, &fakeCosts{}, upstream, &fakeAI{})

	_, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.NoError(t, err)
	assert.Nil(t, upstream.lastBias)
}

func TestSearchRetriesTimeoutOnceAndLogsBothCalls(t *testing.T) {
	quota := &fakeQuota{canSearch: true, limit: 3}
	costs := &fakeCosts{}
	upstream := &fakeUpstream{
		errs: []error{&placeapi.APIError{Kind: placeapi.KindTimeout}, nil},
		batches: [][]placeapi.PlaceBasic{
			nil,
			{basicPlace("ext-1", "Design Museum")},
		},
	}
	svc, _ := newTestSearchService(&fakeCache{}, quota, costs, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, StageLive, out.Stage)
	assert.Equal(t, 2, upstream.calls)
	assert.Equal(t, 2, costs.textSearch)
	assert.Equal(t, 1, out.FromUpstream)
}

func TestSearchOverQueryLimitDegradesToCacheOnly(t *testing.T) {
	cache := &fakeCache{cached: []models.Place{cachedPlace("ext-1", "Design Museum")}}
	quota := &fakeQuota{canSearch: true, limit: 3}
	costs := &fakeCosts{}
	upstream := &fakeUpstream{errs: []error{&placeapi.APIError{Kind: placeapi.KindOverQueryLimit}}}
	svc, _ := newTestSearchService(cache, quota, costs, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, StageCache, out.Stage)
	assert.Equal(t, 1, out.FromCache)
	assert.Equal(t, 1, costs.textSearch)
	assert.Equal(t, 0, quota.consumed)
}

func TestSearchInvalidRequestSurfacesToCaller(t *testing.T) {
	quota := &fakeQuota{canSearch: true, limit: 3}
	upstream := &fakeUpstream{errs: []error{&placeapi.APIError{Kind: placeapi.KindInvalidRequest}}}
	svc, _ := newTestSearchService(&fakeCache{}, quota, &fakeCosts{}, upstream, &fakeAI{})

	_, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.Error(t, err)
	assert.Equal(t, placeapi.KindInvalidRequest, placeapi.KindOf(err))
	assert.Equal(t, 0, quota.consumed)
}

func TestSearchUpsertFailureStillReturnsResults(t *testing.T) {
	quota := &fakeQuota{canSearch: true, limit: 3}
	cache := &fakeCache{upsertErr: errors.New("mongo down")}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{basicPlace("ext-1", "Design Museum")}}}
	svc, _ := newTestSearchService(cache, quota, &fakeCosts{}, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.FromUpstream)
}

func TestSearchExcludesPlacesWithoutReachableCover(t *testing.T) {
	quota := &fakeQuota{canSearch: true, limit: 3}
	noImage := placeapi.PlaceBasic{ExternalID: "ext-2", Name: "No Image Hall", Category: "museum"}
	upstream := &fakeUpstream{batches: [][]placeapi.PlaceBasic{{
		basicPlace("ext-1", "Design Museum"),
		noImage,
	}}}
	cache := &fakeCache{}
	svc, _ := newTestSearchService(cache, quota, &fakeCosts{}, upstream, &fakeAI{})

	out, err := svc.Search(context.Background(), SearchInput{
		Query: "design museum", UserID: "u1", Tier: "free", Limit: 5,
	})
	require.NoError(t, err)

	assert.Len(t, out.Places, 1)
	assert.Equal(t, "Design Museum", out.Places[0].Place.Name)
	// 응답에서 빠지더라도 캐시에는 두 장소 모두 저장된다.
	assert.Len(t, cache.upserted, 2)
}
