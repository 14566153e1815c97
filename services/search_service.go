package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"place-scout/config"
	"place-scout/events"
	"place-scout/kafka"
	"place-scout/logger"
	"place-scout/models"
	"place-scout/placeapi"
)

// Stage 는 응답이 어떤 경로로 만들어졌는지 호출자에게 알려준다.
const (
	StageCache        = "cache"
	StageLive         = "live"
	StageQuotaLimited = "quota_limited"
	StageTextFallback = "text_fallback"
)

// ErrSearchUnavailable: 캐시도 비었고, 쿼터도 없고, 모든 AI 프로바이더도 소진된 경우.
// 요청이 완전히 실패하는 유일한 경우다.
var ErrSearchUnavailable = errors.New("search unavailable: cache empty, quota exhausted and all providers failed")

// 오케스트레이터가 의존하는 협력자 인터페이스들.
// 구체 구현은 PlaceCacheService / QuotaService / CostService / placeapi.Client /
// aiprovider.Pool / imagecheck.Checker 가 제공한다.

type PlaceCache interface {
	QueryByIntent(ctx context.Context, intent models.SearchIntent, limit int) ([]models.Place, error)
	ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]struct{}, error)
	UpsertPlaces(ctx context.Context, places []*models.Place) ([]*models.Place, error)
	MarkIntentSynced(ctx context.Context, intent models.SearchIntent) error
	IntentLastSyncedAt(ctx context.Context, intent models.SearchIntent) (time.Time, error)
}

type QuotaKeeper interface {
	CanSearch(ctx context.Context, userID, tier string) (bool, error)
	ConsumeDeepSearch(ctx context.Context, userID string) (*models.UserQuota, error)
	TodayQuota(ctx context.Context, userID string) (*models.UserQuota, error)
	DeepSearchLimit(tier string) int
}

type CostRecorder interface {
	LogTextSearch(ctx context.Context, userID string, placeCount int, fieldMask string) (float64, error)
	LogAIIntent(ctx context.Context, userID string) (float64, error)
	LogAIRecommend(ctx context.Context, userID string) (float64, error)
}

type UpstreamSearcher interface {
	TextSearchBatch(ctx context.Context, query string, fieldMask string, bias *placeapi.LocationBias) ([]placeapi.PlaceBasic, error)
}

type AIRunner interface {
	GenerateText(ctx context.Context, prompt, systemPrompt string) (string, string, error)
}

type CoverResolver interface {
	ResolveCovers(ctx context.Context, candidateSets [][]string) map[int]string
}

const recommendInstruction = `
You are a travel recommendation assistant. Given a search intent, propose real, well-known places that match it.
The response MUST be a valid JSON object with one key "places": an array of at most N objects (N is given in the prompt), each with:
1. name: The official name of the place.
2. category: A single language-neutral category code (e.g. "museum", "park", "restaurant", "landmark").
3. locality: The city the place is in.
4. description: One sentence, no more than 120 characters, in English.
5. tags: An array of at most 2 tag objects {"kind": one of "facet"|"person"|"architect", "id": short-lowercase-slug, "en": English label, "zh": Chinese label, "priority": 1-based order}.
You MUST NOT wrap the JSON output in a markdown code block (e.g. ` + "```json ... ```" + `). The response should contain ONLY the raw JSON string.
Only propose places you are confident actually exist.
`

const intentInstruction = `
You are a search query parser for a travel app. Extract a structured intent from the user query.
The response MUST be a valid JSON object with three keys:
1. category: A single language-neutral category code (e.g. "museum", "park", "restaurant"), or empty string.
2. locality: The city or area mentioned, or empty string.
3. free_text: The remaining descriptive text of the query.
You MUST NOT wrap the JSON output in a markdown code block. The response should contain ONLY the raw JSON string.
`

const textFallbackInstruction = `
You are a travel recommendation assistant. The user has exhausted their search quota, so respond with plain text only.
List up to N matching places (N is given in the prompt), one per line, as "Name — one short sentence description".
Do not include URLs, coordinates, ratings or any markup.
`

// SearchInput 은 인바운드 검색 요청이다.
type SearchInput struct {
	Query    string
	UserID   string
	Tier     string
	Language string
	UserLat  *float64
	UserLng  *float64
	Limit    int
}

// PlaceResult 는 응답의 단일 장소 항목이다.
type PlaceResult struct {
	Place       models.Place
	DisplayTags []string
	Source      string // "cache" | "upstream"
}

// SearchOutput 은 비용/쿼터 메타데이터가 포함된 검색 응답이다.
type SearchOutput struct {
	Places         []PlaceResult
	FromCache      int
	FromUpstream   int
	EstimatedCost  float64
	QuotaRemaining int
	Stage          string
	FallbackText   string
}

// SearchService 는 최상위 조정자다. 영속 상태를 직접 소유하지 않고
// 다른 서비스들의 인터페이스 위에서만 동작한다.
type SearchService struct {
	cache    PlaceCache
	quota    QuotaKeeper
	costs    CostRecorder
	upstream UpstreamSearcher
	ai       AIRunner
	covers   CoverResolver
	producer kafka.Producer

	maxBatch            int
	intentWordThreshold int
	intentFreshFor      time.Duration
}

func NewSearchService(
	cache PlaceCache,
	quota QuotaKeeper,
	costs CostRecorder,
	upstream UpstreamSearcher,
	ai AIRunner,
	covers CoverResolver,
	producer kafka.Producer,
	cfg config.AppConfig,
) *SearchService {
	threshold := cfg.AI.IntentWordThreshold
	if threshold <= 0 {
		threshold = 6
	}
	freshFor := time.Duration(cfg.Places.IntentFreshMinutes) * time.Minute
	if freshFor <= 0 {
		freshFor = 24 * time.Hour
	}
	return &SearchService{
		cache:               cache,
		quota:               quota,
		costs:               costs,
		upstream:            upstream,
		ai:                  ai,
		covers:              covers,
		producer:            producer,
		maxBatch:            cfg.Places.MaxBatchSize,
		intentWordThreshold: threshold,
		intentFreshFor:      freshFor,
	}
}

// Search 는 요청당 알고리즘 전체를 수행한다.
//  1. 의도 파싱 (긴 질의만 AI 정제, ai_intent 로 과금 기록)
//  2. 캐시 조회 — limit 충족 또는 의도가 최근 동기화됐으면 즉시 응답
//     (업스트림 호출/쿼터 소비 없음)
//  3. 쿼터 확인 — 거부 시 캐시 부분 응답 또는 텍스트 폴백
//  4. 허용 시 업스트림 배치 검색 + AI 추천을 동시 수행 후 external id 로 병합
//  5. 새로 받은 장소 업서트 (실패해도 응답은 반환)
//  6. 언어별 표시 태그 계산, 커버 이미지 검증
//  7. 딥서치 쿼터 1회 소비
func (s *SearchService) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	limit := in.Limit
	if limit <= 0 || limit > s.maxBatch {
		limit = s.maxBatch
	}
	lang := in.Language
	if lang == "" {
		lang = "en"
	}

	var cost float64

	intent := ParseQueryIntent(in.Query)
	if wordCount(in.Query) > s.intentWordThreshold {
		if refined, c, ok := s.refineIntent(ctx, in.UserID, in.Query); ok {
			intent = refined
			cost += c
		}
	}

	cached, err := s.cache.QueryByIntent(ctx, intent, limit)
	if err != nil {
		return nil, fmt.Errorf("cache query failed: %w", err)
	}

	// 캐시만으로 충분: 업스트림 호출도 쿼터 소비도 없다.
	// 결과가 limit 에 못 미쳐도 같은 의도가 최근에 동기화됐다면 업스트림이
	// 더 줄 것이 없다는 뜻이므로 반복 질의는 캐시 전용으로 처리한다.
	if len(cached) >= limit || (len(cached) > 0 && s.intentFresh(ctx, intent)) {
		return s.respondFromCache(ctx, in, lang, cached, cost, StageCache)
	}

	can, err := s.quota.CanSearch(ctx, in.UserID, in.Tier)
	if err != nil {
		logger.ErrorWithFields("quota check failed, treating as denied", logger.Fields{
			"user_id": in.UserID, "error": err.Error(),
		})
		can = false
	}

	if !can {
		if len(cached) == 0 {
			return s.textFallback(ctx, in, intent, limit, cost)
		}
		return s.respondFromCache(ctx, in, lang, cached, cost, StageQuotaLimited)
	}

	return s.deepSearch(ctx, in, lang, intent, cached, limit, cost)
}

// intentFresh 는 의도의 마지막 동기화가 intentFreshFor 이내인지 확인한다.
// 조회 실패는 stale 취급한다 (캐시 전용 응답을 놓쳐도 정합성은 깨지지 않는다).
func (s *SearchService) intentFresh(ctx context.Context, intent models.SearchIntent) bool {
	syncedAt, err := s.cache.IntentLastSyncedAt(ctx, intent)
	if err != nil {
		logger.WarnWithFields("intent sync lookup failed, assuming stale", logger.Fields{
			"error": err.Error(),
		})
		return false
	}
	return !syncedAt.IsZero() && time.Since(syncedAt) < s.intentFreshFor
}

// refineIntent 는 긴 자유 질의를 AI 로 구조화한다. 실패하면 휴리스틱 결과를 그대로 쓴다.
func (s *SearchService) refineIntent(ctx context.Context, userID, query string) (models.SearchIntent, float64, bool) {
	raw, _, err := s.ai.GenerateText(ctx, query, intentInstruction)
	if err != nil {
		logger.WarnWithFields("ai intent refinement failed, using heuristic intent", logger.Fields{
			"error": err.Error(),
		})
		return models.SearchIntent{}, 0, false
	}

	// 프로바이더 호출이 성공했으므로 파싱 실패 여부와 무관하게 과금을 기록한다.
	cost, logErr := s.costs.LogAIIntent(ctx, userID)
	if logErr != nil {
		logger.ErrorWithFields("failed to log ai_intent cost", logger.Fields{"error": logErr.Error()})
	}

	var intent models.SearchIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil || intent.IsEmpty() {
		return models.SearchIntent{}, cost, false
	}
	return intent, cost, true
}

// deepSearch 는 업스트림 배치 검색과 AI 추천을 fan-out/fan-in 으로 수행한다.
func (s *SearchService) deepSearch(
	ctx context.Context,
	in SearchInput,
	lang string,
	intent models.SearchIntent,
	cached []models.Place,
	limit int,
	cost float64,
) (*SearchOutput, error) {
	// 호출자가 중간에 끊어도 외부 호출과 그 부작용(비용 기록, 캐시 반영)은
	// 끝까지 진행되어야 하므로 취소와 분리된 컨텍스트를 쓴다.
	bgCtx := context.WithoutCancel(ctx)

	type upstreamResult struct {
		places []placeapi.PlaceBasic
		cost   float64
		err    error
	}
	type aiResult struct {
		recs []aiRecommendation
		cost float64
	}

	upstreamCh := make(chan upstreamResult, 1)
	aiCh := make(chan aiResult, 1)

	var bias *placeapi.LocationBias
	if in.UserLat != nil && in.UserLng != nil {
		bias = &placeapi.LocationBias{Lat: *in.UserLat, Lng: *in.UserLng}
	}

	go func() {
		places, c, err := s.searchUpstream(bgCtx, in.UserID, intent, bias)
		upstreamCh <- upstreamResult{places: places, cost: c, err: err}
	}()
	go func() {
		recs, c := s.recommend(bgCtx, in.UserID, intent, limit)
		aiCh <- aiResult{recs: recs, cost: c}
	}()

	up := <-upstreamCh
	ai := <-aiCh
	cost += up.cost + ai.cost

	if up.err != nil {
		if placeapi.IsUserFacing(up.err) {
			return nil, up.err
		}
		// upstream-unavailable: 사용자 에러가 아니라 캐시 전용 강등이다.
		logger.WarnWithFields("upstream unavailable, degrading to cache-only", logger.Fields{
			"kind": string(placeapi.KindOf(up.err)), "error": up.err.Error(),
		})
		if len(cached) == 0 {
			return s.textFallbackFromRecs(ctx, in, intent, limit, cost, ai.recs)
		}
		return s.respondFromCache(ctx, in, lang, cached, cost, StageCache)
	}

	fresh := s.mergeCandidates(cached, up.places, ai.recs)

	// 다른 의도로 이미 캐시돼 있던 장소는 이미지 파이프라인이 한 번 처리했으므로
	// 업서트 전에 신규 여부를 확인해 두고 동기화 이벤트는 신규분만 발행한다.
	known := map[string]struct{}{}
	if ids := externalIDsOf(fresh); len(ids) > 0 {
		k, err := s.cache.ExistingExternalIDs(bgCtx, ids)
		if err != nil {
			logger.WarnWithFields("existence pre-check failed, treating all candidates as new", logger.Fields{
				"error": err.Error(),
			})
		} else {
			known = k
		}
	}

	// 딥서치 경로에서 정확히 1회, 받아온 장소 수와 무관하게 소비한다.
	quotaRemaining := 0
	if q, err := s.quota.ConsumeDeepSearch(bgCtx, in.UserID); err != nil {
		logger.ErrorWithFields("failed to consume deep search quota", logger.Fields{
			"user_id": in.UserID, "error": err.Error(),
		})
	} else {
		quotaRemaining = remaining(s.quota.DeepSearchLimit(in.Tier), q.DeepSearchCount)
	}

	// 업서트는 응답과 비동기여도 되지만, 이미지 검증에서 탈락한 항목 포함
	// 받아온 모든 장소가 캐시에는 남아야 한다.
	saved, upsertErr := s.cache.UpsertPlaces(bgCtx, fresh)
	if upsertErr != nil {
		// 실패한 업서트가 응답 반환을 막으면 안 된다.
		logger.ErrorWithFields("cache upsert failed", logger.Fields{"error": upsertErr.Error()})
	}
	s.publishSynced(saved, known)
	fresh = mergeSavedIDs(fresh, saved)

	// 업스트림 조회가 실제로 일어났으므로, 받은 장소 수와 무관하게 의도를
	// 동기화된 것으로 기록한다. 이후 같은 의도의 반복 질의는 캐시 전용이 된다.
	if err := s.cache.MarkIntentSynced(bgCtx, intent); err != nil {
		logger.WarnWithFields("failed to mark intent synced", logger.Fields{"error": err.Error()})
	}

	results := make([]PlaceResult, 0, limit)
	for _, p := range cached {
		results = append(results, PlaceResult{Place: p, Source: "cache"})
	}
	for _, p := range fresh {
		results = append(results, PlaceResult{Place: *p, Source: "upstream"})
	}
	if len(results) > limit {
		results = results[:limit]
	}

	results = s.finalize(ctx, results, lang)

	out := &SearchOutput{
		Places:         results,
		EstimatedCost:  cost,
		QuotaRemaining: quotaRemaining,
		Stage:          StageLive,
	}
	for _, r := range results {
		if r.Source == "cache" {
			out.FromCache++
		} else {
			out.FromUpstream++
		}
	}
	return out, nil
}

// searchUpstream 은 배치 검색을 수행하고, 발송된 호출마다 비용 로그 1건을 남긴다.
// 타임아웃은 1회에 한해 재시도한다 (재시도 역시 발송된 호출이므로 따로 기록된다).
func (s *SearchService) searchUpstream(ctx context.Context, userID string, intent models.SearchIntent, bias *placeapi.LocationBias) ([]placeapi.PlaceBasic, float64, error) {
	var total float64

	dispatch := func() ([]placeapi.PlaceBasic, error) {
		places, err := s.upstream.TextSearchBatch(ctx, intent.UpstreamQuery(), placeapi.FieldMaskBasic, bias)
		c, logErr := s.costs.LogTextSearch(ctx, userID, len(places), placeapi.FieldMaskBasic)
		if logErr != nil {
			logger.ErrorWithFields("failed to log text_search cost", logger.Fields{"error": logErr.Error()})
		}
		total += c
		return places, err
	}

	places, err := dispatch()
	if err != nil {
		var apiErr *placeapi.APIError
		if errors.As(err, &apiErr) && apiErr.Retryable() {
			places, err = dispatch()
		}
	}
	return places, total, err
}

type aiRecommendation struct {
	Name        string                `json:"name"`
	Category    string                `json:"category"`
	Locality    string                `json:"locality"`
	Description string                `json:"description"`
	Tags        []models.AITagElement `json:"tags"`
}

// recommend 는 AI 추천 후보를 받아온다. 모든 프로바이더가 소진되면 빈 결과로 진행한다.
func (s *SearchService) recommend(ctx context.Context, userID string, intent models.SearchIntent, limit int) ([]aiRecommendation, float64) {
	prompt := fmt.Sprintf("Intent: category=%q locality=%q free_text=%q. Propose up to N=%d places.",
		intent.Category, intent.Locality, intent.FreeText, limit)

	raw, provider, err := s.ai.GenerateText(ctx, prompt, recommendInstruction)
	if err != nil {
		logger.WarnWithFields("ai recommendation failed, continuing with upstream only", logger.Fields{
			"error": err.Error(),
		})
		return nil, 0
	}

	// 성공한 프로바이더 호출이므로 스키마 파싱과 무관하게 과금을 기록한다.
	cost, logErr := s.costs.LogAIRecommend(ctx, userID)
	if logErr != nil {
		logger.ErrorWithFields("failed to log ai_recommend cost", logger.Fields{"error": logErr.Error()})
	}

	var parsed struct {
		Places []aiRecommendation `json:"places"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.WarnWithFields("ai recommendation response failed to parse", logger.Fields{
			"provider": provider, "error": err.Error(),
		})
		return nil, cost
	}
	return parsed.Places, cost
}

// mergeCandidates 는 업스트림 결과와 AI 추천을 external id 기준으로 병합한다.
//   - 양쪽에 모두 등장하는 장소(이름 일치로 판정)는 1번만 센다. AI 쪽 태그/설명을 붙인다.
//   - 캐시에 이미 있는 external id 는 신규 후보에서 제외한다.
//   - 이름만 있고 업스트림/캐시 어느 쪽으로도 해석되지 않는 AI 후보는 버린다
//     (배치 호출은 요청당 1회라는 상한을 지키기 위해 추가 조회를 하지 않는다).
func (s *SearchService) mergeCandidates(cached []models.Place, upstream []placeapi.PlaceBasic, recs []aiRecommendation) []*models.Place {
	cachedIDs := make(map[string]struct{}, len(cached))
	for _, p := range cached {
		if p.ExternalID != nil {
			cachedIDs[*p.ExternalID] = struct{}{}
		}
	}

	recByName := make(map[string]aiRecommendation, len(recs))
	for _, rec := range recs {
		recByName[normalizeName(rec.Name)] = rec
	}

	seen := make(map[string]struct{}, len(upstream))
	fresh := make([]*models.Place, 0, len(upstream))
	for _, b := range upstream {
		if b.ExternalID == "" {
			continue
		}
		if _, dup := seen[b.ExternalID]; dup {
			continue
		}
		seen[b.ExternalID] = struct{}{}
		if _, inCache := cachedIDs[b.ExternalID]; inCache {
			continue
		}

		p := PlaceFromBasic(b)
		if rec, ok := recByName[normalizeName(b.Name)]; ok {
			tags := rec.Tags
			if len(tags) > models.MaxAITags {
				tags = tags[:models.MaxAITags]
			}
			p.AITags = tags
			if p.Category == "" {
				p.Category = rec.Category
			}
		}
		fresh = append(fresh, p)
	}
	return fresh
}

// finalize 는 표시 태그를 계산하고 커버 이미지가 검증된 항목만 남긴다.
func (s *SearchService) finalize(ctx context.Context, results []PlaceResult, lang string) []PlaceResult {
	candidateSets := make([][]string, len(results))
	for i, r := range results {
		set := make([]string, 0, 1+len(r.Place.ImageURLs))
		if r.Place.CoverImageURL != "" {
			set = append(set, r.Place.CoverImageURL)
		}
		set = append(set, r.Place.ImageURLs...)
		candidateSets[i] = set
	}

	resolved := s.covers.ResolveCovers(ctx, candidateSets)

	kept := make([]PlaceResult, 0, len(results))
	for i, r := range results {
		url, ok := resolved[i]
		if !ok {
			// 깨진 이미지로 노출하느니 항목을 제외한다.
			logger.DebugWithFields("result excluded: cover image unreachable", logger.Fields{
				"name": r.Place.Name,
			})
			continue
		}
		r.Place.CoverImageURL = url
		r.DisplayTags = DisplayTags(&r.Place, lang)
		kept = append(kept, r)
	}
	return kept
}

// respondFromCache 는 업스트림 호출 없이 캐시 항목만으로 응답한다.
func (s *SearchService) respondFromCache(ctx context.Context, in SearchInput, lang string, cached []models.Place, cost float64, stage string) (*SearchOutput, error) {
	results := make([]PlaceResult, 0, len(cached))
	for _, p := range cached {
		results = append(results, PlaceResult{Place: p, Source: "cache"})
	}
	results = s.finalize(ctx, results, lang)

	quotaRemaining := 0
	if q, err := s.quota.TodayQuota(ctx, in.UserID); err == nil {
		quotaRemaining = remaining(s.quota.DeepSearchLimit(in.Tier), q.DeepSearchCount)
	}

	return &SearchOutput{
		Places:         results,
		FromCache:      len(results),
		EstimatedCost:  cost,
		QuotaRemaining: quotaRemaining,
		Stage:          stage,
	}, nil
}

// textFallback 은 쿼터 거부 + 캐시 공백에서 구조화 데이터 없는 텍스트만 돌려준다.
func (s *SearchService) textFallback(ctx context.Context, in SearchInput, intent models.SearchIntent, limit int, cost float64) (*SearchOutput, error) {
	prompt := fmt.Sprintf("Intent: category=%q locality=%q free_text=%q. N=%d.",
		intent.Category, intent.Locality, intent.FreeText, limit)

	text, _, err := s.ai.GenerateText(ctx, prompt, textFallbackInstruction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	c, logErr := s.costs.LogAIRecommend(ctx, in.UserID)
	if logErr != nil {
		logger.ErrorWithFields("failed to log ai_recommend cost", logger.Fields{"error": logErr.Error()})
	}

	return &SearchOutput{
		Places:         []PlaceResult{},
		EstimatedCost:  cost + c,
		QuotaRemaining: 0,
		Stage:          StageTextFallback,
		FallbackText:   text,
	}, nil
}

// textFallbackFromRecs 는 업스트림 강등 시 이미 받아둔 AI 추천으로 텍스트 폴백을 만든다.
func (s *SearchService) textFallbackFromRecs(ctx context.Context, in SearchInput, intent models.SearchIntent, limit int, cost float64, recs []aiRecommendation) (*SearchOutput, error) {
	if len(recs) == 0 {
		return s.textFallback(ctx, in, intent, limit, cost)
	}

	lines := make([]string, 0, len(recs))
	for i, rec := range recs {
		if i >= limit {
			break
		}
		lines = append(lines, fmt.Sprintf("%s — %s", rec.Name, rec.Description))
	}

	return &SearchOutput{
		Places:        []PlaceResult{},
		EstimatedCost: cost,
		Stage:         StageTextFallback,
		FallbackText:  strings.Join(lines, "\n"),
	}, nil
}

// publishSynced 는 이미지 파이프라인 모듈을 위한 동기화 이벤트를 best-effort 로 발행한다.
// known 에 든 external id 는 이미 처리된 장소라 재발행하지 않는다.
func (s *SearchService) publishSynced(saved []*models.Place, known map[string]struct{}) {
	if s.producer == nil {
		return
	}
	for _, p := range saved {
		if p.ExternalID == nil {
			continue
		}
		if _, ok := known[*p.ExternalID]; ok {
			continue
		}
		ev := events.NewPlaceSyncedEvent(p.ID, *p.ExternalID, p.Name, p.CoverImageURL, p.ImageURLs)
		if err := s.producer.PublishEvent(kafka.TopicPlaceEvents, ev); err != nil {
			logger.WarnWithFields("failed to publish place.synced", logger.Fields{
				"external_id": *p.ExternalID, "error": err.Error(),
			})
		}
	}
}

func externalIDsOf(places []*models.Place) []string {
	ids := make([]string, 0, len(places))
	for _, p := range places {
		if p.ExternalID != nil {
			ids = append(ids, *p.ExternalID)
		}
	}
	return ids
}

// mergeSavedIDs 는 업서트로 수렴된 내부 id 를 응답 항목에 반영한다.
func mergeSavedIDs(fresh []*models.Place, saved []*models.Place) []*models.Place {
	if len(saved) == 0 {
		return fresh
	}
	byExternal := make(map[string]*models.Place, len(saved))
	for _, p := range saved {
		if p.ExternalID != nil {
			byExternal[*p.ExternalID] = p
		}
	}
	out := make([]*models.Place, 0, len(fresh))
	for _, p := range fresh {
		if p.ExternalID != nil {
			if converged, ok := byExternal[*p.ExternalID]; ok {
				out = append(out, converged)
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
