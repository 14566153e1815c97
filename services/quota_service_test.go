package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-scout/config"
	"place-scout/models"
)

type stubQuotaStore struct {
	deepSearch int
	detailView int
}

func (s *stubQuotaStore) GetOrCreateToday(ctx context.Context, userID string) (*models.UserQuota, error) {
	return &models.UserQuota{
		UserID:          userID,
		Date:            models.QuotaDateKey(time.Now()),
		DeepSearchCount: s.deepSearch,
		DetailViewCount: s.detailView,
	}, nil
}

func (s *stubQuotaStore) IncrementDeepSearch(ctx context.Context, userID string) (*models.UserQuota, error) {
	s.deepSearch++
	return s.GetOrCreateToday(ctx, userID)
}

func (s *stubQuotaStore) IncrementDetailView(ctx context.Context, userID string) (*models.UserQuota, error) {
	s.detailView++
	return s.GetOrCreateToday(ctx, userID)
}

func quotaTestConfig() config.QuotaConfig {
	return config.QuotaConfig{
		AnonymousTier:   "anonymous",
		DeepSearchTiers: map[string]int{"anonymous": 3, "free": 3, "plus": 10},
		DetailViewTiers: map[string]int{"anonymous": 5, "free": 10, "plus": 30},
	}
}

func TestDeepSearchLimitUnknownTierFallsBackToAnonymous(t *testing.T) {
	svc := newQuotaServiceWithStore(&stubQuotaStore{}, quotaTestConfig())

	assert.Equal(t, 10, svc.DeepSearchLimit("plus"))
	assert.Equal(t, 3, svc.DeepSearchLimit("made-up-tier"))
	assert.Equal(t, 3, svc.DeepSearchLimit(""))
}

func TestCanSearchHonorsTierLimit(t *testing.T) {
	store := &stubQuotaStore{deepSearch: 2}
	svc := newQuotaServiceWithStore(store, quotaTestConfig())

	can, err := svc.CanSearch(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.True(t, can)

	store.deepSearch = 3
	can, err = svc.CanSearch(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.False(t, can)

	// plus 티어는 같은 사용량에서도 여유가 있다.
	can, err = svc.CanSearch(context.Background(), "u1", "plus")
	require.NoError(t, err)
	assert.True(t, can)
}

func TestConsumeDeepSearchIncrements(t *testing.T) {
	store := &stubQuotaStore{}
	svc := newQuotaServiceWithStore(store, quotaTestConfig())

	q, err := svc.ConsumeDeepSearch(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, q.DeepSearchCount)

	q, err = svc.ConsumeDeepSearch(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, q.DeepSearchCount)
}

func TestRemainingDeepSearchClampsToZero(t *testing.T) {
	// 동시 요청으로 한도를 일시 초과해도 남은 횟수는 음수가 되지 않는다.
	store := &stubQuotaStore{deepSearch: 5}
	svc := newQuotaServiceWithStore(store, quotaTestConfig())

	left, err := svc.RemainingDeepSearch(context.Background(), "u1", "free")
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestQuotaStatusReportsResetTime(t *testing.T) {
	store := &stubQuotaStore{deepSearch: 1}
	svc := newQuotaServiceWithStore(store, quotaTestConfig())

	status, err := svc.Status(context.Background(), "u1", "free")
	require.NoError(t, err)

	assert.Equal(t, 3, status.Limit)
	assert.Equal(t, 1, status.Used)
	assert.Equal(t, 2, status.Remaining)
	assert.True(t, status.ResetsAt.After(time.Now().UTC()))
	assert.Equal(t, time.UTC, status.ResetsAt.Location())
}

func TestNextUTCMidnight(t *testing.T) {
	at := time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), NextUTCMidnight(at))

	// 로컬 시간대 입력도 UTC 자정 기준으로 계산된다.
	loc := time.FixedZone("UTC+9", 9*3600)
	at = time.Date(2026, 8, 31, 3, 0, 0, 0, loc) // 2026-08-30 18:00 UTC
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), NextUTCMidnight(at))
}
