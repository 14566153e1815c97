package placeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-scout/httpclient"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		base:     httpclient.NewBaseClientWithClient(srv.Client(), srv.URL),
		apiKey:   "test-key",
		maxBatch: 5,
	}
}

const sampleSearchBody = `{
	"places": [
		{
			"id": "ext-1",
			"displayName": {"text": "Design Museum"},
			"location": {"latitude": 55.684, "longitude": 12.586},
			"formattedAddress": "Bredgade 68, Copenhagen",
			"primaryType": "museum",
			"photos": [{"name": "places/ext-1/photos/abc"}]
		},
		{
			"id": "ext-2",
			"displayName": {"text": "Architecture Center"},
			"location": {"latitude": 55.668, "longitude": 12.580},
			"formattedAddress": "Bryghuspladsen 10, Copenhagen",
			"primaryType": "museum",
			"photos": []
		}
	]
}`

func TestTextSearchBatchParsesCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, FieldMaskBasic, r.Header.Get("X-Goog-FieldMask"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleSearchBody))
	}))
	defer srv.Close()

	places, err := testClient(srv).TextSearchBatch(context.Background(), "design museum copenhagen", "", nil)
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, "ext-1", places[0].ExternalID)
	assert.Equal(t, "Design Museum", places[0].Name)
	assert.InDelta(t, 55.684, places[0].Lat, 1e-9)
	require.Len(t, places[0].PhotoRefs, 1)
	assert.Contains(t, places[0].PhotoRefs[0], "places/ext-1/photos/abc")
	assert.Empty(t, places[1].PhotoRefs)
}

func TestTextSearchBatchSendsLocationBias(t *testing.T) {
	var body searchTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	bias := &LocationBias{Lat: 55.676, Lng: 12.568}
	_, err := testClient(srv).TextSearchBatch(context.Background(), "design museum", "", bias)
	require.NoError(t, err)

	require.NotNil(t, body.LocationBias)
	assert.InDelta(t, 55.676, body.LocationBias.Circle.Center.Latitude, 1e-9)
	assert.InDelta(t, 12.568, body.LocationBias.Circle.Center.Longitude, 1e-9)
	assert.InDelta(t, float64(defaultBiasRadiusMeters), body.LocationBias.Circle.Radius, 1e-9)
}

func TestTextSearchBatchOmitsLocationBiasWhenAbsent(t *testing.T) {
	var body searchTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).TextSearchBatch(context.Background(), "design museum", "", nil)
	require.NoError(t, err)
	assert.Nil(t, body.LocationBias)
}

func TestTextSearchBatchZeroResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	places, err := testClient(srv).TextSearchBatch(context.Background(), "xyzzy", "", nil)
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestTextSearchBatchClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{http.StatusTooManyRequests, KindOverQueryLimit},
		{http.StatusBadRequest, KindInvalidRequest},
		{http.StatusUnauthorized, KindRequestDenied},
		{http.StatusForbidden, KindRequestDenied},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusInternalServerError, KindUnknown},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":"upstream says no"}`))
		}))

		_, err := testClient(srv).TextSearchBatch(context.Background(), "q", "", nil)
		srv.Close()

		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.kind, KindOf(err), "status %d", tc.status)
	}
}

func TestTextSearchBatchTimeoutClassifiedAsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(srv).TextSearchBatch(ctx, "q", "", nil)
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Retryable())
}

func TestGetPlaceDetailsParsesExtendedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/places/ext-1", r.URL.Path)
		assert.Equal(t, FieldMaskDetails, r.Header.Get("X-Goog-FieldMask"))
		w.Write([]byte(`{
			"id": "ext-1",
			"displayName": {"text": "Design Museum"},
			"location": {"latitude": 55.684, "longitude": 12.586},
			"formattedAddress": "Bredgade 68, Copenhagen",
			"primaryType": "museum",
			"rating": 4.5,
			"userRatingCount": 1234,
			"regularOpeningHours": {"weekdayDescriptions": ["Monday: Closed", "Tuesday: 10-18"]},
			"internationalPhoneNumber": "+45 3318 5656",
			"websiteUri": "https://designmuseum.dk",
			"priceLevel": "PRICE_LEVEL_MODERATE"
		}`))
	}))
	defer srv.Close()

	details, err := testClient(srv).GetPlaceDetails(context.Background(), "ext-1", "")
	require.NoError(t, err)

	require.NotNil(t, details.Rating)
	assert.InDelta(t, 4.5, *details.Rating, 1e-9)
	require.NotNil(t, details.UserRatingCount)
	assert.Equal(t, 1234, *details.UserRatingCount)
	assert.Len(t, details.OpeningHours, 2)
	require.NotNil(t, details.Phone)
	assert.Equal(t, "+45 3318 5656", *details.Phone)
	require.NotNil(t, details.PriceLevel)
	assert.Equal(t, 2, *details.PriceLevel)
}

func TestGetPlaceDetailsUnknownPriceLevelIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "ext-1", "displayName": {"text": "Design Museum"}}`))
	}))
	defer srv.Close()

	details, err := testClient(srv).GetPlaceDetails(context.Background(), "ext-1", "")
	require.NoError(t, err)
	assert.Nil(t, details.PriceLevel)
}

func TestAPIErrorRetryable(t *testing.T) {
	assert.True(t, (&APIError{Kind: KindTimeout}).Retryable())
	assert.False(t, (&APIError{Kind: KindOverQueryLimit}).Retryable())
	assert.False(t, (&APIError{Kind: KindInvalidRequest}).Retryable())
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, IsUserFacing(&APIError{Kind: KindInvalidRequest}))
	assert.True(t, IsUserFacing(&APIError{Kind: KindRequestDenied}))
	assert.False(t, IsUserFacing(&APIError{Kind: KindOverQueryLimit}))
	assert.False(t, IsUserFacing(&APIError{Kind: KindTimeout}))
	assert.False(t, IsUserFacing(nil))
}
