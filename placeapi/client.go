package placeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"place-scout/config"
	"place-scout/httpclient"
)

// FieldMaskBasic 은 배치 텍스트 검색용 최소 필드 마스크다.
// 후보 N(≤5)개를 받아도 호출 1회 비용이 되도록 의도적으로 좁게 유지한다.
const FieldMaskBasic = "places.id,places.displayName,places.location,places.formattedAddress,places.primaryType,places.photos"

// FieldMaskDetails 는 단건 상세 조회용 확장 필드 마스크다.
const FieldMaskDetails = "id,displayName,location,formattedAddress,primaryType,photos,rating,userRatingCount,regularOpeningHours,internationalPhoneNumber,websiteUri,priceLevel"

// PlaceBasic 은 배치 검색이 돌려주는 최소 필드 집합이다.
type PlaceBasic struct {
	ExternalID string
	Name       string
	Lat        float64
	Lng        float64
	Address    string
	Category   string
	PhotoRefs  []string
}

// PlaceDetails 는 상세 조회가 돌려주는 확장 필드 집합이다.
type PlaceDetails struct {
	PlaceBasic
	Rating          *float64
	UserRatingCount *int
	OpeningHours    []string
	Phone           *string
	Website         *string
	PriceLevel      *int
}

type Client struct {
	base     *httpclient.BaseClient
	apiKey   string
	maxBatch int
}

// New 는 설정과 GOOGLE_PLACES_API_KEY 환경변수로 클라이언트를 생성한다.
func New() *Client {
	cfg := config.GetConfig().Places
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := httpclient.New(httpclient.Config{Timeout: timeout})
	return &Client{
		base:     httpclient.NewBaseClientWithClient(hc, cfg.BaseURL),
		apiKey:   os.Getenv("GOOGLE_PLACES_API_KEY"),
		maxBatch: cfg.MaxBatchSize,
	}
}

// wire types (Places API New)

type displayName struct {
	Text string `json:"text"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type photo struct {
	Name string `json:"name"`
}

type openingHours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

type placePayload struct {
	ID                       string        `json:"id"`
	DisplayName              displayName   `json:"displayName"`
	Location                 location      `json:"location"`
	FormattedAddress         string        `json:"formattedAddress"`
	PrimaryType              string        `json:"primaryType"`
	Photos                   []photo       `json:"photos"`
	Rating                   *float64      `json:"rating"`
	UserRatingCount          *int          `json:"userRatingCount"`
	RegularOpeningHours      *openingHours `json:"regularOpeningHours"`
	InternationalPhoneNumber *string       `json:"internationalPhoneNumber"`
	WebsiteURI               *string       `json:"websiteUri"`
	PriceLevel               string        `json:"priceLevel"`
}

type circle struct {
	Center location `json:"center"`
	Radius float64  `json:"radius"`
}

type locationBiasPayload struct {
	Circle circle `json:"circle"`
}

type searchTextRequest struct {
	TextQuery    string               `json:"textQuery"`
	PageSize     int                  `json:"pageSize"`
	LocationBias *locationBiasPayload `json:"locationBias,omitempty"`
}

type searchTextResponse struct {
	Places []placePayload `json:"places"`
}

// LocationBias 는 호출자 위치 기준의 순위 편향이다. 결과를 반경 안으로 제한하지는 않는다.
type LocationBias struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

const defaultBiasRadiusMeters = 5000

// TextSearchBatch 는 단일 네트워크 호출로 최대 maxBatch 개의 후보를 돌려준다.
// 결과가 없으면 빈 슬라이스를 돌려주며 에러가 아니다 (ZERO_RESULTS).
// bias 가 nil 이 아니면 호출자 위치 주변 결과가 우선된다.
func (c *Client) TextSearchBatch(ctx context.Context, query string, fieldMask string, bias *LocationBias) ([]PlaceBasic, error) {
	if fieldMask == "" {
		fieldMask = FieldMaskBasic
	}

	payload := searchTextRequest{TextQuery: query, PageSize: c.maxBatch}
	if bias != nil {
		radius := bias.RadiusMeters
		if radius <= 0 {
			radius = defaultBiasRadiusMeters
		}
		payload.LocationBias = &locationBiasPayload{Circle: circle{
			Center: location{Latitude: bias.Lat, Longitude: bias.Lng},
			Radius: radius,
		}}
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := c.base.NewRequest(ctx, http.MethodPost, "/v1/places:searchText", nil, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var out searchTextResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &APIError{Kind: KindUnknown, StatusCode: resp.StatusCode, Cause: err}
	}

	results := make([]PlaceBasic, 0, len(out.Places))
	for _, p := range out.Places {
		results = append(results, toBasic(p, c.apiKey))
	}
	return results, nil
}

// GetPlaceDetails 는 확장 필드 마스크로 단건 상세를 조회한다.
// 캐시에 없는 필드를 소비자가 실제로 요청할 때에만 호출해야 한다.
func (c *Client) GetPlaceDetails(ctx context.Context, externalID string, fieldMask string) (*PlaceDetails, error) {
	if fieldMask == "" {
		fieldMask = FieldMaskDetails
	}

	req, err := c.base.NewRequest(ctx, http.MethodGet, "/v1/places/"+url.PathEscape(externalID), nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var p placePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &APIError{Kind: KindUnknown, StatusCode: resp.StatusCode, Cause: err}
	}

	details := &PlaceDetails{
		PlaceBasic:      toBasic(p, c.apiKey),
		Rating:          p.Rating,
		UserRatingCount: p.UserRatingCount,
		Phone:           p.InternationalPhoneNumber,
		Website:         p.WebsiteURI,
		PriceLevel:      priceLevelToInt(p.PriceLevel),
	}
	if p.RegularOpeningHours != nil {
		details.OpeningHours = p.RegularOpeningHours.WeekdayDescriptions
	}
	return details, nil
}

func toBasic(p placePayload, apiKey string) PlaceBasic {
	refs := make([]string, 0, len(p.Photos))
	for _, ph := range p.Photos {
		if ph.Name != "" {
			refs = append(refs, photoMediaURL(ph.Name, apiKey))
		}
	}
	return PlaceBasic{
		ExternalID: p.ID,
		Name:       p.DisplayName.Text,
		Lat:        p.Location.Latitude,
		Lng:        p.Location.Longitude,
		Address:    p.FormattedAddress,
		Category:   p.PrimaryType,
		PhotoRefs:  refs,
	}
}

// photoMediaURL 은 photo resource name 을 바로 접근 가능한 media URL 로 바꾼다.
// 영속 저장은 이미지 모듈 소관이고, 여기서는 원본 참조만 만들어준다.
func photoMediaURL(name, apiKey string) string {
	return fmt.Sprintf("https://places.googleapis.com/v1/%s/media?maxWidthPx=800&key=%s", name, apiKey)
}

func priceLevelToInt(level string) *int {
	var v int
	switch level {
	case "PRICE_LEVEL_FREE":
		v = 0
	case "PRICE_LEVEL_INEXPENSIVE":
		v = 1
	case "PRICE_LEVEL_MODERATE":
		v = 2
	case "PRICE_LEVEL_EXPENSIVE":
		v = 3
	case "PRICE_LEVEL_VERY_EXPENSIVE":
		v = 4
	default:
		return nil
	}
	return &v
}

func classifyStatus(status int, body []byte) *APIError {
	kind := KindUnknown
	switch status {
	case http.StatusTooManyRequests:
		kind = KindOverQueryLimit
	case http.StatusBadRequest:
		kind = KindInvalidRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindRequestDenied
	case http.StatusGatewayTimeout:
		kind = KindTimeout
	}
	const maxBody = 512
	b := string(body)
	if len(b) > maxBody {
		b = b[:maxBody]
	}
	return &APIError{Kind: kind, StatusCode: status, Body: b}
}

func classifyTransport(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindTimeout, Cause: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{Kind: KindTimeout, Cause: err}
	}
	return &APIError{Kind: KindUnknown, Cause: err}
}
