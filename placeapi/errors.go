package placeapi

import (
	"errors"
	"fmt"
)

// Kind 는 업스트림 응답을 호출자가 분기 가능한 형태로 분류한 것이다.
// "한도 초과 → 캐시 전용 폴백" 같은 흐름을 잡아둔 예외가 아니라
// 타입 있는 분기로 다루기 위해 에러에 Kind 를 싣는다.
type Kind string

const (
	// KindOverQueryLimit: 업스트림 쿼터/레이트 초과. 재시도하지 말고 캐시 전용으로 폴백한다.
	KindOverQueryLimit Kind = "over_query_limit"
	// KindInvalidRequest: 요청 자체가 잘못됨. 사용자에게 클라이언트 에러로 전파한다.
	KindInvalidRequest Kind = "invalid_request"
	// KindRequestDenied: 인증/권한 문제. 사용자에게 클라이언트 에러로 전파한다.
	KindRequestDenied Kind = "request_denied"
	// KindTimeout: 네트워크 타임아웃. 호출자가 1회 재시도 여부를 결정한다.
	KindTimeout Kind = "timeout"
	// KindUnknown: 그 외 업스트림 실패.
	KindUnknown Kind = "unknown"
)

// APIError 는 Places 업스트림 호출 실패를 나타낸다.
type APIError struct {
	Kind       Kind
	StatusCode int
	Body       string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("placeapi: %s (status=%d): %v", e.Kind, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("placeapi: %s (status=%d): %s", e.Kind, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Cause }

// Retryable 은 호출자가 같은 요청을 1회 더 시도해볼 수 있는지 여부다.
func (e *APIError) Retryable() bool { return e.Kind == KindTimeout }

// KindOf 는 에러에서 분류를 꺼낸다. APIError 가 아니면 KindUnknown 이다.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsOverQueryLimit 은 캐시 전용 폴백 분기를 위한 헬퍼다.
func IsOverQueryLimit(err error) bool { return KindOf(err) == KindOverQueryLimit }

// IsUserFacing 은 사용자에게 그대로 전파해야 하는 클라이언트 에러인지 여부다.
func IsUserFacing(err error) bool {
	k := KindOf(err)
	return k == KindInvalidRequest || k == KindRequestDenied
}
