package aiprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Class 는 프로바이더 실패를 전송 상태 기준으로 균일하게 분류한 것이다.
type Class string

const (
	// ClassThrottled: 레이트 리밋(429). 백오프 후 같은 프로바이더 재시도.
	ClassThrottled Class = "throttled"
	// ClassTransient: 일시 장애(5xx, 타임아웃). 백오프 후 재시도.
	ClassTransient Class = "transient"
	// ClassCredential: 인증/권한 실패(401/403). 재시도 없이 다음 프로바이더로.
	ClassCredential Class = "credential"
	// ClassRequest: 요청 자체의 문제(400/404). 재시도 없이 다음 프로바이더로.
	ClassRequest Class = "request"
	// ClassProtocol: 응답이 기대 스키마로 파싱되지 않음. 재시도 없이 다음 프로바이더로.
	ClassProtocol Class = "protocol"
)

// Retryable 은 동일 프로바이더에 대한 재시도가 의미 있는 분류인지 여부다.
func (c Class) Retryable() bool {
	return c == ClassThrottled || c == ClassTransient
}

// ProviderError 는 단일 프로바이더 호출 실패를 나타낸다.
type ProviderError struct {
	Provider string
	Status   int
	Class    Class
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("aiprovider: %s failed (class=%s status=%d): %v", e.Provider, e.Class, e.Status, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// ClassifyStatus 는 HTTP 상태 코드를 프로바이더 공통 분류로 매핑한다.
func ClassifyStatus(status int) Class {
	switch {
	case status == http.StatusTooManyRequests:
		return ClassThrottled
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ClassCredential
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return ClassRequest
	case status >= 500:
		return ClassTransient
	default:
		return ClassRequest
	}
}

// classify 는 임의 에러를 ProviderError 로 정규화한다.
func classify(provider string, err error) *ProviderError {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Class: ClassTransient, Cause: err}
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return &ProviderError{Provider: provider, Class: ClassTransient, Cause: err}
	}
	// 분류 불가능한 실패는 일시 장애로 본다.
	return &ProviderError{Provider: provider, Class: ClassTransient, Cause: err}
}

// ErrAllProvidersExhausted 는 설정된 모든 프로바이더가 실패/소진된 경우다.
var ErrAllProvidersExhausted = errors.New("aiprovider: all providers exhausted")
