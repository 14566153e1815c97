package aiprovider

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"place-scout/config"
	"place-scout/logger"
)

// Pool 은 우선순위 순서의 프로바이더 목록을 순회하며 폴백을 수행한다.
// 상태 기계:
//
//	SELECT_PROVIDER → CALL → SUCCESS
//	                       ↘ RETRYABLE → backoff → CALL (attempt < maxAttempts)
//	                       ↘ CAP_EXHAUSTED | NON_RETRYABLE → SELECT_NEXT
//	... → ALL_EXHAUSTED → FAIL
//
// 비용 귀속을 모호하게 만들지 않기 위해 한 논리 요청에서 프로바이더를
// 병렬로 호출하지 않는다.
type Pool struct {
	providers   []Provider
	maxAttempts int
	backoffBase time.Duration
}

// NewPoolFromConfig 는 provider_order 순서대로 프로바이더를 구성한다.
// 알 수 없는 이름은 여기서 거부한다 (요청 시점에 조용히 건너뛰지 않는다).
func NewPoolFromConfig(cfg config.AIConfig) (*Pool, error) {
	providers := make([]Provider, 0, len(cfg.ProviderOrder))
	for _, name := range cfg.ProviderOrder {
		settings := cfg.Providers[name]
		switch name {
		case "gemini":
			providers = append(providers, NewGeminiProvider(settings))
		case "openai":
			providers = append(providers, NewOpenAIProvider(settings))
		default:
			return nil, fmt.Errorf("aiprovider: unknown provider %q", name)
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoffBase := time.Duration(cfg.BackoffBaseMs) * time.Millisecond
	if backoffBase <= 0 {
		backoffBase = 400 * time.Millisecond
	}

	return &Pool{
		providers:   providers,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}, nil
}

// NewPool 은 테스트 등에서 이미 만들어진 프로바이더로 풀을 구성한다.
func NewPool(providers []Provider, maxAttempts int, backoffBase time.Duration) *Pool {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Millisecond
	}
	return &Pool{providers: providers, maxAttempts: maxAttempts, backoffBase: backoffBase}
}

// GenerateText 는 폴백을 적용해 텍스트를 생성하고, 성공한 프로바이더 이름을 함께 돌려준다.
func (p *Pool) GenerateText(ctx context.Context, prompt, systemPrompt string) (string, string, error) {
	var result string
	name, err := p.execute(ctx, func(prov Provider) error {
		out, callErr := prov.GenerateText(ctx, prompt, systemPrompt)
		if callErr != nil {
			return callErr
		}
		result = out
		return nil
	})
	return result, name, err
}

// IdentifyPlace 는 폴백을 적용해 이미지에서 장소를 식별한다.
func (p *Pool) IdentifyPlace(ctx context.Context, imageURL string) (*PlaceIdentification, string, error) {
	var result *PlaceIdentification
	name, err := p.execute(ctx, func(prov Provider) error {
		out, callErr := prov.IdentifyPlace(ctx, imageURL)
		if callErr != nil {
			return callErr
		}
		result = out
		return nil
	})
	return result, name, err
}

// execute 는 프로바이더를 순서대로 시도하고 성공한 프로바이더 이름을 돌려준다.
func (p *Pool) execute(ctx context.Context, call func(Provider) error) (string, error) {
	var lastErr error

	for _, prov := range p.providers {
		if !prov.Available() {
			logger.DebugWithFields("ai provider skipped (not configured)", logger.Fields{
				"provider": prov.Name(),
			})
			continue
		}

		for attempt := 1; attempt <= p.maxAttempts; attempt++ {
			err := call(prov)
			if err == nil {
				return prov.Name(), nil
			}

			provErr := classify(prov.Name(), err)
			lastErr = provErr

			if !provErr.Class.Retryable() {
				// credential/request/protocol 은 즉시 다음 프로바이더로 넘어간다.
				// 운영자 가시성을 위해 남겨둔다.
				logger.ErrorWithFields("ai provider failed (non-retryable)", logger.Fields{
					"provider": prov.Name(),
					"class":    string(provErr.Class),
					"status":   provErr.Status,
					"error":    provErr.Error(),
				})
				break
			}

			logger.WarnWithFields("ai provider failed (retryable)", logger.Fields{
				"provider": prov.Name(),
				"class":    string(provErr.Class),
				"attempt":  attempt,
				"error":    provErr.Error(),
			})

			if attempt == p.maxAttempts {
				break
			}
			if err := p.sleep(ctx, attempt); err != nil {
				return "", err
			}
		}
	}

	if lastErr == nil {
		return "", fmt.Errorf("%w: no provider available", ErrAllProvidersExhausted)
	}
	return "", fmt.Errorf("%w: %v", ErrAllProvidersExhausted, lastErr)
}

// sleep 은 지수 백오프에 지터를 더해 대기한다.
func (p *Pool) sleep(ctx context.Context, attempt int) error {
	backoff := p.backoffBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(p.backoffBase)))
	select {
	case <-time.After(backoff + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
