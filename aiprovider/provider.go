package aiprovider

import "context"

// PlaceIdentification 은 이미지에서 장소를 식별한 결과다.
type PlaceIdentification struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Locality   string  `json:"locality"`
	Confidence float64 `json:"confidence"`
}

// Provider 는 모든 AI 백엔드가 공유하는 평평한 능력 인터페이스다.
// 백엔드별 차이는 구현 내부에 두고, 상속 계층 대신 설정값(ProviderSettings)으로 구성한다.
type Provider interface {
	// Name 은 설정의 provider_order 에 쓰이는 이름이다.
	Name() string

	// Available 은 필수 설정(자격 증명, 엔드포인트)이 모두 갖춰진 경우에만 true 다.
	Available() bool

	// IdentifyPlace 는 이미지 참조에서 장소를 식별한다.
	IdentifyPlace(ctx context.Context, imageURL string) (*PlaceIdentification, error)

	// GenerateText 는 프롬프트에 대한 텍스트 응답을 생성한다. systemPrompt 는 비어 있을 수 있다.
	GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error)
}
