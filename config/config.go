package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging     LoggingConfig `yaml:"logging"`
	MongoURI    string        `yaml:"mongo_uri"`
	MongoDBName string        `yaml:"mongo_db_name"`
	Places      PlacesConfig  `yaml:"places"`
	AI          AIConfig      `yaml:"ai"`
	Quota       QuotaConfig   `yaml:"quota"`
	Costs       CostConfig    `yaml:"costs"`
	Image       ImageConfig   `yaml:"image"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PlacesConfig 는 Google Places API (New) 호출 관련 설정이다.
// API 키는 환경변수 GOOGLE_PLACES_API_KEY 로만 주입한다.
type PlacesConfig struct {
	BaseURL string `yaml:"base_url"`

	// MaxBatchSize 는 텍스트 검색 1회가 돌려받는 후보 수 상한이다.
	// 과금 단위가 "호출 1회"이므로 이 값 이하의 후보는 항상 동일 비용이다.
	MaxBatchSize int `yaml:"max_batch_size"`

	// IntentFreshMinutes 동안은 같은 의도의 반복 질의를 캐시 전용으로 처리한다.
	// 캐시 결과가 limit 보다 적어도 업스트림을 다시 부르지 않는다.
	IntentFreshMinutes int `yaml:"intent_fresh_minutes"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// AIConfig 는 AI 프로바이더 풀과 폴백 동작을 정의한다.
type AIConfig struct {
	// ProviderOrder 는 우선순위 순서의 프로바이더 이름 목록이다.
	// 알 수 없는 이름은 설정 로드 시점에 에러로 거부한다.
	ProviderOrder []string                    `yaml:"provider_order"`
	Providers     map[string]ProviderSettings `yaml:"providers"`

	// MaxAttempts 는 동일 프로바이더에 대한 시도 한도(첫 시도 포함)이다.
	MaxAttempts   int `yaml:"max_attempts"`
	BackoffBaseMs int `yaml:"backoff_base_ms"`

	// IntentWordThreshold 를 초과하는 단어 수의 질의만 AI 인텐트 정제를 거친다.
	IntentWordThreshold int `yaml:"intent_word_threshold"`
}

type ProviderSettings struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// QuotaConfig 는 티어별 일일 한도이다. 값이 0 이하면 해당 동작을 허용하지 않는다.
type QuotaConfig struct {
	DeepSearchTiers map[string]int `yaml:"deep_search_tiers"`
	DetailViewTiers map[string]int `yaml:"detail_view_tiers"`

	// AnonymousTier 는 userId 없는 호출자에게 적용할 티어 이름이다.
	AnonymousTier string `yaml:"anonymous_tier"`
}

// CostConfig 는 과금 엔드포인트별 추정 단가(USD)이다.
type CostConfig struct {
	TextSearch   float64 `yaml:"text_search"`
	PlaceDetails float64 `yaml:"place_details"`
	AIIntent     float64 `yaml:"ai_intent"`
	AIRecommend  float64 `yaml:"ai_recommend"`
}

type ImageConfig struct {
	CheckTimeoutSeconds int `yaml:"check_timeout_seconds"`
	MinWidth            int `yaml:"min_width"`
	MinHeight           int `yaml:"min_height"`
}

var knownProviders = map[string]struct{}{
	"gemini": {},
	"openai": {},
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}
	if err := validate(&c); err != nil {
		panic(err)
	}
	config = &c
}

// validate 는 요청 시점이 아니라 로드 시점에 잘못된 설정을 거부한다.
func validate(c *AppConfig) error {
	for _, name := range c.AI.ProviderOrder {
		if _, ok := knownProviders[name]; !ok {
			return fmt.Errorf("config: unknown ai provider %q in provider_order", name)
		}
		if _, ok := c.AI.Providers[name]; !ok {
			return fmt.Errorf("config: provider %q listed in provider_order but has no settings", name)
		}
	}
	if c.Places.MaxBatchSize <= 0 || c.Places.MaxBatchSize > 5 {
		return fmt.Errorf("config: places.max_batch_size must be in 1..5, got %d", c.Places.MaxBatchSize)
	}
	if c.Quota.AnonymousTier == "" {
		return fmt.Errorf("config: quota.anonymous_tier is required")
	}
	if _, ok := c.Quota.DeepSearchTiers[c.Quota.AnonymousTier]; !ok {
		return fmt.Errorf("config: quota.anonymous_tier %q has no deep_search limit", c.Quota.AnonymousTier)
	}
	return nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
