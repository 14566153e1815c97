package kafka

import (
	"os"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Config Kafka 설정 구조체
type Config struct {
	BootstrapServers string
}

// Producer 기본값 상수 정의
const (
	DefaultProducerAcks      = "all"
	DefaultProducerRetries   = 3
	DefaultProducerBatchSize = 16384
	DefaultProducerLingerMs  = 10
)

// NewConfigFromEnv 는 환경변수에서 Kafka 설정을 생성한다.
// KAFKA_BOOTSTRAP_SERVERS 가 비어 있으면 nil 을 반환하고,
// 호출자는 이벤트 발행 없이 동작해야 한다 (이벤트는 best-effort 부가 기능).
func NewConfigFromEnv() *Config {
	bootstrapServers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if bootstrapServers == "" {
		return nil
	}
	return &Config{BootstrapServers: bootstrapServers}
}

// ProducerConfig Producer 설정을 반환
func (c *Config) ProducerConfig() kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": c.BootstrapServers,
		"acks":              DefaultProducerAcks,
		"retries":           DefaultProducerRetries,
		"batch.size":        DefaultProducerBatchSize,
		"linger.ms":         DefaultProducerLingerMs,
	}
}
