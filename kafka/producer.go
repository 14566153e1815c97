package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"place-scout/logger"
)

// Producer Kafka 프로듀서 인터페이스
type Producer interface {
	PublishEvent(topic string, event interface{}) error
	Close() error
}

// kafkaProducer confluent-kafka-go 기반 구현
type kafkaProducer struct {
	producer *kafka.Producer
}

// NewProducer 는 설정으로 프로듀서를 생성한다. cfg 가 nil 이면 noop 프로듀서를 돌려준다.
func NewProducer(cfg *Config) (Producer, error) {
	if cfg == nil {
		logger.Log.Warn("kafka not configured, place sync events will not be published")
		return NoopProducer{}, nil
	}

	cm := cfg.ProducerConfig()
	p, err := kafka.NewProducer(&cm)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	// delivery report 드레인: 실패만 로깅한다.
	go func() {
		for e := range p.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				logger.ErrorWithFields("kafka delivery failed", logger.Fields{
					"topic": *m.TopicPartition.Topic,
					"error": m.TopicPartition.Error.Error(),
				})
			}
		}
	}()

	return &kafkaProducer{producer: p}, nil
}

func (p *kafkaProducer) PublishEvent(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          payload,
	}, nil)
}

func (p *kafkaProducer) Close() error {
	p.producer.Flush(5000)
	p.producer.Close()
	return nil
}

// NoopProducer 는 Kafka 미구성 환경에서 이벤트 발행을 조용히 생략한다.
type NoopProducer struct{}

func (NoopProducer) PublishEvent(topic string, event interface{}) error { return nil }
func (NoopProducer) Close() error                                       { return nil }
