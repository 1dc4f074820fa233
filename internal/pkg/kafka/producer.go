package kafka

import (
	"Inkstone/internal/api/config"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// Producer 帖子事件生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(cfg *config.Config) (*Producer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	p, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: p,
		topic:    cfg.KafkaPostConsumer.Topic,
	}, nil
}

// PublishPostEvent 发送帖子变更事件，按帖子 ID 分区保证单帖有序
func (s *Producer) PublishPostEvent(event *PostEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	partition, offset, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.PostID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return err
	}

	log.Info("post event published",
		"type", event.Type,
		"post_id", event.PostID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

func (s *Producer) Close() error {
	return s.producer.Close()
}
