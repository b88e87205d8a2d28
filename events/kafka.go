package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// NewKafkaConfig 同步生产者需要 Return.Successes
func NewKafkaConfig(clientID string) *sarama.Config {
	conf := sarama.NewConfig()
	conf.ClientID = clientID
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Return.Successes = true
	conf.Producer.Retry.Max = 3
	conf.Consumer.Return.Errors = true
	return conf
}

// KafkaPublisher 将事件写入一个 topic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducer 初始化 Kafka 同步生产者
func NewKafkaProducer(brokers []string, conf *sarama.Config) (sarama.SyncProducer, error) {
	p, err := sarama.NewSyncProducer(brokers, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to kafka %v", brokers)
	}
	return p, nil
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish 同一链接的事件使用相同 key，保证落在同一分区内有序
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(e.LinkID), 10)),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return errors.Wrapf(err, "send %s event", e.Type)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
