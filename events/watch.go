package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Watch 从 topic 所有分区的最新位置开始消费，每个事件回调一次 fn，直到 ctx 结束
func Watch(ctx context.Context, consumer sarama.Consumer, topic string, fn func(Event)) error {
	partitions, err := consumer.Partitions(topic)
	if err != nil {
		return errors.Wrapf(err, "list partitions of %s", topic)
	}

	var wg sync.WaitGroup
	pcs := make([]sarama.PartitionConsumer, 0, len(partitions))
	for _, partition := range partitions {
		pc, err := consumer.ConsumePartition(topic, partition, sarama.OffsetNewest)
		if err != nil {
			for _, started := range pcs {
				started.AsyncClose()
			}
			return errors.Wrapf(err, "consume %s/%d", topic, partition)
		}
		pcs = append(pcs, pc)

		wg.Add(2)
		go func(pc sarama.PartitionConsumer) {
			defer wg.Done()
			for msg := range pc.Messages() {
				var e Event
				if err := json.Unmarshal(msg.Value, &e); err != nil {
					log.WithError(err).Warnf("skip undecodable message at %s/%d@%d", msg.Topic, msg.Partition, msg.Offset)
					continue
				}
				fn(e)
			}
		}(pc)
		go func(pc sarama.PartitionConsumer) {
			defer wg.Done()
			for err := range pc.Errors() {
				log.WithError(err).Warn("consumer error")
			}
		}(pc)
	}

	<-ctx.Done()
	for _, pc := range pcs {
		pc.AsyncClose()
	}
	wg.Wait()
	return nil
}
