package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topic = "hackernews.links"

func TestKafkaPublisher(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewKafkaConfig("test"))
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e Event
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		assert.Equal(t, LinkCreated, e.Type)
		assert.Equal(t, uint(5), e.LinkID)
		assert.Equal(t, uint(1), e.UserID)
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisher(sp, topic)
	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, Event{Type: LinkCreated, LinkID: 5, UserID: 1, At: time.Now()}))

	err := p.Publish(ctx, Event{Type: LinkDeleted, LinkID: 5, UserID: 1, At: time.Now()})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, p.Close())
}

func TestKafkaPublisherCanceled(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewKafkaConfig("test"))
	p := NewKafkaPublisher(sp, topic)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Event{Type: VoteCreated, LinkID: 1}), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: LinkUpdated}))
	assert.NoError(t, p.Close())
}

func TestWatch(t *testing.T) {
	consumer := mocks.NewConsumer(t, NewKafkaConfig("test"))
	consumer.SetTopicMetadata(map[string][]int32{topic: {0, 1}})
	pc0 := consumer.ExpectConsumePartition(topic, 0, sarama.OffsetNewest)
	pc1 := consumer.ExpectConsumePartition(topic, 1, sarama.OffsetNewest)

	body, err := json.Marshal(Event{Type: VoteCreated, LinkID: 3, UserID: 2})
	require.NoError(t, err)
	pc0.YieldMessage(&sarama.ConsumerMessage{Value: []byte("not json")})
	pc1.YieldMessage(&sarama.ConsumerMessage{Value: body})

	got := make(chan Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, consumer, topic, func(e Event) { got <- e }) }()

	select {
	case e := <-got:
		assert.Equal(t, VoteCreated, e.Type)
		assert.Equal(t, uint(3), e.LinkID)
		assert.Equal(t, uint(2), e.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchUnknownTopic(t *testing.T) {
	consumer := mocks.NewConsumer(t, NewKafkaConfig("test"))
	consumer.SetTopicMetadata(map[string][]int32{})
	err := Watch(context.Background(), consumer, "missing", func(Event) {})
	assert.Error(t, err)
}
