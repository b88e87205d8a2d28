package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hackernews/events"
)

// WatchCmd 打印链接事件，用于排查
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print link events from kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(Cfg.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required")
		}
		consumer, err := sarama.NewConsumer(Cfg.Kafka.Brokers, events.NewKafkaConfig(Cfg.Kafka.ClientID+"-watch"))
		if err != nil {
			return errors.Wrapf(err, "connect to kafka %v", Cfg.Kafka.Brokers)
		}
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return events.Watch(ctx, consumer, Cfg.Kafka.Topic, func(e events.Event) {
			log.WithFields(log.Fields{
				"type": e.Type,
				"link": e.LinkID,
				"user": e.UserID,
				"at":   e.At,
			}).Info("event")
		})
	},
}

func init() {
	RootCmd.AddCommand(WatchCmd)
}
