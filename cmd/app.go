package cmd

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"hackernews/config"
	"hackernews/control"
	"hackernews/db"
	"hackernews/events"
)

// app 按配置组装的依赖，Close 逆序释放
type app struct {
	store   control.Store
	votes   control.VoteCounter
	events  events.Publisher
	closers []func() error
}

// newApp 任一步失败时释放已打开的资源
func newApp(ctx context.Context, conf *config.GlobalConfig) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err = a.openStore(conf.DbConfig); err != nil {
		return nil, err
	}

	a.votes = control.NewStoreVoteCounter(a.store)
	if conf.RedisConfig.Enabled {
		cli, err := db.NewRedis(ctx, conf.RedisConfig)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cli.Close)
		a.votes = control.NewRedisVoteCounter(cli, a.store, conf.RedisConfig.VoteCountTTL)
		log.Info("vote count cache: redis")
	}

	a.events = events.NopPublisher{}
	if conf.Kafka.Enabled {
		producer, err := events.NewKafkaProducer(conf.Kafka.Brokers, events.NewKafkaConfig(conf.Kafka.ClientID))
		if err != nil {
			return nil, err
		}
		pub := events.NewKafkaPublisher(producer, conf.Kafka.Topic)
		a.closers = append(a.closers, pub.Close)
		a.events = pub
		log.Infof("link events published to kafka topic %s", conf.Kafka.Topic)
	}
	return a, nil
}

func (a *app) openStore(conf config.DbConf) error {
	if conf.Driver == config.DriverMemory {
		a.store = control.NewMemoryStore()
		log.Warn("using in-memory store, data is lost on exit")
		return nil
	}
	gdb, err := db.Open(conf)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { return db.Close(gdb) })
	if err := db.Migrate(gdb); err != nil {
		return errors.Wrap(err, "migrate")
	}
	a.store = control.NewGormStore(gdb)
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("close")
		}
	}
	a.closers = nil
}
