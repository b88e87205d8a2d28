package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// SetupLogger 按配置设置 logrus 的级别与输出格式
func SetupLogger(conf LogConf) error {
	if err := SetLogLevel(conf.Level); err != nil {
		return err
	}
	switch conf.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return errors.Errorf("unknown log.format %q", conf.Format)
	}
	return nil
}

// SetLogLevel 配置热更新时只调整日志级别
func SetLogLevel(level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "parse log.level")
	}
	log.SetLevel(lvl)
	return nil
}
