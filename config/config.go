package config

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	envPrefix        = "HACKERNEWS"
	debounceDuration = 1 * time.Second // 配置更新防抖动
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type GlobalConfig struct {
	Server      ServerConf `yaml:"server" mapstructure:"server"`
	DbConfig    DbConf     `yaml:"database" mapstructure:"database"` // 数据库配置
	RedisConfig RedisConf  `yaml:"redis" mapstructure:"redis"`       // redis 配置
	Auth        AuthConf   `yaml:"auth" mapstructure:"auth"`
	Kafka       KafkaConf  `yaml:"kafka" mapstructure:"kafka"`
	Log         LogConf    `yaml:"log" mapstructure:"log"`
}

type ServerConf struct {
	Port     int  `yaml:"port" mapstructure:"port"`
	GraphiQL bool `yaml:"graphiql" mapstructure:"graphiql"`
	Pretty   bool `yaml:"pretty" mapstructure:"pretty"` // 返回格式化的 JSON
	// pprof 监听地址，为空时不启动
	PprofAddr string `yaml:"pprof_addr" mapstructure:"pprof_addr"`
}

type DbConf struct {
	Driver        string        `yaml:"driver" mapstructure:"driver"`                 // sqlite | mysql | memory
	Path          string        `yaml:"path" mapstructure:"path"`                     // sqlite 文件
	Host          string        `yaml:"host" mapstructure:"host"`                     // 主机地址
	Port          string        `yaml:"port" mapstructure:"port"`                     // 端口号
	User          string        `yaml:"user" mapstructure:"user"`                     // 用户名
	Password      string        `yaml:"password" mapstructure:"password"`             // 密码
	Dbname        string        `yaml:"dbname" mapstructure:"dbname"`                 // 数据库名
	MaxIdleConn   int           `yaml:"max_idle_conn" mapstructure:"max_idle_conn"`   // 最大空闲连接数
	MaxOpenConn   int           `yaml:"max_open_conn" mapstructure:"max_open_conn"`   // 最大打开连接数
	MaxIdleTime   int64         `yaml:"max_idle_time" mapstructure:"max_idle_time"`   // 连接最大空闲时间（秒）
	SlowThreshold time.Duration `yaml:"slow_threshold" mapstructure:"slow_threshold"` // 慢 SQL 阈值
}

// RedisConf 配置
type RedisConf struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"rhost" mapstructure:"rhost"`       // 主机地址
	Port         int           `yaml:"rport" mapstructure:"rport"`       // 端口
	DB           int           `yaml:"rdb" mapstructure:"rdb"`           // 数据库
	PassWord     string        `yaml:"passwd" mapstructure:"passwd"`     // 密码
	PoolSize     int           `yaml:"poolsize" mapstructure:"poolsize"` // 连接池大小，即最大连接数
	VoteCountTTL time.Duration `yaml:"vote_count_ttl" mapstructure:"vote_count_ttl"`
}

type AuthConf struct {
	Secret   string        `yaml:"secret" mapstructure:"secret"` // HS256 签名密钥，只能来自配置或环境变量
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

type KafkaConf struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers  []string `yaml:"brokers" mapstructure:"brokers"`
	Topic    string   `yaml:"topic" mapstructure:"topic"`
	ClientID string   `yaml:"client_id" mapstructure:"client_id"`
}

type LogConf struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text | json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.graphiql", true)
	v.SetDefault("server.pretty", true)
	v.SetDefault("server.pprof_addr", "")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "hackernews.db")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.dbname", "hackernews")
	v.SetDefault("database.max_idle_conn", 10)
	v.SetDefault("database.max_open_conn", 100)
	v.SetDefault("database.max_idle_time", 3600)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.rhost", "127.0.0.1")
	v.SetDefault("redis.rport", 6379)
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("redis.vote_count_ttl", time.Minute)

	v.SetDefault("auth.token_ttl", 24*time.Hour)
	// 密钥没有默认值，显式绑定后才能从环境变量读取
	_ = v.BindEnv("auth.secret")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic", "hackernews.links")
	v.SetDefault("kafka.client_id", "hackernews")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Loader 读取配置文件，并在文件变化时通知
type Loader struct {
	v *viper.Viper

	mu                  sync.Mutex
	updateDebounceTimer *time.Timer
}

// NewLoader path 为空时在 . ./config ../config 中查找 config.yml
func NewLoader(path string) *Loader {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &Loader{v: v}
}

// Load 将配置文件与环境变量合并到 GlobalConfig 中，没有配置文件时只使用默认值与环境变量
func (l *Loader) Load() (*GlobalConfig, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
		log.Infof("no config file found, using defaults and %s_* env", envPrefix)
	} else {
		log.Infof("config loaded from %s", l.v.ConfigFileUsed())
	}

	return l.decode()
}

func (l *Loader) decode() (*GlobalConfig, error) {
	var conf GlobalConfig
	if err := l.v.Unmarshal(&conf); err != nil {
		return nil, errors.Wrap(err, "config file unmarshal")
	}
	return &conf, nil
}

// Watch 监听配置文件的变化，防抖后回调 fn。
// viper 在监听协程中重新读取文件后调用 OnConfigChange，解码也在该协程内完成，
// 定时器只负责投递结果，不再访问 viper。
func (l *Loader) Watch(fn func(*GlobalConfig)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		conf, err := l.decode()
		if err != nil {
			log.WithError(err).Warnf("reload config after %s failed", e.Op)
			return
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.updateDebounceTimer != nil {
			l.updateDebounceTimer.Stop()
		}
		l.updateDebounceTimer = time.AfterFunc(debounceDuration, func() {
			log.Infof("config reloaded after %s on %s", e.Op, e.Name)
			fn(conf)
		})
	})
	l.v.WatchConfig()
}

// Validate 检查启动所必需的配置
func (c *GlobalConfig) Validate() error {
	if c.Server.Port <= 0 {
		return errors.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.DbConfig.Driver {
	case DriverSQLite, DriverMySQL, DriverMemory:
	default:
		return errors.Errorf("unknown database.driver %q", c.DbConfig.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.Errorf("auth.secret is required (set %s_AUTH_SECRET)", envPrefix)
	}
	if c.RedisConfig.Enabled && c.RedisConfig.VoteCountTTL <= 0 {
		// 缓存条目必须会过期，迟到的回填最多存活一个 TTL
		return errors.Errorf("redis.vote_count_ttl must be positive, got %s", c.RedisConfig.VoteCountTTL)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}
