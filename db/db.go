package db

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hackernews/config"
)

// Open 按 database.driver 打开 gorm 连接，memory 驱动不经过这里
func Open(conf config.DbConf) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch conf.Driver {
	case config.DriverMySQL:
		// 数据源
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			conf.User, conf.Password, conf.Host, conf.Port, conf.Dbname)
		dialector = mysql.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(conf.Path)
	default:
		return nil, errors.Errorf("driver %q has no sql connection", conf.Driver)
	}

	newLogger := logger.New(
		log.StandardLogger(), // 通过 logrus 输出
		logger.Config{
			SlowThreshold:             conf.SlowThreshold, // 慢 SQL 阈值
			LogLevel:                  gormLogLevel(),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s database", conf.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	if conf.Driver == config.DriverSQLite {
		// sqlite 单写者，避免 database is locked
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(conf.MaxIdleConn)                                  // 最大空闲连接
		sqlDB.SetMaxOpenConns(conf.MaxOpenConn)                                  // 最大打开连接
		sqlDB.SetConnMaxLifetime(time.Duration(conf.MaxIdleTime) * time.Second) // 最大空闲时间（s）
	}
	return db, nil
}

func gormLogLevel() logger.LogLevel {
	switch log.GetLevel() {
	case log.DebugLevel, log.TraceLevel:
		return logger.Info
	case log.InfoLevel, log.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
