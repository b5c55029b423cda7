package database

import (
	"fmt"
	"log"

	"stroop_lab_backend/internal/config"
	"stroop_lab_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 建立数据库连接并自动建表。默认是进程目录下的 sqlite 文件，
// 部署到共享实例时可切换 mysql。
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		dialector = mysql.Open(dsn)
	default:
		// 并发提交时等锁而不是直接报 SQLITE_BUSY
		dialector = sqlite.Open(cfg.Path + "?_busy_timeout=5000")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := db.AutoMigrate(&model.TrialResult{}); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}
