package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Driver   string // "mysql" or "sqlite"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Path     string // sqlite file path
}

// Connect opens the shared store. TranslateError is on so unique-index
// violations surface as gorm.ErrDuplicatedKey on both drivers.
func Connect(cfg Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	switch cfg.Driver {
	case "sqlite":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", cfg.Path)
		return gorm.Open(sqlite.Open(dsn), gcfg)
	default:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
		return gorm.Open(mysql.Open(dsn), gcfg)
	}
}
