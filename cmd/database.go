package cmd

import (
	"os"
	"time"

	"training-enrollment/internal/config"
	"training-enrollment/internal/infrastructure/database"
	"training-enrollment/pkg/logger"

	"gorm.io/gorm"
)

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.Username,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
		LogLevel:        cfg.Database.LogLevel,
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	return database.NewConnection(databaseConfig(cfg))
}

func mustOpenDatabase(cfg *config.Config) *gorm.DB {
	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	return db
}
