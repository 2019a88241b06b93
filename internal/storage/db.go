package storage

import (
	"os"
	"path/filepath"

	"autocut/internal/appdirs"
	"autocut/internal/types"
	"autocut/log"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB
var appDirsResolver = appdirs.Resolve

func InitDB() error {
	dbPath, err := resolveDBPath()
	if err != nil {
		return err
	}
	return OpenDB(dbPath, logger.Warn)
}

// OpenDB opens (or creates) the sqlite file at dbPath, migrates the job
// tables and installs it as DB.
func OpenDB(dbPath string, level logger.LogLevel) error {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return err
	}
	if err = db.AutoMigrate(&types.JobRecord{}, &types.JobClip{}); err != nil {
		return err
	}

	DB = db
	log.GetLogger().Info("Database initialized successfully", zap.String("path", dbPath))
	return nil
}

func resolveDBPath() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.DBPathFor(dirs), nil
}
