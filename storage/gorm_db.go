package storage

import (
	"fmt"
	"log"
	"os"
	"time"

	"backend/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var gormDB *gorm.DB

// InitGormDB initializes the GORM connection used for activity logging.
func InitGormDB() *gorm.DB {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port)

	var err error
	gormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Fatal("Failed to connect to database with GORM:", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB:", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := gormDB.AutoMigrate(&models.ActivityLog{}); err != nil {
		log.Printf("Warning: activity log migration failed: %v", err)
	}

	return gormDB
}

// GetGormDB returns the GORM database instance.
func GetGormDB() *gorm.DB {
	return gormDB
}

// SaveActivityLog writes one activity row through GORM.
func SaveActivityLog(entry *models.ActivityLog) error {
	if gormDB == nil {
		return fmt.Errorf("gorm database not initialized")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return gormDB.Create(entry).Error
}

// GetActivityLogs returns the latest activity rows for a request.
func GetActivityLogs(requestID, limit int) ([]models.ActivityLog, error) {
	if gormDB == nil {
		return nil, fmt.Errorf("gorm database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	var logs []models.ActivityLog
	err := gormDB.Where("request_id = ?", requestID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
