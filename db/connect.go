package db

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"shoplist-server/entities"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres database described by the environment and
// migrates the list schema.
func Connect() (Database, error) {
	dsn, err := postgresDSN()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(0)

	slog.Info("database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &GormDatabase{DB: db}, nil
}

// Migrate creates or updates the tables backing users, lists, items and
// collaborator links.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&entities.ShoppingList{}, "Collaborators", &entities.ListCollaborator{}); err != nil {
		return fmt.Errorf("failed to set up collaborator join table: %w", err)
	}
	if err := db.AutoMigrate(&entities.User{}, &entities.ShoppingList{}, &entities.Item{}, &entities.ListCollaborator{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database migrations completed")
	return nil
}

func postgresDSN() (string, error) {
	// Check if DB_URL is provided (connection string)
	if dsn := os.Getenv("DB_URL"); dsn != "" {
		if !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		slog.Info("connecting to database using DB_URL")
		return dsn, nil
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbPassword == "" || dbName == "" {
		return "", fmt.Errorf("missing required database configuration: DB_URL or (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	sslMode := "require"
	if dbHost == "localhost" || dbHost == "127.0.0.1" {
		sslMode = "disable"
	}

	slog.Info("connecting to database using individual parameters", "host", dbHost, "sslmode", sslMode)
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		dbHost, dbUser, dbPassword, dbName, dbPort, sslMode), nil
}
