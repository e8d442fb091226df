package cmd

import (
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/repository"
	"github.com/frahmantamala/chatmate/internal/storage/kv"
	pgstore "github.com/frahmantamala/chatmate/internal/storage/postgres"
)

// openStore opens the configured storage backend.
func openStore(cfg *internal.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case internal.StorageDriverPostgres:
		db, err := initDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open gorm: %w", err)
		}
		logger.Info("postgres store opened")
		return pgstore.NewStore(gdb), nil
	default:
		store, err := kv.Open(cfg.Storage.PebbleDir, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
