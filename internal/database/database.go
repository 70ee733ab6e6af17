package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/config"
	"github.com/yukikurage/taskflow/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Models lists every table owned by the engine, in migration order.
func Models() []any {
	return []any{
		&models.Staff{},
		&models.Team{},
		&models.TeamMember{},
		&models.TaskSequence{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.TaskTeamAssignment{},
		&models.TaskDelegation{},
		&models.TaskReschedule{},
		&models.Notification{},
	}
}

func Connect(cfg *config.Config) error {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return err
	}

	logLevel := logger.Warn
	if cfg.Debug {
		logLevel = logger.Info
	}

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	log.Info().Str("driver", cfg.DBDriver).Str("host", cfg.DBHost).Msg("database connection established")
	return nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		// DB_NAME is the database file; ":memory:" keeps everything in process
		return sqlite.Open(cfg.DBName), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

func Migrate() error {
	log.Info().Msg("running database migrations")
	if err := DB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(DB); err != nil {
		return err
	}
	log.Info().Msg("database migrations completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

// SetDB sets the database instance (used for testing)
func SetDB(db *gorm.DB) {
	DB = db
}
