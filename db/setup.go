package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/config"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func ConnectDatabase(cfg config.Config) (*gorm.DB, error) {
	logLevel := logger.Info
	if cfg.Environment != "development" {
		logLevel = logger.Warn
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return gdb, nil
}

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Goal{},
		&models.Task{},
		&models.Notification{},
		&models.UserActivity{},
	}
}

// MigrateDatabase creates or alters the schema and then applies the
// versioned data migrations under migrations/.
func MigrateDatabase(ctx context.Context, gdb *gorm.DB, log *slog.Logger) error {
	if err := gdb.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	dialect, err := gooseDialect(gdb.Dialector.Name())
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Info("migrations applied", "dialect", dialect)
	return nil
}

func gooseDialect(name string) (string, error) {
	switch name {
	case "postgres":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported database dialect %q", name)
}

type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

// SeedAdmin creates an approved admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are configured and no user holds that email yet.
func SeedAdmin(ctx context.Context, gdb *gorm.DB, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	var existing models.User
	err := gdb.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:         cfg.AdminName,
		Email:        email,
		PasswordHash: hash,
		Role:         types.RoleAdmin,
		IsActive:     true,
		IsApproved:   true,
	}
	if err := gdb.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	log.Info("admin account seeded", "user_id", admin.ID, "email", email)
	return nil
}
