package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/monocle-dev/crewboard/db"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/config"
	"github.com/monocle-dev/crewboard/internal/logger"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/testutil"
	"github.com/monocle-dev/crewboard/internal/types"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:legacy_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return gdb
}

func TestMigrateDatabaseRemapsLegacyStatuses(t *testing.T) {
	gdb := openSQLite(t)
	if err := gdb.AutoMigrate(db.Models()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	team := models.Team{Name: "Legacy", IsActive: true}
	if err := gdb.Create(&team).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}

	legacy := map[string]string{
		"planning":    types.StatusTodo,
		"on-hold":     types.StatusTodo,
		"active":      types.StatusInProgress,
		"in-progress": types.StatusInProgress,
		"review":      types.StatusTesting,
		"cancelled":   types.StatusArchived,
		"completed":   types.StatusCompleted,
	}

	ids := make(map[string]uint, len(legacy))
	for status := range legacy {
		project := models.Project{Name: status, Status: status, Priority: types.PriorityMedium, TeamID: team.ID}
		if err := gdb.Create(&project).Error; err != nil {
			t.Fatalf("create project %q: %v", status, err)
		}
		ids[status] = project.ID
	}

	goal := models.Goal{Title: "Legacy goal", Status: "in-progress", ProjectID: ids["active"]}
	if err := gdb.Create(&goal).Error; err != nil {
		t.Fatalf("create goal: %v", err)
	}
	task := models.Task{Title: "Legacy task", Status: "pending", GoalID: goal.ID}
	if err := gdb.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := db.MigrateDatabase(context.Background(), gdb, logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for status, want := range legacy {
		var project models.Project
		if err := gdb.First(&project, ids[status]).Error; err != nil {
			t.Fatalf("load project %q: %v", status, err)
		}
		if project.Status != want {
			t.Errorf("legacy status %q migrated to %q, want %q", status, project.Status, want)
		}
	}

	if err := gdb.First(&goal, goal.ID).Error; err != nil || goal.Status != types.StatusInProgress {
		t.Errorf("expected goal inProgress, got %q (%v)", goal.Status, err)
	}
	if err := gdb.First(&task, task.ID).Error; err != nil || task.Status != types.StatusTodo {
		t.Errorf("expected task todo, got %q (%v)", task.Status, err)
	}
}

func TestSeedAdmin(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	cfg := config.Config{AdminEmail: " Root@Example.com ", AdminPassword: "s3cret-pass", AdminName: "Root"}

	if err := db.SeedAdmin(ctx, gdb, cfg, logger.Discard()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.SeedAdmin(ctx, gdb, cfg, logger.Discard()); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var admins []models.User
	if err := gdb.Where("email = ?", "root@example.com").Find(&admins).Error; err != nil {
		t.Fatalf("load admins: %v", err)
	}
	if len(admins) != 1 {
		t.Fatalf("expected exactly one seeded admin, got %d", len(admins))
	}

	admin := admins[0]
	if admin.Role != types.RoleAdmin || !admin.IsApproved || !admin.IsActive {
		t.Fatalf("unexpected admin: %+v", admin)
	}
	if err := auth.ComparePassword(admin.PasswordHash, "s3cret-pass"); err != nil {
		t.Fatalf("seeded password does not verify: %v", err)
	}
}

func TestSeedAdminSkipsWithoutCredentials(t *testing.T) {
	gdb := testutil.NewDB(t)

	if err := db.SeedAdmin(context.Background(), gdb, config.Config{}, logger.Discard()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n := testutil.Count(t, gdb, &models.User{}, "1 = 1"); n != 0 {
		t.Fatalf("expected no users, got %d", n)
	}
}
