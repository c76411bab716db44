// Package testutil provides an in-memory database migrated exactly like
// production, plus fixtures shared by service and handler tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/monocle-dev/crewboard/db"
	"github.com/monocle-dev/crewboard/internal/logger"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/types"
)

var ErrInjected = errors.New("injected failure")

// NewDB opens a private in-memory SQLite database with foreign keys on and
// runs the production migrations against it.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, time.Now().UnixNano())

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.MigrateDatabase(context.Background(), gdb, logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return gdb
}

// FailCreatesOn makes every INSERT into table fail with ErrInjected.
func FailCreatesOn(t testing.TB, gdb *gorm.DB, table string) {
	t.Helper()

	err := gdb.Callback().Create().Before("gorm:create").Register("testutil:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(ErrInjected)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

// FailUpdatesOn makes every UPDATE on table fail with ErrInjected.
func FailUpdatesOn(t testing.TB, gdb *gorm.DB, table string) {
	t.Helper()

	err := gdb.Callback().Update().Before("gorm:update").Register("testutil:fail_update_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(ErrInjected)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

// FailCountsOn makes every COUNT on table fail with ErrInjected. Other
// reads are unaffected.
func FailCountsOn(t testing.TB, gdb *gorm.DB, table string) {
	t.Helper()

	err := gdb.Callback().Query().Before("gorm:query").Register("testutil:fail_count_"+table, func(tx *gorm.DB) {
		if _, counting := tx.Statement.Dest.(*int64); counting && tx.Statement.Table == table {
			_ = tx.AddError(ErrInjected)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

func CreateUser(t testing.TB, gdb *gorm.DB, id uint, role string) models.User {
	t.Helper()

	user := models.User{
		BaseModel:    models.BaseModel{ID: id},
		Name:         fmt.Sprintf("User %d", id),
		Email:        fmt.Sprintf("user%d@example.com", id),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
		IsApproved:   true,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user %d: %v", id, err)
	}
	return user
}

// Fixture is a project with one goal, its team, and the given active members.
type Fixture struct {
	Team    models.Team
	Project models.Project
	Goal    models.Goal
}

func CreateProject(t testing.TB, gdb *gorm.DB, creatorID uint, memberIDs []uint, start, end *time.Time) Fixture {
	t.Helper()

	var f Fixture
	f.Team = models.Team{Name: fmt.Sprintf("Team %d-%d", creatorID, time.Now().UnixNano()), CreatedByID: &creatorID, IsActive: true}
	if err := gdb.Create(&f.Team).Error; err != nil {
		t.Fatalf("create team: %v", err)
	}

	members := []models.TeamMember{{TeamID: f.Team.ID, UserID: creatorID, Role: types.MemberRoleOwner, IsActive: true}}
	for _, id := range memberIDs {
		members = append(members, models.TeamMember{TeamID: f.Team.ID, UserID: id, Role: types.MemberRoleMember, IsActive: true})
	}
	if err := gdb.Create(&members).Error; err != nil {
		t.Fatalf("create team members: %v", err)
	}

	f.Project = models.Project{
		Name:        "Fixture Project",
		Status:      types.StatusInProgress,
		Priority:    types.PriorityMedium,
		StartDate:   start,
		EndDate:     end,
		TeamID:      f.Team.ID,
		CreatedByID: &creatorID,
	}
	if err := gdb.Create(&f.Project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}

	f.Goal = models.Goal{Title: "Fixture Goal", Status: types.StatusTodo, ProjectID: f.Project.ID, CreatedByID: &creatorID}
	if err := gdb.Create(&f.Goal).Error; err != nil {
		t.Fatalf("create goal: %v", err)
	}

	return f
}

func CreateTask(t testing.TB, gdb *gorm.DB, goalID uint, status string, creatorID uint, assigneeID *uint) models.Task {
	t.Helper()

	task := models.Task{
		Title:        "Fixture Task",
		Status:       status,
		GoalID:       goalID,
		CreatedByID:  &creatorID,
		AssignedToID: assigneeID,
	}
	if err := gdb.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func Count(t testing.TB, gdb *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var n int64
	q := gdb.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func Date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func Ptr[T any](v T) *T {
	return &v
}
