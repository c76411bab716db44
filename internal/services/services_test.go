package services

import (
	"sort"
	"testing"

	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/logger"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/notify"
	"github.com/monocle-dev/crewboard/internal/testutil"
)

type harness struct {
	db          *gorm.DB
	provisioner *Provisioner
	workflow    *Workflow
	teams       *Teams
}

// newHarness wires the services to a synchronous dispatcher so
// notifications are persisted before each call returns.
func newHarness(t *testing.T) *harness {
	t.Helper()

	gdb := testutil.NewDB(t)
	log := logger.Discard()
	dispatcher := notify.NewDispatcher(gdb, log, nil, nil)

	return &harness{
		db:          gdb,
		provisioner: NewProvisioner(gdb, dispatcher, log, nil),
		workflow:    NewWorkflow(gdb, dispatcher, log),
		teams:       NewTeams(gdb, dispatcher, log),
	}
}

func identity(user models.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
}

func notifications(t *testing.T, gdb *gorm.DB, notificationType string) []models.Notification {
	t.Helper()

	var rows []models.Notification
	if err := gdb.Where("type = ?", notificationType).Order("user_id").Find(&rows).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return rows
}

func recipients(rows []models.Notification) []uint {
	ids := make([]uint, 0, len(rows))
	for _, n := range rows {
		ids = append(ids, n.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func equalIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperr.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func assertNoErr(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
