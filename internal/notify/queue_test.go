package notify

import (
	"context"
	"testing"

	"github.com/monocle-dev/crewboard/internal/logger"
	"github.com/monocle-dev/crewboard/internal/models"
	"github.com/monocle-dev/crewboard/internal/testutil"
	"github.com/monocle-dev/crewboard/internal/types"
)

func TestQueueDrainsOnStop(t *testing.T) {
	gdb := testutil.NewDB(t)
	testutil.CreateUser(t, gdb, 1, types.RoleAdmin)
	testutil.CreateUser(t, gdb, 2, types.RoleEmployee)
	team := models.Team{BaseModel: models.BaseModel{ID: 10}, Name: "Ops"}

	q := NewQueue(NewDispatcher(gdb, logger.Discard(), nil, nil), 8, logger.Discard())
	q.Start()

	for i := 0; i < 3; i++ {
		q.Notify(context.Background(), TeamMemberAddedEvent(team, 2, 1))
	}
	q.Stop()

	if n := testutil.Count(t, gdb, &models.Notification{}, "user_id = ? AND type = ?", 2, types.NotificationTeamAdded); n != 3 {
		t.Fatalf("expected 3 notifications after drain, got %d", n)
	}

	// Events after Stop are dropped.
	q.Notify(context.Background(), TeamMemberAddedEvent(team, 2, 1))
	if q.Pending() != 0 {
		t.Fatalf("expected closed queue to stay empty, got %d", q.Pending())
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(NewDispatcher(nil, logger.Discard(), nil, nil), 1, logger.Discard())

	q.Notify(context.Background(), Event{Type: TeamMemberAdded})
	q.Notify(context.Background(), Event{Type: TeamMemberAdded})

	if q.Pending() != 1 {
		t.Fatalf("expected 1 pending event, got %d", q.Pending())
	}
}
