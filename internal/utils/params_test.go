package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/types"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-12-31")
	if err != nil || !got.Equal(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v (%v)", got, err)
	}

	got, err = ParseDate("2025-12-31T23:00:00-02:00")
	if err != nil || !got.Equal(time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)) || got.Location() != time.UTC {
		t.Fatalf("unexpected timestamp %v (%v)", got, err)
	}

	if _, err := ParseDate("31/12/2025"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if d, err := ParseOptionalDate(nil); d != nil || err != nil {
		t.Fatalf("expected nil passthrough, got %v %v", d, err)
	}
}

func TestGetIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		value string
		want  uint
		ok    bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
		ctx.Params = gin.Params{{Key: "task_id", Value: tt.value}}

		got, err := GetIDParam(ctx, "task_id")
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("%q: expected %d, got %d (%v)", tt.value, tt.want, got, err)
		}
		if !tt.ok && apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("%q: expected validation error, got %v", tt.value, err)
		}
	}
}

func TestGetCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, err := GetCurrentUser(ctx); apperr.KindOf(err) != apperr.KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	ctx.Set(types.ContextUserKey, auth.Identity{UserID: 9, Role: types.RoleAdmin})

	id, err := GetCurrentUserID(ctx)
	if err != nil || id != 9 {
		t.Fatalf("expected user 9, got %d (%v)", id, err)
	}
}
