package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/crewboard/internal/apperr"
)

const DateLayout = "2006-01-02"

// GetIDParam parses a positive numeric path parameter.
func GetIDParam(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, apperr.Validation("Missing " + name)
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid " + name)
	}

	return uint(id), nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns it
// in UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, raw)

	if err != nil {
		return time.Time{}, apperr.Validation("Invalid date: " + raw)
	}

	return t.UTC(), nil
}

// ParseOptionalDate is ParseDate for nullable fields; nil stays nil.
func ParseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}

	t, err := ParseDate(*raw)

	if err != nil {
		return nil, err
	}

	return &t, nil
}
