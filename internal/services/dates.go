package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/models"
)

// day truncates t to its UTC calendar day. Deadlines and project windows
// are compared at day granularity.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// checkDeadline reports DeadlineOutOfRange when deadline falls before
// start or after end. Each bound is checked only when set.
func checkDeadline(deadline, start, end *time.Time) error {
	if deadline == nil {
		return nil
	}
	d := day(*deadline)

	if start != nil && d.Before(day(*start)) {
		return apperr.New(apperr.KindDeadlineOutOfRange, "Deadline is before the project start date")
	}
	if end != nil && d.After(day(*end)) {
		return apperr.New(apperr.KindDeadlineOutOfRange, "Deadline is after the project end date")
	}
	return nil
}

func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && day(*end).Before(day(*start)) {
		return apperr.Validation("End date must not precede start date")
	}
	return nil
}

// checkScheduled fails with DeadlineOutOfRange when a goal or task of the
// project has a deadline outside the window [start, end].
func checkScheduled(tx *gorm.DB, projectID uint, start, end *time.Time) error {
	var goals []models.Goal

	err := tx.Select("id", "deadline").
		Where("project_id = ? AND deadline IS NOT NULL", projectID).
		Find(&goals).Error

	if err != nil {
		return err
	}

	for _, g := range goals {
		if checkDeadline(g.Deadline, start, end) != nil {
			return apperr.New(apperr.KindDeadlineOutOfRange, fmt.Sprintf("Goal %d has a deadline outside the new project dates", g.ID))
		}
	}

	var tasks []models.Task

	err = tx.Select("tasks.id", "tasks.deadline").
		Joins("JOIN goals ON goals.id = tasks.goal_id").
		Where("goals.project_id = ? AND tasks.deadline IS NOT NULL", projectID).
		Find(&tasks).Error

	if err != nil {
		return err
	}

	for _, t := range tasks {
		if checkDeadline(t.Deadline, start, end) != nil {
			return apperr.New(apperr.KindDeadlineOutOfRange, fmt.Sprintf("Task %d has a deadline outside the new project dates", t.ID))
		}
	}
	return nil
}
