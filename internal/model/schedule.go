package model

import "github.com/google/uuid"

// Schedule is a recurring weekly availability window for a therapist at a
// branch. DayOfWeek follows ISO 8601: Monday=1 .. Sunday=7. StartTime and
// EndTime are "HH:MM" strings with StartTime < EndTime.
type Schedule struct {
	Base
	TherapistID uuid.UUID `db:"therapist_id" json:"therapist_id"`
	BranchID    uuid.UUID `db:"branch_id" json:"branch_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
}

type UpsertScheduleRequest struct {
	ID        *uuid.UUID `json:"id,omitempty"`
	BranchID  uuid.UUID  `json:"branch_id" binding:"required"`
	DayOfWeek int        `json:"day_of_week" binding:"required,min=1,max=7"`
	StartTime string     `json:"start_time" binding:"required"`
	EndTime   string     `json:"end_time" binding:"required"`
}

// ScheduleConflict describes an overlapping window at another branch on the
// same day of week. Conflicts are reported, not blocked.
type ScheduleConflict struct {
	BranchID   uuid.UUID `json:"branch_id"`
	BranchName string    `json:"branch_name"`
	DayOfWeek  int       `json:"day_of_week"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
}
