package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCanceled  AppointmentStatus = "CANCELED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCanceled || s == AppointmentStatusCompleted || s == AppointmentStatusNoShow
}

// Appointment is a booking of a therapist by a client on a calendar day.
// Date carries no time component; StartTime/EndTime are "HH:MM" wall-clock
// strings forming a half-open interval [StartTime, EndTime).
type Appointment struct {
	Base
	ClientID    uuid.UUID         `db:"client_id" json:"client_id"`
	TherapistID uuid.UUID         `db:"therapist_id" json:"therapist_id"`
	ServiceID   *uuid.UUID        `db:"service_id" json:"service_id,omitempty"`
	BranchID    *uuid.UUID        `db:"branch_id" json:"branch_id,omitempty"`
	Date        time.Time         `db:"date" json:"date"`
	StartTime   string            `db:"start_time" json:"start_time"`
	EndTime     string            `db:"end_time" json:"end_time"`
	Status      AppointmentStatus `db:"status" json:"status"`
	NoShowFee   *float64          `db:"no_show_fee" json:"no_show_fee,omitempty"`
}

type CreateAppointmentRequest struct {
	ClientID       uuid.UUID  `json:"client_id" binding:"required"`
	TherapistID    uuid.UUID  `json:"therapist_id" binding:"required"`
	Date           string     `json:"date" binding:"required"`
	StartTime      string     `json:"start_time" binding:"required"`
	EndTime        string     `json:"end_time" binding:"required"`
	ServiceID      *uuid.UUID `json:"service_id,omitempty"`
	BranchID       *uuid.UUID `json:"branch_id,omitempty"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
}

type RescheduleAppointmentRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

type AppointmentFilters struct {
	ClientID    *uuid.UUID
	TherapistID *uuid.UUID
	BranchID    *uuid.UUID
	Status      *AppointmentStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// DayAvailability is one entry of the month-level availability report.
// Closed distinguishes "therapist does not work that day" from "every slot
// is booked"; both have Available=false.
type DayAvailability struct {
	Date      string   `json:"date"`
	Available bool     `json:"available"`
	Closed    bool     `json:"closed"`
	Slots     []string `json:"slots"`
}
