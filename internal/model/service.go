package model

import "github.com/google/uuid"

// DefaultServiceDuration is used when a booking has no service attached.
const DefaultServiceDuration = 30

// Service is a bookable offering. AverageDuration (minutes) drives the slot
// step in availability computations.
type Service struct {
	Base
	Name            string     `db:"name" json:"name"`
	AverageDuration int        `db:"average_duration" json:"average_duration"`
	Price           *float64   `db:"price" json:"price,omitempty"`
	BranchID        *uuid.UUID `db:"branch_id" json:"branch_id,omitempty"`
}
