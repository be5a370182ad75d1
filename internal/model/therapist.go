package model

import "github.com/google/uuid"

type Therapist struct {
	Base
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone"`
	Specialty string `db:"specialty" json:"specialty"`
}

// TherapistBranch links a therapist to a branch. Deactivated links are kept
// for history instead of being deleted.
type TherapistBranch struct {
	TherapistID uuid.UUID `db:"therapist_id" json:"therapist_id"`
	BranchID    uuid.UUID `db:"branch_id" json:"branch_id"`
	IsActive    bool      `db:"is_active" json:"is_active"`
}

type CreateTherapistRequest struct {
	Name      string      `json:"name" binding:"required"`
	Email     string      `json:"email" binding:"required,email"`
	Phone     string      `json:"phone" binding:"required"`
	Specialty string      `json:"specialty" binding:"required"`
	BranchIDs []uuid.UUID `json:"branch_ids,omitempty"`
}

type UpdateTherapistRequest struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
}
