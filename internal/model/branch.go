package model

type Branch struct {
	Base
	Name     string  `db:"name" json:"name"`
	Address  string  `db:"address" json:"address"`
	Phone    string  `db:"phone" json:"phone"`
	Email    *string `db:"email" json:"email,omitempty"`
	IsActive bool    `db:"is_active" json:"is_active"`
}
