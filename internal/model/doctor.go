package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

type DoctorRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func (r DoctorRating) Value() (driver.Value, error) { return json.Marshal(r) }
func (r *DoctorRating) Scan(src interface{}) error  { return scanJSON(src, r) }

// Doctor wraps exactly one User with the practitioner profile.
type Doctor struct {
	Base
	UserID            uuid.UUID    `db:"user_id" json:"user_id"`
	DoctorCode        string       `db:"doctor_code" json:"doctor_code"`
	Specialization    string       `db:"specialization" json:"specialization"`
	Qualification     string       `db:"qualification" json:"qualification"`
	YearsOfExperience int          `db:"years_of_experience" json:"years_of_experience"`
	ConsultationFee   float64      `db:"consultation_fee" json:"consultation_fee"`
	Bio               string       `db:"bio" json:"bio,omitempty"`
	Rating            DoctorRating `db:"rating" json:"rating"`
	IsVerified        bool         `db:"is_verified" json:"is_verified"`
	IsActive          bool         `db:"is_active" json:"is_active"`

	User *User `db:"-" json:"user,omitempty"`
}
