package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DayFeedback is a patient's per-day wellbeing report. A day carries at most
// one; a later submission for the same day overwrites the earlier one.
type DayFeedback struct {
	PainLevel    int       `json:"pain_level"`
	StressLevel  int       `json:"stress_level"`
	EnergyLevel  int       `json:"energy_level"`
	Appetite     string    `json:"appetite"`
	Digestion    string    `json:"digestion"`
	SleepQuality string    `json:"sleep_quality"`
	MentalState  string    `json:"mental_state"`
	Notes        string    `json:"notes,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// DaySchedule is one day entry of a treatment plan.
type DaySchedule struct {
	Day           int          `json:"day"`
	Plan          []string     `json:"plan,omitempty"`
	Consultation  string       `json:"doctor_consultation,omitempty"`
	TherapistName string       `json:"therapist_name,omitempty"`
	Feedback      *DayFeedback `json:"feedback,omitempty"`
}

type Schedule []DaySchedule

func (s Schedule) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}
func (s *Schedule) Scan(src interface{}) error { return scanJSON(src, s) }

// TreatmentPlan is the day-indexed schedule patients report feedback against.
// It is independent of Treatment.
type TreatmentPlan struct {
	Base
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientName string    `db:"patient_name" json:"patient_name"`
	Summary     string    `db:"summary" json:"summary,omitempty"`
	Schedule    Schedule  `db:"schedule" json:"schedule"`
	FormData    JSONMap   `db:"form_data" json:"form_data,omitempty"`
}

type CreateTreatmentPlanRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	// DoctorID may be absent; feedback notifications then fall back to the
	// patient's latest appointment.
	DoctorID    uuid.UUID     `json:"doctor_id"`
	PatientName string        `json:"patient_name" binding:"required"`
	Summary     string        `json:"summary"`
	Schedule    []DaySchedule `json:"schedule" binding:"required,min=1"`
	FormData    JSONMap       `json:"form_data"`
}

type AddFeedbackRequest struct {
	DayNumber int `json:"day_number" binding:"required,min=1"`
	Feedback  struct {
		PainLevel    int    `json:"pain_level" binding:"min=0,max=10"`
		StressLevel  int    `json:"stress_level" binding:"min=0,max=10"`
		EnergyLevel  int    `json:"energy_level" binding:"min=0,max=10"`
		Appetite     string `json:"appetite" binding:"required"`
		Digestion    string `json:"digestion" binding:"required"`
		SleepQuality string `json:"sleep_quality" binding:"required"`
		MentalState  string `json:"mental_state" binding:"required"`
		Notes        string `json:"notes"`
	} `json:"feedback" binding:"required"`
}

type UpdateTreatmentPlanRequest struct {
	Schedule []DaySchedule `json:"schedule"`
	Summary  *string       `json:"summary"`
}
