package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PrakritiAssessment is a patient's vata/pitta/kapha composition score.
type PrakritiAssessment struct {
	Vata          int        `json:"vata"`
	Pitta         int        `json:"pitta"`
	Kapha         int        `json:"kapha"`
	DominantDosha string     `json:"dominant_dosha,omitempty"`
	AssessedAt    *time.Time `json:"assessed_at,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

func (p PrakritiAssessment) Value() (driver.Value, error) { return json.Marshal(p) }
func (p *PrakritiAssessment) Scan(src interface{}) error  { return scanJSON(src, p) }

type MedicalCondition struct {
	Condition     string     `json:"condition"`
	DiagnosisDate *time.Time `json:"diagnosis_date,omitempty"`
	Treatment     string     `json:"treatment,omitempty"`
	Status        string     `json:"status,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

type MedicalHistory []MedicalCondition

func (h MedicalHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}
func (h *MedicalHistory) Scan(src interface{}) error { return scanJSON(src, h) }

type Allergy struct {
	Allergen string `json:"allergen"`
	Severity string `json:"severity,omitempty"`
	Reaction string `json:"reaction,omitempty"`
}

type AllergyList []Allergy

func (l AllergyList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}
func (l *AllergyList) Scan(src interface{}) error { return scanJSON(src, l) }

type PatientMedication struct {
	Name         string     `json:"name"`
	Dosage       string     `json:"dosage,omitempty"`
	Frequency    string     `json:"frequency,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	PrescribedBy string     `json:"prescribed_by,omitempty"`
}

type PatientMedicationList []PatientMedication

func (l PatientMedicationList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}
func (l *PatientMedicationList) Scan(src interface{}) error { return scanJSON(src, l) }

// Patient wraps exactly one User with clinical profile data.
type Patient struct {
	Base
	UserID         uuid.UUID             `db:"user_id" json:"user_id"`
	MedicalHistory MedicalHistory        `db:"medical_history" json:"medical_history,omitempty"`
	Allergies      AllergyList           `db:"allergies" json:"allergies,omitempty"`
	Medications    PatientMedicationList `db:"medications" json:"medications,omitempty"`
	Prakriti       PrakritiAssessment    `db:"prakriti" json:"prakriti"`

	// Populated from the users table on reads, not a column of its own.
	User *User `db:"-" json:"user,omitempty"`
}
