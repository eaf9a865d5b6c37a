package model

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

type TreatmentStatus string

const (
	TreatmentStatusDraft     TreatmentStatus = "draft"
	TreatmentStatusActive    TreatmentStatus = "active"
	TreatmentStatusPaused    TreatmentStatus = "paused"
	TreatmentStatusCompleted TreatmentStatus = "completed"
	TreatmentStatusCancelled TreatmentStatus = "cancelled"
)

type DurationUnit string

const (
	DurationUnitDays   DurationUnit = "days"
	DurationUnitWeeks  DurationUnit = "weeks"
	DurationUnitMonths DurationUnit = "months"
)

type StageDuration struct {
	Value int          `json:"value"`
	Unit  DurationUnit `json:"unit"`
}

type StageTherapy struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Duration     int    `json:"duration,omitempty"` // minutes
	Frequency    string `json:"frequency,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type StageMedication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// DietGuidance is an allowed/restricted/recommended triple.
type DietGuidance struct {
	Allowed         []string `json:"allowed,omitempty"`
	Restricted      []string `json:"restricted,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

type LifestyleGuidance struct {
	Activities      []string `json:"activities,omitempty"`
	Restrictions    []string `json:"restrictions,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// PlanStage is a time-boxed phase of a treatment plan.
type PlanStage struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Duration    StageDuration     `json:"duration"`
	Precautions []string          `json:"precautions,omitempty"`
	DailyTasks  []string          `json:"daily_tasks,omitempty"`
	WeeklyTasks []string          `json:"weekly_tasks,omitempty"`
	Therapies   []StageTherapy    `json:"therapies,omitempty"`
	Medications []StageMedication `json:"medications,omitempty"`
	Diet        DietGuidance      `json:"diet"`
	Lifestyle   LifestyleGuidance `json:"lifestyle"`
}

// AIPlan is the machine-authored treatment plan variant.
type AIPlan struct {
	IsGenerated     bool          `json:"is_generated"`
	GeneratedAt     *time.Time    `json:"generated_at,omitempty"`
	Stages          []PlanStage   `json:"stages,omitempty"`
	OverallDuration StageDuration `json:"overall_duration"`
	EstimatedCost   float64       `json:"estimated_cost,omitempty"`
	SuccessRate     float64       `json:"success_rate,omitempty"`
	Confidence      float64       `json:"confidence,omitempty"`
}

func (p AIPlan) Value() (driver.Value, error) { return json.Marshal(p) }
func (p *AIPlan) Scan(src interface{}) error  { return scanJSON(src, p) }

// PlanModification records one doctor edit to an AI-generated stage field.
type PlanModification struct {
	StageIndex    int         `json:"stage_index"`
	Field         string      `json:"field"`
	OriginalValue interface{} `json:"original_value,omitempty"`
	NewValue      interface{} `json:"new_value"`
	Reason        string      `json:"reason,omitempty"`
	ModifiedAt    time.Time   `json:"modified_at"`
}

// CustomizedPlan is the doctor-edited treatment plan variant.
type CustomizedPlan struct {
	IsCustomized    bool               `json:"is_customized"`
	CustomizedAt    *time.Time         `json:"customized_at,omitempty"`
	CustomizedBy    *uuid.UUID         `json:"customized_by,omitempty"`
	Modifications   []PlanModification `json:"modifications,omitempty"`
	Stages          []PlanStage        `json:"stages,omitempty"`
	OverallDuration StageDuration      `json:"overall_duration"`
	EstimatedCost   float64            `json:"estimated_cost,omitempty"`
}

func (p CustomizedPlan) Value() (driver.Value, error) { return json.Marshal(p) }
func (p *CustomizedPlan) Scan(src interface{}) error  { return scanJSON(src, p) }

type Diagnosis struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary,omitempty"`
	Symptoms  []string `json:"symptoms,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

func (d Diagnosis) Value() (driver.Value, error) { return json.Marshal(d) }
func (d *Diagnosis) Scan(src interface{}) error  { return scanJSON(src, d) }

type CurrentStage struct {
	Index           int        `json:"index"`
	Title           string     `json:"title,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	ExpectedEndDate *time.Time `json:"expected_end_date,omitempty"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func (s CurrentStage) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *CurrentStage) Scan(src interface{}) error  { return scanJSON(src, s) }

type StageProgress struct {
	StageIndex  int        `json:"stage_index"`
	Title       string     `json:"title,omitempty"`
	Progress    int        `json:"progress"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type Progress struct {
	Overall int             `json:"overall"`
	Stages  []StageProgress `json:"stages,omitempty"`
}

func (p Progress) Value() (driver.Value, error) { return json.Marshal(p) }
func (p *Progress) Scan(src interface{}) error  { return scanJSON(src, p) }

type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "scheduled"
	SessionStatusInProgress SessionStatus = "in-progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
	SessionStatusNoShow     SessionStatus = "no-show"
)

// Session is one logged therapy sitting within a treatment.
type Session struct {
	StageIndex  int           `json:"stage_index"`
	StageTitle  string        `json:"stage_title,omitempty"`
	Date        time.Time     `json:"date"`
	Time        string        `json:"time,omitempty"`
	Duration    int           `json:"duration,omitempty"` // minutes
	TherapistID *uuid.UUID    `json:"therapist_id,omitempty"`
	Therapy     StageTherapy  `json:"therapy"`
	Status      SessionStatus `json:"status"`
	Notes       string        `json:"notes,omitempty"`
}

type SessionList []Session

func (l SessionList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}
func (l *SessionList) Scan(src interface{}) error { return scanJSON(src, l) }

type TreatmentCost struct {
	Estimated float64 `json:"estimated,omitempty"`
	Actual    float64 `json:"actual,omitempty"`
	Paid      float64 `json:"paid"`
	Remaining float64 `json:"remaining,omitempty"`
}

func (c TreatmentCost) Value() (driver.Value, error) { return json.Marshal(c) }
func (c *TreatmentCost) Scan(src interface{}) error  { return scanJSON(src, c) }

// Treatment is a staged Panchakarma treatment bound 1:1 to an appointment.
type Treatment struct {
	Base
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`

	Diagnosis       Diagnosis       `db:"diagnosis" json:"diagnosis"`
	AIPlan          AIPlan          `db:"ai_plan" json:"ai_generated_plan"`
	CustomizedPlan  CustomizedPlan  `db:"customized_plan" json:"doctor_customized_plan"`
	CurrentStage    CurrentStage    `db:"current_stage" json:"current_stage"`
	Progress        Progress        `db:"progress" json:"progress"`
	Sessions        SessionList     `db:"sessions" json:"sessions"`
	Status          TreatmentStatus `db:"status" json:"status"`
	Cost            TreatmentCost   `db:"cost" json:"cost"`
	StartDate       *time.Time      `db:"start_date" json:"start_date,omitempty"`
	EndDate         *time.Time      `db:"end_date" json:"end_date,omitempty"`
	ActualEndDate   *time.Time      `db:"actual_end_date" json:"actual_end_date,omitempty"`
	IsActive        bool            `db:"is_active" json:"is_active"`

	Patient *Patient `db:"-" json:"patient,omitempty"`
	Doctor  *Doctor  `db:"-" json:"doctor,omitempty"`
}

// ActivePlan resolves the authoritative plan variant: the doctor-customized
// plan when present, the AI-generated plan otherwise.
func (t *Treatment) ActivePlan() ([]PlanStage, StageDuration, float64) {
	if t.CustomizedPlan.IsCustomized {
		return t.CustomizedPlan.Stages, t.CustomizedPlan.OverallDuration, t.CustomizedPlan.EstimatedCost
	}
	return t.AIPlan.Stages, t.AIPlan.OverallDuration, t.AIPlan.EstimatedCost
}

// Recalculate recomputes the derived progress and cost fields. It must run
// after every mutation that touches stage progress or payments.
func (t *Treatment) Recalculate() {
	total := len(t.Progress.Stages)
	if total > 0 {
		completed := 0
		for _, s := range t.Progress.Stages {
			if s.IsCompleted {
				completed++
			}
		}
		t.Progress.Overall = int(math.Round(float64(completed) / float64(total) * 100))
	} else {
		t.Progress.Overall = 0
	}

	if t.Cost.Estimated != 0 {
		t.Cost.Remaining = t.Cost.Estimated - t.Cost.Paid
	}
}

type CreateTreatmentRequest struct {
	PatientID      uuid.UUID          `json:"patient_id" binding:"required"`
	AppointmentID  uuid.UUID          `json:"appointment_id" binding:"required"`
	Diagnosis      Diagnosis          `json:"diagnosis" binding:"required"`
	AIPlan         *AIPlan            `json:"ai_plan"`
	Customizations []PlanModification `json:"doctor_customizations"`
}

type GenerateAIPlanRequest struct {
	PatientID      uuid.UUID `json:"patient_id" binding:"required"`
	AppointmentID  uuid.UUID `json:"appointment_id" binding:"required"`
	Symptoms       []string  `json:"symptoms"`
	Diagnosis      string    `json:"diagnosis"`
	PatientHistory string    `json:"patient_history"`
}

type CompleteStageRequest struct {
	StageIndex int    `json:"stage_index" binding:"min=0"`
	Notes      string `json:"notes"`
}

type AddSessionRequest struct {
	Date        string       `json:"date" binding:"required"`
	Time        string       `json:"time"`
	Duration    int          `json:"duration" binding:"omitempty,min=0"`
	TherapistID *uuid.UUID   `json:"therapist_id"`
	Therapy     StageTherapy `json:"therapy"`
	Notes       string       `json:"notes"`
}

type TreatmentFilters struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Status     TreatmentStatus
	StageIndex *int
	Pagination
}

// TreatmentProgress is the read model served by the progress endpoint.
type TreatmentProgress struct {
	Progress     Progress        `json:"progress"`
	CurrentStage CurrentStage    `json:"current_stage"`
	Sessions     SessionList     `json:"sessions"`
	Status       TreatmentStatus `json:"status"`
}
