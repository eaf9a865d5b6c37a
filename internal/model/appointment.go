package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled   AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusInProgress  AppointmentStatus = "in-progress"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusNoShow      AppointmentStatus = "no-show"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// IsTerminal reports whether no further cancel/reschedule is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCancelled, AppointmentStatusCompleted, AppointmentStatusNoShow:
		return true
	}
	return false
}

// HoldsSlot reports whether an appointment in this status occupies its
// (doctor, date, time) slot for conflict checks.
func (s AppointmentStatus) HoldsSlot() bool {
	return s == AppointmentStatusScheduled || s == AppointmentStatusConfirmed
}

type AppointmentType string

const (
	AppointmentTypeConsultation AppointmentType = "consultation"
	AppointmentTypeFollowUp     AppointmentType = "follow-up"
	AppointmentTypeEmergency    AppointmentType = "emergency"
	AppointmentTypeTherapy      AppointmentType = "therapy"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentInfo is the payment sub-record embedded in an appointment.
type PaymentInfo struct {
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	Method        string        `json:"method,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

func (p PaymentInfo) Value() (driver.Value, error) { return json.Marshal(p) }
func (p *PaymentInfo) Scan(src interface{}) error  { return scanJSON(src, p) }

type PrescriptionLine struct {
	Medicine     string `json:"medicine"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Consultation is the outcome recorded when a doctor completes an appointment.
type Consultation struct {
	Diagnosis        string             `json:"diagnosis,omitempty"`
	Prescription     []PrescriptionLine `json:"prescription,omitempty"`
	Recommendations  []string           `json:"recommendations,omitempty"`
	FollowUpRequired bool               `json:"follow_up_required"`
	FollowUpDate     *time.Time         `json:"follow_up_date,omitempty"`
	Notes            string             `json:"notes,omitempty"`
}

func (c Consultation) Value() (driver.Value, error) { return json.Marshal(c) }
func (c *Consultation) Scan(src interface{}) error  { return scanJSON(src, c) }

type Reminder struct {
	Channel string    `json:"channel"`
	SentAt  time.Time `json:"sent_at"`
	Status  string    `json:"status"`
}

type ReminderList []Reminder

func (l ReminderList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}
func (l *ReminderList) Scan(src interface{}) error { return scanJSON(src, l) }

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}
func (l *StringList) Scan(src interface{}) error { return scanJSON(src, l) }

// Appointment is one (doctor, date, time) booking unit.
type Appointment struct {
	Base
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Date      time.Time         `db:"date" json:"date"`
	Time      string            `db:"time" json:"time"`
	Duration  int               `db:"duration" json:"duration"`
	Type      AppointmentType   `db:"type" json:"type"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Reason    string            `db:"reason" json:"reason"`
	Symptoms  StringList        `db:"symptoms" json:"symptoms,omitempty"`
	Notes     string            `db:"notes" json:"notes,omitempty"`

	Consultation Consultation `db:"consultation" json:"consultation"`
	Payment      PaymentInfo  `db:"payment" json:"payment"`
	Reminders    ReminderList `db:"reminders" json:"reminders,omitempty"`

	RescheduledFrom    *uuid.UUID `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
	RescheduledTo      *uuid.UUID `db:"rescheduled_to" json:"rescheduled_to,omitempty"`
	CancellationReason string     `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledBy        string     `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CheckInTime        *time.Time `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime       *time.Time `db:"check_out_time" json:"check_out_time,omitempty"`
	IsActive           bool       `db:"is_active" json:"is_active"`

	Patient *Patient `db:"-" json:"patient,omitempty"`
	Doctor  *Doctor  `db:"-" json:"doctor,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID  uuid.UUID       `json:"doctor_id" binding:"required"`
	PatientID *uuid.UUID      `json:"patient_id"`
	Date      string          `json:"date" binding:"required"`
	Time      string          `json:"time" binding:"required"`
	Reason    string          `json:"reason" binding:"required,max=500"`
	Symptoms  []string        `json:"symptoms"`
	Type      AppointmentType `json:"type" binding:"omitempty,oneof=consultation follow-up emergency therapy"`
}

type UpdateAppointmentRequest struct {
	Date     *string  `json:"date"`
	Time     *string  `json:"time"`
	Reason   *string  `json:"reason"`
	Symptoms []string `json:"symptoms"`
	Notes    *string  `json:"notes"`
}

type RescheduleAppointmentRequest struct {
	NewDate string `json:"new_date" binding:"required"`
	NewTime string `json:"new_time" binding:"required"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type CompleteAppointmentRequest struct {
	Diagnosis        string             `json:"diagnosis"`
	Prescription     []PrescriptionLine `json:"prescription"`
	Recommendations  []string           `json:"recommendations"`
	FollowUpRequired bool               `json:"follow_up_required"`
	FollowUpDate     *time.Time         `json:"follow_up_date"`
	Notes            string             `json:"notes"`
}

type AppointmentFilters struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    AppointmentStatus
	Type      AppointmentType
	StartDate time.Time
	EndDate   time.Time
}

// AppointmentStats is a per-status aggregate with revenue.
type AppointmentStats struct {
	Status       AppointmentStatus `db:"status" json:"status"`
	Count        int               `db:"count" json:"count"`
	TotalRevenue float64           `db:"total_revenue" json:"total_revenue"`
}
