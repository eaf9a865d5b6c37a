package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeAppointmentReminder      NotificationType = "appointment_reminder"
	NotificationTypeAppointmentConfirmation  NotificationType = "appointment_confirmation"
	NotificationTypeAppointmentCancelled     NotificationType = "appointment_cancelled"
	NotificationTypeAppointmentRescheduled   NotificationType = "appointment_rescheduled"
	NotificationTypeNewAppointment           NotificationType = "new_appointment"
	NotificationTypeTreatmentPlan            NotificationType = "treatment_plan"
	NotificationTypeTreatmentPlanUpdated     NotificationType = "treatment_plan_updated"
	NotificationTypeTreatmentFeedback        NotificationType = "treatment_feedback"
	NotificationTypeTreatmentReminder        NotificationType = "treatment_reminder"
	NotificationTypeTreatmentStageCompleted  NotificationType = "treatment_stage_completed"
	NotificationTypeTreatmentCompleted       NotificationType = "treatment_completed"
	NotificationTypePaymentConfirmation      NotificationType = "payment_confirmation"
	NotificationTypeGeneral                  NotificationType = "general"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

// Delivery channels a notification fans out to.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

type Notification struct {
	Base
	UserID          uuid.UUID            `db:"user_id" json:"user_id"`
	Type            NotificationType     `db:"type" json:"type"`
	Title           string               `db:"title" json:"title"`
	Message         string               `db:"message" json:"message"`
	Data            JSONMap              `db:"data" json:"data,omitempty"`
	Link            string               `db:"link" json:"link,omitempty"`
	IsRead          bool                 `db:"is_read" json:"is_read"`
	ReadAt          *time.Time           `db:"read_at" json:"read_at,omitempty"`
	Priority        NotificationPriority `db:"priority" json:"priority"`
	DeliveryMethods StringList           `db:"delivery_methods" json:"delivery_methods"`
	SentAt          *time.Time           `db:"sent_at" json:"sent_at,omitempty"`
}

// NotificationEvent is the real-time payload published to a user's channel.
type NotificationEvent struct {
	NotificationID uuid.UUID        `json:"notification_id"`
	UserID         uuid.UUID        `json:"user_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Data           JSONMap          `json:"data,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
