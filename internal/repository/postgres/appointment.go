package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/model"
)

const appointmentColumns = `
	id, patient_id, doctor_id, date, time, duration, type, status,
	reason, symptoms, notes, consultation, payment, reminders,
	rescheduled_from, rescheduled_to, cancellation_reason, cancelled_by,
	cancelled_at, check_in_time, check_out_time, is_active,
	created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, date, time, duration, type, status,
			reason, symptoms, notes, consultation, payment, reminders,
			rescheduled_from, rescheduled_to, cancellation_reason, cancelled_by,
			cancelled_at, check_in_time, check_out_time, is_active,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Date,
		appointment.Time,
		appointment.Duration,
		appointment.Type,
		appointment.Status,
		appointment.Reason,
		appointment.Symptoms,
		appointment.Notes,
		appointment.Consultation,
		appointment.Payment,
		appointment.Reminders,
		appointment.RescheduledFrom,
		appointment.RescheduledTo,
		appointment.CancellationReason,
		appointment.CancelledBy,
		appointment.CancelledAt,
		appointment.CheckInTime,
		appointment.CheckOutTime,
		appointment.IsActive,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET date = $1, time = $2, duration = $3, type = $4, status = $5,
			reason = $6, symptoms = $7, notes = $8, consultation = $9,
			payment = $10, reminders = $11, rescheduled_from = $12,
			rescheduled_to = $13, cancellation_reason = $14, cancelled_by = $15,
			cancelled_at = $16, check_in_time = $17, check_out_time = $18,
			is_active = $19, updated_at = $20
		WHERE id = $21
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appointment.Date,
		appointment.Time,
		appointment.Duration,
		appointment.Type,
		appointment.Status,
		appointment.Reason,
		appointment.Symptoms,
		appointment.Notes,
		appointment.Consultation,
		appointment.Payment,
		appointment.Reminders,
		appointment.RescheduledFrom,
		appointment.RescheduledTo,
		appointment.CancellationReason,
		appointment.CancelledBy,
		appointment.CancelledAt,
		appointment.CheckInTime,
		appointment.CheckOutTime,
		appointment.IsActive,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, argPos)
		args = append(args, filters.PatientID)
		argPos++
	}
	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, argPos)
		args = append(args, filters.DoctorID)
		argPos++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.Type != "" {
		query += fmt.Sprintf(` AND type = $%d`, argPos)
		args = append(args, filters.Type)
		argPos++
	}
	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(` AND date >= $%d`, argPos)
		args = append(args, filters.StartDate)
		argPos++
	}
	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(` AND date <= $%d`, argPos)
		args = append(args, filters.EndDate)
		argPos++
	}

	query += ` ORDER BY date DESC, time DESC`

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) FindSlotHolder(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND time = $3
			AND status IN ('scheduled', 'confirmed')
	`
	args := []interface{}{doctorID, date, timeOfDay}
	if excludeID != nil {
		query += ` AND id != $4`
		args = append(args, *excludeID)
	}
	query += ` LIMIT 1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot holder: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) CompletePastScheduled(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE appointments
		SET status = 'completed', updated_at = $1
		WHERE status = 'scheduled' AND date < $2
	`
	result, err := r.db.ExecContext(ctx, query, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past appointments: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *appointmentRepository) FindScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status IN ('scheduled', 'confirmed') AND date >= $1 AND date < $2
		ORDER BY date, time
	`
	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to find scheduled appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Stats(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentStats, error) {
	query := `
		SELECT status, COUNT(*) AS count,
			COALESCE(SUM((payment->>'amount')::numeric), 0) AS total_revenue
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, argPos)
		args = append(args, filters.DoctorID)
		argPos++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, argPos)
		args = append(args, filters.PatientID)
		argPos++
	}
	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(` AND date >= $%d`, argPos)
		args = append(args, filters.StartDate)
		argPos++
	}
	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(` AND date <= $%d`, argPos)
		args = append(args, filters.EndDate)
		argPos++
	}

	query += ` GROUP BY status`

	stats := []*model.AppointmentStats{}
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get appointment stats: %w", err)
	}
	return stats, nil
}
