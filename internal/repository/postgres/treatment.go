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

const treatmentColumns = `
	id, patient_id, doctor_id, appointment_id, diagnosis, ai_plan,
	customized_plan, current_stage, progress, sessions, status, cost,
	start_date, end_date, actual_end_date, is_active, created_at, updated_at
`

func (r *treatmentRepository) Create(ctx context.Context, treatment *model.Treatment) error {
	query := `
		INSERT INTO treatments (
			id, patient_id, doctor_id, appointment_id, diagnosis, ai_plan,
			customized_plan, current_stage, progress, sessions, status, cost,
			start_date, end_date, actual_end_date, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18
		)
	`
	treatment.ID = uuid.New()
	treatment.CreatedAt = time.Now()
	treatment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		treatment.ID,
		treatment.PatientID,
		treatment.DoctorID,
		treatment.AppointmentID,
		treatment.Diagnosis,
		treatment.AIPlan,
		treatment.CustomizedPlan,
		treatment.CurrentStage,
		treatment.Progress,
		treatment.Sessions,
		treatment.Status,
		treatment.Cost,
		treatment.StartDate,
		treatment.EndDate,
		treatment.ActualEndDate,
		treatment.IsActive,
		treatment.CreatedAt,
		treatment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create treatment: %w", err)
	}
	return nil
}

func (r *treatmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Treatment, error) {
	query := `SELECT ` + treatmentColumns + ` FROM treatments WHERE id = $1`

	var treatment model.Treatment
	err := r.db.GetContext(ctx, &treatment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get treatment: %w", err)
	}
	return &treatment, nil
}

func (r *treatmentRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Treatment, error) {
	query := `SELECT ` + treatmentColumns + ` FROM treatments WHERE appointment_id = $1`

	var treatment model.Treatment
	err := r.db.GetContext(ctx, &treatment, query, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get treatment by appointment: %w", err)
	}
	return &treatment, nil
}

func (r *treatmentRepository) Update(ctx context.Context, treatment *model.Treatment) error {
	query := `
		UPDATE treatments
		SET diagnosis = $1, ai_plan = $2, customized_plan = $3,
			current_stage = $4, progress = $5, sessions = $6, status = $7,
			cost = $8, start_date = $9, end_date = $10, actual_end_date = $11,
			is_active = $12, updated_at = $13
		WHERE id = $14
	`
	treatment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		treatment.Diagnosis,
		treatment.AIPlan,
		treatment.CustomizedPlan,
		treatment.CurrentStage,
		treatment.Progress,
		treatment.Sessions,
		treatment.Status,
		treatment.Cost,
		treatment.StartDate,
		treatment.EndDate,
		treatment.ActualEndDate,
		treatment.IsActive,
		treatment.UpdatedAt,
		treatment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update treatment: %w", err)
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

func (r *treatmentRepository) List(ctx context.Context, filters *model.TreatmentFilters) ([]*model.Treatment, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filters.PatientID != uuid.Nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, argPos)
		args = append(args, filters.PatientID)
		argPos++
	}
	if filters.DoctorID != uuid.Nil {
		where += fmt.Sprintf(` AND doctor_id = $%d`, argPos)
		args = append(args, filters.DoctorID)
		argPos++
	}
	if filters.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.StageIndex != nil {
		where += fmt.Sprintf(` AND (current_stage->>'index')::int = $%d`, argPos)
		args = append(args, *filters.StageIndex)
		argPos++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM treatments`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count treatments: %w", err)
	}

	query := `SELECT ` + treatmentColumns + ` FROM treatments` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argPos, argPos+1)
	args = append(args, filters.Limit(), filters.Offset())

	treatments := []*model.Treatment{}
	if err := r.db.SelectContext(ctx, &treatments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list treatments: %w", err)
	}
	return treatments, total, nil
}
