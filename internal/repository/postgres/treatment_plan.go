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

const treatmentPlanColumns = `
	id, patient_id, doctor_id, patient_name, summary, schedule, form_data,
	created_at, updated_at
`

func (r *treatmentPlanRepository) Create(ctx context.Context, plan *model.TreatmentPlan) error {
	query := `
		INSERT INTO treatment_plans (
			id, patient_id, doctor_id, patient_name, summary, schedule,
			form_data, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	plan.ID = uuid.New()
	plan.CreatedAt = time.Now()
	plan.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		plan.ID,
		plan.PatientID,
		plan.DoctorID,
		plan.PatientName,
		plan.Summary,
		plan.Schedule,
		plan.FormData,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create treatment plan: %w", err)
	}
	return nil
}

func (r *treatmentPlanRepository) Get(ctx context.Context, id uuid.UUID) (*model.TreatmentPlan, error) {
	query := `SELECT ` + treatmentPlanColumns + ` FROM treatment_plans WHERE id = $1`

	var plan model.TreatmentPlan
	err := r.db.GetContext(ctx, &plan, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get treatment plan: %w", err)
	}
	return &plan, nil
}

func (r *treatmentPlanRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.TreatmentPlan, error) {
	query := `
		SELECT ` + treatmentPlanColumns + `
		FROM treatment_plans
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var plan model.TreatmentPlan
	err := r.db.GetContext(ctx, &plan, query, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest treatment plan: %w", err)
	}
	return &plan, nil
}

func (r *treatmentPlanRepository) Update(ctx context.Context, plan *model.TreatmentPlan) error {
	query := `
		UPDATE treatment_plans
		SET summary = $1, schedule = $2, form_data = $3, updated_at = $4
		WHERE id = $5
	`
	plan.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		plan.Summary,
		plan.Schedule,
		plan.FormData,
		plan.UpdatedAt,
		plan.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update treatment plan: %w", err)
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

func (r *treatmentPlanRepository) ListAll(ctx context.Context) ([]*model.TreatmentPlan, error) {
	query := `SELECT ` + treatmentPlanColumns + ` FROM treatment_plans ORDER BY created_at DESC`

	plans := []*model.TreatmentPlan{}
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("failed to list treatment plans: %w", err)
	}
	return plans, nil
}
