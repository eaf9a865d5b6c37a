package treatment

import (
	"context"
	"strings"
	"time"

	"github.com/suminyol/ayursutra-api/internal/model"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
)

const (
	basePlanCost       = 12000
	perSymptomCost     = 800
	purvakarmaDays     = 7
	pradhanakarmaWeeks = 2
)

// GenerateAIPlan builds a deterministic staged plan from the intake data.
// The generator stands in for an external model service; same input, same
// plan.
func (s *service) GenerateAIPlan(ctx context.Context, actor model.Actor, req *model.GenerateAIPlanRequest) (*model.AIPlan, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only doctors can generate treatment plans")
	}
	if _, err := s.patientRepo.Get(ctx, req.PatientID); err != nil {
		return nil, apperrors.NotFound("patient", err)
	}

	now := time.Now()
	plan := &model.AIPlan{
		IsGenerated: true,
		GeneratedAt: &now,
		Stages: []model.PlanStage{
			purvakarmaStage(req),
			pradhanakarmaStage(req),
		},
		OverallDuration: model.StageDuration{
			Value: purvakarmaDays + pradhanakarmaWeeks*7,
			Unit:  model.DurationUnitDays,
		},
		EstimatedCost: float64(basePlanCost + perSymptomCost*len(req.Symptoms)),
		SuccessRate:   successRate(req),
		Confidence:    0.85,
	}
	return plan, nil
}

func purvakarmaStage(req *model.GenerateAIPlanRequest) model.PlanStage {
	return model.PlanStage{
		Title:       "Purvakarma - Preparation",
		Description: "Internal and external oleation with gentle sudation to mobilize doshas before elimination.",
		Duration:    model.StageDuration{Value: purvakarmaDays, Unit: model.DurationUnitDays},
		DailyTasks: []string{
			"Warm sesame oil self-massage before bathing",
			"Light, warm, easily digestible meals only",
			"Early bedtime, no daytime sleep",
		},
		Precautions: []string{
			"Avoid cold food and drinks",
			"Avoid strenuous exercise",
		},
		Therapies: []model.StageTherapy{
			{Name: "Abhyanga", Description: "Full body warm oil massage", Duration: 45, Frequency: "daily"},
			{Name: "Swedana", Description: "Herbal steam therapy", Duration: 20, Frequency: "daily"},
		},
		Diet: model.DietGuidance{
			Allowed:    []string{"Rice gruel", "Moong dal", "Warm water"},
			Restricted: []string{"Fried food", "Curd", "Cold beverages"},
			Recommendations: []string{
				"Eat only when hungry",
				"Largest meal at midday",
			},
		},
		Lifestyle: model.LifestyleGuidance{
			Activities:   []string{"Gentle yoga", "Short walks"},
			Restrictions: []string{"No late nights", "No heavy lifting"},
		},
	}
}

func pradhanakarmaStage(req *model.GenerateAIPlanRequest) model.PlanStage {
	therapy := model.StageTherapy{
		Name: "Basti", Description: "Medicated enema therapy", Duration: 60, Frequency: "alternate days",
	}
	if containsAny(req.Symptoms, "congestion", "sinus", "headache") ||
		strings.Contains(strings.ToLower(req.Diagnosis), "kapha") {
		therapy = model.StageTherapy{
			Name: "Nasya", Description: "Nasal administration of medicated oil", Duration: 30, Frequency: "daily",
		}
	}

	return model.PlanStage{
		Title:       "Pradhanakarma - Main Therapy",
		Description: "Primary elimination therapy selected for the presenting condition.",
		Duration:    model.StageDuration{Value: pradhanakarmaWeeks, Unit: model.DurationUnitWeeks},
		DailyTasks: []string{
			"Attend scheduled therapy sessions",
			"Record symptoms and energy levels each evening",
		},
		WeeklyTasks: []string{
			"Review progress with attending doctor",
		},
		Precautions: []string{
			"Rest for an hour after each session",
			"Report any unusual discomfort immediately",
		},
		Therapies: []model.StageTherapy{therapy},
		Diet: model.DietGuidance{
			Allowed:    []string{"Khichdi", "Steamed vegetables", "Herbal teas"},
			Restricted: []string{"Raw food", "Processed food", "Alcohol"},
		},
		Lifestyle: model.LifestyleGuidance{
			Activities:   []string{"Pranayama", "Meditation"},
			Restrictions: []string{"No travel during therapy days"},
		},
	}
}

func successRate(req *model.GenerateAIPlanRequest) float64 {
	// Fewer presenting symptoms, better prognosis.
	rate := 0.92 - 0.02*float64(len(req.Symptoms))
	if rate < 0.6 {
		rate = 0.6
	}
	return rate
}

func containsAny(haystack []string, needles ...string) bool {
	for _, h := range haystack {
		lower := strings.ToLower(h)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
	}
	return false
}
