package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stagesWithCompletion(completed ...bool) []StageProgress {
	stages := make([]StageProgress, len(completed))
	for i, done := range completed {
		stages[i] = StageProgress{StageIndex: i, IsCompleted: done}
		if done {
			stages[i].Progress = 100
		}
	}
	return stages
}

func TestRecalculateOverallProgress(t *testing.T) {
	tests := []struct {
		name     string
		stages   []StageProgress
		expected int
	}{
		{"no stages", nil, 0},
		{"none completed", stagesWithCompletion(false, false), 0},
		{"half completed", stagesWithCompletion(true, false), 50},
		{"two of three rounds up", stagesWithCompletion(true, true, false), 67},
		{"one of three rounds down", stagesWithCompletion(true, false, false), 33},
		{"all completed", stagesWithCompletion(true, true), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			treatment := &Treatment{Progress: Progress{Stages: tt.stages}}
			treatment.Recalculate()
			assert.Equal(t, tt.expected, treatment.Progress.Overall)
		})
	}
}

func TestRecalculateCostRemaining(t *testing.T) {
	treatment := &Treatment{
		Cost: TreatmentCost{Estimated: 15000, Paid: 4000},
	}
	treatment.Recalculate()
	assert.Equal(t, float64(11000), treatment.Cost.Remaining)

	// Without an estimate there is nothing to derive remaining from.
	treatment = &Treatment{Cost: TreatmentCost{Paid: 4000}}
	treatment.Recalculate()
	assert.Zero(t, treatment.Cost.Remaining)
}

func TestActivePlanPrefersCustomized(t *testing.T) {
	treatment := &Treatment{
		AIPlan: AIPlan{
			Stages:          []PlanStage{{Title: "AI Stage"}},
			OverallDuration: StageDuration{Value: 21, Unit: DurationUnitDays},
			EstimatedCost:   12000,
		},
	}

	stages, duration, cost := treatment.ActivePlan()
	assert.Equal(t, "AI Stage", stages[0].Title)
	assert.Equal(t, 21, duration.Value)
	assert.Equal(t, float64(12000), cost)

	treatment.CustomizedPlan = CustomizedPlan{
		IsCustomized:    true,
		Stages:          []PlanStage{{Title: "Doctor Stage"}},
		OverallDuration: StageDuration{Value: 4, Unit: DurationUnitWeeks},
		EstimatedCost:   14000,
	}

	stages, duration, cost = treatment.ActivePlan()
	assert.Equal(t, "Doctor Stage", stages[0].Title)
	assert.Equal(t, DurationUnitWeeks, duration.Unit)
	assert.Equal(t, float64(14000), cost)
}

func TestAppointmentStatusHelpers(t *testing.T) {
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusNoShow.IsTerminal())
	assert.False(t, AppointmentStatusScheduled.IsTerminal())
	assert.False(t, AppointmentStatusRescheduled.IsTerminal())

	assert.True(t, AppointmentStatusScheduled.HoldsSlot())
	assert.True(t, AppointmentStatusConfirmed.HoldsSlot())
	assert.False(t, AppointmentStatusInProgress.HoldsSlot())
	assert.False(t, AppointmentStatusCancelled.HoldsSlot())
}

func TestPaginationBounds(t *testing.T) {
	p := &Pagination{}
	assert.Equal(t, 20, p.Limit())
	assert.Equal(t, 0, p.Offset())

	p = &Pagination{Page: 3, PageSize: 50}
	assert.Equal(t, 50, p.Limit())
	assert.Equal(t, 100, p.Offset())

	p = &Pagination{Page: 2, PageSize: 500}
	assert.Equal(t, 20, p.Limit())
}
