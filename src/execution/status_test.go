package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"panicpod/src/model"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from model.StepStatus
		to   model.StepStatus
		want bool
	}{
		{model.StatusPending, model.StatusProcessing, true},
		{model.StatusProcessing, model.StatusSuccess, true},
		{model.StatusProcessing, model.StatusFailed, true},
		{model.StatusPending, model.StatusSuccess, false},
		{model.StatusPending, model.StatusFailed, false},
		{model.StatusProcessing, model.StatusPending, false},
		{model.StatusSuccess, model.StatusProcessing, false},
		{model.StatusSuccess, model.StatusFailed, false},
		{model.StatusFailed, model.StatusProcessing, false},
		{model.StatusFailed, model.StatusSuccess, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "CanTransition(%s, %s)", tc.from, tc.to)
	}
}

func steps(statuses ...model.StepStatus) []model.ExecutionStep {
	out := make([]model.ExecutionStep, len(statuses))
	for i, status := range statuses {
		out[i] = model.ExecutionStep{Name: "step", Status: status}
	}
	return out
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name     string
		children []model.ExecutionStep
		want     model.StepStatus
	}{
		{"empty", nil, model.StatusPending},
		{"all pending", steps(model.StatusPending, model.StatusPending), model.StatusPending},
		{"any processing wins", steps(model.StatusSuccess, model.StatusProcessing, model.StatusPending), model.StatusProcessing},
		{"all success", steps(model.StatusSuccess, model.StatusSuccess), model.StatusSuccess},
		{"mixed success and pending", steps(model.StatusSuccess, model.StatusPending), model.StatusPending},
		{"failed child does not propagate", steps(model.StatusSuccess, model.StatusFailed), model.StatusPending},
		{"failed and processing", steps(model.StatusFailed, model.StatusProcessing), model.StatusProcessing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Aggregate(tc.children))
		})
	}
}
