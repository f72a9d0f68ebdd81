package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("", "", "")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewClassifierInvalidExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{
			name: "syntax error",
			expr: `invalid syntax here!!!`,
		},
		{
			name: "undefined variable",
			expr: `undefinedVar == "test"`,
		},
		{
			name: "non-bool expression",
			expr: `disposition`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassifier(tt.expr, "", "")
			assert.Error(t, err)
		})
	}
}

func TestClassifyDefaults(t *testing.T) {
	c, err := NewClassifier("", "", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		result Result
		want   Category
	}{
		{
			name:   "queued outcome",
			result: Result{Kind: "claim", Outcome: "queued"},
			want:   CategoryQueued,
		},
		{
			name:   "pended disposition",
			result: Result{Kind: "claim", Outcome: "complete", Disposition: "pended"},
			want:   CategoryQueued,
		},
		{
			name:   "approved disposition",
			result: Result{Kind: "claim", Outcome: "complete", Disposition: "approved", ApprovedAmount: 120.50},
			want:   CategoryApproved,
		},
		{
			name:   "approved by amount with no disposition",
			result: Result{Kind: "claim", Outcome: "complete", ApprovedAmount: 80},
			want:   CategoryApproved,
		},
		{
			name:   "denied disposition",
			result: Result{Kind: "claim", Outcome: "complete", Disposition: "denied", DeniedAmount: 120.50},
			want:   CategoryDenied,
		},
		{
			name:   "unknown disposition",
			result: Result{Kind: "claim", Outcome: "complete", Disposition: "pending-review"},
			want:   CategoryUnknown,
		},
		{
			name:   "queued wins over approved amount",
			result: Result{Kind: "claim", Outcome: "queued", ApprovedAmount: 50},
			want:   CategoryQueued,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.result)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCustomExpressions(t *testing.T) {
	c, err := NewClassifier(
		`disposition == "on-hold"`,
		`disposition == "settled"`,
		`disposition == "declined"`,
	)
	require.NoError(t, err)

	got, err := c.Classify(context.Background(), Result{Outcome: "complete", Disposition: "settled"})
	require.NoError(t, err)
	assert.Equal(t, CategoryApproved, got)

	got, err = c.Classify(context.Background(), Result{Outcome: "complete", Disposition: "on-hold"})
	require.NoError(t, err)
	assert.Equal(t, CategoryQueued, got)

	// Default vocabulary no longer applies once overridden.
	got, err = c.Classify(context.Background(), Result{Outcome: "complete", Disposition: "approved"})
	require.NoError(t, err)
	assert.Equal(t, CategoryUnknown, got)
}
