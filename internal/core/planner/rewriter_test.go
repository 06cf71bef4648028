package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		want    string
	}{
		{"plain", "quick vegetarian pasta dinner", nil, "quick vegetarian pasta dinner"},
		{"labelled and quoted", "Search query: \"cheap chicken lunch\"\nextra", nil, "cheap chicken lunch"},
		{"model error", "", errors.New("timeout"), "I want something cheap with chicken for two days"},
		{"blank answer", "  ", nil, "I want something cheap with chicken for two days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := newScripted()
			ai.content["rewrite"] = tt.content
			ai.errs["rewrite"] = tt.err

			r, err := NewRewriter(ai, nil)
			require.NoError(t, err)

			got := r.Rewrite(context.Background(), " I want something cheap with chicken for two days ")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewrite_PromptAndEmpty(t *testing.T) {
	ai := newScripted()
	ai.content["rewrite"] = "chicken rice"
	r, err := NewRewriter(ai, nil)
	require.NoError(t, err)

	r.Rewrite(context.Background(), "kurczak 100% taniej")
	req := ai.last("rewrite")
	assert.Contains(t, req.Prompt, "User request: kurczak 100% taniej\n")
	assert.Contains(t, req.Prompt, "(3–6 words)")
	assert.Equal(t, "rewrite", req.CacheNamespace)

	assert.Empty(t, r.Rewrite(context.Background(), "  "))
	assert.Equal(t, 1, ai.count("rewrite"))

	_, err = NewRewriter(nil, nil)
	assert.Error(t, err)
}
