package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig()

	assert.Equal(t, 10, cfg.Iterations)
	assert.Equal(t, 0.1, cfg.StepSize)
	assert.Equal(t, 1.3, cfg.ThresholdMultiplier)
	assert.Equal(t, 3, cfg.Neighbors)
	assert.Equal(t, 2, cfg.MinLoad)
	assert.Equal(t, 25, cfg.Source.Radius)
	assert.Equal(t, "make run", cfg.Triggers.OnInitial)
	assert.Equal(t, "make runopt", cfg.Triggers.OnFinal)
}

func TestValidate(t *testing.T) {
	cfg := DefaultRunConfig()
	require.Error(t, cfg.Validate(), "missing api key outside mock mode")

	cfg.Source.Mock = true
	require.NoError(t, cfg.Validate())

	cfg.Source.Mock = false
	cfg.Source.APIKey = "k"
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Iterations = 0
	bad.StepSize = -1
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterations")
	assert.Contains(t, err.Error(), "step")
}
