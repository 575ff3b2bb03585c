package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceDefaultModel(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, "")
	assert.Equal(t, DefaultModel, svc.model)

	svc = NewService(nil, "gemini-2.5-pro")
	assert.Equal(t, "gemini-2.5-pro", svc.model)
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	config := BuildConfig()
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.2, float64(*config.Temperature), 0.001)
	require.NotNil(t, config.SystemInstruction)
	require.Len(t, config.SystemInstruction.Parts, 1)
	assert.Contains(t, config.SystemInstruction.Parts[0].Text, "valid JSON")
}
