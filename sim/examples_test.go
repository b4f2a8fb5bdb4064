package sim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExampleConfigs_LoadAndValidate verifies every shipped example config
// parses strictly and validates.
func TestExampleConfigs_LoadAndValidate(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "examples", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no example configs found")

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.NoError(t, cfg.Validate())
		})
	}
}

// TestExampleConfigs_Default matches DefaultConfig.
func TestExampleConfigs_Default(t *testing.T) {
	// GIVEN the default.yaml example config
	cfg, err := LoadConfig(filepath.Join("..", "examples", "default.yaml"))
	require.NoError(t, err)

	// THEN it spells out the defaults
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestExampleConfigs_UniformService runs the traced uniform-service example.
func TestExampleConfigs_UniformService(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "examples", "uniform-service.yaml"))
	require.NoError(t, err)
	s, err := NewSimulator(cfg)
	require.NoError(t, err)

	r, err := s.Run()
	require.NoError(t, err)

	require.NotNil(t, s.Trace())
	assert.Equal(t, int(r.Arrivals), len(s.Trace().Admissions))
	assert.LessOrEqual(t, s.Counters().ServiceTime.Summary().Mean, 2*cfg.MeanServiceTime())
}
