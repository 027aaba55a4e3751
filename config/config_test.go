package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isamwata/llmcouncil/engine"
	"github.com/isamwata/llmcouncil/ranking"
)

const fullConfigYAML = `
backends:
  - id: gpt
    provider: openai
    model: gpt-4o
    temperature: 0.4
  - id: claude
    provider: anthropic
  - id: stub
    provider: mock
chair:
  id: arbiter
  provider: anthropic
bootstrap:
  enabled: true
  iterations: 5
criteria:
  - name: rigor
    focus: logical soundness
    description: Prefer answers whose reasoning holds up.
aggregation: position_average
invoke_timeout: 90s
max_calls: 40
synthesis_retries: 3
synthesis_markers:
  - "## Summary"
  - "## Recommendation"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "council.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfigYAML))
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	assert.Equal(t, []string{"gpt", "claude", "stub"}, ec.Backends)
	assert.Equal(t, "arbiter", ec.ChairID)
	assert.True(t, ec.BootstrapEnabled)
	assert.Equal(t, 5, ec.BootstrapIterations)
	require.Len(t, ec.Criteria, 1)
	assert.Equal(t, "rigor", ec.Criteria[0].Name)
	assert.Equal(t, ranking.PositionAverage, ec.Aggregation)
	assert.Equal(t, 90*time.Second, ec.InvokeTimeout)
	assert.Equal(t, 40, ec.MaxCalls)
	assert.Equal(t, 3, ec.SynthesisRetries)
	require.NoError(t, ec.Validate())

	v := cfg.CoverageValidator()
	require.NotNil(t, v)
	assert.Equal(t, []string{"## Summary", "## Recommendation"}, v.Markers())
}

func TestLoad_MinimalFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
backends:
  - id: m1
    provider: mock
chair:
  id: chair
  provider: mock
`))
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	assert.True(t, ec.BootstrapEnabled)
	assert.Equal(t, engine.DefaultConfig.BootstrapIterations, ec.BootstrapIterations)
	assert.Equal(t, ranking.BordaCount, ec.Aggregation)
	assert.Equal(t, engine.DefaultConfig.InvokeTimeout, ec.InvokeTimeout)
	assert.Empty(t, ec.Criteria)
	assert.Nil(t, cfg.CoverageValidator())
}

func TestLoad_ExplicitBootstrapOff(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
backends:
  - id: m1
    provider: mock
chair:
  id: chair
  provider: mock
bootstrap:
  enabled: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.EngineConfig().BootstrapEnabled)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no backends",
			yaml:    "chair:\n  id: chair\n  provider: mock\n",
			wantErr: "at least one backend",
		},
		{
			name:    "missing backend id",
			yaml:    "backends:\n  - provider: mock\nchair:\n  id: chair\n  provider: mock\n",
			wantErr: "backends[0]: id is required",
		},
		{
			name:    "unknown provider",
			yaml:    "backends:\n  - id: m1\n    provider: cohere\nchair:\n  id: chair\n  provider: mock\n",
			wantErr: "provider must be",
		},
		{
			name:    "missing chair",
			yaml:    "backends:\n  - id: m1\n    provider: mock\n",
			wantErr: "chair: id is required",
		},
		{
			name:    "bad duration",
			yaml:    "backends:\n  - id: m1\n    provider: mock\nchair:\n  id: chair\n  provider: mock\ninvoke_timeout: soonish\n",
			wantErr: "invoke_timeout",
		},
		{
			name:    "bad aggregation",
			yaml:    "backends:\n  - id: m1\n    provider: mock\nchair:\n  id: chair\n  provider: mock\naggregation: plurality\n",
			wantErr: "plurality",
		},
		{
			name:    "not yaml",
			yaml:    "{backends: [",
			wantErr: "yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}

func TestBuildInvokers(t *testing.T) {
	cfg, err := Parse([]byte(`
backends:
  - id: m1
    provider: mock
  - id: m2
    provider: mock
chair:
  id: chair
  provider: mock
`))
	require.NoError(t, err)

	invokers, err := cfg.BuildInvokers()
	require.NoError(t, err)
	require.Len(t, invokers, 3)
	assert.Equal(t, "mock", invokers["m1"].Info().Provider)
	assert.Equal(t, "chair", invokers["chair"].Info().ID)
}

func TestBuildInvokers_DuplicateID(t *testing.T) {
	cfg, err := Parse([]byte(`
backends:
  - id: m1
    provider: mock
chair:
  id: m1
  provider: mock
`))
	require.NoError(t, err)

	_, err = cfg.BuildInvokers()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate backend id")
}
