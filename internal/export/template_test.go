package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rahul/pipelineai/internal/agent"
)

func TestTemplateInjectsConfig(t *testing.T) {
	cfg := agent.PipelineConfig{DriftThreshold: 0.1, AccuracyThreshold: 0.02, MaxRetrainingAttempts: 7}

	out := Template(cfg)

	assert.Contains(t, out, "PIPELINE_CONFIG = {\n    \"drift_threshold\": 0.1,\n    \"max_accuracy_drop\": 0.02,\n    \"max_retries\": 7\n}")
	assert.Equal(t, 1, strings.Count(out, "PIPELINE_CONFIG = {"))
	assert.Contains(t, out, `PIPELINE_CONFIG["drift_threshold"]`)
	assert.NotContains(t, out, `"max_retries": 3`)
}

func TestTemplateArtifact(t *testing.T) {
	a := TemplateArtifact(agent.DefaultPipelineConfig())

	assert.Equal(t, agent.ArtifactTemplate, a.ID)
	assert.Equal(t, "python", a.Language)
	assert.Contains(t, a.Content, `"max_retries": 3`)
	assert.Equal(t, "ml_pipeline_template.py", FileName(a))
}
