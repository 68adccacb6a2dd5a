package export

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rahul/pipelineai/internal/agent"
)

//go:embed templates/pipeline_template.py
var pipelineTemplate string

var pipelineConfigBlock = regexp.MustCompile(`(?s)PIPELINE_CONFIG = \{.*?\}`)

// Template returns the end-to-end pipeline template with its PIPELINE_CONFIG
// block replaced by cfg. Only the first block is rewritten.
func Template(cfg agent.PipelineConfig) string {
	loc := pipelineConfigBlock.FindStringIndex(pipelineTemplate)
	if loc == nil {
		return pipelineTemplate
	}
	block := fmt.Sprintf("PIPELINE_CONFIG = {\n    \"drift_threshold\": %s,\n    \"max_accuracy_drop\": %s,\n    \"max_retries\": %d\n}",
		formatFloat(cfg.DriftThreshold), formatFloat(cfg.AccuracyThreshold), cfg.MaxRetrainingAttempts)
	return pipelineTemplate[:loc[0]] + block + pipelineTemplate[loc[1]:]
}

// RawTemplate is the template as shipped, before any configuration is applied.
func RawTemplate() string {
	return pipelineTemplate
}

// TemplateArtifact wraps the configured template so it can be loaded into a session.
func TemplateArtifact(cfg agent.PipelineConfig) agent.Artifact {
	return agent.Artifact{
		ID:       agent.ArtifactTemplate,
		Title:    "ML Pipeline Template",
		Type:     agent.ArtifactCode,
		Content:  Template(cfg),
		Language: "python",
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
