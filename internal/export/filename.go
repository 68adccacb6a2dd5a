// Package export turns session artifacts into downloadable files.
package export

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rahul/pipelineai/internal/agent"
)

const (
	NotebookFileName = "analysis_pipeline.ipynb"
	TemplateFileName = "end_to_end_pipeline_template.py"
)

var lower = cases.Lower(language.Und)

// Extension picks the download extension of an artifact. Later rules win:
// python gives py, markdown gives md and json gives json.
func Extension(a agent.Artifact) string {
	ext := "txt"
	if a.Language == "python" {
		ext = "py"
	}
	if a.Type == agent.ArtifactMarkdown {
		ext = "md"
	}
	if a.Language == "json" {
		ext = "json"
	}
	return ext
}

// Slug replaces every character outside [a-zA-Z0-9] with an underscore and
// lower-cases the result.
func Slug(title string) string {
	var b strings.Builder
	for _, r := range title {
		if r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return lower.String(b.String())
}

// FileName is the name an artifact is downloaded under.
func FileName(a agent.Artifact) string {
	return Slug(a.Title) + "." + Extension(a)
}
