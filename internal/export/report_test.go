package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/pipelineai/internal/agent"
)

func TestMarkdownToHTML(t *testing.T) {
	md := "# Summary\nDrift was low\nacross batches.\n\n- accuracy ok\n- f1 ok\n\n```\nx = 1 < 2\n```"

	out, err := markdownToHTML(md)
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Summary</h1>")
	assert.Contains(t, out, "<p>Drift was low\nacross batches.</p>")
	assert.Contains(t, out, "<ul>\n<li>accuracy ok</li>\n<li>f1 ok</li>\n</ul>")
	assert.Contains(t, out, "<pre><code>x = 1 &lt; 2\n</code></pre>")
}

func TestMarkdownToHTMLInlineAndOrderedLists(t *testing.T) {
	out, err := markdownToHTML("- **Accuracy**: 92%\n1. First finding\n2. Second\n\nDrift is **high**.")
	require.NoError(t, err)

	assert.Contains(t, out, "<li><strong>Accuracy</strong>: 92%</li>")
	assert.Contains(t, out, "<ol>\n<li>First finding</li>\n<li>Second</li>\n</ol>")
	assert.Contains(t, out, "<p>Drift is <strong>high</strong>.</p>")
	assert.NotContains(t, out, "**")
}

func TestReportHTMLKeepsMarkupAfterSanitizing(t *testing.T) {
	out, err := ReportHTML("R", "## Key Findings\n- **Accuracy**: 92%\n1. Retrain weekly", nil, time.Now())
	require.NoError(t, err)

	assert.Contains(t, out, "<h2>Key Findings</h2>")
	assert.Contains(t, out, "<strong>Accuracy</strong>")
	assert.Contains(t, out, "<li>Retrain weekly</li>")
}

func TestReportHTMLSanitizes(t *testing.T) {
	metrics := &agent.DashboardMetrics{Accuracy: "93%", F1Score: "0.9", DriftScore: "0.02", DriftStatus: agent.DriftNormal}
	ts := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)

	out, err := ReportHTML("Final Report", "## Findings\n<script>alert(1)</script>", metrics, ts)
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Final Report</title>")
	assert.Contains(t, out, "<h2>Findings</h2>")
	assert.Contains(t, out, "<td>93%</td>")
	assert.Contains(t, out, "0.02 (Normal)")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "Generated 2025-01-02 03:04")
}

func TestReportHTMLWithoutMetrics(t *testing.T) {
	out, err := ReportHTML("R", "text", nil, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, out, `class="metrics"`)
}
