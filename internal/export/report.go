package export

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/rahul/pipelineai/internal/agent"
)

const ReportPDFFileName = "final_report.pdf"

var (
	reportPolicy   = bluemonday.UGCPolicy()
	reportMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, sans-serif; margin: 40px; color: #1e293b; }
h1, h2, h3 { color: #0f172a; }
table.metrics { border-collapse: collapse; margin: 16px 0; }
table.metrics td { border: 1px solid #cbd5e1; padding: 6px 12px; }
pre { background: #f1f5f9; padding: 12px; white-space: pre-wrap; }
footer { margin-top: 40px; font-size: 11px; color: #64748b; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{with .Metrics}}<table class="metrics">
<tr><td>Accuracy</td><td>{{.Accuracy}}</td></tr>
<tr><td>F1 Score</td><td>{{.F1Score}}</td></tr>
<tr><td>Drift Score</td><td>{{.DriftScore}} ({{.DriftStatus}})</td></tr>
<tr><td>Model Status</td><td>{{.ModelStatus}}</td></tr>
</table>{{end}}
{{.Body}}
<footer>Generated {{.Generated}}</footer>
</body>
</html>
`))

// ReportHTML renders the markdown report as a standalone HTML page. Metrics
// may be nil.
func ReportHTML(title, markdown string, metrics *agent.DashboardMetrics, now time.Time) (string, error) {
	rendered, err := markdownToHTML(markdown)
	if err != nil {
		return "", err
	}
	body := reportPolicy.Sanitize(rendered)
	var buf bytes.Buffer
	err = reportTemplate.Execute(&buf, struct {
		Title     string
		Metrics   *agent.DashboardMetrics
		Body      template.HTML
		Generated string
	}{title, metrics, template.HTML(body), now.Format("2006-01-02 15:04")})
	if err != nil {
		return "", errors.Wrap(err, "render report")
	}
	return buf.String(), nil
}

// RenderPDF prints html to PDF with a headless Chrome.
func RenderPDF(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", true),
		chromedp.Flag("no-first-run", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, cancel := context.WithTimeout(browserCtx, 60*time.Second)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "print report to pdf")
	}
	return pdf, nil
}

// markdownToHTML renders the summary with GitHub-flavoured markdown. Raw HTML
// in the input is dropped by the renderer.
func markdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := reportMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", errors.Wrap(err, "convert report markdown")
	}
	return buf.String(), nil
}
