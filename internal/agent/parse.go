package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// NoCodeGenerated is used when the coder reply carries no python block.
const NoCodeGenerated = "# No code generated"

var pythonBlock = regexp.MustCompile("(?s)```python(.*?)```")

// stripCodeFences removes every markdown fence so the remainder can be decoded as JSON.
func stripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func parsePlan(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		text = "[]"
	}
	var steps []string
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &steps); err != nil {
		return nil, errors.Wrap(err, "decode plan")
	}
	if steps == nil {
		steps = []string{}
	}
	return steps, nil
}

func parseCode(text string) CodeResult {
	code := NoCodeGenerated
	if m := pythonBlock.FindStringSubmatch(text); m != nil {
		code = strings.TrimSpace(m[1])
	}
	return CodeResult{
		Code:        code,
		Explanation: strings.TrimSpace(pythonBlock.ReplaceAllString(text, "")),
	}
}

func parseMetrics(text string) (DashboardMetrics, error) {
	if strings.TrimSpace(text) == "" {
		text = "{}"
	}
	var m DashboardMetrics
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &m); err != nil {
		return DashboardMetrics{}, errors.Wrap(err, "decode dashboard metrics")
	}
	return m, nil
}
