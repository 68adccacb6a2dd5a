package export

import (
	"encoding/json"
	"strings"
)

// Cell is one notebook cell. Code cells carry an empty output list and a null
// execution count.
type Cell struct {
	CellType string
	Source   []string
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.CellType == "code" {
		return json.Marshal(struct {
			CellType       string         `json:"cell_type"`
			ExecutionCount *int           `json:"execution_count"`
			Metadata       map[string]any `json:"metadata"`
			Outputs        []any          `json:"outputs"`
			Source         []string       `json:"source"`
		}{c.CellType, nil, map[string]any{}, []any{}, c.Source})
	}
	return json.Marshal(struct {
		CellType string         `json:"cell_type"`
		Metadata map[string]any `json:"metadata"`
		Source   []string       `json:"source"`
	}{c.CellType, map[string]any{}, c.Source})
}

type Kernelspec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

type CodemirrorMode struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type LanguageInfo struct {
	CodemirrorMode    CodemirrorMode `json:"codemirror_mode"`
	FileExtension     string         `json:"file_extension"`
	Mimetype          string         `json:"mimetype"`
	Name              string         `json:"name"`
	NbconvertExporter string         `json:"nbconvert_exporter"`
	PygmentsLexer     string         `json:"pygments_lexer"`
	Version           string         `json:"version"`
}

type NotebookMetadata struct {
	Kernelspec   Kernelspec   `json:"kernelspec"`
	LanguageInfo LanguageInfo `json:"language_info"`
}

// Notebook is the nbformat 4.4 document written for the pipeline code.
type Notebook struct {
	Cells         []Cell           `json:"cells"`
	Metadata      NotebookMetadata `json:"metadata"`
	Nbformat      int              `json:"nbformat"`
	NbformatMinor int              `json:"nbformat_minor"`
}

const stepHeaderPrefix = "# Step"

type scanState int

const (
	inHeader scanState = iota
	inCodeBlock
)

// cellScanner groups lines into cells. Every line whose trimmed form starts
// with "# Step" closes the pending code block and becomes a markdown heading.
// Anything else, including a step header written some other way, lands in
// the surrounding code cell.
type cellScanner struct {
	state scanState
	block []string
	cells []Cell
}

func (s *cellScanner) line(l string) {
	if strings.HasPrefix(strings.TrimSpace(l), stepHeaderPrefix) {
		if s.state == inCodeBlock {
			s.flush()
		}
		s.state = inHeader
		s.cells = append(s.cells, Cell{
			CellType: "markdown",
			Source:   []string{"### " + strings.TrimSpace(strings.Replace(l, "# ", "", 1))},
		})
		return
	}
	s.state = inCodeBlock
	s.block = append(s.block, l)
}

func (s *cellScanner) flush() {
	if len(s.block) == 0 {
		return
	}
	src := make([]string, len(s.block))
	for i, l := range s.block {
		src[i] = l + "\n"
	}
	s.cells = append(s.cells, Cell{CellType: "code", Source: src})
	s.block = nil
}

// BuildNotebook splits the aggregated pipeline code into notebook cells under
// a title cell.
func BuildNotebook(code string) Notebook {
	s := &cellScanner{
		cells: []Cell{{
			CellType: "markdown",
			Source:   []string{"# AI Analysis Pipeline\n", "Generated by Agentic Data Scientist"},
		}},
	}
	for _, l := range strings.Split(code, "\n") {
		s.line(l)
	}
	if s.state == inCodeBlock {
		s.flush()
	}

	return Notebook{
		Cells: s.cells,
		Metadata: NotebookMetadata{
			Kernelspec: Kernelspec{DisplayName: "Python 3", Language: "python", Name: "python3"},
			LanguageInfo: LanguageInfo{
				CodemirrorMode:    CodemirrorMode{Name: "ipython", Version: 3},
				FileExtension:     ".py",
				Mimetype:          "text/x-python",
				Name:              "python",
				NbconvertExporter: "python",
				PygmentsLexer:     "ipython3",
				Version:           "3.8.5",
			},
		},
		Nbformat:      4,
		NbformatMinor: 4,
	}
}

// NotebookJSON renders the notebook with two-space indentation.
func NotebookJSON(code string) ([]byte, error) {
	return json.MarshalIndent(BuildNotebook(code), "", "  ")
}
