package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1"

	"github.com/rahul/pipelineai/internal/agent"
)

// statusColor is the node fill per step status.
var statusColor = map[agent.StepStatus][3]uint8{
	agent.StepPending:   {203, 213, 225},
	agent.StepActive:    {96, 165, 250},
	agent.StepCompleted: {74, 222, 128},
	agent.StepFailed:    {248, 113, 113},
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ")

func vertexID(id int) string {
	return fmt.Sprintf("step-%d", id)
}

// PlanGraph builds the plan as a directed chain, one vertex per step.
func PlanGraph(steps []agent.PlanStep) (graph.Graph[string, agent.PlanStep], error) {
	g := graph.New(func(s agent.PlanStep) string { return vertexID(s.ID) }, graph.Directed())

	for i, s := range steps {
		rgb, ok := statusColor[s.Status]
		if !ok {
			rgb = statusColor[agent.StepPending]
		}
		fill, err := colors.RGB(rgb[0], rgb[1], rgb[2])
		if err != nil {
			return nil, errors.Wrap(err, "unable to get colour")
		}

		err = g.AddVertex(s,
			graph.VertexAttribute("label", fmt.Sprintf(`%d. %s\n[%s]`, s.ID, dotEscaper.Replace(s.Description), s.Status)),
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("style", "filled"),
			graph.VertexAttribute("fillcolor", fill.ToHEX().String()),
		)
		if err != nil {
			return nil, errors.Wrap(err, "unable to add vertex")
		}
		if i > 0 {
			if err := g.AddEdge(vertexID(steps[i-1].ID), vertexID(s.ID)); err != nil {
				return nil, errors.Wrapf(err, "unable to add edge from %d to %d", steps[i-1].ID, s.ID)
			}
		}
	}
	return g, nil
}

// PlanDOT writes the plan flow as a Graphviz DOT document.
func PlanDOT(steps []agent.PlanStep, w io.Writer) error {
	g, err := PlanGraph(steps)
	if err != nil {
		return err
	}
	if err := draw.DOT(g, w, draw.GraphAttribute("rankdir", "TB")); err != nil {
		return errors.Wrap(err, "unable to render dot")
	}
	return nil
}
