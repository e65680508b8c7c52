package routes

import (
	"fmt"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
)

// ElementData is the data object of a Cytoscape node or edge.
type ElementData struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
}

type Element struct {
	Data ElementData `json:"data"`
}

// Elements is the {nodes, edges} document the graph views render.
type Elements struct {
	Nodes []Element `json:"nodes"`
	Edges []Element `json:"edges"`
}

// NodeLabel renders the two-line node caption "Name\n(id)".
func NodeLabel(n common.Node) string {
	return fmt.Sprintf("%s\n(%s)", n.DisplayName(), n.ID)
}

func ToElements(s *common.Snapshot) Elements {
	out := Elements{
		Nodes: make([]Element, 0, len(s.Nodes)),
		Edges: make([]Element, 0, len(s.Edges)),
	}
	for _, n := range s.Nodes {
		out.Nodes = append(out.Nodes, Element{Data: ElementData{
			ID:    n.ID,
			Label: NodeLabel(n),
			Type:  string(n.Kind),
		}})
	}
	for _, e := range s.Edges {
		id := e.ID
		if id == "" {
			id = e.Source + "->" + e.Target
		}
		out.Edges = append(out.Edges, Element{Data: ElementData{
			ID:     id,
			Label:  e.Label,
			Source: e.Source,
			Target: e.Target,
		}})
	}
	return out
}
