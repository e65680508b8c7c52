package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedGraph is returned by Build when the node or edge lists are
	// structurally inconsistent.
	ErrMalformedGraph = errors.New("malformed ownership graph")
	// ErrNotAPercentage is returned by ExtractWeight for labels that do not
	// encode an ownership percentage.
	ErrNotAPercentage = errors.New("label is not a percentage")
	// ErrUnknownTarget is returned when the requested target is not a node of
	// the graph.
	ErrUnknownTarget = errors.New("unknown target")

	ErrDiverged          = errors.New("effective ownership diverged")
	ErrPathLimitExceeded = errors.New("path enumeration limit exceeded")
	ErrSingularSystem    = errors.New("ownership system is singular")
)

// MalformedGraphError describes the node or edge that made Build fail.
type MalformedGraphError struct {
	Reason string
	NodeID string
	Edge   *Edge
}

func (e *MalformedGraphError) Error() string {
	if e.Edge != nil {
		return fmt.Sprintf("%s: edge %s -> %s: %s", ErrMalformedGraph, e.Edge.Source, e.Edge.Target, e.Reason)
	}
	return fmt.Sprintf("%s: node %q: %s", ErrMalformedGraph, e.NodeID, e.Reason)
}

func (e *MalformedGraphError) Unwrap() error {
	return ErrMalformedGraph
}

func malformedNode(id, reason string) error {
	return &MalformedGraphError{Reason: reason, NodeID: id}
}

func malformedEdge(edge Edge, reason string) error {
	return &MalformedGraphError{Reason: reason, Edge: &edge}
}
