// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "encoding/json"

// Snapshot is a serializable view of a graph.
type Snapshot struct {
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	Nodes     []*Node `json:"nodes"`
	Edges     []*Edge `json:"edges"`
}

// Snapshot renders the graph in insertion order. The snapshot shares node
// and edge values with the graph; callers that keep it past further
// mutation should marshal it first.
func (g *Graph) Snapshot() *Snapshot {
	return &Snapshot{
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
		Nodes:     g.Nodes(),
		Edges:     g.Edges(),
	}
}

// MarshalJSON serializes the graph as its snapshot.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Snapshot())
}
