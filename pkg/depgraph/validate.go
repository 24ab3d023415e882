// SPDX-License-Identifier: Apache-2.0

package depgraph

import "sort"

// Issue is one problem found while validating a graph's edges against the
// set of currently active schema ids.
type Issue struct {
	SchemaID string
	Field    string
	Message  string
}

// ValidationReport collects the issues found by ValidateGraph.
type ValidationReport struct {
	Issues []Issue
}

// OK reports whether the graph has no issues.
func (r *ValidationReport) OK() bool { return len(r.Issues) == 0 }

// ValidateGraph checks every edge against activeIDs (the set of schema ids
// currently in "active" status) and reports edges pointing at a schema that
// is absent or not active, plus any cycle among the full node set.
func (g *Graph) ValidateGraph(activeIDs map[string]bool) *ValidationReport {
	report := &ValidationReport{}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, e := range g.outEdges[id] {
			if e.To == "" {
				report.Issues = append(report.Issues, Issue{
					SchemaID: id,
					Field:    e.FieldName,
					Message:  "references model " + e.ToModelID + " but no active schema resolves it",
				})
				continue
			}
			if !activeIDs[e.To] {
				report.Issues = append(report.Issues, Issue{
					SchemaID: id,
					Field:    e.FieldName,
					Message:  "references schema " + e.To + " which is not active",
				})
			}
		}
	}

	if _, err := g.ExecutionOrder(ids); err != nil {
		report.Issues = append(report.Issues, Issue{
			Message: err.Error(),
		})
	}

	return report
}

// Stats summarizes a graph's shape (spec §4.8: "totals, averages,
// most-dependent and most-depended-on").
type Stats struct {
	NodeCount int
	EdgeCount int
	RootCount int // nodes with no outgoing (dependency) edges
	LeafCount int // nodes with no incoming (dependent) edges
	MaxFanIn  int
	MaxFanOut int

	AvgFanIn  float64
	AvgFanOut float64

	// MostDependedOn is the schema id with the highest fan-in (most other
	// schemas depend on it); MostDependent has the highest fan-out (depends
	// on the most other schemas). Ties broken by model_id ascending per
	// spec §9's tie-break guidance.
	MostDependedOn string
	MostDependent  string
}

// Statistics computes summary counts over the graph, useful for operator
// dashboards and the lifecycle engine's status reporting.
func (g *Graph) Statistics() Stats {
	s := Stats{NodeCount: len(g.nodes)}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return g.modelID(ids[i]) < g.modelID(ids[j]) })

	for _, id := range ids {
		out := len(g.outEdges[id])
		in := len(g.inEdges[id])
		s.EdgeCount += out
		if out == 0 {
			s.RootCount++
		}
		if in == 0 {
			s.LeafCount++
		}
		if in > s.MaxFanIn {
			s.MaxFanIn = in
			s.MostDependedOn = id
		}
		if out > s.MaxFanOut {
			s.MaxFanOut = out
			s.MostDependent = id
		}
	}

	if s.NodeCount > 0 {
		s.AvgFanIn = float64(s.EdgeCount) / float64(s.NodeCount)
		s.AvgFanOut = s.AvgFanIn
	}

	return s
}
