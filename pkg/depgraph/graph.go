// SPDX-License-Identifier: Apache-2.0

// Package depgraph is the Dependency Resolver (spec §4.8): it builds a
// directed graph of inter-schema references from the repository's edge set,
// topologically orders activation/execution, detects cycles, and answers
// safe-deletion and impact queries.
//
// The graph is materialized on demand from a flat edge list rather than
// held as an ambient stateful object (spec §9's "Graph topology" design
// note), which keeps Graph a pure, test-friendly value type.
package depgraph

import (
	"sort"

	"github.com/forgemodel/forge-model/pkg/forgeerr"
)

// DependencyType mirrors SchemaDependencyEdge.dependency_type (spec §3.4).
type DependencyType string

const (
	DependencyForeignKey DependencyType = "foreign_key"
	DependencyReference  DependencyType = "reference"
)

// Edge is a directed dependency: From (the dependent schema) references To
// (the schema it depends on). To is empty when the referent is absent or
// not yet active — resolvers treat that as an unsatisfied edge.
type Edge struct {
	From      string
	To        string
	ToModelID string
	Type      DependencyType
	FieldName string
}

// Node is one schema participating in the graph.
type Node struct {
	ID      string
	ModelID string
}

// Graph is the materialized dependency graph for a set of schemas.
type Graph struct {
	nodes    map[string]Node
	outEdges map[string][]Edge // From -> edges pointing to its dependencies
	inEdges  map[string][]Edge // To -> edges pointing into it (dependents)
}

// New builds a Graph from the given nodes and edges.
func New(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		nodes:    make(map[string]Node, len(nodes)),
		outEdges: make(map[string][]Edge),
		inEdges:  make(map[string][]Edge),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range edges {
		g.outEdges[e.From] = append(g.outEdges[e.From], e)
		if e.To != "" {
			g.inEdges[e.To] = append(g.inEdges[e.To], e)
		}
	}
	return g
}

func (g *Graph) modelID(id string) string {
	if n, ok := g.nodes[id]; ok {
		return n.ModelID
	}
	return id
}

// ExecutionOrder returns a permutation of ids such that for every edge
// a -> b with both ends in ids, b precedes a (Kahn's algorithm). Ties among
// independent nodes are broken by model_id ascending for repeatable output
// (spec §9's Open Question resolution). Returns forgeerr.CircularDependency
// naming the residual set if the subgraph cannot be fully ordered.
func (g *Graph) ExecutionOrder(ids []string) ([]string, error) {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	// inDegree[x] = number of dependencies of x still unresolved within ids.
	inDegree := make(map[string]int, len(ids))
	for _, id := range ids {
		count := 0
		for _, e := range g.outEdges[id] {
			if e.To != "" && idSet[e.To] {
				count++
			}
		}
		inDegree[id] = count
	}

	var ready []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return g.modelID(ready[i]) < g.modelID(ready[j]) })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependentID := range g.dependentsWithin(next, idSet) {
			inDegree[dependentID]--
			if inDegree[dependentID] == 0 {
				ready = append(ready, dependentID)
			}
		}
	}

	if len(order) != len(ids) {
		residual := make([]string, 0, len(ids)-len(order))
		emitted := make(map[string]bool, len(order))
		for _, id := range order {
			emitted[id] = true
		}
		for _, id := range ids {
			if !emitted[id] {
				residual = append(residual, id)
			}
		}
		sort.Strings(residual)
		return nil, forgeerr.CircularDependency{Residual: residual}
	}

	return order, nil
}

// dependentsWithin returns the ids within idSet that have an edge pointing
// at target (i.e. target's immediate dependents, restricted to idSet).
func (g *Graph) dependentsWithin(target string, idSet map[string]bool) []string {
	var out []string
	for _, e := range g.inEdges[target] {
		if idSet[e.From] {
			out = append(out, e.From)
		}
	}
	return out
}

// HasCycle reports whether adding a directed edge candidateFrom ->
// candidateTo would create a cycle: true iff candidateFrom is reachable
// from candidateTo by following existing outgoing dependency edges.
func (g *Graph) HasCycle(candidateFrom, candidateTo string) bool {
	if candidateFrom == candidateTo {
		return true
	}
	visited := map[string]bool{}
	var dfs func(string) bool
	dfs = func(node string) bool {
		if node == candidateFrom {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for _, e := range g.outEdges[node] {
			if e.To == "" {
				continue
			}
			if dfs(e.To) {
				return true
			}
		}
		return false
	}
	return dfs(candidateTo)
}

// ChainEntry is one node discovered while walking DependencyChain.
type ChainEntry struct {
	SchemaID string
	Depth    int
	Edges    []Edge
}

// DependencyChain performs a breadth-first walk outward from id along
// outgoing (dependency) edges, capped at maxDepth.
func (g *Graph) DependencyChain(id string, maxDepth int) []ChainEntry {
	type queued struct {
		id    string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []queued{{id, 0}}
	var out []ChainEntry

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > 0 {
			out = append(out, ChainEntry{SchemaID: cur.id, Depth: cur.depth, Edges: g.outEdges[cur.id]})
		}

		if cur.depth >= maxDepth {
			continue
		}

		for _, e := range g.outEdges[cur.id] {
			if e.To == "" || visited[e.To] {
				continue
			}
			visited[e.To] = true
			queue = append(queue, queued{e.To, cur.depth + 1})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].SchemaID < out[j].SchemaID
	})
	return out
}

// Dependents returns all schema ids with an edge into id: its immediate
// dependents, or (recursive) every schema transitively depending on it,
// capped at maxDepth.
func (g *Graph) Dependents(id string, recursive bool, maxDepth int) []string {
	if !recursive {
		var out []string
		for _, e := range g.inEdges[id] {
			out = append(out, e.From)
		}
		sort.Strings(out)
		return dedupe(out)
	}

	visited := map[string]bool{id: true}
	queue := []struct {
		id    string
		depth int
	}{{id, 0}}
	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, e := range g.inEdges[cur.id] {
			if visited[e.From] {
				continue
			}
			visited[e.From] = true
			out = append(out, e.From)
			queue = append(queue, struct {
				id    string
				depth int
			}{e.From, cur.depth + 1})
		}
	}

	sort.Strings(out)
	return dedupe(out)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

// CanDelete reports whether id is safe to delete: it has no immediate
// dependents. The second return value lists the blocking dependents when
// deletion is unsafe.
func (g *Graph) CanDelete(id string) (bool, []string) {
	dependents := g.Dependents(id, false, 0)
	return len(dependents) == 0, dependents
}
