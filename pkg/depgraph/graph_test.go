// SPDX-License-Identifier: Apache-2.0

package depgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgemodel/forge-model/pkg/depgraph"
	"github.com/forgemodel/forge-model/pkg/forgeerr"
)

// Graph under test: Invoice -> Customer -> Account (linear chain),
// LineItem -> Invoice and LineItem -> Product (a diamond via LineItem).
func testGraph() *depgraph.Graph {
	nodes := []depgraph.Node{
		{ID: "s-account", ModelID: "Account"},
		{ID: "s-customer", ModelID: "Customer"},
		{ID: "s-invoice", ModelID: "Invoice"},
		{ID: "s-lineitem", ModelID: "LineItem"},
		{ID: "s-product", ModelID: "Product"},
	}
	edges := []depgraph.Edge{
		{From: "s-customer", To: "s-account", Type: depgraph.DependencyForeignKey, FieldName: "account_id"},
		{From: "s-invoice", To: "s-customer", Type: depgraph.DependencyForeignKey, FieldName: "customer_id"},
		{From: "s-lineitem", To: "s-invoice", Type: depgraph.DependencyForeignKey, FieldName: "invoice_id"},
		{From: "s-lineitem", To: "s-product", Type: depgraph.DependencyForeignKey, FieldName: "product_id"},
	}
	return depgraph.New(nodes, edges)
}

func TestExecutionOrder_DependenciesFirst(t *testing.T) {
	g := testGraph()
	order, err := g.ExecutionOrder([]string{"s-invoice", "s-lineitem", "s-customer", "s-account", "s-product"})
	require.NoError(t, err)

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}

	assert.Less(t, pos["s-account"], pos["s-customer"])
	assert.Less(t, pos["s-customer"], pos["s-invoice"])
	assert.Less(t, pos["s-invoice"], pos["s-lineitem"])
	assert.Less(t, pos["s-product"], pos["s-lineitem"])
}

func TestExecutionOrder_TieBrokenByModelID(t *testing.T) {
	// account and product are both independent roots; model_id ascending
	// ("Account" < "Product") must place account first.
	g := testGraph()
	order, err := g.ExecutionOrder([]string{"s-account", "s-product"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s-account", "s-product"}, order)
}

func TestExecutionOrder_CircularDependency(t *testing.T) {
	nodes := []depgraph.Node{{ID: "a", ModelID: "A"}, {ID: "b", ModelID: "B"}}
	edges := []depgraph.Edge{
		{From: "a", To: "b", Type: depgraph.DependencyForeignKey},
		{From: "b", To: "a", Type: depgraph.DependencyForeignKey},
	}
	g := depgraph.New(nodes, edges)

	_, err := g.ExecutionOrder([]string{"a", "b"})
	require.Error(t, err)

	var cycleErr forgeerr.CircularDependency
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Residual)
}

func TestHasCycle(t *testing.T) {
	g := testGraph()
	// s-account already depends (transitively) on nothing; adding
	// account -> product would not create a cycle...
	assert.False(t, g.HasCycle("s-account", "s-product"))
	// ...but adding account -> customer WOULD, since customer already
	// depends on account.
	assert.True(t, g.HasCycle("s-account", "s-customer"))
}

func TestDependencyChain(t *testing.T) {
	g := testGraph()
	chain := g.DependencyChain("s-lineitem", 10)

	byID := map[string]int{}
	for _, entry := range chain {
		byID[entry.SchemaID] = entry.Depth
	}

	assert.Equal(t, 1, byID["s-invoice"])
	assert.Equal(t, 1, byID["s-product"])
	assert.Equal(t, 2, byID["s-customer"])
	assert.Equal(t, 3, byID["s-account"])
}

func TestDependencyChain_DepthCap(t *testing.T) {
	g := testGraph()
	chain := g.DependencyChain("s-lineitem", 1)
	for _, entry := range chain {
		assert.LessOrEqual(t, entry.Depth, 1)
	}
	// account is 3 hops away; must not appear with a depth cap of 1.
	for _, entry := range chain {
		assert.NotEqual(t, "s-account", entry.SchemaID)
	}
}

func TestDependents(t *testing.T) {
	g := testGraph()

	immediate := g.Dependents("s-invoice", false, 0)
	assert.Equal(t, []string{"s-lineitem"}, immediate)

	all := g.Dependents("s-account", true, 10)
	assert.ElementsMatch(t, []string{"s-customer", "s-invoice", "s-lineitem"}, all)
}

func TestCanDelete(t *testing.T) {
	g := testGraph()

	ok, dependents := g.CanDelete("s-lineitem")
	assert.True(t, ok)
	assert.Empty(t, dependents)

	ok, dependents = g.CanDelete("s-account")
	assert.False(t, ok)
	assert.Equal(t, []string{"s-customer"}, dependents)
}

func TestValidateGraph_UnresolvedAndInactive(t *testing.T) {
	nodes := []depgraph.Node{
		{ID: "s-invoice", ModelID: "Invoice"},
		{ID: "s-customer", ModelID: "Customer"},
	}
	edges := []depgraph.Edge{
		{From: "s-invoice", To: "s-customer", Type: depgraph.DependencyForeignKey, FieldName: "customer_id"},
		{From: "s-invoice", To: "", ToModelID: "Account", Type: depgraph.DependencyReference, FieldName: "account_id"},
	}
	g := depgraph.New(nodes, edges)

	report := g.ValidateGraph(map[string]bool{"s-invoice": true})
	assert.False(t, report.OK())
	assert.Len(t, report.Issues, 2)
}

func TestStatistics(t *testing.T) {
	g := testGraph()
	stats := g.Statistics()
	assert.Equal(t, 5, stats.NodeCount)
	assert.Equal(t, 4, stats.EdgeCount)
	assert.Equal(t, 2, stats.RootCount) // s-account, s-product: no outgoing edges
	assert.Equal(t, 1, stats.LeafCount) // s-lineitem: no incoming edges
}
