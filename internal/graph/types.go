// Package graph resolves the package dependency graph for a batchopt run.
package graph

// Node represents a package in the dependency graph.
type Node struct {
	Name      string // Package name
	Requested bool   // True if the package was named by the caller
	Pruned    bool   // True if the package was reached but left out of the execution list
}

// Edge represents a dependency relationship between packages.
type Edge struct {
	From string // Dependent package name
	To   string // Package providing the library
}

// Graph records the package-level dependency structure discovered while
// resolving a run. It is diagnostic: the execution order comes from the
// Resolver, not from the graph.
type Graph struct {
	Nodes    map[string]*Node    // package name -> node
	Children map[string][]string // package name -> packages it depends on (outgoing edges)
	Parents  map[string][]string // package name -> packages depending on it (incoming edges)
	order    []string            // node insertion order
	edges    map[Edge]bool
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		edges:    make(map[Edge]bool),
	}
}

// AddNode adds a package node to the graph. Adding an existing name keeps
// the first node but promotes it to requested if node is requested.
func (g *Graph) AddNode(node *Node) {
	if existing, ok := g.Nodes[node.Name]; ok {
		existing.Requested = existing.Requested || node.Requested
		return
	}
	g.Nodes[node.Name] = node
	g.order = append(g.order, node.Name)
}

// AddEdge adds a dependent -> provider relationship. Duplicate edges and
// self edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	if from == to {
		return
	}
	edge := Edge{From: from, To: to}
	if g.edges[edge] {
		return
	}
	g.edges[edge] = true

	// Add to children map (forward edges)
	g.Children[from] = append(g.Children[from], to)

	// Add to parents map (reverse edges)
	g.Parents[to] = append(g.Parents[to], from)
}

// GetChildren returns all packages the given package depends on.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns all packages depending on the given package.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// GetNode returns the node for a given package name, or nil if not found.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.Nodes[name]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AllNodes returns all package names in insertion order.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, len(g.order))
	copy(nodes, g.order)
	return nodes
}

// AllEdges returns all edges, grouped by dependent in node insertion order.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for _, from := range g.order {
		for _, to := range g.Children[from] {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}
