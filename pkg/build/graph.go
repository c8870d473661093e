package build

import (
	"sort"
	"sync"
)

// Edge records that rendering From pulled in To.
type Edge struct {
	From string
	To   string
}

// Graph tracks, for every owner (a page or standalone template), the edges
// recorded while it last rendered, and an index from each node reached back
// to the owners that reached it.
type Graph struct {
	mu         sync.RWMutex
	edges      map[string][]Edge
	dependents map[string]map[string]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		edges:      map[string][]Edge{},
		dependents: map[string]map[string]struct{}{},
	}
}

// Replace swaps the edge set of owner for edges.
func (g *Graph) Replace(owner string, edges []Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remove(owner)
	g.edges[owner] = append([]Edge(nil), edges...)
	for _, e := range edges {
		g.link(e.From, owner)
		g.link(e.To, owner)
	}
}

// Remove forgets owner and its edges.
func (g *Graph) Remove(owner string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remove(owner)
}

// Reset forgets everything.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = map[string][]Edge{}
	g.dependents = map[string]map[string]struct{}{}
}

func (g *Graph) link(node, owner string) {
	if node == "" || node == owner {
		return
	}
	set, ok := g.dependents[node]
	if !ok {
		set = map[string]struct{}{}
		g.dependents[node] = set
	}
	set[owner] = struct{}{}
}

func (g *Graph) remove(owner string) {
	for _, e := range g.edges[owner] {
		for _, node := range []string{e.From, e.To} {
			if set, ok := g.dependents[node]; ok {
				delete(set, owner)
				if len(set) == 0 {
					delete(g.dependents, node)
				}
			}
		}
	}
	delete(g.edges, owner)
}

// Affected returns the owners whose output may change when any of changed
// changes: those that reached a changed node, and changed owners themselves.
func (g *Graph) Affected(changed ...string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := map[string]struct{}{}
	for _, node := range changed {
		if _, ok := g.edges[node]; ok {
			set[node] = struct{}{}
		}
		for owner := range g.dependents[node] {
			set[owner] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Dependents returns the owners that reached node.
func (g *Graph) Dependents(node string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[node])
}

// Dependencies returns every node owner reached, sorted.
func (g *Graph) Dependencies(owner string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := map[string]struct{}{}
	for _, e := range g.edges[owner] {
		for _, node := range []string{e.From, e.To} {
			if node != "" && node != owner {
				set[node] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// Owners returns every owner in the graph.
func (g *Graph) Owners() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.edges))
	for owner := range g.edges {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// recorder collects the edges of one render. It is not shared between goroutines.
type recorder struct {
	edges []Edge
	seen  map[Edge]struct{}
}

func (r *recorder) RecordEdge(from, to string) {
	e := Edge{From: from, To: to}
	if _, ok := r.seen[e]; ok {
		return
	}
	if r.seen == nil {
		r.seen = map[Edge]struct{}{}
	}
	r.seen[e] = struct{}{}
	r.edges = append(r.edges, e)
}
