// Package pagerank computes the stationary distribution of a damped random
// walk over a document link graph, exactly by power iteration or
// approximately by one of five Monte Carlo estimators.
package pagerank

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// Graph is a directed link graph over dense node ids. Ids are assigned in
// order of first appearance, as a source or as a target.
type Graph struct {
	names []string
	ids   map[string]int
	links [][]int
	edges map[[2]int]struct{}
	sinks int
}

func NewGraph() *Graph {
	return &Graph{
		ids:   make(map[string]int),
		edges: make(map[[2]int]struct{}),
	}
}

// AddNode returns the id of name, assigning the next id if it is new.
func (g *Graph) AddNode(name string) int {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := len(g.names)
	g.ids[name] = id
	g.names = append(g.names, name)
	g.links = append(g.links, nil)
	g.sinks++
	return id
}

// AddEdge records a link from → to. Repeated links count once.
func (g *Graph) AddEdge(from, to string) {
	f := g.AddNode(from)
	t := g.AddNode(to)
	key := [2]int{f, t}
	if _, dup := g.edges[key]; dup {
		return
	}
	g.edges[key] = struct{}{}
	if len(g.links[f]) == 0 {
		g.sinks--
	}
	g.links[f] = append(g.links[f], t)
}

func (g *Graph) N() int { return len(g.names) }

func (g *Graph) Name(id int) string { return g.names[id] }

func (g *Graph) ID(name string) (int, bool) {
	id, ok := g.ids[name]
	return id, ok
}

func (g *Graph) OutDegree(id int) int { return len(g.links[id]) }

// Outlinks returns the distinct targets of id. The slice must not be
// modified.
func (g *Graph) Outlinks(id int) []int { return g.links[id] }

// Sinks is the number of nodes without outlinks.
func (g *Graph) Sinks() int { return g.sinks }

func (g *Graph) Edges() int { return len(g.edges) }

// ReadGraph parses lines of the form "title;target1,target2,...". Empty
// lines are skipped; a line without ';' is malformed.
func ReadGraph(r io.Reader, name string) (*Graph, error) {
	g := NewGraph()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		title, targets, ok := strings.Cut(line, ";")
		if !ok || title == "" {
			return nil, apperrors.Malformed(name, line, "expected title;targets")
		}
		g.AddNode(title)
		for _, t := range strings.Split(targets, ",") {
			if t == "" {
				continue
			}
			g.AddEdge(title, t)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading link file %s: %w", name, err)
	}
	return g, nil
}

// LoadGraph reads the link file at path.
func LoadGraph(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening link file: %w", err)
	}
	defer f.Close()
	return ReadGraph(f, path)
}
