package pagerank

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Walker simulates a random surfer that, at every step, jumps with
// probability d and otherwise follows a uniformly chosen outlink.
// A Walker is not safe for concurrent use.
type Walker struct {
	g   *Graph
	d   float64
	rng *rand.Rand
}

// NewWalker returns a walker over g. A nil rng uses a randomly seeded one.
func NewWalker(g *Graph, damping float64, rng *rand.Rand) *Walker {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Walker{g: g, d: damping, rng: rng}
}

// MC1 runs n walks from uniform random pages and counts where each walk
// ends. A sink sends the surfer to a random page.
func (w *Walker) MC1(n int) []float64 {
	x := make([]float64, w.g.N())
	if n <= 0 || len(x) == 0 {
		return x
	}
	for i := 0; i < n; i++ {
		x[w.walkToEnd(w.rng.IntN(w.g.N()))]++
	}
	floats.Scale(1/float64(n), x)
	return x
}

// MC2 runs m walks from every page and counts where each walk ends.
func (w *Walker) MC2(m int) []float64 {
	n := w.g.N()
	x := make([]float64, n)
	if m <= 0 || n == 0 {
		return x
	}
	for start := 0; start < n; start++ {
		for j := 0; j < m; j++ {
			x[w.walkToEnd(start)]++
		}
	}
	floats.Scale(1/float64(n*m), x)
	return x
}

// MC3 runs m walks from every page and counts every page visited. A sink
// sends the surfer to a random page. The expected walk length is 1/d, so
// the tally is scaled by d/(N×m).
func (w *Walker) MC3(m int) []float64 {
	n := w.g.N()
	x := make([]float64, n)
	if m <= 0 || n == 0 {
		return x
	}
	for start := 0; start < n; start++ {
		for j := 0; j < m; j++ {
			w.visit(start, x, false)
		}
	}
	floats.Scale(w.d/float64(n*m), x)
	return x
}

// MC4 is MC3 with walks ending at sinks, normalized by the total number of
// visits.
func (w *Walker) MC4(m int) []float64 {
	n := w.g.N()
	x := make([]float64, n)
	if m <= 0 || n == 0 {
		return x
	}
	visits := 0
	for start := 0; start < n; start++ {
		for j := 0; j < m; j++ {
			visits += w.visit(start, x, true)
		}
	}
	floats.Scale(1/float64(visits), x)
	return x
}

// MC5 runs n walks from uniform random pages, counts every page visited,
// ends walks at sinks and normalizes by the total number of visits.
func (w *Walker) MC5(n int) []float64 {
	x := make([]float64, w.g.N())
	if n <= 0 || len(x) == 0 {
		return x
	}
	visits := 0
	for i := 0; i < n; i++ {
		visits += w.visit(w.rng.IntN(w.g.N()), x, true)
	}
	floats.Scale(1/float64(visits), x)
	return x
}

// walkToEnd follows the surfer from start until it gets bored and returns
// the page it is on.
func (w *Walker) walkToEnd(start int) int {
	page := start
	for w.rng.Float64() > w.d {
		page = w.next(page)
	}
	return page
}

// visit tallies every page of one walk into x and returns its length. With
// stopAtSink a walk reaching a sink ends there.
func (w *Walker) visit(start int, x []float64, stopAtSink bool) int {
	page := start
	visits := 0
	for {
		visits++
		x[page]++
		if w.rng.Float64() <= w.d {
			return visits
		}
		if stopAtSink && w.g.OutDegree(page) == 0 {
			return visits
		}
		page = w.next(page)
	}
}

// next follows a random outlink, or jumps to a random page from a sink.
func (w *Walker) next(page int) int {
	links := w.g.Outlinks(page)
	if len(links) == 0 {
		return w.rng.IntN(w.g.N())
	}
	return links[w.rng.IntN(len(links))]
}
