package pagerank

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// Method names a way of computing the PageRank vector.
type Method string

const (
	Exact Method = "s"
	MC1   Method = "mc1"
	MC2   Method = "mc2"
	MC3   Method = "mc3"
	MC4   Method = "mc4"
	MC5   Method = "mc5"
)

// Estimators lists the Monte Carlo methods in order.
var Estimators = []Method{MC1, MC2, MC3, MC4, MC5}

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Exact, MC1, MC2, MC3, MC4, MC5:
		return m, nil
	case "":
		return Exact, nil
	}
	return "", fmt.Errorf("unknown pagerank method %q: %w", s, apperrors.ErrInvalidInput)
}

// Params are the random surfer parameters.
type Params struct {
	// Damping is the probability of a random jump at each step.
	Damping       float64
	Epsilon       float64
	MaxIterations int
}

func ParamsFromConfig(cfg config.PageRankConfig) Params {
	return Params{Damping: cfg.Damping, Epsilon: cfg.Epsilon, MaxIterations: cfg.MaxIterations}
}

// Result is the output of power iteration.
type Result struct {
	Scores     []float64
	Iterations int
	// Delta is the L1 distance between the last two vectors.
	Delta float64
}

// PowerIteration starts from the uniform vector and applies
//
//	x'[i] = Σ_j x[j] × P(i|j)
//
// where P(i|j) is 1/N for a sink j, (1-d)/out[j] + d/N when j links to i
// and d/N otherwise. It stops once the L1 change is at most Epsilon or after
// MaxIterations steps. Each step costs O(N+E).
func PowerIteration(g *Graph, p Params) Result {
	n := g.N()
	if n == 0 {
		return Result{Scores: []float64{}}
	}
	cur := make([]float64, n)
	for i := range cur {
		cur[i] = 1 / float64(n)
	}
	next := make([]float64, n)
	res := Result{Delta: 1}
	for res.Iterations < p.MaxIterations {
		step(g, p.Damping, cur, next)
		res.Delta = floats.Distance(cur, next, 1)
		cur, next = next, cur
		res.Iterations++
		if res.Delta <= p.Epsilon {
			break
		}
	}
	res.Scores = cur
	return res
}

// step writes one multiplication by the transition matrix of x into out.
// Rows are never materialized: sink mass and jump mass are spread evenly,
// the rest follows the outlinks.
func step(g *Graph, d float64, x, out []float64) {
	n := float64(g.N())
	var sinkMass, linkMass float64
	for j, mass := range x {
		if g.OutDegree(j) == 0 {
			sinkMass += mass
		} else {
			linkMass += mass
		}
	}
	base := sinkMass/n + d*linkMass/n
	for i := range out {
		out[i] = base
	}
	for j, mass := range x {
		deg := g.OutDegree(j)
		if deg == 0 {
			continue
		}
		share := (1 - d) * mass / float64(deg)
		for _, i := range g.Outlinks(j) {
			out[i] += share
		}
	}
}

// Compute runs method on g. samples is N for MC1 and MC5 and M for the
// per-page estimators; zero picks N = number of pages and M = walksPerPage.
// The int result is the iteration count of the exact method and the sample
// size of an estimator.
func Compute(ctx context.Context, g *Graph, method Method, p Params, rng *rand.Rand, samples int, walksPerPage int) ([]float64, int, error) {
	logger := slog.Default().With("component", "pagerank", "method", string(method))
	if g.N() == 0 {
		return []float64{}, 0, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if method == Exact {
		res := PowerIteration(g, p)
		if res.Delta > p.Epsilon {
			logger.Warn("power iteration did not converge", "iterations", res.Iterations, "delta", res.Delta)
		}
		logger.Info("power iteration done", "nodes", g.N(), "edges", g.Edges(), "sinks", g.Sinks(),
			"iterations", res.Iterations, "delta", res.Delta)
		return res.Scores, res.Iterations, nil
	}

	w := NewWalker(g, p.Damping, rng)
	if samples <= 0 {
		switch method {
		case MC1, MC5:
			samples = g.N()
		default:
			samples = walksPerPage
		}
	}
	var x []float64
	switch method {
	case MC1:
		x = w.MC1(samples)
	case MC2:
		x = w.MC2(samples)
	case MC3:
		x = w.MC3(samples)
	case MC4:
		x = w.MC4(samples)
	case MC5:
		x = w.MC5(samples)
	default:
		return nil, 0, fmt.Errorf("unknown pagerank method %q: %w", method, apperrors.ErrInvalidInput)
	}
	logger.Info("monte carlo estimate done", "nodes", g.N(), "samples", samples, "mass", floats.Sum(x))
	return x, samples, nil
}
