package pagerank

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// EvalOptions control the estimator comparison. Data point i (from 1) runs
// MC1 and MC5 with i×N walks and the per-page estimators with i walks per
// page.
type EvalOptions struct {
	DataPoints int
	Repeats    int
	// Window is the number of pages compared, taken from the bottom of the
	// exact ranking unless Top is set.
	Window int
	Top    bool
	Seed   uint64
}

func DefaultEvalOptions() EvalOptions {
	return EvalOptions{DataPoints: 15, Repeats: 10, Window: 50}
}

// Evaluation holds the mean squared error of every estimator per data point.
type Evaluation struct {
	Sizes  []int
	Errors map[Method][]float64
}

// Evaluate compares each Monte Carlo estimator against exact. The five
// estimators run concurrently, each with its own walker seeded from
// opts.Seed.
func Evaluate(ctx context.Context, g *Graph, exact []float64, p Params, opts EvalOptions) (*Evaluation, error) {
	logger := slog.Default().With("component", "pagerank-eval")
	n := g.N()
	order := rankOrder(exact)
	ev := &Evaluation{
		Sizes:  make([]int, opts.DataPoints),
		Errors: make(map[Method][]float64, len(Estimators)),
	}
	walkers := make(map[Method]*Walker, len(Estimators))
	for k, m := range Estimators {
		ev.Errors[m] = make([]float64, opts.DataPoints)
		walkers[m] = NewWalker(g, p.Damping, rand.New(rand.NewPCG(opts.Seed, uint64(k+1))))
	}

	for i := 1; i <= opts.DataPoints; i++ {
		ev.Sizes[i-1] = i * n
		grp, gctx := errgroup.WithContext(ctx)
		for _, m := range Estimators {
			w := walkers[m]
			errs := ev.Errors[m]
			grp.Go(func() error {
				var sum float64
				for r := 0; r < opts.Repeats; r++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					sum += SquaredError(exact, estimate(w, m, i, n), order, opts.Window, opts.Top)
				}
				if opts.Repeats > 0 {
					errs[i-1] = sum / float64(opts.Repeats)
				}
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return nil, fmt.Errorf("evaluating data point %d: %w", i, err)
		}
		logger.Info("data point evaluated", "point", i, "walks", i*n)
	}
	return ev, nil
}

func estimate(w *Walker, m Method, i, n int) []float64 {
	switch m {
	case MC1:
		return w.MC1(i * n)
	case MC2:
		return w.MC2(i)
	case MC3:
		return w.MC3(i)
	case MC4:
		return w.MC4(i)
	}
	return w.MC5(i * n)
}

// SquaredError sums (exact-estimate)² over a window of pages. order lists
// page ids by descending exact score; the window is its first or last
// window entries.
func SquaredError(exact, estimate []float64, order []int, window int, top bool) float64 {
	if window > len(order) {
		window = len(order)
	}
	ids := order[len(order)-window:]
	if top {
		ids = order[:window]
	}
	var sum float64
	for _, id := range ids {
		d := exact[id] - estimate[id]
		sum += d * d
	}
	return sum
}

func rankOrder(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	return order
}

// WriteTo writes one "mcK = [ ... ];" block per estimator and a final
// "N = [ ... ];" block with the walk counts.
func (e *Evaluation) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	for _, m := range Estimators {
		fmt.Fprintf(cw, "%s = [\n", m)
		for _, v := range e.Errors[m] {
			fmt.Fprintln(cw, strconv.FormatFloat(v, 'g', -1, 64))
		}
		fmt.Fprintln(cw, "];")
	}
	fmt.Fprintln(cw, "N = [")
	for _, n := range e.Sizes {
		fmt.Fprintln(cw, n)
	}
	fmt.Fprintln(cw, "];")
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
