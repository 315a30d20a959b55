package pagerank

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
)

// cycleWithSink is A → B → C → A with A also linking to the sink D.
const cycleWithSink = "A;B,D\nB;C\nC;A\n"

func parse(t *testing.T, links string) *Graph {
	t.Helper()
	g, err := ReadGraph(strings.NewReader(links), "links.txt")
	require.NoError(t, err)
	return g
}

func precise() Params {
	return Params{Damping: 0.15, Epsilon: 1e-12, MaxIterations: 1000}
}

func TestReadGraph(t *testing.T) {
	g := parse(t, "10;20,30,20\n20;\n\n30;10,40,\n")

	assert.Equal(t, 4, g.N())
	for i, name := range []string{"10", "20", "30", "40"} {
		id, ok := g.ID(name)
		require.True(t, ok)
		assert.Equal(t, i, id)
		assert.Equal(t, name, g.Name(i))
	}
	assert.Equal(t, 2, g.OutDegree(0), "repeated links count once")
	assert.Equal(t, []int{1, 2}, g.Outlinks(0))
	assert.Equal(t, 0, g.OutDegree(1))
	assert.Equal(t, 2, g.OutDegree(2))
	assert.Equal(t, 2, g.Sinks())
	assert.Equal(t, 4, g.Edges())

	_, err := ReadGraph(strings.NewReader("10;20\nbroken line\n"), "links.txt")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedRecord))
}

func TestPowerIterationSumsToOne(t *testing.T) {
	for _, links := range []string{
		cycleWithSink,
		"A;B\n",
		"A;\n",
		"1;2,3,4\n2;3\n3;1\n5;1,2\n6;6\n",
	} {
		res := PowerIteration(parse(t, links), ParamsFromConfig(config.Default().PageRank))
		assert.InDelta(t, 1.0, floats.Sum(res.Scores), 1e-9, links)
		assert.LessOrEqual(t, res.Delta, 0.0001)
	}
	assert.Empty(t, PowerIteration(NewGraph(), precise()).Scores)
}

func TestPowerIterationKnownValues(t *testing.T) {
	res := PowerIteration(parse(t, "A;B\nB;A\n"), precise())
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, res.Scores, 1e-12)

	// A links to the sink B: πA = 0.5 / 1.425.
	res = PowerIteration(parse(t, "A;B\n"), precise())
	assert.InDelta(t, 0.5/1.425, res.Scores[0], 1e-9)
	assert.InDelta(t, 0.925/1.425, res.Scores[1], 1e-9)
}

func TestPowerIterationStopsAtIterationCap(t *testing.T) {
	p := precise()
	p.MaxIterations = 2
	res := PowerIteration(parse(t, cycleWithSink), p)
	assert.Equal(t, 2, res.Iterations)
}

func TestPowerIterationIsInvariantToRelabeling(t *testing.T) {
	a := parse(t, "1;2,3\n2;3\n3;1,4\n4;\n5;1\n")
	b := parse(t, "5;1\n4;\n3;4,1\n1;3,2\n2;3\n")
	ra := PowerIteration(a, precise()).Scores
	rb := PowerIteration(b, precise()).Scores
	for _, name := range []string{"1", "2", "3", "4", "5"} {
		ia, _ := a.ID(name)
		ib, _ := b.ID(name)
		assert.InDelta(t, ra[ia], rb[ib], 1e-9, name)
	}
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x5eed))
}

func estimateWith(w *Walker, m Method, samples int) []float64 {
	return estimate(w, m, samples, 1)
}

func TestEstimatorsApproachExactRanking(t *testing.T) {
	g := parse(t, cycleWithSink)
	exact := PowerIteration(g, precise()).Scores
	large := map[Method]int{MC1: 200000, MC2: 50000, MC3: 50000, MC4: 50000, MC5: 200000}

	for k, m := range Estimators {
		w := NewWalker(g, 0.15, seeded(uint64(k)))
		x := estimateWith(w, m, large[m])
		// MC3 scales by the expected walk length, so its mass is only
		// approximately one.
		tolerance := 1e-9
		if m == MC3 {
			tolerance = 0.02
		}
		assert.InDelta(t, 1.0, floats.Sum(x), tolerance, string(m))
		assert.Less(t, floats.Distance(exact, x, 1), 0.02, string(m))
	}
}

func TestEstimatorErrorShrinksWithSamples(t *testing.T) {
	g := parse(t, cycleWithSink)
	exact := PowerIteration(g, precise()).Scores
	meanError := func(w *Walker, m Method, samples int) float64 {
		var sum float64
		for r := 0; r < 20; r++ {
			sum += floats.Distance(exact, estimateWith(w, m, samples), 1)
		}
		return sum / 20
	}
	small := map[Method]int{MC1: 4, MC2: 1, MC3: 1, MC4: 1, MC5: 4}

	for k, m := range Estimators {
		w := NewWalker(g, 0.15, seeded(uint64(100+k)))
		few := meanError(w, m, small[m])
		many := meanError(w, m, small[m]*2000)
		assert.Less(t, many, few, string(m))
	}
}

func TestCompute(t *testing.T) {
	g := parse(t, cycleWithSink)
	p := precise()

	x, iters, err := Compute(context.Background(), g, Exact, p, nil, 0, 0)
	require.NoError(t, err)
	assert.Greater(t, iters, 1)
	assert.InDelta(t, 1.0, floats.Sum(x), 1e-9)

	x, n, err := Compute(context.Background(), g, MC5, p, seeded(1), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, g.N(), n)
	assert.Len(t, x, g.N())

	_, m, err := Compute(context.Background(), g, MC2, p, seeded(1), 0, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Compute(ctx, g, Exact, p, nil, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("mc3")
	require.NoError(t, err)
	assert.Equal(t, MC3, m)
	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, Exact, m)
	_, err = ParseMethod("mc6")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestReportAndScores(t *testing.T) {
	g := parse(t, "7;8\n8;7,9\n")
	ranked := Rank(g, []float64{0.25, 0.5, 0.25})
	require.Equal(t, []Ranked{{"8", 0.5}, {"7", 0.25}, {"9", 0.25}}, ranked)

	var report bytes.Buffer
	require.NoError(t, WriteReport(&report, ranked, 2))
	assert.Equal(t, "1: 8 0.5\n2: 7 0.25\n", report.String())

	var scores bytes.Buffer
	require.NoError(t, WriteScores(&scores, ranked))
	assert.Equal(t, "8 0.5\n7 0.25\n9 0.25\n", scores.String())
	back, err := ReadScores(&scores, "scores.txt")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"7": 0.25, "8": 0.5, "9": 0.25}, back)

	_, err = ReadScores(strings.NewReader("7 x\n"), "scores.txt")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedRecord))
}

func TestReadTitles(t *testing.T) {
	titles, err := ReadTitles(strings.NewReader("121;Document_One\n122;Linear_algebra;notes\n\n"), "titles.txt")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Document_One": "121", "Linear_algebra;notes": "122"}, titles)

	_, err = ReadTitles(strings.NewReader("no separator\n"), "titles.txt")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedRecord))
}

func TestSaveFileAndLoad(t *testing.T) {
	path := t.TempDir() + "/out/page_rank.txt"
	require.NoError(t, SaveFile(path, func(w io.Writer) error {
		return WriteScores(w, []Ranked{{"1", 0.75}, {"2", 0.25}})
	}))
	scores, err := LoadScores(path)
	require.NoError(t, err)
	assert.Equal(t, 0.75, scores["1"])

	_, err = LoadScores(path + ".missing")
	assert.Error(t, err)
}

func TestSquaredError(t *testing.T) {
	exact := []float64{0.5, 0.3, 0.2}
	est := []float64{0.4, 0.3, 0.3}
	order := rankOrder(exact)
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.InDelta(t, 0.01, SquaredError(exact, est, order, 1, false), 1e-12)
	assert.InDelta(t, 0.01, SquaredError(exact, est, order, 1, true), 1e-12)
	assert.InDelta(t, 0.02, SquaredError(exact, est, order, 50, false), 1e-12)
}

func TestEvaluateIsDeterministicForSeed(t *testing.T) {
	g := parse(t, cycleWithSink)
	exact := PowerIteration(g, precise()).Scores
	opts := EvalOptions{DataPoints: 3, Repeats: 2, Window: 2, Seed: 42}

	a, err := Evaluate(context.Background(), g, exact, precise(), opts)
	require.NoError(t, err)
	b, err := Evaluate(context.Background(), g, exact, precise(), opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []int{4, 8, 12}, a.Sizes)
	for _, m := range Estimators {
		require.Len(t, a.Errors[m], 3)
		for _, v := range a.Errors[m] {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}

	var out bytes.Buffer
	_, err = a.WriteTo(&out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "mc1 = [\n"))
	assert.Contains(t, out.String(), "mc5 = [\n")
	assert.True(t, strings.HasSuffix(out.String(), "N = [\n4\n8\n12\n];\n"))
}
