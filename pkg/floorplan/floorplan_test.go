package floorplan

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
)

func blocks(n int, seed uint64) *model.Problem {
	rng := rand.New(rand.NewPCG(seed, seed))
	p := &model.Problem{ChipWidth: 200, ChipHeight: 200}
	for i := range n {
		p.Cells = append(p.Cells, model.Cell{
			ID:     fmt.Sprintf("b%d", i),
			Width:  float64(5 + rng.IntN(20)),
			Height: float64(5 + rng.IntN(20)),
		})
	}
	for i := 1; i < n; i++ {
		p.Nets = append(p.Nets, model.Net{ID: fmt.Sprintf("n%d", i), Pins: []string{p.Cells[i-1].ID, p.Cells[i].ID}})
	}
	return p
}

func assertPacked(t *testing.T, p *model.Problem, res *Result) {
	t.Helper()
	require.Len(t, res.Blocks, len(p.Cells))
	var area float64
	for i, b := range res.Blocks {
		assert.Equal(t, p.Cells[i].ID, b.ID)
		assert.Equal(t, p.Cells[i].Area(), b.Width*b.Height)
		assert.GreaterOrEqual(t, b.X, 0.0)
		assert.GreaterOrEqual(t, b.Y, 0.0)
		assert.LessOrEqual(t, b.X+b.Width, res.Width+1e-9)
		assert.LessOrEqual(t, b.Y+b.Height, res.Height+1e-9)
		for _, o := range res.Blocks[i+1:] {
			assert.InDelta(t, 0, b.Rect().IntersectionArea(o.Rect()), 1e-9, "%s overlaps %s", b.ID, o.ID)
		}
		area += b.Width * b.Height
	}
	chip := p.ChipWidth * p.ChipHeight
	assert.InDelta(t, area/chip, res.Utilization, 1e-9)
	assert.InDelta(t, chip-area, res.DeadSpace, 1e-9)
	assert.InDelta(t, p.ChipWidth/p.ChipHeight, res.AspectRatio, 1e-12)
	assert.InDelta(t, area/(res.Width*res.Height), res.OutlineUtilization, 1e-9)
	assert.InDelta(t, res.Width*res.Height-area, res.OutlineDeadSpace, 1e-9)
	assert.InDelta(t, res.Width/res.Height, res.OutlineAspectRatio, 1e-9)
	assert.LessOrEqual(t, res.OutlineUtilization, 1.0+1e-9)
}

func TestEmptyBlockList(t *testing.T) {
	for _, algo := range Algorithms() {
		res, err := Floorplan(context.Background(), algo, &model.Problem{ChipWidth: 10, ChipHeight: 10}, Options{})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.Blocks)
		assert.Zero(t, res.Utilization)
		assert.Equal(t, 100.0, res.DeadSpace)
		assert.Equal(t, 1.0, res.AspectRatio)
	}
}

func TestStrategiesPackWithoutOverlap(t *testing.T) {
	p := blocks(12, 4)
	for _, algo := range Algorithms() {
		for _, rotate := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/rotate=%v", algo, rotate), func(t *testing.T) {
				res, err := Floorplan(context.Background(), algo, p, Options{Iterations: 500, AllowRotation: rotate})
				require.NoError(t, err)
				assertPacked(t, p, res)
				assert.True(t, res.Success, "diagnostics: %v", res.Diagnostics)
				assert.Equal(t, 500, res.Iterations)
				assert.Len(t, res.Convergence, 500)
				if !rotate {
					for _, b := range res.Blocks {
						assert.False(t, b.Rotated)
					}
				}
			})
		}
	}
}

func TestSingleBlock(t *testing.T) {
	p := &model.Problem{ChipWidth: 50, ChipHeight: 50, Cells: []model.Cell{{ID: "x", Width: 10, Height: 20}}}
	for _, algo := range Algorithms() {
		res, err := Floorplan(context.Background(), algo, p, Options{Iterations: 10})
		require.NoError(t, err)
		require.Len(t, res.Blocks, 1)
		assert.Equal(t, 10.0, res.Width)
		assert.Equal(t, 20.0, res.Height)
		assert.Equal(t, 1.0, res.OutlineUtilization)
		assert.Zero(t, res.OutlineDeadSpace)
		assert.InDelta(t, 200.0/2500, res.Utilization, 1e-12)
		assert.Equal(t, 2300.0, res.DeadSpace)
	}
}

func TestFloorplanIsDeterministic(t *testing.T) {
	p := blocks(10, 8)
	for _, algo := range Algorithms() {
		a, err := Floorplan(context.Background(), algo, p, Options{Iterations: 300, Seed: 3})
		require.NoError(t, err)
		b, err := Floorplan(context.Background(), algo, p, Options{Iterations: 300, Seed: 3})
		require.NoError(t, err)
		assert.Equal(t, a.Blocks, b.Blocks, algo)
		assert.Equal(t, a.Convergence, b.Convergence, algo)
	}
}

func TestOversizedBlocksReportMisfit(t *testing.T) {
	p := blocks(6, 1)
	p.ChipWidth, p.ChipHeight = 10, 10
	res, err := Floorplan(context.Background(), SequencePair, p, Options{Iterations: 50})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestAnnealingImprovesOnInitialOutline(t *testing.T) {
	p := blocks(15, 6)
	p.Nets = nil
	res, err := Floorplan(context.Background(), SequencePair, p, Options{Iterations: 3000})
	require.NoError(t, err)
	require.NotEmpty(t, res.Convergence)
	assert.Greater(t, res.OutlineUtilization, 0.5)
}

func TestMetricsAreRelativeToTheChip(t *testing.T) {
	p := &model.Problem{
		ChipWidth:  100,
		ChipHeight: 50,
		Cells: []model.Cell{
			{ID: "a", Width: 10, Height: 10},
			{ID: "b", Width: 10, Height: 10},
		},
	}
	for _, algo := range Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			res, err := Floorplan(context.Background(), algo, p, Options{Iterations: 200})
			require.NoError(t, err)
			assert.InDelta(t, 0.04, res.Utilization, 1e-12)
			assert.InDelta(t, 4800, res.DeadSpace, 1e-9)
			assert.Equal(t, 2.0, res.AspectRatio)

			// Two equal squares always pack without gaps.
			assert.InDelta(t, 1, res.OutlineUtilization, 1e-12)
			assert.Zero(t, res.OutlineDeadSpace)
			assert.InDelta(t, 200, res.Width*res.Height, 1e-9)
			assert.True(t, res.Success)
		})
	}
}

func TestFloorplanErrors(t *testing.T) {
	_, err := Floorplan(context.Background(), "tetris", blocks(2, 1), Options{})
	assert.True(t, errs.Is(err, errs.ErrCodeUnsupportedAlgorithm), "got %v", err)

	_, err = Floorplan(context.Background(), Slicing, blocks(2, 1), Options{CoolingRate: 1})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidParameter), "got %v", err)
}

func TestPolishMovesStayNormalized(t *testing.T) {
	ws := []float64{1, 2, 3, 4, 5, 6, 7}
	hs := []float64{7, 6, 5, 4, 3, 2, 1}
	p := newPolish(ws, hs, true, true)
	require.True(t, normalized(p.expr), "initial %v", p.expr)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 500 {
		undo := p.perturb(rng)
		require.True(t, normalized(p.expr), "move %d produced %v", i, p.expr)
		if i%3 == 0 {
			undo()
			require.True(t, normalized(p.expr))
		}
	}
}

func TestNormalized(t *testing.T) {
	assert.True(t, normalized([]int{0, 1, cutV}))
	assert.True(t, normalized([]int{0, 1, cutV, 2, cutH}))
	assert.False(t, normalized([]int{0, 1, cutV, 2, cutV, cutV}))
	assert.False(t, normalized([]int{0, cutV, 1}))
	assert.False(t, normalized([]int{0, 1, 2, cutV}))
	assert.False(t, normalized([]int{0, 1, 2, cutV, cutV}))
}

func TestSequencePairDecoding(t *testing.T) {
	// pos = (0 1), neg = (0 1): 0 left of 1.
	s := &sequencePair{pos: []int{0, 1}, neg: []int{0, 1}, ws: []float64{2, 3}, hs: []float64{4, 5}, rotated: make([]bool, 2)}
	l := s.pack()
	assert.Equal(t, []float64{0, 2}, l.xs)
	assert.Equal(t, []float64{0, 0}, l.ys)
	assert.Equal(t, 5.0, l.width)
	assert.Equal(t, 5.0, l.height)

	// pos = (1 0), neg = (0 1): 0 below 1.
	s.pos = []int{1, 0}
	l = s.pack()
	assert.Equal(t, []float64{0, 0}, l.xs)
	assert.Equal(t, []float64{0, 4}, l.ys)
	assert.Equal(t, 3.0, l.width)
	assert.Equal(t, 9.0, l.height)
}
