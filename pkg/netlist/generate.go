package netlist

import (
	"fmt"
	"math"
	"math/rand/v2"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
)

// GenerateOptions describes a synthetic problem.
type GenerateOptions struct {
	Cells int
	// Nets defaults to the number of cells.
	Nets int
	// MaxFanout bounds the cells per net (at least 2). Zero means 4.
	MaxFanout int
	// Macros is the number of cells drawn at four times the standard size.
	Macros int
	// Utilization is the target cell area over chip area. Zero means 0.5.
	Utilization float64
	// Pins gives every cell one pin per net it joins, at a random offset,
	// instead of cell-level references.
	Pins bool
	Seed uint64
}

// Generate builds a random problem. Net k links cell k+1 to an earlier cell,
// so the netlist is connected whenever there are at least Cells-1 nets. The
// same options always produce the same problem.
func Generate(o GenerateOptions) (*model.Problem, error) {
	if err := errs.ValidatePositiveInt("cells", o.Cells); err != nil {
		return nil, err
	}
	for _, c := range []struct {
		name string
		v    int
	}{{"nets", o.Nets}, {"max_fanout", o.MaxFanout}, {"macros", o.Macros}} {
		if err := errs.ValidateNonNegativeInt(c.name, c.v); err != nil {
			return nil, err
		}
	}
	if o.Utilization != 0 {
		if err := errs.ValidateOpenFraction("utilization", o.Utilization); err != nil {
			return nil, err
		}
	} else {
		o.Utilization = 0.5
	}
	if o.Nets == 0 {
		o.Nets = o.Cells
	}
	if o.MaxFanout < 2 {
		o.MaxFanout = 4
	}
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed^0xdeadbeef))

	p := &model.Problem{}
	var area float64
	for i := range o.Cells {
		w, h := float64(4+rng.IntN(9)), float64(4+rng.IntN(9))
		kind := model.CellStandard
		if i < o.Macros {
			w, h, kind = w*4, h*4, model.CellMacro
		}
		p.Cells = append(p.Cells, model.Cell{ID: fmt.Sprintf("c%d", i), Width: w, Height: h, Kind: kind})
		area += w * h
	}
	side := math.Ceil(math.Sqrt(area / o.Utilization))
	p.ChipWidth, p.ChipHeight = side, side

	for k := range o.Nets {
		members := map[int]bool{}
		var order []int
		add := func(c int) {
			if !members[c] {
				members[c] = true
				order = append(order, c)
			}
		}
		if k+1 < o.Cells {
			add(k + 1)
			add(rng.IntN(k + 1))
		} else {
			add(rng.IntN(o.Cells))
		}
		fanout := 2 + rng.IntN(o.MaxFanout-1)
		for len(order) < min(fanout, o.Cells) {
			add(rng.IntN(o.Cells))
		}

		net := model.Net{ID: fmt.Sprintf("n%d", k)}
		for _, c := range order {
			cell := &p.Cells[c]
			if !o.Pins {
				net.Pins = append(net.Pins, cell.ID)
				continue
			}
			dir := model.PinInput
			if len(net.Pins) == 0 {
				dir = model.PinOutput
			}
			pin := model.Pin{
				ID:        fmt.Sprintf("%s.p%d", cell.ID, len(cell.Pins)),
				Offset:    model.Point{X: rng.Float64() * cell.Width, Y: rng.Float64() * cell.Height},
				Direction: dir,
			}
			cell.Pins = append(cell.Pins, pin)
			net.Pins = append(net.Pins, pin.ID)
		}
		p.Nets = append(p.Nets, net)
	}
	return p, nil
}
