package model

import (
	"math"

	errs "github.com/matzehuels/chipforge/pkg/errors"
)

// Problem is one immutable problem instance: the chip outline, its cells and
// nets, and optional placement constraints.
type Problem struct {
	ChipWidth  float64 `json:"chip_width" yaml:"chip_width" bson:"chip_width"`
	ChipHeight float64 `json:"chip_height" yaml:"chip_height" bson:"chip_height"`
	Cells      []Cell  `json:"cells" yaml:"cells" bson:"cells"`
	Nets       []Net   `json:"nets" yaml:"nets" bson:"nets"`

	// Obstacles are rectangular exclusion zones no cell may overlap.
	Obstacles []Rect `json:"obstacles,omitempty" yaml:"obstacles,omitempty" bson:"obstacles,omitempty"`
	// Regions confine individual cells (by ID) to a rectangle.
	Regions map[string]Rect `json:"regions,omitempty" yaml:"regions,omitempty" bson:"regions,omitempty"`
}

// Chip returns the chip outline as a rectangle at the origin.
func (p *Problem) Chip() Rect { return Rect{Width: p.ChipWidth, Height: p.ChipHeight} }

// Clone returns a deep copy of the problem.
func (p *Problem) Clone() *Problem {
	out := *p
	out.Cells = CloneCells(p.Cells)
	out.Nets = make([]Net, len(p.Nets))
	for i, n := range p.Nets {
		n.Pins = append([]string(nil), n.Pins...)
		out.Nets[i] = n
	}
	out.Obstacles = append([]Rect(nil), p.Obstacles...)
	if p.Regions != nil {
		out.Regions = make(map[string]Rect, len(p.Regions))
		for k, v := range p.Regions {
			out.Regions[k] = v
		}
	}
	return &out
}

// ValidateChip checks the chip dimensions only. Engines call it even when the
// caller skipped full validation so degenerate chips never reach an algorithm.
func (p *Problem) ValidateChip() error {
	if !(p.ChipWidth > 0) || !(p.ChipHeight > 0) || math.IsInf(p.ChipWidth, 0) || math.IsInf(p.ChipHeight, 0) {
		return errs.New(errs.ErrCodeInvalidInput, "chip dimensions must be positive, got %gx%g", p.ChipWidth, p.ChipHeight)
	}
	return nil
}

// Validate checks every structural invariant of the instance: positive chip
// and cell sizes, unique identifiers, and nets that only reference known pins.
func (p *Problem) Validate() error {
	if err := p.ValidateChip(); err != nil {
		return err
	}

	cellIDs := make(map[string]bool, len(p.Cells))
	pinIDs := make(map[string]bool)
	for _, c := range p.Cells {
		if err := errs.ValidateID("cell", c.ID); err != nil {
			return err
		}
		if cellIDs[c.ID] {
			return errs.New(errs.ErrCodeInvalidInput, "duplicate cell id %q", c.ID)
		}
		cellIDs[c.ID] = true
		if err := c.Validate(); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid cell")
		}
		for _, pin := range c.Pins {
			if pinIDs[pin.ID] {
				return errs.New(errs.ErrCodeInvalidInput, "duplicate pin id %q", pin.ID)
			}
			pinIDs[pin.ID] = true
		}
	}

	netIDs := make(map[string]bool, len(p.Nets))
	for _, n := range p.Nets {
		if err := errs.ValidateID("net", n.ID); err != nil {
			return err
		}
		if netIDs[n.ID] {
			return errs.New(errs.ErrCodeInvalidInput, "duplicate net id %q", n.ID)
		}
		netIDs[n.ID] = true
		if n.Weight < 0 || math.IsNaN(n.Weight) {
			return errs.New(errs.ErrCodeInvalidInput, "net %q has negative weight %g", n.ID, n.Weight)
		}
		for _, ref := range n.Pins {
			if !pinIDs[ref] && !cellIDs[ref] {
				return errs.New(errs.ErrCodeInvalidInput, "net %q references unknown pin %q", n.ID, ref)
			}
		}
	}

	for i, o := range p.Obstacles {
		if !(o.Width > 0) || !(o.Height > 0) {
			return errs.New(errs.ErrCodeInvalidInput, "obstacle %d has non-positive size", i)
		}
	}
	for id, r := range p.Regions {
		if !cellIDs[id] {
			return errs.New(errs.ErrCodeInvalidInput, "region assigned to unknown cell %q", id)
		}
		if !(r.Width > 0) || !(r.Height > 0) {
			return errs.New(errs.ErrCodeInvalidInput, "region of cell %q has non-positive size", id)
		}
	}
	return nil
}

// TotalCellArea returns Σ width × height over all cells.
func (p *Problem) TotalCellArea() float64 {
	var a float64
	for _, c := range p.Cells {
		a += c.Area()
	}
	return a
}
