package route

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
)

// Options configures the routing strategies. A zero field means the default.
type Options struct {
	// GridSize is the pitch of one routing cell in chip units. Zero means a
	// fiftieth of the larger chip dimension.
	GridSize float64 `json:"grid_size,omitempty"`
	// LayerCount is the number of stacked routing layers.
	LayerCount int `json:"layer_count,omitempty"`
	// Capacity is the number of nets one routing cell of one layer can carry.
	Capacity int `json:"capacity,omitempty"`
	// ViaCost is the search cost of one layer change, in grid steps.
	ViaCost float64 `json:"via_cost,omitempty"`
	// GlobalCellFactor is the number of routing cells per global cell side.
	GlobalCellFactor int `json:"global_cell_factor,omitempty"`
	// Rounds bounds negotiated rip-up and reroute.
	Rounds int `json:"rounds,omitempty"`
	// HistoryIncrement scales the history cost added to overflowing cells
	// after every negotiated round.
	HistoryIncrement float64 `json:"history_increment,omitempty"`
	// MaxExpansions bounds the nodes one connection search may expand. Zero
	// means four times the number of grid nodes.
	MaxExpansions int `json:"max_expansions,omitempty"`
	// WireWidth is the trace width reported on wires. Zero means a quarter of
	// the grid pitch.
	WireWidth float64 `json:"wire_width,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Validate rejects negative values. Zero values pass.
func (o *Options) Validate() error {
	for _, c := range []struct {
		name string
		v    int
	}{
		{"layer_count", o.LayerCount},
		{"capacity", o.Capacity},
		{"global_cell_factor", o.GlobalCellFactor},
		{"rounds", o.Rounds},
		{"max_expansions", o.MaxExpansions},
	} {
		if err := errs.ValidateNonNegativeInt(c.name, c.v); err != nil {
			return err
		}
	}
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"grid_size", o.GridSize},
		{"via_cost", o.ViaCost},
		{"history_increment", o.HistoryIncrement},
		{"wire_width", o.WireWidth},
	} {
		if err := errs.ValidateNonNegative(c.name, c.v); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults fills zero fields that do not depend on the chip.
func (o *Options) SetDefaults() {
	if o.LayerCount == 0 {
		o.LayerCount = 2
	}
	if o.Capacity == 0 {
		o.Capacity = 1
	}
	if o.ViaCost == 0 {
		o.ViaCost = 1
	}
	if o.GlobalCellFactor == 0 {
		o.GlobalCellFactor = 4
	}
	if o.Rounds == 0 {
		o.Rounds = 8
	}
	if o.HistoryIncrement == 0 {
		o.HistoryIncrement = 1
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// resolve fills the chip-dependent defaults.
func (o *Options) resolve(chipWidth, chipHeight float64) {
	if o.GridSize == 0 {
		o.GridSize = math.Max(chipWidth, chipHeight) / 50
	}
	if o.WireWidth == 0 {
		o.WireWidth = o.GridSize / 4
	}
}
