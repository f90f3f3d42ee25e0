package floorplan

import (
	"io"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
)

// DefaultSeed is used when Options.Seed is zero.
const DefaultSeed uint64 = 42

// Options configures both floorplanning strategies. A zero field means the
// default.
type Options struct {
	Seed uint64 `json:"seed,omitempty"`
	// Iterations is the number of annealing moves.
	Iterations int `json:"iterations,omitempty"`
	// InitialTemperature of zero is estimated from sampled uphill moves.
	InitialTemperature float64 `json:"initial_temperature,omitempty"`
	CoolingRate        float64 `json:"cooling_rate,omitempty"`
	// WirelengthWeight scales the net half-perimeter term of the cost
	// against the outline area.
	WirelengthWeight float64 `json:"wirelength_weight,omitempty"`
	// FitWeight scales the penalty for outline area outside the chip.
	FitWeight float64 `json:"fit_weight,omitempty"`
	// AllowRotation lets annealing turn blocks by 90 degrees.
	AllowRotation bool `json:"allow_rotation,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Validate rejects negative values and a cooling rate outside (0, 1).
func (o *Options) Validate() error {
	if err := errs.ValidateNonNegativeInt("iterations", o.Iterations); err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"initial_temperature", o.InitialTemperature},
		{"wirelength_weight", o.WirelengthWeight},
		{"fit_weight", o.FitWeight},
	} {
		if err := errs.ValidateNonNegative(c.name, c.v); err != nil {
			return err
		}
	}
	if o.CoolingRate != 0 {
		return errs.ValidateOpenFraction("cooling_rate", o.CoolingRate)
	}
	return nil
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Iterations == 0 {
		o.Iterations = 2000
	}
	if o.CoolingRate == 0 {
		o.CoolingRate = 0.995
	}
	if o.WirelengthWeight == 0 {
		o.WirelengthWeight = 0.1
	}
	if o.FitWeight == 0 {
		o.FitWeight = 10
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
