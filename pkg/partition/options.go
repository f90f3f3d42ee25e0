package partition

import (
	"io"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
)

// DefaultSeed is used when Options.Seed is zero.
const DefaultSeed uint64 = 42

// Options configures the partitioning strategies. A zero field means the
// default, except for BalanceTolerance where only nil does.
type Options struct {
	Seed uint64 `json:"seed,omitempty"`
	// PartitionCount is the number of parts k.
	PartitionCount int `json:"partition_count,omitempty"`
	// BalanceTolerance is the allowed relative deviation of a part's size
	// from total/k. Zero asks for the tightest split, sizes floor(total/k)
	// or ceil(total/k).
	BalanceTolerance *float64 `json:"balance_tolerance,omitempty"`
	// MaxIterations bounds the number of refinement passes per level.
	MaxIterations int `json:"max_iterations,omitempty"`
	// CoarsenThreshold stops multilevel coarsening at this many nodes.
	CoarsenThreshold int `json:"coarsen_threshold,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Validate rejects negative counts and a tolerance outside [0, 1].
func (o *Options) Validate() error {
	for _, c := range []struct {
		name string
		v    int
	}{
		{"partition_count", o.PartitionCount},
		{"max_iterations", o.MaxIterations},
		{"coarsen_threshold", o.CoarsenThreshold},
	} {
		if err := errs.ValidateNonNegativeInt(c.name, c.v); err != nil {
			return err
		}
	}
	if o.BalanceTolerance == nil {
		return nil
	}
	return errs.ValidateFraction("balance_tolerance", *o.BalanceTolerance)
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.PartitionCount == 0 {
		o.PartitionCount = 2
	}
	if o.BalanceTolerance == nil {
		tol := 0.1
		o.BalanceTolerance = &tol
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 20
	}
	if o.CoarsenThreshold == 0 {
		o.CoarsenThreshold = 32
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
