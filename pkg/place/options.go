package place

import (
	"io"
	"math"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
)

// DefaultSeed is used when Options.Seed is zero.
const DefaultSeed uint64 = 42

// Options configures every placement strategy. Each strategy reads the fields
// it understands and ignores the rest. A zero field means the default; see
// [Options.SetDefaults]. Rates and counts for which zero is a meaningful
// setting are pointers, and only nil means the default.
type Options struct {
	Seed uint64 `json:"seed,omitempty"`

	// Annealing (also drives constrained placement).
	Iterations         int     `json:"iterations,omitempty"`
	InitialTemperature float64 `json:"initial_temperature,omitempty"`
	CoolingRate        float64 `json:"cooling_rate,omitempty"`
	SwapProbability    *float64 `json:"swap_probability,omitempty"`

	// Genetic.
	PopulationSize int     `json:"population_size,omitempty"`
	Generations    int     `json:"generations,omitempty"`
	MutationRate   *float64 `json:"mutation_rate,omitempty"`
	CrossoverRate  *float64 `json:"crossover_rate,omitempty"`
	EliteCount     int     `json:"elite_count,omitempty"`

	// Force-directed.
	Damping           float64 `json:"damping,omitempty"`
	SpringConstant    float64 `json:"spring_constant,omitempty"`
	RepulsionConstant float64 `json:"repulsion_constant,omitempty"`
	TimeStep          float64 `json:"time_step,omitempty"`
	// MaxStep bounds the displacement of a cell in one step. Zero means 5% of
	// the smaller chip dimension.
	MaxStep float64 `json:"max_step,omitempty"`

	// Analytic strategies.
	TargetDensity    float64 `json:"target_density,omitempty"`
	BinSize          float64 `json:"bin_size,omitempty"`
	SpreadIterations int     `json:"spread_iterations,omitempty"`
	ClusterThreshold int     `json:"cluster_threshold,omitempty"`

	// Shared cost and acceptance.
	OverlapWeight    float64 `json:"overlap_weight,omitempty"`
	OverlapTolerance *float64 `json:"overlap_tolerance,omitempty"`

	// Message passing.
	Layers               int     `json:"layers,omitempty"`
	AttentionTemperature float64 `json:"attention_temperature,omitempty"`

	// Constrained.
	MaxRetries int `json:"max_retries,omitempty"`

	// Reinforcement.
	// Episodes is the number of training episodes. Zero runs greedy
	// inference from the table in Model.
	Episodes     *int    `json:"episodes,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
	Discount     float64 `json:"discount,omitempty"`
	Epsilon      *float64 `json:"epsilon,omitempty"`
	SlotGrid     int     `json:"slot_grid,omitempty"`
	// Model is the table replayed when Episodes is zero. Its slot grid
	// overrides SlotGrid.
	Model *Model `json:"-"`

	Logger *log.Logger `json:"-"`
}

// Validate rejects negative values and out-of-range rates. It is meant to be
// called before SetDefaults, so zero values pass.
func (o *Options) Validate() error {
	for _, c := range []struct {
		name string
		v    int
	}{
		{"iterations", o.Iterations},
		{"population_size", o.PopulationSize},
		{"generations", o.Generations},
		{"elite_count", o.EliteCount},
		{"spread_iterations", o.SpreadIterations},
		{"cluster_threshold", o.ClusterThreshold},
		{"layers", o.Layers},
		{"max_retries", o.MaxRetries},
		{"slot_grid", o.SlotGrid},
	} {
		if err := errs.ValidateNonNegativeInt(c.name, c.v); err != nil {
			return err
		}
	}
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"initial_temperature", o.InitialTemperature},
		{"spring_constant", o.SpringConstant},
		{"repulsion_constant", o.RepulsionConstant},
		{"time_step", o.TimeStep},
		{"max_step", o.MaxStep},
		{"bin_size", o.BinSize},
		{"overlap_weight", o.OverlapWeight},
		{"attention_temperature", o.AttentionTemperature},
	} {
		if err := errs.ValidateNonNegative(c.name, c.v); err != nil {
			return err
		}
	}
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"cooling_rate", o.CoolingRate},
		{"damping", o.Damping},
		{"learning_rate", o.LearningRate},
		{"discount", o.Discount},
	} {
		if c.v != 0 {
			if err := errs.ValidateOpenFraction(c.name, c.v); err != nil {
				return err
			}
		}
	}
	for _, c := range []struct {
		name string
		v    *float64
	}{
		{"swap_probability", o.SwapProbability},
		{"mutation_rate", o.MutationRate},
		{"crossover_rate", o.CrossoverRate},
		{"overlap_tolerance", o.OverlapTolerance},
		{"epsilon", o.Epsilon},
	} {
		if c.v == nil {
			continue
		}
		if err := errs.ValidateFraction(c.name, *c.v); err != nil {
			return err
		}
	}
	if o.Episodes != nil {
		if err := errs.ValidateNonNegativeInt("episodes", *o.Episodes); err != nil {
			return err
		}
	}
	if o.TargetDensity < 0 || o.TargetDensity > 1 || math.IsNaN(o.TargetDensity) {
		return errs.Parameter("target_density", "must be in (0, 1], got %g", o.TargetDensity)
	}
	if o.PopulationSize > 0 && o.EliteCount >= o.PopulationSize {
		return errs.Parameter("elite_count", "(%d) must be smaller than population_size (%d)", o.EliteCount, o.PopulationSize)
	}
	return nil
}

// SetDefaults fills zero fields. Chip-dependent defaults (MaxStep, BinSize)
// are resolved per run.
func (o *Options) SetDefaults() {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Iterations == 0 {
		o.Iterations = 1000
	}
	if o.CoolingRate == 0 {
		o.CoolingRate = 0.995
	}
	if o.SwapProbability == nil {
		o.SwapProbability = Float(0.3)
	}
	if o.PopulationSize == 0 {
		o.PopulationSize = 30
	}
	if o.Generations == 0 {
		o.Generations = 50
	}
	if o.MutationRate == nil {
		o.MutationRate = Float(0.1)
	}
	if o.CrossoverRate == nil {
		o.CrossoverRate = Float(0.8)
	}
	if o.EliteCount == 0 {
		o.EliteCount = 1
	}
	if o.Damping == 0 {
		o.Damping = 0.85
	}
	if o.SpringConstant == 0 {
		o.SpringConstant = 0.1
	}
	if o.RepulsionConstant == 0 {
		o.RepulsionConstant = 50
	}
	if o.TimeStep == 0 {
		o.TimeStep = 1
	}
	if o.TargetDensity == 0 {
		o.TargetDensity = 0.9
	}
	if o.SpreadIterations == 0 {
		o.SpreadIterations = 20
	}
	if o.ClusterThreshold == 0 {
		o.ClusterThreshold = 16
	}
	if o.OverlapWeight == 0 {
		o.OverlapWeight = 1
	}
	if o.OverlapTolerance == nil {
		o.OverlapTolerance = Float(0.1)
	}
	if o.Layers == 0 {
		o.Layers = 3
	}
	if o.AttentionTemperature == 0 {
		o.AttentionTemperature = 1
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 50
	}
	if o.Episodes == nil {
		o.Episodes = Int(200)
	}
	if o.LearningRate == 0 {
		o.LearningRate = 0.1
	}
	if o.Discount == 0 {
		o.Discount = 0.95
	}
	if o.Epsilon == nil {
		o.Epsilon = Float(0.2)
	}
	if o.SlotGrid == 0 {
		o.SlotGrid = 10
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Float returns a pointer to v, for the optional rate fields of [Options].
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
