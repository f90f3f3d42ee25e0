package engine

import (
	"bytes"
	"encoding/json"
	"strings"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/floorplan"
	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/partition"
	"github.com/matzehuels/chipforge/pkg/place"
	"github.com/matzehuels/chipforge/pkg/route"
)

// Request is one engine invocation: a problem instance plus the algorithm
// selection and its parameters.
type Request struct {
	Category   string                `json:"category"`
	Algorithm  string                `json:"algorithm"`
	ChipWidth  float64               `json:"chip_width"`
	ChipHeight float64               `json:"chip_height"`
	Cells      []model.Cell          `json:"cells"`
	Nets       []model.Net           `json:"nets"`
	Obstacles  []model.Rect          `json:"obstacles,omitempty"`
	Regions    map[string]model.Rect `json:"regions,omitempty"`
	Params     Params                `json:"params"`
}

// NewRequest builds a request for problem p.
func NewRequest(a Algorithm, p *model.Problem, params Params) *Request {
	return &Request{
		Category:   string(a.Category),
		Algorithm:  a.Name,
		ChipWidth:  p.ChipWidth,
		ChipHeight: p.ChipHeight,
		Cells:      p.Cells,
		Nets:       p.Nets,
		Obstacles:  p.Obstacles,
		Regions:    p.Regions,
		Params:     params,
	}
}

// Problem returns the problem instance carried by the request.
func (r *Request) Problem() *model.Problem {
	return &model.Problem{
		ChipWidth:  r.ChipWidth,
		ChipHeight: r.ChipHeight,
		Cells:      r.Cells,
		Nets:       r.Nets,
		Obstacles:  r.Obstacles,
		Regions:    r.Regions,
	}
}

// Params carries the parameters of every strategy. Each strategy reads the
// fields it understands; zero means the strategy's default. Pointer fields
// accept an explicit zero, and only an absent value means the default.
type Params struct {
	Seed      uint64 `json:"seed,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`

	// Annealing, shared by placement and floorplanning.
	Iterations         int     `json:"iterations,omitempty"`
	InitialTemperature float64 `json:"initial_temperature,omitempty"`
	CoolingRate        float64 `json:"cooling_rate,omitempty"`
	SwapProbability    *float64 `json:"swap_probability,omitempty"`

	// Genetic placement.
	PopulationSize int     `json:"population_size,omitempty"`
	Generations    int     `json:"generations,omitempty"`
	MutationRate   *float64 `json:"mutation_rate,omitempty"`
	CrossoverRate  *float64 `json:"crossover_rate,omitempty"`
	EliteCount     int     `json:"elite_count,omitempty"`

	// Force-directed placement.
	Damping           float64 `json:"damping,omitempty"`
	SpringConstant    float64 `json:"spring_constant,omitempty"`
	RepulsionConstant float64 `json:"repulsion_constant,omitempty"`
	TimeStep          float64 `json:"time_step,omitempty"`
	MaxStep           float64 `json:"max_step,omitempty"`

	// Analytic placement.
	TargetDensity    float64 `json:"target_density,omitempty"`
	BinSize          float64 `json:"bin_size,omitempty"`
	SpreadIterations int     `json:"spread_iterations,omitempty"`
	ClusterThreshold int     `json:"cluster_threshold,omitempty"`
	OverlapWeight    float64 `json:"overlap_weight,omitempty"`
	OverlapTolerance *float64 `json:"overlap_tolerance,omitempty"`

	// Message-passing placement.
	Layers               int     `json:"layers,omitempty"`
	AttentionTemperature float64 `json:"attention_temperature,omitempty"`

	// Constrained placement.
	MaxRetries int `json:"max_retries,omitempty"`

	// Reinforcement placement.
	Episodes     *int    `json:"episodes,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
	Discount     float64 `json:"discount,omitempty"`
	Epsilon      *float64 `json:"epsilon,omitempty"`
	SlotGrid     int     `json:"slot_grid,omitempty"`
	// Model names the stored slot model to train or replay. Empty means the
	// algorithm name.
	Model string `json:"model,omitempty"`

	// Routing.
	GridSize         float64 `json:"grid_size,omitempty"`
	LayerCount       int     `json:"layer_count,omitempty"`
	Capacity         int     `json:"capacity,omitempty"`
	ViaCost          float64 `json:"via_cost,omitempty"`
	GlobalCellFactor int     `json:"global_cell_factor,omitempty"`
	Rounds           int     `json:"rounds,omitempty"`
	HistoryIncrement float64 `json:"history_increment,omitempty"`
	MaxExpansions    int     `json:"max_expansions,omitempty"`
	WireWidth        float64 `json:"wire_width,omitempty"`

	// Partitioning.
	PartitionCount   int     `json:"partition_count,omitempty"`
	BalanceTolerance *float64 `json:"balance_tolerance,omitempty"`
	MaxIterations    int     `json:"max_iterations,omitempty"`
	CoarsenThreshold int     `json:"coarsen_threshold,omitempty"`

	// Floorplanning.
	WirelengthWeight float64 `json:"wirelength_weight,omitempty"`
	FitWeight        float64 `json:"fit_weight,omitempty"`
	AllowRotation    bool    `json:"allow_rotation,omitempty"`
}

// Validate checks every parameter against the rules of the strategy family
// that reads it. It runs before any computation.
func (p Params) Validate() error {
	if err := errs.ValidateNonNegativeInt("timeout_ms", p.TimeoutMS); err != nil {
		return err
	}
	if p.Model != "" {
		if err := ValidateModelName(p.Model); err != nil {
			return err
		}
	}
	po, ro, pa, fo := p.placeOptions(), p.routeOptions(), p.partitionOptions(), p.floorplanOptions()
	for _, validate := range []func() error{po.Validate, ro.Validate, pa.Validate, fo.Validate} {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// Set assigns one parameter by its JSON name. The value is parsed as a JSON
// literal when possible, so "iterations=500" and "allow_rotation=true" both
// work.
func (p *Params) Set(name, value string) error {
	name = strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
	raw := strings.TrimSpace(value)
	if !json.Valid([]byte(raw)) {
		quoted, _ := json.Marshal(raw)
		raw = string(quoted)
	}
	key, _ := json.Marshal(name)
	doc := "{" + string(key) + ":" + raw + "}"

	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidParameter, err, "parameter %s=%s", name, value)
	}
	return nil
}

// replays reports whether an explicit zero episode count asks a learning
// strategy to replay a stored model.
func (p Params) replays() bool {
	return p.Episodes != nil && *p.Episodes == 0
}

func (p Params) modelName(a Algorithm) string {
	if p.Model != "" {
		return p.Model
	}
	return a.Name
}

func (p Params) placeOptions() place.Options {
	return place.Options{
		Seed:                 p.Seed,
		Iterations:           p.Iterations,
		InitialTemperature:   p.InitialTemperature,
		CoolingRate:          p.CoolingRate,
		SwapProbability:      p.SwapProbability,
		PopulationSize:       p.PopulationSize,
		Generations:          p.Generations,
		MutationRate:         p.MutationRate,
		CrossoverRate:        p.CrossoverRate,
		EliteCount:           p.EliteCount,
		Damping:              p.Damping,
		SpringConstant:       p.SpringConstant,
		RepulsionConstant:    p.RepulsionConstant,
		TimeStep:             p.TimeStep,
		MaxStep:              p.MaxStep,
		TargetDensity:        p.TargetDensity,
		BinSize:              p.BinSize,
		SpreadIterations:     p.SpreadIterations,
		ClusterThreshold:     p.ClusterThreshold,
		OverlapWeight:        p.OverlapWeight,
		OverlapTolerance:     p.OverlapTolerance,
		Layers:               p.Layers,
		AttentionTemperature: p.AttentionTemperature,
		MaxRetries:           p.MaxRetries,
		Episodes:             p.Episodes,
		LearningRate:         p.LearningRate,
		Discount:             p.Discount,
		Epsilon:              p.Epsilon,
		SlotGrid:             p.SlotGrid,
	}
}

func (p Params) routeOptions() route.Options {
	return route.Options{
		GridSize:         p.GridSize,
		LayerCount:       p.LayerCount,
		Capacity:         p.Capacity,
		ViaCost:          p.ViaCost,
		GlobalCellFactor: p.GlobalCellFactor,
		Rounds:           p.Rounds,
		HistoryIncrement: p.HistoryIncrement,
		MaxExpansions:    p.MaxExpansions,
		WireWidth:        p.WireWidth,
	}
}

func (p Params) partitionOptions() partition.Options {
	return partition.Options{
		Seed:             p.Seed,
		PartitionCount:   p.PartitionCount,
		BalanceTolerance: p.BalanceTolerance,
		MaxIterations:    p.MaxIterations,
		CoarsenThreshold: p.CoarsenThreshold,
	}
}

func (p Params) floorplanOptions() floorplan.Options {
	return floorplan.Options{
		Seed:               p.Seed,
		Iterations:         p.Iterations,
		InitialTemperature: p.InitialTemperature,
		CoolingRate:        p.CoolingRate,
		WirelengthWeight:   p.WirelengthWeight,
		FitWeight:          p.FitWeight,
		AllowRotation:      p.AllowRotation,
	}
}
