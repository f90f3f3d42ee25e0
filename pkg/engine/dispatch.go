package engine

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chipforge/pkg/floorplan"
	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/partition"
	"github.com/matzehuels/chipforge/pkg/place"
	"github.com/matzehuels/chipforge/pkg/route"
)

// Response is the family-independent outcome of one run. Only the fields of
// the dispatched category are filled.
type Response struct {
	Success   bool     `json:"success"`
	Category  Category `json:"category"`
	Algorithm string   `json:"algorithm"`

	Cells      []model.Cell     `json:"cells,omitempty"`
	Wires      []model.Wire     `json:"wires,omitempty"`
	Assignment model.Assignment `json:"assignment,omitempty"`
	Partitions [][]string       `json:"partitions,omitempty"`
	Blocks     []model.Block    `json:"blocks,omitempty"`

	// Metrics holds the scalar quality measures of the category, e.g.
	// "wirelength" and "overlap" for placement.
	Metrics     map[string]float64 `json:"metrics"`
	Iterations  int                `json:"iterations"`
	Convergence []float64          `json:"convergence,omitempty"`
	Diagnostics []string           `json:"diagnostics,omitempty"`
	// Interrupted is set when the run stopped at its timeout or because the
	// caller cancelled it.
	Interrupted bool    `json:"interrupted,omitempty"`
	RuntimeMS   float64 `json:"runtime_ms"`
	// Model names the stored slot model a learning placement strategy
	// trained or replayed.
	Model string `json:"model,omitempty"`
}

// Dispatch validates req and runs the selected strategy. Configuration
// errors are returned before any computation; quality shortfalls come back
// as Success=false with diagnostics. Dispatch has no model store, so trained
// slot models are discarded and zero-episode replays fail; use a [Runner]
// for those.
func Dispatch(ctx context.Context, req *Request) (*Response, error) {
	return dispatch(ctx, req, log.NewWithOptions(io.Discard, log.Options{}), nil)
}

func dispatch(ctx context.Context, req *Request, logger *log.Logger, models *ModelStore) (*Response, error) {
	start := time.Now()
	algo, err := ParseAlgorithm(req.Category, req.Algorithm)
	if err != nil {
		return nil, err
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	p := req.Problem()
	if err := p.ValidateChip(); err != nil {
		return nil, err
	}

	runCtx := ctx
	if req.Params.TimeoutMS > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(req.Params.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	var resp *Response
	switch algo.Category {
	case Placement:
		resp, err = dispatchPlacement(ctx, runCtx, algo, req, p, logger, models)
	case Routing:
		opts := req.Params.routeOptions()
		opts.Logger = logger
		var res *route.Result
		if res, err = route.Route(runCtx, route.Algorithm(algo.Name), p, opts); err == nil {
			resp = fromRouting(res)
		}
	case Partitioning:
		opts := req.Params.partitionOptions()
		opts.Logger = logger
		var res *partition.Result
		if res, err = partition.Partition(runCtx, partition.Algorithm(algo.Name), p, opts); err == nil {
			resp = fromPartitioning(res)
		}
	case Floorplanning:
		opts := req.Params.floorplanOptions()
		opts.Logger = logger
		var res *floorplan.Result
		if res, err = floorplan.Floorplan(runCtx, floorplan.Algorithm(algo.Name), p, opts); err == nil {
			resp = fromFloorplanning(res)
		}
	}
	if err != nil {
		return nil, err
	}

	resp.Category = algo.Category
	resp.Algorithm = algo.Name
	resp.Interrupted = runCtx.Err() != nil
	resp.RuntimeMS = float64(time.Since(start).Microseconds()) / 1000
	return resp, nil
}

// dispatchPlacement runs a placement strategy. Learning strategies replay
// the named stored model when Episodes is zero and store what they trained
// otherwise. Models trained by interrupted runs are not stored.
func dispatchPlacement(ctx, runCtx context.Context, algo Algorithm, req *Request, p *model.Problem, logger *log.Logger, models *ModelStore) (*Response, error) {
	pa := place.Algorithm(algo.Name)
	opts := req.Params.placeOptions()
	opts.Logger = logger
	name := req.Params.modelName(algo)

	replay := place.Learns(pa) && req.Params.replays()
	if replay && models != nil {
		m, err := models.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		opts.Model = m
	}
	res, err := place.Place(runCtx, pa, p, opts)
	if err != nil {
		return nil, err
	}
	resp := fromPlacement(res, p)
	switch {
	case replay:
		resp.Model = name
	case res.Model != nil && models != nil && runCtx.Err() == nil:
		if err := models.Save(ctx, name, res.Model); err != nil {
			logger.Warn("cannot store trained model", "model", name, "error", err)
			break
		}
		logger.Debug("stored trained model", "model", name, "episodes", res.Model.Episodes)
		resp.Model = name
	}
	return resp, nil
}

func fromPlacement(res *place.Result, p *model.Problem) *Response {
	return &Response{
		Success: res.Success,
		Cells:   res.Cells,
		Metrics: map[string]float64{
			"wirelength":      res.Wirelength,
			"overlap":         res.Overlap,
			"cell_area":       p.TotalCellArea(),
			"chip_area":       p.ChipWidth * p.ChipHeight,
			"placed_fraction": placedFraction(res.Cells),
		},
		Iterations:  res.Iterations,
		Convergence: res.Convergence,
		Diagnostics: res.Diagnostics,
	}
}

func fromRouting(res *route.Result) *Response {
	return &Response{
		Success: res.Success,
		Wires:   res.Wires,
		Metrics: map[string]float64{
			"wirelength":         res.Wirelength,
			"via_count":          float64(res.ViaCount),
			"overflow":           float64(res.Overflow),
			"failed_connections": float64(res.FailedConnections),
			"wire_count":         float64(len(res.Wires)),
		},
		Iterations:  res.Iterations,
		Convergence: res.Convergence,
		Diagnostics: res.Diagnostics,
	}
}

func fromPartitioning(res *partition.Result) *Response {
	m := map[string]float64{
		"cut_size":   res.CutSize,
		"partitions": float64(len(res.Partitions)),
	}
	if len(res.Sizes) > 0 {
		m["min_size"] = float64(slices.Min(res.Sizes))
		m["max_size"] = float64(slices.Max(res.Sizes))
	}
	return &Response{
		Success:     res.Success,
		Assignment:  res.Assignment,
		Partitions:  res.Partitions,
		Metrics:     m,
		Iterations:  res.Iterations,
		Convergence: res.Convergence,
		Diagnostics: res.Diagnostics,
	}
}

func fromFloorplanning(res *floorplan.Result) *Response {
	return &Response{
		Success: res.Success,
		Blocks:  res.Blocks,
		Metrics: map[string]float64{
			"utilization":          res.Utilization,
			"dead_space":           res.DeadSpace,
			"aspect_ratio":         res.AspectRatio,
			"outline_width":        res.Width,
			"outline_height":       res.Height,
			"outline_utilization":  res.OutlineUtilization,
			"outline_dead_space":   res.OutlineDeadSpace,
			"outline_aspect_ratio": res.OutlineAspectRatio,
			"wirelength":           res.Wirelength,
		},
		Iterations:  res.Iterations,
		Convergence: res.Convergence,
		Diagnostics: res.Diagnostics,
	}
}

func placedFraction(cells []model.Cell) float64 {
	if len(cells) == 0 {
		return 0
	}
	n := 0
	for _, c := range cells {
		if c.Placed() {
			n++
		}
	}
	return float64(n) / float64(len(cells))
}
