// Package pkg holds the chipforge libraries.
//
// chipforge is a physical-design optimization engine. Four engine families
// share one geometric and connectivity model:
//
//  1. [place] assigns positions to cells
//  2. [route] connects the pins of placed cells on a layered grid
//  3. [partition] splits the cells into balanced parts with a small cut
//  4. [floorplan] packs blocks into a compact outline
//
// # Architecture
//
//	problem file ([netlist])
//	       ↓
//	[model].Problem + algorithm selection + parameters
//	       ↓
//	[engine].Dispatch → place | route | partition | floorplan
//	       ↓
//	[engine].Response (cells, wires, partitions or blocks + metrics)
//
// Supporting packages:
//   - [objective]: wirelength, overlap and density
//   - [hypergraph]: weighted hypergraph view of the netlist and coarsening
//   - [cache]: response cache backends (file, memory, Redis, MongoDB)
//   - [observability]: engine, cache and HTTP hooks
//   - [render/nodelink]: Graphviz diagrams of netlists and partitions
//   - [errors]: coded errors and parameter validation
//   - [buildinfo]: version information set at link time
//
// # Quick Start
//
//	p, _ := netlist.ReadFile("design.json")
//	algo, _ := engine.ParseAlgorithm("placement", "quadratic")
//	resp, err := engine.Dispatch(ctx, engine.NewRequest(algo, p, engine.Params{Seed: 7}))
//
// Every engine is deterministic for a fixed seed and never modifies the
// problem it is given.
package pkg
