// Package model defines the shared geometric and connectivity model consumed by
// every chipforge engine.
//
// The model is pure data: cells with pins, nets connecting pins, wires produced
// by routing, blocks produced by floorplanning and the partition assignment. A
// [Problem] bundles the chip outline with its cells and nets and is treated as
// immutable by the engines, which work on clones and return new records.
//
// # Coordinates
//
// The origin is the top-left corner of the chip; x grows to the right and y
// grows downward. A cell's [Cell.Position] is its top-left corner and pin
// offsets are relative to it. A placed cell must satisfy
//
//	0 <= x, 0 <= y, x+width <= chipWidth, y+height <= chipHeight
//
// # Pin resolution
//
// Nets reference pins by ID. An [Index] resolves every reference once per
// invocation; a reference that names a cell instead of a pin resolves to the
// cell's center, which allows cell-level netlists without explicit pins.
package model
