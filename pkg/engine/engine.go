// Package engine dispatches a problem to one strategy of one of the four
// engine families and converts the family-specific result into a common
// [Response].
//
// Algorithm selection is a closed set: [ParseAlgorithm] turns the
// (category, name) pair of a [Request] into an [Algorithm] value and rejects
// everything else before any computation starts. [Dispatch] is a pure
// function of its request; [Runner] adds an optional response cache,
// observability hooks and logging on top of it.
package engine

import (
	"slices"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/floorplan"
	"github.com/matzehuels/chipforge/pkg/partition"
	"github.com/matzehuels/chipforge/pkg/place"
	"github.com/matzehuels/chipforge/pkg/route"
)

// Category is an engine family.
type Category string

const (
	Placement     Category = "placement"
	Routing       Category = "routing"
	Partitioning  Category = "partitioning"
	Floorplanning Category = "floorplanning"
)

// Categories lists the engine families in presentation order.
func Categories() []Category {
	return []Category{Placement, Routing, Partitioning, Floorplanning}
}

// Algorithm identifies one strategy of one family. Only values returned by
// [Algorithms] or [ParseAlgorithm] are valid.
type Algorithm struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
}

func (a Algorithm) String() string { return string(a.Category) + "/" + a.Name }

// Algorithms lists every strategy, grouped by category.
func Algorithms() []Algorithm {
	var out []Algorithm
	for _, c := range Categories() {
		out = append(out, AlgorithmsFor(c)...)
	}
	return out
}

// AlgorithmsFor lists the strategies of one category. An unknown category
// has none.
func AlgorithmsFor(c Category) []Algorithm {
	var names []string
	switch c {
	case Placement:
		for _, a := range place.Algorithms() {
			names = append(names, string(a))
		}
	case Routing:
		for _, a := range route.Algorithms() {
			names = append(names, string(a))
		}
	case Partitioning:
		for _, a := range partition.Algorithms() {
			names = append(names, string(a))
		}
	case Floorplanning:
		for _, a := range floorplan.Algorithms() {
			names = append(names, string(a))
		}
	}
	out := make([]Algorithm, len(names))
	for i, n := range names {
		out[i] = Algorithm{Category: c, Name: n}
	}
	return out
}

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	c := Category(name)
	if !slices.Contains(Categories(), c) {
		return "", errs.New(errs.ErrCodeInvalidCategory, "unknown category %q (want one of placement, routing, partitioning, floorplanning)", name)
	}
	return c, nil
}

// ParseAlgorithm validates a (category, name) pair.
func ParseAlgorithm(category, name string) (Algorithm, error) {
	c, err := ParseCategory(category)
	if err != nil {
		return Algorithm{}, err
	}
	a := Algorithm{Category: c, Name: name}
	if !slices.Contains(AlgorithmsFor(c), a) {
		return Algorithm{}, errs.New(errs.ErrCodeUnsupportedAlgorithm, "unsupported %s algorithm %q", c, name)
	}
	return a, nil
}
