// Package astro holds the chart domain types and the per-kind subject
// extraction that feeds the interpretation facade.
package astro

import (
	"fmt"
	"strconv"
	"strings"
)

// Chart is the entity owning the interpretation subjects. It is supplied
// by the caller; this engine never computes placements itself.
type Chart struct {
	ID         string      `json:"id"`
	Placements []Placement `json:"placements"`
	Houses     []HouseCusp `json:"houses"`
	Aspects    []Aspect    `json:"aspects"`
}

// Placement is one planet's position.
type Placement struct {
	Planet     string  `json:"planet"`
	Sign       string  `json:"sign"`
	House      int     `json:"house"`
	Degree     float64 `json:"degree"`
	Retrograde bool    `json:"retrograde"`
}

// HouseCusp is one house cusp.
type HouseCusp struct {
	Number int    `json:"number"`
	Sign   string `json:"sign"`
}

// Aspect is an angular relationship between two planets.
type Aspect struct {
	First  string  `json:"first"`
	Second string  `json:"second"`
	Name   string  `json:"name"`
	Orb    float64 `json:"orb"`
}

// planetOrder fixes the canonical planet ordering used for stable aspect
// subject names.
var planetOrder = map[string]int{
	"sun": 0, "moon": 1, "mercury": 2, "venus": 3, "mars": 4,
	"jupiter": 5, "saturn": 6, "uranus": 7, "neptune": 8, "pluto": 9,
}

// AspectSubject returns the stable subject name for an aspect, with the
// two planets in canonical order so (Mars, Saturn) and (Saturn, Mars)
// name the same subject.
func AspectSubject(a Aspect) string {
	first := strings.ToLower(a.First)
	second := strings.ToLower(a.Second)
	if planetOrder[first] > planetOrder[second] {
		first, second = second, first
	}
	return fmt.Sprintf("%s_%s_%s", first, strings.ToLower(a.Name), second)
}

// PlanetParams are the normalized generation parameters for a placement.
type PlanetParams struct {
	Planet     string
	Sign       string
	House      int
	Retrograde bool
}

// Canonical returns the parameter map used solely for cache keying.
func (p PlanetParams) Canonical() map[string]string {
	return map[string]string{
		"planet":     strings.ToLower(p.Planet),
		"sign":       strings.ToLower(p.Sign),
		"house":      strconv.Itoa(p.House),
		"retrograde": strconv.FormatBool(p.Retrograde),
	}
}

// HouseParams are the normalized generation parameters for a house cusp.
type HouseParams struct {
	Number int
	Sign   string
}

// Canonical returns the parameter map used solely for cache keying.
func (p HouseParams) Canonical() map[string]string {
	return map[string]string{
		"house": strconv.Itoa(p.Number),
		"sign":  strings.ToLower(p.Sign),
	}
}

// AspectParams are the normalized generation parameters for an aspect.
// The orb is bucketed to whole degrees so near-identical charts share
// cache entries.
type AspectParams struct {
	First  string
	Second string
	Name   string
	Orb    float64
}

// Canonical returns the parameter map used solely for cache keying.
func (p AspectParams) Canonical() map[string]string {
	first := strings.ToLower(p.First)
	second := strings.ToLower(p.Second)
	if planetOrder[first] > planetOrder[second] {
		first, second = second, first
	}
	return map[string]string{
		"first":  first,
		"second": second,
		"aspect": strings.ToLower(p.Name),
		"orb":    strconv.Itoa(int(p.Orb)),
	}
}
