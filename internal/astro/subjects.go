package astro

import (
	"strconv"
	"strings"

	"github.com/siderealab/ephemeris/internal/interp"
)

// Subject kinds produced by BuildTypeSpecs.
const (
	KindPlanet  = "planet"
	KindHouse   = "house"
	KindAspect  = "aspect"
	KindAngle   = "angle"
	KindSummary = "summary"
)

// BuildTypeSpecs extracts every interpretation subject of a chart: one
// subject per placement, house cusp, and aspect, the signs on the chart
// angles, and a singular chart summary. The facade consumes the result
// without knowing anything about charts.
func BuildTypeSpecs(chart *Chart) []interp.TypeSpec {
	specs := make([]interp.TypeSpec, 0, 5)

	planets := make([]interp.Subject, 0, len(chart.Placements))
	for _, p := range chart.Placements {
		params := PlanetParams{
			Planet:     p.Planet,
			Sign:       p.Sign,
			House:      p.House,
			Retrograde: p.Retrograde,
		}
		planets = append(planets, interp.Subject{
			Name:   strings.ToLower(p.Planet),
			Params: params.Canonical(),
		})
	}
	specs = append(specs, interp.TypeSpec{Kind: KindPlanet, Subjects: planets})

	houses := make([]interp.Subject, 0, len(chart.Houses))
	for _, h := range chart.Houses {
		params := HouseParams{Number: h.Number, Sign: h.Sign}
		houses = append(houses, interp.Subject{
			Name:   "house_" + strconv.Itoa(h.Number),
			Params: params.Canonical(),
		})
	}
	specs = append(specs, interp.TypeSpec{Kind: KindHouse, Subjects: houses})

	aspects := make([]interp.Subject, 0, len(chart.Aspects))
	for _, a := range chart.Aspects {
		params := AspectParams{First: a.First, Second: a.Second, Name: a.Name, Orb: a.Orb}
		aspects = append(aspects, interp.Subject{
			Name:   AspectSubject(a),
			Params: params.Canonical(),
		})
	}
	specs = append(specs, interp.TypeSpec{Kind: KindAspect, Subjects: aspects})

	if angles := angleSubjects(chart); len(angles) > 0 {
		specs = append(specs, interp.TypeSpec{Kind: KindAngle, Subjects: angles})
	}

	specs = append(specs, interp.TypeSpec{
		Kind:     KindSummary,
		Singular: true,
		Subjects: []interp.Subject{{Name: KindSummary, Params: summaryParams(chart)}},
	})

	return specs
}

// angleSubjects derives the ascendant and midheaven from the first and
// tenth house cusps. Charts without house data yield no angle subjects.
func angleSubjects(chart *Chart) []interp.Subject {
	subjects := make([]interp.Subject, 0, 2)
	for _, h := range chart.Houses {
		var name string
		switch h.Number {
		case 1:
			name = "ascendant"
		case 10:
			name = "midheaven"
		default:
			continue
		}
		subjects = append(subjects, interp.Subject{
			Name: name,
			Params: map[string]string{
				"angle": name,
				"sign":  strings.ToLower(h.Sign),
			},
		})
	}
	return subjects
}

// summaryParams collapses the chart's defining placements into the
// parameters of the singular summary subject. The big three are what the
// summary text hinges on.
func summaryParams(chart *Chart) map[string]string {
	params := map[string]string{"chart": "natal"}
	for _, p := range chart.Placements {
		switch strings.ToLower(p.Planet) {
		case "sun":
			params["sun"] = strings.ToLower(p.Sign)
		case "moon":
			params["moon"] = strings.ToLower(p.Sign)
		}
	}
	for _, h := range chart.Houses {
		if h.Number == 1 {
			params["ascendant"] = strings.ToLower(h.Sign)
		}
	}
	return params
}
