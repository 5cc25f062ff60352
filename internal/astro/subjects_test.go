package astro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderealab/ephemeris/internal/interp"
)

func testChart() *Chart {
	return &Chart{
		ID: "chart-1",
		Placements: []Placement{
			{Planet: "Sun", Sign: "Leo", House: 10, Degree: 15.2},
			{Planet: "Moon", Sign: "Pisces", House: 4, Degree: 3.7},
			{Planet: "Mercury", Sign: "Gemini", House: 3, Degree: 21.0, Retrograde: true},
		},
		Houses: []HouseCusp{
			{Number: 1, Sign: "Scorpio"},
			{Number: 7, Sign: "Taurus"},
			{Number: 10, Sign: "Leo"},
		},
		Aspects: []Aspect{
			{First: "Saturn", Second: "Mars", Name: "Square", Orb: 2.4},
			{First: "Sun", Second: "Moon", Name: "Trine", Orb: 1.1},
		},
	}
}

func specByKind(specs []interp.TypeSpec, kind string) *interp.TypeSpec {
	for i := range specs {
		if specs[i].Kind == kind {
			return &specs[i]
		}
	}
	return nil
}

func TestAspectSubject_CanonicalPlanetOrder(t *testing.T) {
	// Given: the same aspect stated in both directions
	a := Aspect{First: "Saturn", Second: "Mars", Name: "Square"}
	b := Aspect{First: "Mars", Second: "Saturn", Name: "Square"}

	// Then: both name the same subject, faster planet first
	assert.Equal(t, "mars_square_saturn", AspectSubject(a))
	assert.Equal(t, AspectSubject(a), AspectSubject(b))
}

func TestAspectParams_CanonicalOrderAndOrbBucketing(t *testing.T) {
	a := AspectParams{First: "Saturn", Second: "Mars", Name: "Square", Orb: 2.9}
	b := AspectParams{First: "Mars", Second: "Saturn", Name: "Square", Orb: 2.1}

	// Whole-degree orb bucketing makes near-identical aspects share keys.
	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, "mars", a.Canonical()["first"])
	assert.Equal(t, "2", a.Canonical()["orb"])
}

func TestBuildTypeSpecs_CoversEveryChartSubject(t *testing.T) {
	specs := BuildTypeSpecs(testChart())

	planets := specByKind(specs, KindPlanet)
	require.NotNil(t, planets)
	assert.Len(t, planets.Subjects, 3)
	assert.False(t, planets.Singular)

	houses := specByKind(specs, KindHouse)
	require.NotNil(t, houses)
	assert.Len(t, houses.Subjects, 3)
	assert.Equal(t, "house_1", houses.Subjects[0].Name)

	aspects := specByKind(specs, KindAspect)
	require.NotNil(t, aspects)
	require.Len(t, aspects.Subjects, 2)
	assert.Equal(t, "mars_square_saturn", aspects.Subjects[0].Name)
	assert.Equal(t, "sun_trine_moon", aspects.Subjects[1].Name)

	angles := specByKind(specs, KindAngle)
	require.NotNil(t, angles)
	require.Len(t, angles.Subjects, 2)
	assert.Equal(t, "ascendant", angles.Subjects[0].Name)
	assert.Equal(t, "scorpio", angles.Subjects[0].Params["sign"])
	assert.Equal(t, "midheaven", angles.Subjects[1].Name)

	summary := specByKind(specs, KindSummary)
	require.NotNil(t, summary)
	assert.True(t, summary.Singular)
	require.Len(t, summary.Subjects, 1)
}

func TestBuildTypeSpecs_PlanetParamsAreNormalized(t *testing.T) {
	specs := BuildTypeSpecs(testChart())

	planets := specByKind(specs, KindPlanet)
	require.NotNil(t, planets)

	var mercury *interp.Subject
	for i := range planets.Subjects {
		if planets.Subjects[i].Name == "mercury" {
			mercury = &planets.Subjects[i]
		}
	}
	require.NotNil(t, mercury)
	assert.Equal(t, map[string]string{
		"planet":     "mercury",
		"sign":       "gemini",
		"house":      "3",
		"retrograde": "true",
	}, mercury.Params)
}

func TestBuildTypeSpecs_SummaryCarriesTheBigThree(t *testing.T) {
	specs := BuildTypeSpecs(testChart())

	summary := specByKind(specs, KindSummary)
	require.NotNil(t, summary)
	params := summary.Subjects[0].Params

	assert.Equal(t, "leo", params["sun"])
	assert.Equal(t, "pisces", params["moon"])
	assert.Equal(t, "scorpio", params["ascendant"])
}

func TestBuildTypeSpecs_ChartWithoutHousesSkipsAngles(t *testing.T) {
	chart := testChart()
	chart.Houses = nil

	specs := BuildTypeSpecs(chart)

	assert.Nil(t, specByKind(specs, KindAngle))
	houses := specByKind(specs, KindHouse)
	require.NotNil(t, houses)
	assert.Empty(t, houses.Subjects)
}
