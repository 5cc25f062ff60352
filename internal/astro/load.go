package astro

import (
	"encoding/json"
	"os"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
)

// LoadChart reads a chart description from a JSON file.
func LoadChart(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidParameter, err)
	}
	var chart Chart
	if err := json.Unmarshal(data, &chart); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidParameter, err)
	}
	if chart.ID == "" {
		return nil, ferrors.InvalidParameter("chart id is required")
	}
	return &chart, nil
}
