package report

import (
	"encoding/json"
	"io"
)

// JSONGenerator generates JSON reports.
type JSONGenerator struct {
	Indent bool
}

// Generate implements Generator.
func (g *JSONGenerator) Generate(report *CampaignReport, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if g.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(report)
}

// Extension implements Generator.
func (g *JSONGenerator) Extension() string { return "json" }

// GenerateBytes generates the report as a JSON byte slice.
func (g *JSONGenerator) GenerateBytes(report *CampaignReport) ([]byte, error) {
	if g.Indent {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}
