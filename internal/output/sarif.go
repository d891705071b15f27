package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/danger/internal/ledger"
	"github.com/dshills/danger/internal/review"
)

// SARIFWriter outputs violations in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string           `json:"ruleId"`
	Level      string           `json:"level"`
	Message    sarifMessage     `json:"message"`
	Locations  []sarifLocation  `json:"locations,omitempty"`
	Properties *sarifProperties `json:"properties,omitempty"`
}

type sarifProperties struct {
	Sticky bool `json:"sticky"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func buildSARIF(report *review.Report) sarifLog {
	rules := []sarifRule{}
	results := []sarifResult{}

	for _, kind := range ledger.Kinds {
		vs := report.Status.Of(kind)
		if len(vs) == 0 {
			continue
		}
		ruleID := "danger/" + string(kind)
		rules = append(rules, sarifRule{
			ID:               ruleID,
			Name:             kind.Title(),
			ShortDescription: sarifMessage{Text: kind.Title() + " reported by the Dangerfile"},
			DefaultConfig:    sarifDefaultConfig{Level: kindToLevel(kind)},
		})

		for _, v := range vs {
			result := sarifResult{
				RuleID:  ruleID,
				Level:   kindToLevel(kind),
				Message: sarifMessage{Text: v.Message},
			}
			if v.File != "" {
				loc := sarifLocation{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: v.File},
					},
				}
				if v.Line > 0 {
					loc.PhysicalLocation.Region = &sarifRegion{StartLine: v.Line}
				}
				result.Locations = append(result.Locations, loc)
			}
			if v.Sticky {
				result.Properties = &sarifProperties{Sticky: true}
			}
			results = append(results, result)
		}
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "danger",
						Version:        report.Version,
						InformationURI: "https://danger.systems/",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// kindToLevel maps a violation kind to a SARIF level.
func kindToLevel(k ledger.Kind) string {
	switch k {
	case ledger.KindError:
		return "error"
	case ledger.KindWarning:
		return "warning"
	default:
		return "note"
	}
}
