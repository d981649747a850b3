package formats

import (
	"encoding/json"
	"fmt"
	"io"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/engine/classify"
	"virtualmod/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDIndexImport   = "VMOD001"
	ruleIDParentImport  = "VMOD002"
	ruleIDPrivateImport = "VMOD003"
	ruleIDFileError     = "VMOD900"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
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
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLocation   `json:"locations,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
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
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

type ruleInfo struct {
	id          string
	name        string
	description string
}

var rulesByKind = map[classify.Kind]ruleInfo{
	classify.KindIndexImport: {
		id:          ruleIDIndexImport,
		name:        "IndexImport",
		description: "A file imports the barrel of its own virtual module.",
	},
	classify.KindParentModuleImport: {
		id:          ruleIDParentImport,
		name:        "ParentModuleImport",
		description: "A file imports the barrel of a virtual module that contains it.",
	},
	classify.KindPrivateModuleImport: {
		id:          ruleIDPrivateImport,
		name:        "PrivateModuleImport",
		description: "A file imports a private path inside another virtual module.",
	},
}

// SARIFReporter emits one result per finding plus a note per aborted file.
// File URIs are relative to baseDir so reports are safe to share.
type SARIFReporter struct {
	baseDir string
}

func (r *SARIFReporter) Report(w io.Writer, report *ports.Report) error {
	data, err := GenerateSARIF(r.baseDir, report)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// GenerateSARIF builds a SARIF v2.1.0 document from a report.
func GenerateSARIF(projectRoot string, report *ports.Report) ([]byte, error) {
	results := make([]sarifResult, 0, len(report.Findings)+len(report.FileErrors))
	seen := make(map[classify.Kind]bool)

	for _, f := range report.Findings {
		rule, ok := rulesByKind[f.Violation.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown violation kind %q", f.Violation.Kind)
		}
		seen[f.Violation.Kind] = true
		results = append(results, sarifResult{
			RuleID:     rule.id,
			Level:      "error",
			Message:    sarifMessage{Text: f.Message},
			Locations:  []sarifLocation{fileLocation(projectRoot, f.File, f.Line, f.Column)},
			Properties: f.Violation.Data(),
		})
	}

	for _, fe := range report.FileErrors {
		results = append(results, sarifResult{
			RuleID:    ruleIDFileError,
			Level:     "warning",
			Message:   sarifMessage{Text: fmt.Sprintf("Analysis aborted (%s): %s", fe.Code, fe.Err)},
			Locations: []sarifLocation{fileLocation(projectRoot, fe.Path, 0, 0)},
		})
	}

	doc := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "virtualmod",
						Version: version.Version,
						Rules:   buildSARIFRules(seen, len(report.FileErrors) > 0),
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(doc, "", "  ")
}

// buildSARIFRules returns only the rules referenced by results, in kind order.
func buildSARIFRules(seen map[classify.Kind]bool, fileErrors bool) []sarifRule {
	rules := make([]sarifRule, 0, len(seen)+1)
	for _, kind := range classify.Kinds() {
		if !seen[kind] {
			continue
		}
		info := rulesByKind[kind]
		rules = append(rules, sarifRule{
			ID:               info.id,
			Name:             info.name,
			ShortDescription: sarifMessage{Text: info.description},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
		})
	}
	if fileErrors {
		rules = append(rules, sarifRule{
			ID:               ruleIDFileError,
			Name:             "AnalysisAborted",
			ShortDescription: sarifMessage{Text: "A file could not be analyzed; its imports were not checked."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}
	return rules
}

func fileLocation(projectRoot, path string, line, column int) sarifLocation {
	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{
				URI:       relativePath(projectRoot, path),
				URIBaseID: "%SRCROOT%",
			},
		},
	}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{
			StartLine:   line,
			StartColumn: column,
		}
	}
	return loc
}
