package history

import "time"

const SchemaVersion = 1

// Snapshot summarizes one analysis run.
type Snapshot struct {
	RunID           string        `json:"run_id"`
	ProjectKey      string        `json:"project_key"`
	SchemaVersion   int           `json:"schema_version"`
	Timestamp       time.Time     `json:"timestamp"`
	CommitHash      string        `json:"commit_hash,omitempty"`
	CommitTimestamp time.Time     `json:"commit_timestamp,omitempty"`
	Duration        time.Duration `json:"duration"`
	FileCount       int           `json:"file_count"`
	EdgeCount       int           `json:"edge_count"`
	ExternalCount   int           `json:"external_count"`
	IndexImports    int           `json:"index_imports"`
	ParentImports   int           `json:"parent_imports"`
	PrivateImports  int           `json:"private_imports"`
	FileErrorCount  int           `json:"file_error_count"`
}

// ViolationCount is the total across all violation kinds.
func (s Snapshot) ViolationCount() int {
	return s.IndexImports + s.ParentImports + s.PrivateImports
}

type TrendPoint struct {
	RunID           string    `json:"run_id"`
	Timestamp       time.Time `json:"timestamp"`
	CommitHash      string    `json:"commit_hash,omitempty"`
	FileCount       int       `json:"file_count"`
	ViolationCount  int       `json:"violation_count"`
	IndexImports    int       `json:"index_imports"`
	ParentImports   int       `json:"parent_imports"`
	PrivateImports  int       `json:"private_imports"`
	FileErrorCount  int       `json:"file_error_count"`
	DeltaFiles      int       `json:"delta_files"`
	DeltaViolations int       `json:"delta_violations"`
	DeltaFileErrors int       `json:"delta_file_errors"`
	AvgViolations   float64   `json:"avg_violations"`
	WindowHours     float64   `json:"window_hours"`
}

type TrendReport struct {
	ProjectKey    string       `json:"project_key"`
	SchemaVersion int          `json:"schema_version"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	ScanCount     int          `json:"scan_count"`
	Points        []TrendPoint `json:"points"`
}
