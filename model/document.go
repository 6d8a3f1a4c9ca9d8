package model

import (
	"strings"
	"time"
)

// Status is the session-wide processing state. Exactly one document and one
// status value exist per process; a new upload replaces both.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusTranscribing Status = "transcribing"
	StatusAnalyzing    Status = "analyzing"
	StatusResearching  Status = "researching"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
)

// InFlight reports whether an external call is currently being awaited.
func (s Status) InFlight() bool {
	switch s {
	case StatusTranscribing, StatusAnalyzing, StatusResearching:
		return true
	}
	return false
}

// Severity of a risk finding. Ordinal: HIGH is the most severe.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ParseSeverity normalizes a model-emitted severity string. Anything
// unrecognized is treated as LOW rather than rejected.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Rank returns the ordinal position of the severity, for comparisons.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// RiskFinding is a flagged clause, omission or defect in the document.
// Location is a quoted excerpt or clause pointer, best effort, may be empty.
type RiskFinding struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
}

// AnalysisResult is the structured output of the analysis stage. It is built
// atomically from one model response and never mutated afterwards. RawText is
// always the verbatim transcription, never the (possibly truncated) copy the
// reasoning model echoes back.
type AnalysisResult struct {
	RawText             string        `json:"rawText"`
	Summary             string        `json:"summary"`
	DocumentType        string        `json:"documentType"`
	Parties             []string      `json:"parties"`
	Dates               []string      `json:"dates"`
	MissingRequirements []string      `json:"missingRequirements"`
	RiskFactors         []RiskFinding `json:"riskFactors"`
}

// Normalize defaults absent arrays to empty and canonicalizes severities, so
// consumers never see nil slices or lowercase severity values.
func (a *AnalysisResult) Normalize() {
	if a.Parties == nil {
		a.Parties = []string{}
	}
	if a.Dates == nil {
		a.Dates = []string{}
	}
	if a.MissingRequirements == nil {
		a.MissingRequirements = []string{}
	}
	if a.RiskFactors == nil {
		a.RiskFactors = []RiskFinding{}
	}
	for i := range a.RiskFactors {
		a.RiskFactors[i].Severity = ParseSeverity(string(a.RiskFactors[i].Severity))
	}
}

// HasHighRisk reports whether any finding carries HIGH severity.
func (a *AnalysisResult) HasHighRisk() bool {
	for _, r := range a.RiskFactors {
		if r.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// Source is a cited web reference returned by the grounded research call.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ResearchEntry is one answered research query. Findings may embed light
// markup; Sources may be empty when the model returns no grounding metadata.
type ResearchEntry struct {
	Query     string    `json:"query"`
	Findings  string    `json:"findings"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentRecord is the single in-memory document of the session. The image
// payload is owned exclusively by the record: it feeds both the on-screen
// preview and the transcription request, and is never written to disk.
type DocumentRecord struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	MediaType string          `json:"media_type"`
	Image     []byte          `json:"-"`
	Analysis  *AnalysisResult `json:"analysis,omitempty"`
	Research  []ResearchEntry `json:"research"`
	CreatedAt time.Time       `json:"created_at"`
}

// Clone returns a copy safe to hand to readers while the pipeline keeps
// mutating the original. The image bytes are shared; they are never mutated
// after upload.
func (d *DocumentRecord) Clone() *DocumentRecord {
	if d == nil {
		return nil
	}
	c := *d
	if d.Analysis != nil {
		a := *d.Analysis
		a.Parties = append([]string{}, d.Analysis.Parties...)
		a.Dates = append([]string{}, d.Analysis.Dates...)
		a.MissingRequirements = append([]string{}, d.Analysis.MissingRequirements...)
		a.RiskFactors = append([]RiskFinding{}, d.Analysis.RiskFactors...)
		c.Analysis = &a
	}
	c.Research = append([]ResearchEntry{}, d.Research...)
	return &c
}
