// Package taxonomy defines the finding model shared by all analyzers,
// severity tiers, and stable ID generation for report entries.
package taxonomy

import (
	"crypto/sha256"
	"fmt"
)

// Category names the analyzer a finding came from.
type Category string

// Analyzer categories.
const (
	CategoryAPOSD       Category = "aposd"
	CategoryConnascence Category = "connascence"
	CategoryTemporal    Category = "temporal"
)

// Finding is one reportable design-quality issue, flattened from an
// analyzer-specific result so reports and CI gates can treat all
// analyzers alike.
type Finding struct {
	// ID is a stable identifier derived from the finding's content.
	ID string `json:"id"`

	// Category is the analyzer that produced the finding.
	Category Category `json:"category"`

	// Kind is the analyzer-specific kind (e.g., "ShallowModule",
	// "Position", "PairedOperation").
	Kind string `json:"kind"`

	// Module is the module the finding belongs to.
	Module string `json:"module"`

	// Target is the function, type or operation concerned, if any.
	Target string `json:"target,omitempty"`

	// Severity is in [0,1]; higher is worse.
	Severity float64 `json:"severity"`

	// Tier is the label derived from Severity.
	Tier Tier `json:"tier"`

	// Message describes the issue.
	Message string `json:"message"`

	// Suggestion is the recommended remediation.
	Suggestion string `json:"suggestion"`

	// File and Line locate the finding when known.
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// NewFinding fills in ID and Tier.
func NewFinding(cat Category, kind, module, target string, severity float64, message, suggestion string) Finding {
	return Finding{
		ID:         GenerateID(string(cat), kind, module, target+"|"+message),
		Category:   cat,
		Kind:       kind,
		Module:     module,
		Target:     target,
		Severity:   severity,
		Tier:       TierOf(severity),
		Message:    message,
		Suggestion: suggestion,
	}
}

// GenerateID produces a stable, deterministic ID for a finding. The
// ID is a sha256 hash truncated to 8 hex characters, prefixed with
// "fd-".
func GenerateID(category, kind, module, detail string) string {
	input := fmt.Sprintf("%s:%s:%s:%s", category, kind, module, detail)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("fd-%x", hash[:4])
}
