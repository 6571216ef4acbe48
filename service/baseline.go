package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/connascence/conscan/domain"
	"github.com/connascence/conscan/internal/version"
)

// BaselineEntry records one accepted finding by its stable fingerprint.
// Location and message are stored for reporting only; comparison is by ID.
type BaselineEntry struct {
	ID       string          `json:"id"`
	Type     domain.Rule     `json:"type"`
	Severity domain.Severity `json:"severity"`
	File     string          `json:"file"`
	Line     int             `json:"line"`
	Message  string          `json:"message"`
}

// Baseline is a snapshot of accepted findings. Runs compared against it
// only gate on findings whose fingerprint is not in the snapshot, so an
// existing codebase can adopt a strict policy without fixing every debt
// item first.
type Baseline struct {
	CreatedAt string          `json:"created_at"`
	Policy    string          `json:"policy"`
	Version   string          `json:"version"`
	Entries   []BaselineEntry `json:"entries"`
}

// BaselineDiff is the drift between a baseline and a current run.
type BaselineDiff struct {
	// New holds current findings absent from the baseline
	New []domain.Finding

	// Resolved holds baseline entries no longer present
	Resolved []BaselineEntry
}

// NewBaseline snapshots the non-pseudo findings of a report.
func NewBaseline(report *domain.Report) *Baseline {
	violations := report.Violations()
	entries := make([]BaselineEntry, 0, len(violations))
	for _, f := range violations {
		entries = append(entries, BaselineEntry{
			ID:       f.ID,
			Type:     f.Type,
			Severity: f.Severity,
			File:     f.Location.FilePath,
			Line:     f.Location.StartLine,
			Message:  f.Message,
		})
	}
	return &Baseline{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Policy:    report.Policy,
		Version:   version.Version,
		Entries:   entries,
	}
}

// LoadBaseline reads a baseline snapshot from disk.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
		return nil, domain.NewInvalidInputError("cannot read baseline file", err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, domain.NewInvalidInputError("malformed baseline file", err)
	}
	return &b, nil
}

// Save writes the baseline snapshot, creating parent directories as needed.
func (b *Baseline) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return domain.NewOutputError("cannot create baseline directory", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return domain.NewOutputError("cannot write baseline file", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// Has reports whether the fingerprint is part of the snapshot.
func (b *Baseline) Has(id string) bool {
	for _, e := range b.Entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Diff splits a current run into findings new since the baseline and
// baseline entries that have since been resolved. Pseudo-findings are
// never part of the drift.
func (b *Baseline) Diff(findings []domain.Finding) BaselineDiff {
	accepted := make(map[string]bool, len(b.Entries))
	for _, e := range b.Entries {
		accepted[e.ID] = true
	}

	current := make(map[string]bool, len(findings))
	var diff BaselineDiff
	for _, f := range findings {
		if f.Type.IsPseudo() {
			continue
		}
		current[f.ID] = true
		if !accepted[f.ID] {
			diff.New = append(diff.New, f)
		}
	}
	for _, e := range b.Entries {
		if !current[e.ID] {
			diff.Resolved = append(diff.Resolved, e)
		}
	}
	return diff
}
