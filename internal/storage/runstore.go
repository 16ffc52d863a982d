// Package storage persists run history for the backlog relay as a YAML file
// beside the other relay state.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RunRecord captures the outcome of one pipeline run. A run with failed
// items still counts as completed: the failures mark which items never
// reached the downstream store despite being marked PROCESSED locally.
type RunRecord struct {
	StartedAt        string   `yaml:"started_at"`
	Found            int      `yaml:"found"`
	Processed        int      `yaml:"processed"`
	Skipped          int      `yaml:"skipped,omitempty"`
	AlreadyProcessed int      `yaml:"already_processed,omitempty"`
	RemainingNew     int      `yaml:"remaining_new"`
	FailedItems      []string `yaml:"failed_items,omitempty"`
	ReportPath       string   `yaml:"report_path,omitempty"`
}

// RunsFile is the top-level structure of runs.yaml.
type RunsFile struct {
	Version string      `yaml:"version"`
	Runs    []RunRecord `yaml:"runs"`
}

// RunHistory defines the interface for recording and querying pipeline runs.
type RunHistory interface {
	Append(record RunRecord) error
	Recent(n int) ([]RunRecord, error)
	All() ([]RunRecord, error)
	Load() error
	Save() error
}

type fileRunHistory struct {
	basePath string
	data     RunsFile
}

// NewRunHistory creates a RunHistory backed by a runs.yaml file in the given
// base directory.
func NewRunHistory(basePath string) RunHistory {
	return &fileRunHistory{
		basePath: basePath,
		data:     RunsFile{Version: "1.0"},
	}
}

func (h *fileRunHistory) filePath() string {
	return filepath.Join(h.basePath, "runs.yaml")
}

// Append adds a run record to the in-memory history. Save persists it.
func (h *fileRunHistory) Append(record RunRecord) error {
	if record.StartedAt == "" {
		return fmt.Errorf("appending run: started_at must not be empty")
	}
	h.data.Runs = append(h.data.Runs, record)
	return nil
}

// Recent returns the most recent n runs, newest last.
func (h *fileRunHistory) Recent(n int) ([]RunRecord, error) {
	if n <= 0 || n >= len(h.data.Runs) {
		return h.All()
	}
	out := make([]RunRecord, n)
	copy(out, h.data.Runs[len(h.data.Runs)-n:])
	return out, nil
}

// All returns every recorded run in append order.
func (h *fileRunHistory) All() ([]RunRecord, error) {
	out := make([]RunRecord, len(h.data.Runs))
	copy(out, h.data.Runs)
	return out, nil
}

func (h *fileRunHistory) Load() error {
	data, err := os.ReadFile(h.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			h.data = RunsFile{Version: "1.0"}
			return nil
		}
		return fmt.Errorf("loading run history: %w", err)
	}

	var rf RunsFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("loading run history: parsing YAML: %w", err)
	}
	h.data = rf
	return nil
}

func (h *fileRunHistory) Save() error {
	if err := os.MkdirAll(h.basePath, 0o750); err != nil {
		return fmt.Errorf("saving run history: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&h.data)
	if err != nil {
		return fmt.Errorf("saving run history: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(h.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving run history: writing file: %w", err)
	}
	return nil
}
