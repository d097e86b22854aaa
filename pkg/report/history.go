package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Run statuses recorded in the history.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// HistoricalEntry represents a single run in the historical
// log.
type HistoricalEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	RuleSet     string    `json:"rule_set"`
	Root        string    `json:"root"`
	Status      string    `json:"status"`
	Duration    string    `json:"duration"`
	Totals      Totals    `json:"totals"`
	SuccessRate float64   `json:"success_rate"`
}

// NewHistoricalEntry summarizes a report for the history log.
func NewHistoricalEntry(
	r *Report,
	runID, ruleSet, root string,
	timestamp time.Time,
	duration time.Duration,
) HistoricalEntry {
	status := StatusPassed
	if !r.OK() {
		status = StatusFailed
	}
	return HistoricalEntry{
		Timestamp:   timestamp,
		RunID:       runID,
		RuleSet:     ruleSet,
		Root:        root,
		Status:      status,
		Duration:    duration.String(),
		Totals:      r.Totals,
		SuccessRate: r.SuccessRate,
	}
}

// AppendToHistory adds an entry to the historical log stored
// at historyPath. Each entry is a single JSON line.
func AppendToHistory(
	historyPath string,
	entry HistoricalEntry,
) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf(
			"failed to marshal history entry: %w", err,
		)
	}

	if dir := filepath.Dir(historyPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf(
				"failed to create history directory: %w", err,
			)
		}
	}

	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}

// ReadHistory returns every entry of the historical log in file
// order. A missing file yields no entries.
func ReadHistory(historyPath string) ([]HistoricalEntry, error) {
	file, err := os.Open(historyPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	var entries []HistoricalEntry
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e HistoricalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf(
				"history line %d: %w", line, err,
			)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
